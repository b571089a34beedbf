// Package indexdb keeps a SQLite catalogue of generated maps and written
// snapshots. Snapshot files stay the source of truth; the index only makes
// them queryable.
package indexdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/gravitas-games/hexworld/pkg/snapshot"
)

// FileName is the index database's name inside the data directory.
const FileName = "index.sqlite"

type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	// mu orders sends on ch against close(ch).
	mu     sync.Mutex
	closed bool
}

type reqKind int

const (
	reqMap reqKind = iota + 1
	reqMapRemoved
	reqSnapshot
	reqFlush
)

type req struct {
	kind reqKind

	mapRow   MapRow
	snapshot SnapshotRow
	done     chan struct{}
}

// MapRow is one generated map. RemovedTick is nil while the map exists.
type MapRow struct {
	Name          string  `json:"name"`
	Width         int     `json:"width"`
	Height        int     `json:"height"`
	WrapsX        bool    `json:"wraps_x"`
	Tiles         int     `json:"tiles"`
	GeneratedTick uint64  `json:"generated_tick"`
	RemovedTick   *uint64 `json:"removed_tick,omitempty"`
}

// SnapshotRow describes one snapshot file.
type SnapshotRow struct {
	Tick      uint64 `json:"tick"`
	Path      string `json:"path"`
	Maps      int    `json:"maps"`
	Entities  int    `json:"entities"`
	TileTypes int    `json:"tile_types"`
	WrittenAt string `json:"written_at"`
}

// OpenSQLite opens (creating if needed) the index at path and starts its
// writer goroutine.
func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 4096),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS maps (
			name TEXT PRIMARY KEY,
			width INTEGER NOT NULL,
			height INTEGER NOT NULL,
			wraps_x INTEGER NOT NULL,
			tiles INTEGER NOT NULL,
			generated_tick INTEGER NOT NULL,
			removed_tick INTEGER
		);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			tick INTEGER PRIMARY KEY,
			path TEXT NOT NULL,
			maps INTEGER NOT NULL,
			entities INTEGER NOT NULL,
			tile_types INTEGER NOT NULL,
			written_at TEXT NOT NULL
		);`,
		`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1');`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Close drains pending writes and closes the database.
func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.ch)
		s.mu.Unlock()
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) enqueue(r req) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- r:
	default:
		// the writer fell behind; snapshot files remain authoritative
	}
}

// RecordMap notes a newly generated map. A name that is reused after a
// removal replaces the old row.
func (s *SQLiteIndex) RecordMap(row MapRow) {
	s.enqueue(req{kind: reqMap, mapRow: row})
}

// RecordMapRemoved stamps the removal tick on a map's row.
func (s *SQLiteIndex) RecordMapRemoved(name string, tick uint64) {
	s.enqueue(req{kind: reqMapRemoved, mapRow: MapRow{Name: name, RemovedTick: &tick}})
}

// RecordSnapshot notes a snapshot written to path.
func (s *SQLiteIndex) RecordSnapshot(path string, snap snapshot.SnapshotV1) {
	s.enqueue(req{kind: reqSnapshot, snapshot: SnapshotRow{
		Tick:      snap.Header.Tick,
		Path:      path,
		Maps:      len(snap.Maps),
		Entities:  len(snap.Entities),
		TileTypes: len(snap.TileTypes),
		WrittenAt: time.Now().UTC().Format(time.RFC3339Nano),
	}})
}

// Flush blocks until every write queued before it is committed.
func (s *SQLiteIndex) Flush(ctx context.Context) error {
	if s == nil {
		return errors.New("index closed")
	}
	done := make(chan struct{})
	if err := s.send(ctx, req{kind: reqFlush, done: done}); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *SQLiteIndex) send(ctx context.Context, r req) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("index closed")
	}
	select {
	case s.ch <- r:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Writes are rare (one row per map or snapshot), so every request commits
// on its own.
func (s *SQLiteIndex) loop() {
	insertMap, _ := s.db.Prepare(`INSERT OR REPLACE INTO maps(name,width,height,wraps_x,tiles,generated_tick,removed_tick) VALUES(?,?,?,?,?,?,NULL)`)
	removeMap, _ := s.db.Prepare(`UPDATE maps SET removed_tick=? WHERE name=? AND removed_tick IS NULL`)
	insertSnapshot, _ := s.db.Prepare(`INSERT OR REPLACE INTO snapshots(tick,path,maps,entities,tile_types,written_at) VALUES(?,?,?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertMap, removeMap, insertSnapshot} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	for r := range s.ch {
		switch r.kind {
		case reqMap:
			m := r.mapRow
			if insertMap != nil {
				_, _ = insertMap.Exec(m.Name, m.Width, m.Height, boolInt(m.WrapsX), m.Tiles, int64(m.GeneratedTick))
			}
		case reqMapRemoved:
			if removeMap != nil {
				_, _ = removeMap.Exec(int64(*r.mapRow.RemovedTick), r.mapRow.Name)
			}
		case reqSnapshot:
			sn := r.snapshot
			if insertSnapshot != nil {
				_, _ = insertSnapshot.Exec(int64(sn.Tick), sn.Path, sn.Maps, sn.Entities, sn.TileTypes, sn.WrittenAt)
			}
		case reqFlush:
			close(r.done)
		}
	}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Maps lists every recorded map, removed ones included, by name.
func (s *SQLiteIndex) Maps(ctx context.Context) ([]MapRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name,width,height,wraps_x,tiles,generated_tick,removed_tick FROM maps ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MapRow
	for rows.Next() {
		var (
			m       MapRow
			wraps   int
			gen     int64
			removed sql.NullInt64
		)
		if err := rows.Scan(&m.Name, &m.Width, &m.Height, &wraps, &m.Tiles, &gen, &removed); err != nil {
			return nil, err
		}
		m.WrapsX = wraps != 0
		m.GeneratedTick = uint64(gen)
		if removed.Valid {
			t := uint64(removed.Int64)
			m.RemovedTick = &t
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Snapshots lists recorded snapshots, newest first.
func (s *SQLiteIndex) Snapshots(ctx context.Context) ([]SnapshotRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT tick,path,maps,entities,tile_types,written_at FROM snapshots ORDER BY tick DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SnapshotRow
	for rows.Next() {
		var (
			sn   SnapshotRow
			tick int64
		)
		if err := rows.Scan(&tick, &sn.Path, &sn.Maps, &sn.Entities, &sn.TileTypes, &sn.WrittenAt); err != nil {
			return nil, err
		}
		sn.Tick = uint64(tick)
		out = append(out, sn)
	}
	return out, rows.Err()
}

// LatestSnapshot returns the newest recorded snapshot; ok is false when
// none has been recorded.
func (s *SQLiteIndex) LatestSnapshot(ctx context.Context) (row SnapshotRow, ok bool, err error) {
	var tick int64
	err = s.db.QueryRowContext(ctx, `SELECT tick,path,maps,entities,tile_types,written_at FROM snapshots ORDER BY tick DESC LIMIT 1`).
		Scan(&tick, &row.Path, &row.Maps, &row.Entities, &row.TileTypes, &row.WrittenAt)
	if errors.Is(err, sql.ErrNoRows) {
		return SnapshotRow{}, false, nil
	}
	if err != nil {
		return SnapshotRow{}, false, err
	}
	row.Tick = uint64(tick)
	return row, true, nil
}
