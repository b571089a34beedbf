// Package persistence writes engine snapshots to the data directory off the
// pump goroutine and keeps the index in step with the engine.
package persistence

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gravitas-games/hexworld/internal/persistence/indexdb"
	"github.com/gravitas-games/hexworld/pkg/engine"
	"github.com/gravitas-games/hexworld/pkg/snapshot"
)

// SnapshotIndex is told about every snapshot file written.
type SnapshotIndex interface {
	RecordSnapshot(path string, snap snapshot.SnapshotV1)
}

// MapIndex is told about maps coming and going.
type MapIndex interface {
	RecordMap(row indexdb.MapRow)
	RecordMapRemoved(name string, tick uint64)
}

// SnapshotDir is where snapshot files live under dataDir.
func SnapshotDir(dataDir string) string {
	return filepath.Join(dataDir, "snapshots")
}

// Writer stores snapshots as <data>/snapshots/snap_<tick>.zst.
type Writer struct {
	dir    string
	index  SnapshotIndex
	logger *log.Logger
}

// NewWriter creates a writer. index may be nil.
func NewWriter(dataDir string, index SnapshotIndex, logger *log.Logger) *Writer {
	if logger == nil {
		logger = log.New(os.Stderr, "[persistence] ", log.LstdFlags)
	}
	return &Writer{dir: SnapshotDir(dataDir), index: index, logger: logger}
}

// Write stores one snapshot and returns its path.
func (w *Writer) Write(snap snapshot.SnapshotV1) (string, error) {
	path := filepath.Join(w.dir, snapshot.FileName(snap.Header.Tick))
	if err := snapshot.WriteFile(path, snap); err != nil {
		return "", err
	}
	if w.index != nil {
		w.index.RecordSnapshot(path, snap)
	}
	return path, nil
}

// Run writes every snapshot received on in until ctx is done or in is
// closed. Write failures are logged.
func (w *Writer) Run(ctx context.Context, in <-chan snapshot.SnapshotV1) {
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-in:
			if !ok {
				return
			}
			path, err := w.Write(snap)
			if err != nil {
				w.logger.Printf("snapshot write: %v", err)
				continue
			}
			w.logger.Printf("snapshot tick=%d written to %s", snap.Header.Tick, path)
		}
	}
}

// LatestSnapshot returns the path of the highest-tick snapshot under
// dataDir, or "" when there is none.
func LatestSnapshot(dataDir string) string {
	dir := SnapshotDir(dataDir)
	ents, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var best string
	var bestTick uint64
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		base, ok := strings.CutPrefix(name, "snap_")
		if !ok {
			continue
		}
		base, ok = strings.CutSuffix(base, ".zst")
		if !ok {
			continue
		}
		tick, err := strconv.ParseUint(base, 10, 64)
		if err != nil {
			continue
		}
		if best == "" || tick > bestTick {
			bestTick = tick
			best = filepath.Join(dir, name)
		}
	}
	return best
}

const mapWatcherID = "persistence:maps"

// WatchMaps records map generation and removal events into idx. The
// returned func unsubscribes.
func WatchMaps(bus engine.EventBus, eng *engine.Engine, idx MapIndex) func() {
	bus.Subscribe(mapWatcherID, func(ev engine.Event) {
		switch ev.Type {
		case engine.EventMapGenerated:
			info, err := eng.Map(ev.Map)
			if err != nil {
				return
			}
			idx.RecordMap(indexdb.MapRow{
				Name:          info.Name,
				Width:         int(info.Width),
				Height:        int(info.Height),
				WrapsX:        info.WrapsX,
				Tiles:         info.Tiles,
				GeneratedTick: ev.Tick,
			})
		case engine.EventMapRemoved:
			idx.RecordMapRemoved(ev.Map, ev.Tick)
		}
	})
	return func() { bus.Unsubscribe(mapWatcherID) }
}
