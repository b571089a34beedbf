package persistence

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gravitas-games/hexworld/internal/persistence/indexdb"
	"github.com/gravitas-games/hexworld/pkg/engine"
	"github.com/gravitas-games/hexworld/pkg/snapshot"
	"github.com/gravitas-games/hexworld/pkg/tile"
)

type fakeIndex struct {
	mu        sync.Mutex
	snapshots []string
	maps      []indexdb.MapRow
	removed   map[string]uint64
}

func (f *fakeIndex) RecordSnapshot(path string, _ snapshot.SnapshotV1) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshots = append(f.snapshots, path)
}

func (f *fakeIndex) RecordMap(row indexdb.MapRow) {
	f.maps = append(f.maps, row)
}

func (f *fakeIndex) RecordMapRemoved(name string, tick uint64) {
	if f.removed == nil {
		f.removed = make(map[string]uint64)
	}
	f.removed[name] = tick
}

func (f *fakeIndex) snapshotCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.snapshots)
}

func quiet() *log.Logger { return log.New(io.Discard, "", 0) }

func snapAt(tick uint64) snapshot.SnapshotV1 {
	return snapshot.SnapshotV1{
		Header:    snapshot.Header{Version: snapshot.Version, Tick: tick},
		TileTypes: []string{tile.UnknownName},
	}
}

func TestWriterWritesAndIndexes(t *testing.T) {
	dir := t.TempDir()
	idx := &fakeIndex{}
	w := NewWriter(dir, idx, quiet())

	path, err := w.Write(snapAt(7))
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if want := filepath.Join(dir, "snapshots", "snap_7.zst"); path != want {
		t.Fatalf("path %s, want %s", path, want)
	}
	got, err := snapshot.ReadFile(path)
	if err != nil || got.Header.Tick != 7 {
		t.Fatalf("read back: tick=%d err=%v", got.Header.Tick, err)
	}
	if idx.snapshotCount() != 1 {
		t.Fatalf("expected index record")
	}
}

func TestLatestSnapshot(t *testing.T) {
	dir := t.TempDir()
	if got := LatestSnapshot(dir); got != "" {
		t.Fatalf("expected none, got %s", got)
	}
	w := NewWriter(dir, nil, quiet())
	for _, tick := range []uint64{5, 120, 40} {
		if _, err := w.Write(snapAt(tick)); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	// unrelated files are ignored
	os.WriteFile(filepath.Join(SnapshotDir(dir), "notes.txt"), []byte("x"), 0o644)
	os.WriteFile(filepath.Join(SnapshotDir(dir), "snap_x.zst"), []byte("x"), 0o644)

	if got := LatestSnapshot(dir); !strings.HasSuffix(got, "snap_120.zst") {
		t.Fatalf("unexpected latest %s", got)
	}
}

func TestWriterRunDrainsChannel(t *testing.T) {
	dir := t.TempDir()
	idx := &fakeIndex{}
	w := NewWriter(dir, idx, quiet())

	in := make(chan snapshot.SnapshotV1, 2)
	in <- snapAt(1)
	in <- snapAt(2)
	close(in)

	done := make(chan struct{})
	go func() {
		w.Run(context.Background(), in)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("Run did not return after channel close")
	}
	if idx.snapshotCount() != 2 {
		t.Fatalf("expected 2 snapshots, got %d", idx.snapshotCount())
	}
}

type memIO map[string]string

func (m memIO) Read(path string) (io.ReadCloser, error) {
	s, ok := m[path]
	if !ok {
		return nil, os.ErrNotExist
	}
	return io.NopCloser(strings.NewReader(s)), nil
}

func (memIO) TileAdded(tile.Index, *tile.Type) error { return nil }

func TestWatchMapsRecordsLifecycle(t *testing.T) {
	eng := engine.New(quiet())
	if err := eng.Setup(memIO{tile.TypesPath: `[{"name":"dirt"},{"name":"grass"},{"name":"sand"}]`}); err != nil {
		t.Fatalf("setup: %v", err)
	}
	bus := engine.NewSimpleEventBus()
	pump := engine.NewPump(eng, bus, engine.PumpConfig{Logger: quiet()})
	idx := &fakeIndex{}
	stop := WatchMaps(bus, eng, idx)

	pump.Submit(engine.GenerateMap{Name: "w", Width: 4, Height: 2, WrapsX: true})
	pump.Step()
	pump.Submit(engine.RemoveMap{Name: "w"})
	pump.Step()

	if len(idx.maps) != 1 {
		t.Fatalf("expected one map row, got %+v", idx.maps)
	}
	row := idx.maps[0]
	if row.Name != "w" || row.Width != 4 || row.Height != 2 || !row.WrapsX || row.Tiles != 15 || row.GeneratedTick != 1 {
		t.Fatalf("unexpected row %+v", row)
	}
	if idx.removed["w"] != 2 {
		t.Fatalf("expected removal at tick 2, got %v", idx.removed)
	}

	stop()
	pump.Submit(engine.GenerateMap{Name: "x", Width: 1, Height: 1})
	pump.Step()
	if len(idx.maps) != 1 {
		t.Fatalf("watcher still subscribed")
	}
}
