package snapshot

import (
	"bytes"
	"path/filepath"
	"testing"
)

func sample() SnapshotV1 {
	return SnapshotV1{
		Header:    Header{Version: Version, Tick: 120, Maps: 1},
		TileTypes: []string{"unknown", "dirt", "grass"},
		Maps: []MapV1{{
			Name: "world", Width: 2, Height: 1, WrapsX: true,
			Tiles: []uint16{1, 2, 1, 2, 1, 2},
		}},
		Entities: []EntityV1{
			{ID: 1, Kind: "unit", Map: "world", Q: 1, R: 0, Path: [][2]int{{2, 0}}},
			{ID: 2, Kind: "selected", Owner: "alice", Map: "world", Q: 0, R: 1},
		},
		Selections: []SelectionV1{{Client: "alice", Entity: 2}},
		NextEntity: 3,
	}
}

func TestFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshots", FileName(120))
	if err := WriteFile(path, sample()); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Header.Tick != 120 || len(got.Maps) != 1 || len(got.Entities) != 2 {
		t.Fatalf("unexpected snapshot %+v", got)
	}
	if got.Maps[0].Tiles[5] != 2 || !got.Maps[0].WrapsX {
		t.Fatalf("map data lost: %+v", got.Maps[0])
	}
	if got.Entities[0].Path[0] != [2]int{2, 0} || got.Selections[0].Client != "alice" {
		t.Fatalf("entity data lost: %+v", got.Entities)
	}
}

func TestReadHeaderOnly(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, sample()); err != nil {
		t.Fatalf("write: %v", err)
	}
	h, err := ReadHeader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("read header: %v", err)
	}
	if h.Tick != 120 || h.Maps != 1 || h.Version != Version {
		t.Fatalf("unexpected header %+v", h)
	}
}

func TestRejectsUnknownVersion(t *testing.T) {
	snap := sample()
	snap.Header.Version = 9
	var buf bytes.Buffer
	if err := Write(&buf, snap); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Read(&buf); err == nil {
		t.Fatalf("expected version error")
	}
}

func TestFileName(t *testing.T) {
	if got := FileName(42); got != "snap_42.zst" {
		t.Fatalf("unexpected file name %q", got)
	}
}
