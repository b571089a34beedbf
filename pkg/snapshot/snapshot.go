// Package snapshot reads and writes compressed engine snapshots.
//
// A snapshot file is a zstd stream holding one JSON header line followed by
// the gob-encoded SnapshotV1.
package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

// Version is written into every header.
const Version = 1

type Header struct {
	Version int    `json:"version"`
	Tick    uint64 `json:"tick"`
	Maps    int    `json:"maps"`
}

type SnapshotV1 struct {
	Header Header `json:"header"`

	// TileTypes lists type names in index order; a snapshot only loads into
	// an engine whose registry has the same names at the same indices.
	TileTypes []string `json:"tile_types"`

	Maps       []MapV1       `json:"maps"`
	Entities   []EntityV1    `json:"entities"`
	Selections []SelectionV1 `json:"selections,omitempty"`
	NextEntity uint64        `json:"next_entity"`
}

type MapV1 struct {
	Name   string   `json:"name"`
	Width  uint8    `json:"width"`
	Height uint8    `json:"height"`
	WrapsX bool     `json:"wraps_x"`
	Tiles  []uint16 `json:"tiles"`
}

type EntityV1 struct {
	ID    uint64   `json:"id"`
	Kind  string   `json:"kind"`
	Owner string   `json:"owner,omitempty"`
	Map   string   `json:"map"`
	Q     int      `json:"q"`
	R     int      `json:"r"`
	Path  [][2]int `json:"path,omitempty"`
}

type SelectionV1 struct {
	Client string `json:"client"`
	Entity uint64 `json:"entity"`
}

// FileName is the conventional name of the snapshot taken at tick.
func FileName(tick uint64) string {
	return fmt.Sprintf("snap_%d.zst", tick)
}

// Write encodes snap to w.
func Write(w io.Writer, snap SnapshotV1) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 256*1024)

	hb, err := json.Marshal(snap.Header)
	if err != nil {
		enc.Close()
		return err
	}
	if _, err := bw.Write(append(hb, '\n')); err != nil {
		enc.Close()
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		enc.Close()
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

// Read decodes a snapshot from r.
func Read(r io.Reader) (SnapshotV1, error) {
	var snap SnapshotV1
	dec, err := zstd.NewReader(r)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)
	if _, err := br.ReadBytes('\n'); err != nil {
		return snap, fmt.Errorf("read header: %w", err)
	}
	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	if snap.Header.Version != Version {
		return snap, fmt.Errorf("unsupported snapshot version %d", snap.Header.Version)
	}
	return snap, nil
}

// ReadHeader decodes only the header line.
func ReadHeader(r io.Reader) (Header, error) {
	var h Header
	dec, err := zstd.NewReader(r)
	if err != nil {
		return h, err
	}
	defer dec.Close()

	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return h, fmt.Errorf("read header: %w", err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("decode header: %w", err)
	}
	return h, nil
}

// WriteFile writes snap to path, creating parent directories.
func WriteFile(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if err := Write(f, snap); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadFile reads the snapshot stored at path.
func ReadFile(path string) (SnapshotV1, error) {
	f, err := os.Open(path)
	if err != nil {
		return SnapshotV1{}, err
	}
	defer f.Close()
	return Read(f)
}
