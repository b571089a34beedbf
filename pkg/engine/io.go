package engine

import (
	"io"
	"os"
	"path/filepath"

	"github.com/gravitas-games/hexworld/pkg/tile"
)

// ResourcesEnv overrides the resource directory used by FilesystemIOFromCwd.
const ResourcesEnv = "HEXWORLD_RESOURCES"

// IO is everything the engine needs from its host: resource files, and a
// hook to prepare per-type front-end data as tile types are registered.
type IO interface {
	Read(path string) (io.ReadCloser, error)
	TileAdded(index tile.Index, t *tile.Type) error
}

// FilesystemIO reads resources relative to Base.
type FilesystemIO struct {
	Base string
}

// NewFilesystemIO roots resource reads at base.
func NewFilesystemIO(base string) *FilesystemIO {
	return &FilesystemIO{Base: base}
}

// FilesystemIOFromCwd uses $HEXWORLD_RESOURCES, or ./resources.
func FilesystemIOFromCwd() (*FilesystemIO, error) {
	if dir := os.Getenv(ResourcesEnv); dir != "" {
		return NewFilesystemIO(dir), nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return NewFilesystemIO(filepath.Join(cwd, "resources")), nil
}

// Read opens path below Base.
func (f *FilesystemIO) Read(path string) (io.ReadCloser, error) {
	return os.Open(filepath.Join(f.Base, filepath.FromSlash(path)))
}

// TileAdded does nothing; a headless host keeps no per-type state.
func (f *FilesystemIO) TileAdded(tile.Index, *tile.Type) error { return nil }
