// Package tilemap stores bounded rhombus hex maps.
//
// A map of Width W and Height H holds (W+1)*(H+1) tiles laid out row-major.
// When WrapsX is set the q axis wraps around (a planet); r never wraps.
package tilemap

import (
	"errors"
	"fmt"

	"github.com/zyedidia/generic/mapset"

	"github.com/gravitas-games/hexworld/pkg/hex"
	"github.com/gravitas-games/hexworld/pkg/tile"
)

// ErrOffMap is returned for coordinates outside a map.
var ErrOffMap = errors.New("tilemap: coordinate is off the map")

// EntityID identifies anything placed on a tile.
type EntityID uint64

// Tile is a single map cell.
type Tile struct {
	Type     tile.Index
	Entities mapset.Set[EntityID]
}

// NewTile returns a tile of type t with an empty entity set.
func NewTile(t tile.Index) Tile {
	return Tile{Type: t, Entities: mapset.New[EntityID]()}
}

// EntityIDs returns the tile's entities in no particular order.
func (t *Tile) EntityIDs() []EntityID {
	out := make([]EntityID, 0, t.Entities.Size())
	t.Entities.Each(func(id EntityID) { out = append(out, id) })
	return out
}

// TileMap is a rhombus of tiles. Width and Height are the maximum q and r.
type TileMap struct {
	Width  uint8
	Height uint8
	WrapsX bool
	Tiles  []Tile
}

// Generator fills a freshly allocated map.
type Generator interface {
	Generate(m *TileMap) error
}

// GeneratorFunc adapts a per-coordinate function to Generator.
type GeneratorFunc func(c hex.Axial, index int) tile.Index

// Generate implements Generator.
func (f GeneratorFunc) Generate(m *TileMap) error {
	m.Tiles = m.Tiles[:0]
	for i := 0; i < m.Len(); i++ {
		m.Tiles = append(m.Tiles, NewTile(f(m.CoordOf(i), i)))
	}
	return nil
}

// New allocates a map and runs gen over it.
func New(width, height uint8, wrapsX bool, gen Generator) (*TileMap, error) {
	m := &TileMap{Width: width, Height: height, WrapsX: wrapsX}
	m.Tiles = make([]Tile, 0, m.Len())
	if err := gen.Generate(m); err != nil {
		return nil, fmt.Errorf("error while generating map: %w", err)
	}
	if len(m.Tiles) != m.Len() {
		return nil, fmt.Errorf("error while generating map: generator produced %d tiles, want %d", len(m.Tiles), m.Len())
	}
	// a new map holds no entities whatever the generator left behind
	for i := range m.Tiles {
		m.Tiles[i].Entities = mapset.New[EntityID]()
	}
	return m, nil
}

// Columns is the number of tiles per row.
func (m *TileMap) Columns() int { return int(m.Width) + 1 }

// Rows is the number of rows.
func (m *TileMap) Rows() int { return int(m.Height) + 1 }

// Len is the total number of tiles.
func (m *TileMap) Len() int { return m.Columns() * m.Rows() }

// Normalize folds c onto the map, wrapping q when the map wraps on X.
func (m *TileMap) Normalize(c hex.Axial) (hex.Axial, bool) {
	if c.R < 0 || c.R > int(m.Height) {
		return c, false
	}
	if m.WrapsX {
		c.Q = mod(c.Q, m.Columns())
		return c, true
	}
	if c.Q < 0 || c.Q > int(m.Width) {
		return c, false
	}
	return c, true
}

// Contains reports whether c addresses a tile.
func (m *TileMap) Contains(c hex.Axial) bool {
	_, ok := m.Normalize(c)
	return ok
}

// Index returns the position of c in Tiles.
func (m *TileMap) Index(c hex.Axial) (int, bool) {
	n, ok := m.Normalize(c)
	if !ok {
		return 0, false
	}
	return n.R*m.Columns() + n.Q, true
}

// CoordOf is the inverse of Index.
func (m *TileMap) CoordOf(index int) hex.Axial {
	return hex.Axial{Q: index % m.Columns(), R: index / m.Columns()}
}

// Tile returns the tile at c.
func (m *TileMap) Tile(c hex.Axial) (*Tile, error) {
	idx, ok := m.Index(c)
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrOffMap, c)
	}
	return &m.Tiles[idx], nil
}

// Neighbors returns the normalised on-map neighbours of c.
func (m *TileMap) Neighbors(c hex.Axial) []hex.Axial {
	out := make([]hex.Axial, 0, 6)
	for _, n := range c.Neighbors() {
		if nn, ok := m.Normalize(n); ok {
			if nn == c {
				// one-column wrapping maps neighbour themselves
				continue
			}
			out = append(out, nn)
		}
	}
	return out
}

// Distance is the hex distance between a and b, taking the shorter way
// around when the map wraps.
func (m *TileMap) Distance(a, b hex.Axial) int {
	d := hex.DistanceAxial(a, b)
	if !m.WrapsX {
		return d
	}
	cols := m.Columns()
	for _, shift := range []int{-cols, cols} {
		if alt := hex.DistanceAxial(a, hex.Axial{Q: b.Q + shift, R: b.R}); alt < d {
			d = alt
		}
	}
	return d
}

// TypeIndices returns the tile type of every tile in map order.
func (m *TileMap) TypeIndices() []tile.Index {
	out := make([]tile.Index, len(m.Tiles))
	for i := range m.Tiles {
		out[i] = m.Tiles[i].Type
	}
	return out
}

func mod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}
