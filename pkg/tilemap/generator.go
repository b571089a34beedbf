package tilemap

import (
	"errors"
	"math"

	"github.com/gravitas-games/hexworld/pkg/hex"
	"github.com/gravitas-games/hexworld/pkg/tile"
)

// Resolver looks tile type names up; *tile.Registry satisfies it.
type Resolver interface {
	Resolve(names ...string) ([]tile.Index, error)
}

var errNoTypes = errors.New("tilemap: generator needs at least one tile type")

// Alternation cycles through its types by tile index.
type Alternation struct {
	types []tile.Index
}

// NewAlternation resolves names against reg.
func NewAlternation(reg Resolver, names ...string) (*Alternation, error) {
	if len(names) == 0 {
		return nil, errNoTypes
	}
	types, err := reg.Resolve(names...)
	if err != nil {
		return nil, err
	}
	return &Alternation{types: types}, nil
}

// Generate implements Generator.
func (a *Alternation) Generate(m *TileMap) error {
	return GeneratorFunc(func(_ hex.Axial, i int) tile.Index {
		return a.types[i%len(a.types)]
	}).Generate(m)
}

// Fill sets every tile to one type.
type Fill tile.Index

// Generate implements Generator.
func (f Fill) Generate(m *TileMap) error {
	return GeneratorFunc(func(hex.Axial, int) tile.Index { return tile.Index(f) }).Generate(m)
}

// DefaultNoiseScale is the lattice spacing in tiles.
const DefaultNoiseScale = 8.0

// Noise is seeded value noise sampled in linear space and cut into equal
// bands, one per type, lowest band first.
type Noise struct {
	Seed  int64
	Scale float64
	types []tile.Index
}

// NewNoise resolves names against reg.
func NewNoise(reg Resolver, seed int64, scale float64, names ...string) (*Noise, error) {
	if len(names) == 0 {
		return nil, errNoTypes
	}
	types, err := reg.Resolve(names...)
	if err != nil {
		return nil, err
	}
	if scale <= 0 {
		scale = DefaultNoiseScale
	}
	return &Noise{Seed: seed, Scale: scale, types: types}, nil
}

// Generate implements Generator.
func (n *Noise) Generate(m *TileMap) error {
	cell := n.Scale
	cellsX := 0
	if m.WrapsX {
		// snap the lattice so it tiles exactly once around the map
		cellsX = max(1, int(math.Round(float64(m.Columns())/cell)))
		cell = float64(m.Columns()) / float64(cellsX)
	}
	return GeneratorFunc(func(c hex.Axial, _ int) tile.Index {
		x, y := hex.ToLinear(c)
		v := n.sample(x/cell, y/cell, cellsX)
		band := int(v * float64(len(n.types)))
		if band >= len(n.types) {
			band = len(n.types) - 1
		}
		return n.types[band]
	}).Generate(m)
}

// sample returns smoothed value noise in [0,1).
func (n *Noise) sample(x, y float64, cellsX int) float64 {
	x0, y0 := math.Floor(x), math.Floor(y)
	fx, fy := smooth(x-x0), smooth(y-y0)
	ix, iy := int(x0), int(y0)
	v00 := n.lattice(ix, iy, cellsX)
	v10 := n.lattice(ix+1, iy, cellsX)
	v01 := n.lattice(ix, iy+1, cellsX)
	v11 := n.lattice(ix+1, iy+1, cellsX)
	top := v00 + (v10-v00)*fx
	bottom := v01 + (v11-v01)*fx
	return top + (bottom-top)*fy
}

func (n *Noise) lattice(ix, iy, cellsX int) float64 {
	if cellsX > 0 {
		ix = mod(ix, cellsX)
	}
	return float64(hash2(n.Seed, ix, iy)>>11) / (1 << 53)
}

func smooth(t float64) float64 { return t * t * (3 - 2*t) }

func mix64(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

func hash2(seed int64, x, y int) uint64 {
	ux := uint64(uint32(int32(x)))
	uy := uint64(uint32(int32(y)))
	return mix64(uint64(seed) ^ (ux * 0x9e3779b97f4a7c15) ^ (uy * 0xbf58476d1ce4e5b9))
}
