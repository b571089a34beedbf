// Package hex implements axial/cube hex coordinates for a pointy-top grid.
//
// Maps built on these coordinates are rhombus shaped: (0,0) is the top-left
// tile and each row down is shifted half a tile to the right of the row above.
package hex

import (
	"errors"
	"fmt"
	"math"
)

// ErrNotOnPlane is returned when cube coordinates do not satisfy x+y+z=0.
var ErrNotOnPlane = errors.New("hex: cube coordinate not on the x+y+z=0 plane")

// Axial represents axial coordinates (q, r) for pointy-top orientation.
type Axial struct {
	Q int `json:"q"`
	R int `json:"r"`
}

// Cube represents cube coordinates (x, y, z) with x+y+z=0.
type Cube struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

// Directions for axial neighbors in pointy-top orientation, counter-clockwise
// starting east.
var Directions = []Axial{
	{+1, 0}, {+1, -1}, {0, -1}, {-1, 0}, {-1, +1}, {0, +1},
}

// NewCube validates and returns a cube coordinate.
func NewCube(x, y, z int) (Cube, error) {
	if x+y+z != 0 {
		return Cube{}, fmt.Errorf("%w: (%d,%d,%d)", ErrNotOnPlane, x, y, z)
	}
	return Cube{X: x, Y: y, Z: z}, nil
}

// Add returns a+b in axial space.
func (a Axial) Add(b Axial) Axial { return Axial{a.Q + b.Q, a.R + b.R} }

// Sub returns a-b in axial space.
func (a Axial) Sub(b Axial) Axial { return Axial{a.Q - b.Q, a.R - b.R} }

// Neg returns -a.
func (a Axial) Neg() Axial { return Axial{-a.Q, -a.R} }

// Mul scales an axial vector by k.
func (a Axial) Mul(k int) Axial { return Axial{a.Q * k, a.R * k} }

// S returns the implicit third cube coordinate.
func (a Axial) S() int { return -a.Q - a.R }

// String implements fmt.Stringer.
func (a Axial) String() string { return fmt.Sprintf("(%d,%d)", a.Q, a.R) }

// ToCube converts axial to cube.
func (a Axial) ToCube() Cube {
	x := a.Q
	z := a.R
	y := -x - z
	return Cube{X: x, Y: y, Z: z}
}

// ToAxial converts cube to axial.
func (c Cube) ToAxial() Axial { return Axial{Q: c.X, R: c.Z} }

// Neighbor returns the adjacent coordinate in direction dir (0..5, wrapping).
func (a Axial) Neighbor(dir int) Axial {
	dir %= len(Directions)
	if dir < 0 {
		dir += len(Directions)
	}
	return a.Add(Directions[dir])
}

// Neighbors returns the six adjacent coordinates in direction order.
func (a Axial) Neighbors() [6]Axial {
	var out [6]Axial
	for i, d := range Directions {
		out[i] = a.Add(d)
	}
	return out
}

// RotateCW rotates the vector a by 60 degrees clockwise about the origin.
func (a Axial) RotateCW() Axial {
	c := a.Neg().ToCube()
	return Cube{X: c.Z, Y: c.X, Z: c.Y}.ToAxial()
}

// RotateCCW rotates the vector a by 60 degrees counter-clockwise about the origin.
func (a Axial) RotateCCW() Axial {
	c := a.Neg().ToCube()
	return Cube{X: c.Y, Y: c.Z, Z: c.X}.ToAxial()
}

// RotateCWAround rotates a clockwise about center.
func (a Axial) RotateCWAround(center Axial) Axial {
	return a.Sub(center).RotateCW().Add(center)
}

// RotateCCWAround rotates a counter-clockwise about center.
func (a Axial) RotateCCWAround(center Axial) Axial {
	return a.Sub(center).RotateCCW().Add(center)
}

// DistanceAxial returns hex distance between two axial coords.
func DistanceAxial(a, b Axial) int {
	return DistanceCube(a.ToCube(), b.ToCube())
}

// DistanceCube returns hex distance between two cube coords.
func DistanceCube(a, b Cube) int {
	dx := abs(a.X - b.X)
	dy := abs(a.Y - b.Y)
	dz := abs(a.Z - b.Z)
	if dx > dy && dx > dz {
		return dx
	}
	if dy > dz {
		return dy
	}
	return dz
}

// ToLinear maps a tile center into the linear plane used by front ends:
// one unit per tile horizontally, rows shifted half a tile per r.
func ToLinear(a Axial) (x, y float64) {
	return float64(a.Q) + float64(a.R)*0.5, float64(a.R)
}

// FromLinear returns the hex containing the point (x, y) of the linear plane,
// the inverse of ToLinear on tile centers.
func FromLinear(x, y float64) Axial {
	return RoundCube(x-y*0.5, y)
}

// RoundCube rounds fractional axial coordinates to the nearest hex.
func RoundCube(q, r float64) Axial {
	s := -q - r
	rq, rr, rs := math.Round(q), math.Round(r), math.Round(s)
	dq, dr, ds := math.Abs(rq-q), math.Abs(rr-r), math.Abs(rs-s)
	switch {
	case dq > dr && dq > ds:
		rq = -rr - rs
	case dr > ds:
		rr = -rq - rs
	}
	return Axial{Q: int(rq), R: int(rr)}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
