package hex

import (
	"errors"
	"testing"
)

func TestFromLinearReferencePoints(t *testing.T) {
	cases := []struct {
		x, y float64
		want Axial
	}{
		{0, 0, Axial{0, 0}},
		{1, 0, Axial{1, 0}},
		{0.5, 1, Axial{0, 1}},
		{1.5, 1, Axial{1, 1}},
		{-1, 0, Axial{-1, 0}},
		{-0.5, -1, Axial{0, -1}},
		{-1.5, -1, Axial{-1, -1}},
	}
	for _, c := range cases {
		if got := FromLinear(c.x, c.y); got != c.want {
			t.Errorf("FromLinear(%v, %v) = %v, want %v", c.x, c.y, got, c.want)
		}
	}
}

func TestLinearRoundTripOnCenters(t *testing.T) {
	for _, a := range Disk(Axial{3, 4}, 6) {
		x, y := ToLinear(a)
		if got := FromLinear(x, y); got != a {
			t.Fatalf("FromLinear(ToLinear(%v)) = %v", a, got)
		}
	}
}

func TestCubeConversions(t *testing.T) {
	a := Axial{Q: 0, R: 1}
	c := a.ToCube()
	if c.X != 0 || c.Y != -1 || c.Z != 1 {
		t.Fatalf("unexpected cube %+v", c)
	}
	if c.ToAxial() != a {
		t.Fatalf("cube round trip lost %v", a)
	}
	if a.S() != -1 {
		t.Fatalf("expected S=-1, got %d", a.S())
	}
	if _, err := NewCube(1, 1, 1); !errors.Is(err, ErrNotOnPlane) {
		t.Fatalf("expected ErrNotOnPlane, got %v", err)
	}
	if got, err := NewCube(2, -3, 1); err != nil || got.ToAxial() != (Axial{2, 1}) {
		t.Fatalf("NewCube(2,-3,1) = %v, %v", got, err)
	}
}

func TestRotation(t *testing.T) {
	if got := (Axial{1, 0}).RotateCW(); got != (Axial{0, 1}) {
		t.Fatalf("east rotated clockwise should be south-east, got %v", got)
	}
	if got := (Axial{1, 0}).RotateCCW(); got != (Axial{1, -1}) {
		t.Fatalf("east rotated counter-clockwise should be north-east, got %v", got)
	}
	v := Axial{3, -1}
	r := v
	for i := 0; i < 6; i++ {
		r = r.RotateCW()
		if DistanceAxial(Axial{}, r) != DistanceAxial(Axial{}, v) {
			t.Fatalf("rotation changed length: %v", r)
		}
	}
	if r != v {
		t.Fatalf("six clockwise rotations should be identity, got %v", r)
	}
	if v.RotateCW().RotateCCW() != v {
		t.Fatalf("cw then ccw should be identity")
	}
	center := Axial{5, 5}
	p := Axial{6, 5}
	if got := p.RotateCWAround(center); got != (Axial{5, 6}) {
		t.Fatalf("RotateCWAround = %v", got)
	}
	if got := p.RotateCCWAround(center); got != (Axial{6, 4}) {
		t.Fatalf("RotateCCWAround = %v", got)
	}
	// a 60 degree step keeps a ring-2 tile on its ring, two tiles along
	q := Axial{7, 4}
	for _, got := range []Axial{q.RotateCWAround(center), q.RotateCCWAround(center)} {
		if DistanceAxial(center, got) != DistanceAxial(center, q) || DistanceAxial(q, got) != 2 {
			t.Fatalf("rotating %v about %v gave %v", q, center, got)
		}
	}
}

func TestNeighborsAreAdjacent(t *testing.T) {
	c := Axial{2, 7}
	for i, n := range c.Neighbors() {
		if DistanceAxial(c, n) != 1 {
			t.Fatalf("neighbor %d at distance %d", i, DistanceAxial(c, n))
		}
		if c.Neighbor(i) != n || c.Neighbor(i+6) != n || c.Neighbor(i-6) != n {
			t.Fatalf("Neighbor(%d) mismatch", i)
		}
	}
}

func TestRingAndSpiralSizes(t *testing.T) {
	c := Axial{-2, 4}
	if r := Ring(c, 0); len(r) != 1 || r[0] != c {
		t.Fatalf("ring 0 should be the center, got %v", r)
	}
	for k := 1; k <= 5; k++ {
		ring := Ring(c, k)
		if len(ring) != 6*k {
			t.Fatalf("ring %d has %d cells", k, len(ring))
		}
		seen := map[Axial]bool{}
		for _, a := range ring {
			if DistanceAxial(c, a) != k {
				t.Fatalf("ring %d contains %v at distance %d", k, a, DistanceAxial(c, a))
			}
			if seen[a] {
				t.Fatalf("ring %d repeats %v", k, a)
			}
			seen[a] = true
		}
		spiral := Spiral(c, k)
		if len(spiral) != 1+3*k*(k+1) {
			t.Fatalf("spiral %d has %d cells", k, len(spiral))
		}
		if spiral[0] != c {
			t.Fatalf("spiral should start at the center")
		}
		if len(Disk(c, k)) != len(spiral) {
			t.Fatalf("disk and spiral sizes differ at %d", k)
		}
	}
}

func TestDistance(t *testing.T) {
	if d := DistanceAxial(Axial{0, 0}, Axial{3, -1}); d != 3 {
		t.Fatalf("expected 3, got %d", d)
	}
	if d := DistanceAxial(Axial{0, 0}, Axial{-2, 4}); d != 4 {
		t.Fatalf("expected 4, got %d", d)
	}
}
