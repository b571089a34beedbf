package hex

// Ring returns the axial coordinates at exact distance k from center c,
// starting from direction 4 (south-west) and walking the six sides in
// direction order. If k==0, returns [c].
func Ring(c Axial, k int) []Axial {
	if k <= 0 {
		return []Axial{c}
	}
	res := make([]Axial, 0, 6*k)
	cur := c.Add(Directions[4].Mul(k))
	for side := 0; side < 6; side++ {
		for step := 0; step < k; step++ {
			res = append(res, cur)
			cur = cur.Add(Directions[side])
		}
	}
	return res
}

// Spiral returns every coordinate within distance k of c, ring by ring
// outwards starting with c itself.
func Spiral(c Axial, k int) []Axial {
	if k < 0 {
		k = 0
	}
	res := make([]Axial, 0, 1+3*k*(k+1))
	for ring := 0; ring <= k; ring++ {
		res = append(res, Ring(c, ring)...)
	}
	return res
}

// Disk returns all axial coordinates at distance <= r from center c, ordered
// by q then r.
func Disk(c Axial, r int) []Axial {
	size := 1 + 3*r*(r+1)
	res := make([]Axial, 0, size)
	for q := -r; q <= r; q++ {
		for r2 := max(-r, -q-r); r2 <= min(r, -q+r); r2++ {
			res = append(res, c.Add(Axial{q, r2}))
		}
	}
	return res
}
