package tilemap

import (
	"math/rand"

	"github.com/gravitas-games/hexworld/pkg/hex"
	"github.com/gravitas-games/hexworld/pkg/tile"
)

// Rivers runs Base and then carves Count channels of Type from the top row
// to the bottom row. Sources and mouths are picked by hashing the edge
// coordinates with the seed, so the same seed always gives the same rivers.
type Rivers struct {
	Base  Generator
	Type  tile.Index
	Count int
	Seed  int64
}

// NewRivers resolves the river type by name.
func NewRivers(reg Resolver, base Generator, seed int64, count int, name string) (*Rivers, error) {
	types, err := reg.Resolve(name)
	if err != nil {
		return nil, err
	}
	return &Rivers{Base: base, Type: types[0], Count: count, Seed: seed}, nil
}

// Generate implements Generator.
func (g *Rivers) Generate(m *TileMap) error {
	if err := g.Base.Generate(m); err != nil {
		return err
	}
	if len(m.Tiles) != m.Len() {
		// let New report the short map
		return nil
	}
	rng := rand.New(rand.NewSource(g.Seed))
	for k := 0; k < g.Count; k++ {
		seed := g.Seed + int64(k)
		src := edgePoint(m, 0, seed)
		dst := edgePoint(m, int(m.Height), ^seed)
		for _, c := range shuffledBFS(m, src, dst, rng) {
			idx, _ := m.Index(c)
			m.Tiles[idx].Type = g.Type
		}
	}
	return nil
}

// edgePoint picks the tile of row r whose coordinate hashes lowest.
func edgePoint(m *TileMap, r int, seed int64) hex.Axial {
	best := hex.Axial{Q: 0, R: r}
	bestHash := ^uint64(0)
	for q := 0; q < m.Columns(); q++ {
		if h := hash2(seed, q, r); h < bestHash {
			bestHash = h
			best = hex.Axial{Q: q, R: r}
		}
	}
	return best
}

// shuffledBFS finds a shortest path from start to goal over the map,
// visiting directions in a random order so that rivers meander.
func shuffledBFS(m *TileMap, start, goal hex.Axial, rng *rand.Rand) []hex.Axial {
	if start == goal {
		return []hex.Axial{start}
	}
	order := []int{0, 1, 2, 3, 4, 5}
	rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

	prev := make(map[hex.Axial]hex.Axial)
	visited := map[hex.Axial]bool{start: true}
	queue := []hex.Axial{start}
	found := false
	for len(queue) > 0 && !found {
		cur := queue[0]
		queue = queue[1:]
		for _, dir := range order {
			nxt, ok := m.Normalize(cur.Neighbor(dir))
			if !ok || visited[nxt] {
				continue
			}
			visited[nxt] = true
			prev[nxt] = cur
			if nxt == goal {
				found = true
				break
			}
			queue = append(queue, nxt)
		}
	}
	if !found {
		return nil
	}

	path := []hex.Axial{goal}
	for cur := goal; cur != start; {
		cur = prev[cur]
		path = append(path, cur)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
