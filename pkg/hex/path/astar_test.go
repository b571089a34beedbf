package path

import (
	"testing"

	"github.com/gravitas-games/hexworld/pkg/hex"
)

func TestAStarOpenDisc(t *testing.T) {
	start := hex.Axial{Q: -3, R: 0}
	goal := hex.Axial{Q: 3, R: 0}
	p, cost := AStar(start, goal, Graph{Neighbors: NeighborsWithinDisc(hex.Axial{}, 5)}, 0)
	if len(p) != 7 {
		t.Fatalf("expected 7 cells, got %d: %v", len(p), p)
	}
	if cost != 6 {
		t.Fatalf("expected cost 6, got %d", cost)
	}
	if p[0] != start || p[len(p)-1] != goal {
		t.Fatalf("path endpoints wrong: %v", p)
	}
	for i := 1; i < len(p); i++ {
		if hex.DistanceAxial(p[i-1], p[i]) != 1 {
			t.Fatalf("non-adjacent step %v -> %v", p[i-1], p[i])
		}
	}
}

func TestAStarRoutesAroundWall(t *testing.T) {
	wall := map[hex.Axial]bool{}
	for r := -4; r <= 3; r++ {
		wall[hex.Axial{Q: 0, R: r}] = true
	}
	inDisc := NeighborsWithinDisc(hex.Axial{}, 6)
	g := Graph{
		Neighbors: func(a hex.Axial) []hex.Axial {
			var out []hex.Axial
			for _, b := range inDisc(a) {
				if !wall[b] {
					out = append(out, b)
				}
			}
			return out
		},
	}
	start := hex.Axial{Q: -2, R: 0}
	goal := hex.Axial{Q: 2, R: 0}
	p, cost := AStar(start, goal, g, 0)
	if p == nil {
		t.Fatalf("expected a path around the wall")
	}
	for _, a := range p {
		if wall[a] {
			t.Fatalf("path crosses wall at %v", a)
		}
	}
	if cost <= hex.DistanceAxial(start, goal) {
		t.Fatalf("detour should cost more than the straight distance, got %d", cost)
	}
}

func TestAStarNoPath(t *testing.T) {
	g := Graph{Neighbors: func(a hex.Axial) []hex.Axial { return nil }}
	if p, _ := AStar(hex.Axial{}, hex.Axial{Q: 1}, g, 0); p != nil {
		t.Fatalf("expected nil path, got %v", p)
	}
	if p, cost := AStar(hex.Axial{Q: 4}, hex.Axial{Q: 4}, g, 0); len(p) != 1 || cost != 0 {
		t.Fatalf("start==goal should be a single cell path")
	}
}

func TestAStarNodeBudget(t *testing.T) {
	g := Graph{Neighbors: NeighborsWithinDisc(hex.Axial{}, 30)}
	if p, _ := AStar(hex.Axial{Q: -30}, hex.Axial{Q: 30}, g, 5); p != nil {
		t.Fatalf("expected budget exhaustion")
	}
}
