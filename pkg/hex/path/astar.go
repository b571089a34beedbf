// Package path finds routes across hex grids.
package path

import (
	"container/heap"

	"github.com/gravitas-games/hexworld/pkg/hex"
)

// Graph describes the searchable space. Neighbors returns the coordinates
// reachable in one step from a; Cost returns the step cost from a to b, values
// below 1 are treated as 1. Heuristic must never overestimate the remaining
// cost to the goal.
type Graph struct {
	Neighbors func(a hex.Axial) []hex.Axial
	Cost      func(a, b hex.Axial) int
	Heuristic func(a hex.Axial) int
}

// AStar computes a shortest path from start to goal.
// Returns the path including start and goal and its total cost, or nil if no
// path exists. maxNodes bounds the number of expanded nodes; 0 means no bound.
func AStar(start, goal hex.Axial, g Graph, maxNodes int) ([]hex.Axial, int) {
	if start == goal {
		return []hex.Axial{start}, 0
	}
	h := g.Heuristic
	if h == nil {
		h = HeuristicTo(goal)
	}
	cost := g.Cost
	if cost == nil {
		cost = func(a, b hex.Axial) int { return 1 }
	}

	open := &nodePQ{}
	heap.Init(open)
	seq := 0
	push := func(a hex.Axial, gScore int) {
		seq++
		heap.Push(open, &pqNode{a: a, f: gScore + h(a), g: gScore, seq: seq})
	}

	gScore := map[hex.Axial]int{start: 0}
	came := map[hex.Axial]hex.Axial{}
	closed := map[hex.Axial]bool{}
	push(start, 0)

	expanded := 0
	for open.Len() > 0 {
		cur := heap.Pop(open).(*pqNode)
		if closed[cur.a] {
			continue
		}
		closed[cur.a] = true
		if cur.a == goal {
			return reconstruct(came, start, goal), cur.g
		}
		expanded++
		if maxNodes > 0 && expanded > maxNodes {
			return nil, 0
		}
		for _, nb := range g.Neighbors(cur.a) {
			if closed[nb] {
				continue
			}
			step := cost(cur.a, nb)
			if step <= 0 {
				step = 1
			}
			tentative := gScore[cur.a] + step
			if old, ok := gScore[nb]; !ok || tentative < old {
				gScore[nb] = tentative
				came[nb] = cur.a
				push(nb, tentative)
			}
		}
	}
	return nil, 0
}

func reconstruct(came map[hex.Axial]hex.Axial, start, goal hex.Axial) []hex.Axial {
	path := []hex.Axial{goal}
	for k := goal; k != start; {
		k = came[k]
		path = append(path, k)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

type pqNode struct {
	a   hex.Axial
	f   int
	g   int
	seq int
}

type nodePQ []*pqNode

func (p nodePQ) Len() int { return len(p) }

// Ties on f prefer the deeper node, then insertion order, so results are stable.
func (p nodePQ) Less(i, j int) bool {
	if p[i].f != p[j].f {
		return p[i].f < p[j].f
	}
	if p[i].g != p[j].g {
		return p[i].g > p[j].g
	}
	return p[i].seq < p[j].seq
}
func (p nodePQ) Swap(i, j int) { p[i], p[j] = p[j], p[i] }
func (p *nodePQ) Push(x any)   { *p = append(*p, x.(*pqNode)) }
func (p *nodePQ) Pop() any {
	old := *p
	n := len(old)
	x := old[n-1]
	*p = old[:n-1]
	return x
}

// HeuristicTo returns the plain hex distance heuristic towards goal.
func HeuristicTo(goal hex.Axial) func(a hex.Axial) int {
	return func(a hex.Axial) int { return hex.DistanceAxial(a, goal) }
}

// NeighborsWithinDisc limits neighbors to the disc of radius R around center.
func NeighborsWithinDisc(center hex.Axial, R int) func(a hex.Axial) []hex.Axial {
	return func(a hex.Axial) []hex.Axial {
		out := make([]hex.Axial, 0, 6)
		for _, d := range hex.Directions {
			b := a.Add(d)
			if hex.DistanceAxial(center, b) <= R {
				out = append(out, b)
			}
		}
		return out
	}
}
