package compiler

import "github.com/aretw0/skein/pkg/domain"

// findLeaves returns the ids reachable from start through edges (start
// included) that have no outgoing edge, in discovery order.
// Cycles are tolerated; a node without any edge is its own leaf.
func findLeaves(start int, edges []domain.Edge) []int {
	adj := make(map[int][]int)
	for _, e := range edges {
		adj[e.From] = append(adj[e.From], e.To)
	}

	var leaves []int
	visited := map[int]bool{start: true}
	queue := []int{start}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		next := adj[id]
		if len(next) == 0 {
			leaves = append(leaves, id)
			continue
		}
		for _, to := range next {
			if !visited[to] {
				visited[to] = true
				queue = append(queue, to)
			}
		}
	}
	return leaves
}
