package compiler

import (
	"fmt"

	"github.com/aretw0/skein/pkg/domain"
)

// Link closes a built graph: it connects Begin to the start node and every
// node without a successor to AutoEnd, then reports nodes Begin cannot reach.
// Linking an already linked graph is a no-op.
func Link(g *domain.Graph) {
	if g.Linked {
		return
	}
	linkStart(g)
	linkAutoEnd(g)
	reportUnreachable(g)
	g.Linked = true
}

// linkStart picks the lowest content id without an incoming edge.
// When that node is one of the root choices opening a block, every root of
// that block is connected as well, so a story can open on a set of options.
func linkStart(g *domain.Graph) {
	incoming := make(map[int]bool)
	for _, e := range g.Edges {
		if e.From == domain.BeginID {
			return
		}
		incoming[e.To] = true
	}

	ids := g.ContentIDs()
	if len(ids) == 0 {
		g.AddEdge(domain.BeginID, domain.AutoEndID)
		return
	}

	start := ids[0]
	for _, id := range ids {
		if !incoming[id] {
			start = id
			break
		}
	}

	if roots := g.EntryRoots(start); len(roots) > 0 {
		for _, id := range roots {
			g.AddEdge(domain.BeginID, id)
		}
		return
	}
	g.AddEdge(domain.BeginID, start)
}

// linkAutoEnd gives every content node without a successor an edge to AutoEnd.
func linkAutoEnd(g *domain.Graph) {
	outgoing := make(map[int]bool)
	for _, e := range g.Edges {
		outgoing[e.From] = true
	}
	for _, id := range g.ContentIDs() {
		if !outgoing[id] {
			g.AddEdge(id, domain.AutoEndID)
		}
	}
}

func reportUnreachable(g *domain.Graph) {
	adj := g.Adjacency()
	reached := map[int]bool{domain.BeginID: true}
	queue := []int{domain.BeginID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, to := range adj[id] {
			if !reached[to] {
				reached[to] = true
				queue = append(queue, to)
			}
		}
	}

	for _, id := range g.ContentIDs() {
		if reached[id] {
			continue
		}
		n := g.Node(id)
		g.Diagnostics = append(g.Diagnostics, domain.Diagnostic{
			Line:    n.Line,
			Message: fmt.Sprintf("node %d (%s) is unreachable", id, n.Kind),
		})
	}
}
