package domain

import "sort"

// Edge is a directed connection between two node ids.
type Edge struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// Diagnostic is a non-fatal finding produced while compiling a script.
type Diagnostic struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// Graph is the compiled form of a script.
// Nodes live in a flat table and every relationship is an id pair in Edges.
type Graph struct {
	Nodes map[int]*Node `json:"nodes"`
	// Order lists node ids in parse order followed by the sentinels.
	Order []int  `json:"order"`
	Edges []Edge `json:"edges"`
	// Names maps knots and "knot.stitch" to the first node of that container.
	Names map[string]int `json:"names,omitempty"`
	// Entries maps the first root choice of a block to every parentless
	// choice opening that block.
	Entries     map[int][]int `json:"entries,omitempty"`
	Diagnostics []Diagnostic  `json:"diagnostics,omitempty"`
	// Linked is set once the start edge and auto-end edges are in place.
	Linked bool `json:"linked"`
}

// NewGraph returns an empty graph ready to be filled by a builder.
func NewGraph() *Graph {
	return &Graph{
		Nodes: make(map[int]*Node),
		Names:   make(map[string]int),
		Entries: make(map[int][]int),
	}
}

// Node returns the node with the given id, or nil.
func (g *Graph) Node(id int) *Node {
	return g.Nodes[id]
}

// AddNode inserts n and records its position in Order.
func (g *Graph) AddNode(n *Node) {
	if _, exists := g.Nodes[n.ID]; !exists {
		g.Order = append(g.Order, n.ID)
	}
	g.Nodes[n.ID] = n
}

// AddEdge appends a raw edge. Duplicates are kept.
func (g *Graph) AddEdge(from, to int) {
	g.Edges = append(g.Edges, Edge{From: from, To: to})
}

// Successors returns the distinct targets of id in edge order.
func (g *Graph) Successors(id int) []int {
	var out []int
	seen := make(map[int]bool)
	for _, e := range g.Edges {
		if e.From == id && !seen[e.To] {
			seen[e.To] = true
			out = append(out, e.To)
		}
	}
	return out
}

// Adjacency builds the deduplicated successor lists for every source id.
func (g *Graph) Adjacency() map[int][]int {
	adj := make(map[int][]int)
	seen := make(map[Edge]bool)
	for _, e := range g.Edges {
		if seen[e] {
			continue
		}
		seen[e] = true
		adj[e.From] = append(adj[e.From], e.To)
	}
	return adj
}

// ContentIDs returns the non-sentinel ids sorted ascending.
func (g *Graph) ContentIDs() []int {
	ids := make([]int, 0, len(g.Nodes))
	for id := range g.Nodes {
		if !IsSentinelID(id) {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids
}

// Containers returns every knot and qualified stitch name used by the nodes,
// in first-seen parse order.
func (g *Graph) Containers() []string {
	var out []string
	seen := make(map[string]bool)
	for _, id := range g.Order {
		n := g.Nodes[id]
		if n == nil {
			continue
		}
		for _, key := range n.ContainerKeys() {
			if !seen[key] {
				seen[key] = true
				out = append(out, key)
			}
		}
	}
	return out
}

// EntryRoots returns the root choices of the block id opens, or nil when id
// is not one of them.
func (g *Graph) EntryRoots(id int) []int {
	for _, roots := range g.Entries {
		for _, root := range roots {
			if root == id {
				return roots
			}
		}
	}
	return nil
}

// Clone returns a copy whose node table and edge list can be mutated
// independently of g.
func (g *Graph) Clone() *Graph {
	c := &Graph{
		Nodes:       make(map[int]*Node, len(g.Nodes)),
		Order:       append([]int(nil), g.Order...),
		Edges:       append([]Edge(nil), g.Edges...),
		Names:       make(map[string]int, len(g.Names)),
		Entries:     make(map[int][]int, len(g.Entries)),
		Diagnostics: append([]Diagnostic(nil), g.Diagnostics...),
		Linked:      g.Linked,
	}
	for id, n := range g.Nodes {
		c.Nodes[id] = n.Clone()
	}
	for k, v := range g.Names {
		c.Names[k] = v
	}
	for k, v := range g.Entries {
		c.Entries[k] = append([]int(nil), v...)
	}
	return c
}
