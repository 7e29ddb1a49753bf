package compiler

import (
	"fmt"

	"github.com/aretw0/skein/pkg/domain"
)

// pendingEdge is an edge in emission order. Divert edges keep their node
// until every name table is known.
type pendingEdge struct {
	from   int
	to     int
	divert *domain.Node
}

type graphBuilder struct {
	g      *domain.Graph
	global map[string]int
	locals map[string]map[string]int
	// redirects holds the diverts that open a knot or stitch block.
	redirects map[int]*domain.Node
	// entries fans a block opening with choices out to all its root choices.
	entries map[int][]int

	pending  []pendingEdge
	flow     []domain.Edge
	diverted map[int]bool
}

// BuildGraph turns the knot tree into a flat graph. Blocks are walked in
// parse order; within a block, levels decide which node an entry hangs from
// and gathers collect the open leaves of their level.
// Divert, knot and stitch nodes carry structure only and are not kept as
// graph nodes.
func BuildGraph(story *RawStory) (*domain.Graph, error) {
	b := &graphBuilder{
		g:         domain.NewGraph(),
		global:    story.NameTable(),
		locals:    make(map[string]map[string]int),
		redirects: make(map[int]*domain.Node),
		entries:   make(map[int][]int),
		diverted:  make(map[int]bool),
	}
	b.g.Diagnostics = append(b.g.Diagnostics, story.Diagnostics...)

	for _, k := range story.Knots {
		if _, dup := b.locals[k.Name]; !dup {
			b.locals[k.Name] = k.StitchIDs()
		}
	}
	for _, blk := range story.blocks()[1:] {
		if len(blk.Nodes) > 0 && blk.Nodes[0].Kind == domain.KindDivert {
			b.redirects[blk.Nodes[0].ID] = blk.Nodes[0]
		}
	}

	for i, blk := range story.blocks() {
		b.walk(blk, i == 0)
	}

	for _, p := range b.pending {
		if p.divert == nil {
			b.g.AddEdge(p.from, p.to)
			continue
		}
		targets, err := b.targets(p.divert)
		if err != nil {
			return nil, errorAt(p.divert.Line, err)
		}
		for _, to := range targets {
			b.g.AddEdge(p.from, to)
		}
	}

	for first, roots := range b.entries {
		b.g.Entries[first] = roots
	}

	for name, id := range b.global {
		if resolved, err := b.follow(id); err == nil {
			b.g.Names[name] = resolved
		}
	}

	for _, s := range domain.SentinelNodes() {
		b.g.AddNode(s)
	}
	return b.g, nil
}

func (b *graphBuilder) walk(blk *Block, header bool) {
	levels := make(map[int][]int)
	var roots []int

	for i, n := range blk.Nodes {
		switch n.Kind {
		case domain.KindDivert:
			b.divert(blk, n, i, levels, header)

		case domain.KindGather:
			b.g.AddNode(n)
			b.gather(n, levels)

		default:
			b.g.AddNode(n)
			if parent, ok := nearest(levels, n.Level-1); ok {
				b.link(parent, n.ID)
			} else if n.Kind == domain.KindChoice {
				roots = append(roots, n.ID)
			}
			record(levels, n.Level, n.ID)
		}
	}

	if len(roots) > 1 && blk.Nodes[0].Kind == domain.KindChoice {
		b.entries[blk.Nodes[0].ID] = roots
	}
}

func (b *graphBuilder) gather(n *domain.Node, levels map[int][]int) {
	siblings := levels[n.Level]
	if len(siblings) == 0 {
		if parent, ok := nearest(levels, n.Level-1); ok {
			b.link(parent, n.ID)
		}
	}

	converged := make(map[int]bool)
	for _, id := range siblings {
		for _, leaf := range findLeaves(id, b.flow) {
			if b.diverted[leaf] || converged[leaf] {
				continue
			}
			converged[leaf] = true
			b.link(leaf, n.ID)
		}
	}

	clearFrom(levels, n.Level)
	outer := n.Level - 1
	if last := len(levels[outer]); last > 0 {
		levels[outer][last-1] = n.ID
	} else {
		levels[outer] = append(levels[outer], n.ID)
	}
}

func (b *graphBuilder) divert(blk *Block, n *domain.Node, pos int, levels map[int][]int, header bool) {
	from, ok := blk.Spawned[n.ID]
	if !ok {
		from, ok = nearest(levels, n.Level)
	}
	switch {
	case ok:
	case header:
		from = domain.BeginID
	case pos == 0:
		// Opens a knot or stitch; resolved through by follow.
		return
	default:
		b.g.Diagnostics = append(b.g.Diagnostics, domain.Diagnostic{
			Line:    n.Line,
			Message: fmt.Sprintf("divert to %q has no node to leave from", n.Name),
		})
		return
	}
	b.diverted[from] = true
	b.pending = append(b.pending, pendingEdge{from: from, divert: n})
}

func (b *graphBuilder) link(from, to int) {
	b.flow = append(b.flow, domain.Edge{From: from, To: to})
	b.pending = append(b.pending, pendingEdge{from: from, to: to})
}

// targets resolves a divert to the node ids it enters.
func (b *graphBuilder) targets(n *domain.Node) ([]int, error) {
	id, err := b.resolve(n.Name, n.Knot)
	if err != nil {
		return nil, err
	}
	if roots, ok := b.entries[id]; ok {
		return roots, nil
	}
	return []int{id}, nil
}

// resolve looks name up from inside knot: reserved names first, then the
// knot's stitches, then the story-wide table.
func (b *graphBuilder) resolve(name, knot string) (int, error) {
	id, ok := b.lookup(name, knot)
	if !ok {
		return 0, fmt.Errorf("%w: %q", domain.ErrUnresolvedDivert, name)
	}
	return b.follow(id)
}

// follow resolves through blocks that open with a divert.
func (b *graphBuilder) follow(id int) (int, error) {
	seen := make(map[int]bool)
	for {
		redirect, ok := b.redirects[id]
		if !ok {
			return id, nil
		}
		if seen[id] {
			return 0, fmt.Errorf("%w: %q redirects in a cycle", domain.ErrUnresolvedDivert, redirect.Name)
		}
		seen[id] = true

		next, found := b.lookup(redirect.Name, redirect.Knot)
		if !found {
			return 0, fmt.Errorf("%w: %q", domain.ErrUnresolvedDivert, redirect.Name)
		}
		id = next
	}
}

func (b *graphBuilder) lookup(name, knot string) (int, bool) {
	if id, ok := domain.ReservedID(name); ok {
		return id, true
	}
	if id, ok := b.locals[knot][name]; ok {
		return id, true
	}
	id, ok := b.global[name]
	return id, ok
}

// nearest returns the last node recorded at level, walking outwards.
func nearest(levels map[int][]int, level int) (int, bool) {
	for l := level; l >= 0; l-- {
		if ids := levels[l]; len(ids) > 0 {
			return ids[len(ids)-1], true
		}
	}
	return 0, false
}

func record(levels map[int][]int, level, id int) {
	clearFrom(levels, level+1)
	levels[level] = append(levels[level], id)
}

func clearFrom(levels map[int][]int, level int) {
	for l := range levels {
		if l >= level {
			delete(levels, l)
		}
	}
}
