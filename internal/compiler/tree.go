package compiler

import (
	"fmt"

	"github.com/aretw0/skein/pkg/domain"
)

// Block is one flat run of nodes: the story header, a knot intro or a stitch.
type Block struct {
	Name  string
	Nodes []*domain.Node
	// Spawned maps the id of each inline divert to the node whose line carried it.
	Spawned map[int]int
}

func newBlock(name string) *Block {
	return &Block{Name: name, Spawned: make(map[int]int)}
}

// FirstID returns the id of the first node of the block.
func (b *Block) FirstID() (int, bool) {
	if len(b.Nodes) == 0 {
		return 0, false
	}
	return b.Nodes[0].ID, true
}

func (b *Block) add(n *domain.Node) {
	b.Nodes = append(b.Nodes, n)
}

// RawKnot is a knot header plus its intro block and its stitches.
type RawKnot struct {
	Header   *domain.Node
	Name     string
	Intro    *Block
	Stitches []*Block
}

// FirstID is the entry point of the knot: the first node of the intro, or of
// the first stitch when the intro is empty.
func (k *RawKnot) FirstID() (int, bool) {
	if id, ok := k.Intro.FirstID(); ok {
		return id, true
	}
	for _, s := range k.Stitches {
		if id, ok := s.FirstID(); ok {
			return id, true
		}
	}
	return 0, false
}

// StitchIDs maps local stitch names to their first node.
func (k *RawKnot) StitchIDs() map[string]int {
	ids := make(map[string]int, len(k.Stitches))
	for _, s := range k.Stitches {
		if _, dup := ids[s.Name]; dup {
			continue
		}
		if id, ok := s.FirstID(); ok {
			ids[s.Name] = id
		}
	}
	return ids
}

func (k *RawKnot) stitch(name string) *Block {
	for _, s := range k.Stitches {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// RawStory owns the header block and the knots in parse order.
type RawStory struct {
	Header      *Block
	Knots       []*RawKnot
	Diagnostics []domain.Diagnostic
}

// NameTable maps knot names and qualified "knot.stitch" names to their first
// node. The first definition of a duplicated name wins.
func (s *RawStory) NameTable() map[string]int {
	names := make(map[string]int)
	for _, k := range s.Knots {
		if _, dup := names[k.Name]; !dup {
			if id, ok := k.FirstID(); ok {
				names[k.Name] = id
			}
		}
		for stitch, id := range k.StitchIDs() {
			q := domain.QualifiedName(k.Name, stitch)
			if _, dup := names[q]; !dup {
				names[q] = id
			}
		}
	}
	return names
}

func (s *RawStory) knot(name string) *RawKnot {
	for _, k := range s.Knots {
		if k.Name == name {
			return k
		}
	}
	return nil
}

// blocks lists every block in processing order.
func (s *RawStory) blocks() []*Block {
	out := []*Block{s.Header}
	for _, k := range s.Knots {
		out = append(out, k.Intro)
		out = append(out, k.Stitches...)
	}
	return out
}

// TreeBuilder files the merged node stream into knots and stitches.
type TreeBuilder struct {
	alloc  *Allocator
	story  *RawStory
	knot   *RawKnot
	target *Block
}

// NewTreeBuilder returns a builder whose cursor sits on the story header.
func NewTreeBuilder(alloc *Allocator) *TreeBuilder {
	story := &RawStory{Header: newBlock("")}
	return &TreeBuilder{
		alloc:  alloc,
		story:  story,
		target: story.Header,
	}
}

// Add files n under the current cursor. Knot and stitch headers move the cursor.
func (b *TreeBuilder) Add(n *domain.Node) error {
	switch n.Kind {
	case domain.KindKnot:
		b.startKnot(n)
		return nil
	case domain.KindStitch:
		b.startStitch(n)
		return nil
	}

	spawned, err := postProcess(n, b.alloc)
	if err != nil {
		return err
	}

	b.tag(n)
	b.target.add(n)
	if spawned != nil {
		b.tag(spawned)
		b.target.add(spawned)
		b.target.Spawned[spawned.ID] = n.ID
	}
	return nil
}

// Finish returns the built story. The builder must not be used afterwards.
func (b *TreeBuilder) Finish() *RawStory {
	for _, k := range b.story.Knots {
		if _, ok := k.FirstID(); !ok {
			b.diagnose(k.Header.Line, fmt.Sprintf("knot %q has no content", k.Name))
		}
	}
	return b.story
}

func (b *TreeBuilder) startKnot(n *domain.Node) {
	if b.story.knot(n.Name) != nil {
		b.diagnose(n.Line, fmt.Sprintf("duplicate knot %q, the first definition is used for diverts", n.Name))
	}
	b.knot = &RawKnot{Header: n, Name: n.Name, Intro: newBlock("")}
	b.story.Knots = append(b.story.Knots, b.knot)
	b.target = b.knot.Intro
}

func (b *TreeBuilder) startStitch(n *domain.Node) {
	if b.knot == nil {
		b.diagnose(n.Line, fmt.Sprintf("stitch %q outside of a knot is ignored", n.Name))
		return
	}
	if b.knot.stitch(n.Name) != nil {
		b.diagnose(n.Line, fmt.Sprintf("duplicate stitch %q in knot %q", n.Name, b.knot.Name))
	}
	s := newBlock(n.Name)
	b.knot.Stitches = append(b.knot.Stitches, s)
	b.target = s
}

func (b *TreeBuilder) tag(n *domain.Node) {
	if b.knot == nil {
		return
	}
	n.Knot = b.knot.Name
	n.Stitch = b.target.Name
}

func (b *TreeBuilder) diagnose(line int, msg string) {
	b.story.Diagnostics = append(b.story.Diagnostics, domain.Diagnostic{Line: line, Message: msg})
}
