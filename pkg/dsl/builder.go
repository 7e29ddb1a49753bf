package dsl

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/aretw0/skein"
)

// ErrInvalidName is returned by Build when a knot, stitch or divert target
// is not a valid identifier.
var ErrInvalidName = errors.New("invalid name")

var (
	namePattern   = regexp.MustCompile(`^[\p{L}_][\p{L}\p{N}_]*$`)
	targetPattern = regexp.MustCompile(`^[\p{L}_][\p{L}\p{N}_]*(\.[\p{L}_][\p{L}\p{N}_]*)?$`)
)

type line interface {
	render() string
}

type rawLine string

func (l rawLine) render() string { return string(l) }

// Builder accumulates script lines in order.
type Builder struct {
	lines []line
	err   error
}

// New creates an empty builder.
func New() *Builder {
	return &Builder{}
}

// Text appends content lines.
func (b *Builder) Text(lines ...string) *Builder {
	for _, l := range lines {
		b.add(rawLine(flatten(l)))
	}
	return b
}

// Knot opens a top-level section.
func (b *Builder) Knot(name string) *Builder {
	b.checkName(name, namePattern)
	b.add(rawLine("== " + name + " =="))
	return b
}

// Stitch opens a sub-section of the current knot.
func (b *Builder) Stitch(name string) *Builder {
	b.checkName(name, namePattern)
	b.add(rawLine("= " + name))
	return b
}

// Divert jumps to a knot, a knot.stitch, END or DONE.
func (b *Builder) Divert(target string) *Builder {
	b.checkName(target, targetPattern)
	b.add(rawLine("-> " + target))
	return b
}

// Gather appends a gather at depth 1 that rejoins the branches above it.
// An empty text makes a bare gather.
func (b *Builder) Gather(text string) *Builder {
	return b.GatherAt(1, text)
}

// GatherAt appends a gather at the given depth.
func (b *Builder) GatherAt(depth int, text string) *Builder {
	if depth < 1 {
		depth = 1
	}
	b.add(rawLine(strings.TrimSpace(strings.Repeat("-", depth) + " " + flatten(text))))
	return b
}

// Choice appends a choice that can be taken once. The returned builder
// refines it; the line stays in place.
func (b *Builder) Choice(text string) *ChoiceBuilder {
	return b.choice('*', text)
}

// Sticky appends a choice that stays available after it is taken.
func (b *Builder) Sticky(text string) *ChoiceBuilder {
	return b.choice('+', text)
}

func (b *Builder) choice(marker rune, text string) *ChoiceBuilder {
	c := &ChoiceBuilder{builder: b, marker: marker, text: flatten(text), depth: 1}
	b.add(c)
	return c
}

// String renders the script.
func (b *Builder) String() string {
	rendered := make([]string, len(b.lines))
	for i, l := range b.lines {
		rendered[i] = l.render()
	}
	return strings.Join(rendered, "\n")
}

// Build renders and compiles the script.
func (b *Builder) Build(opts ...skein.ParseOption) (*skein.Story, error) {
	if b.err != nil {
		return nil, b.err
	}
	story, err := skein.Parse(b.String(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build story: %w", err)
	}
	return story, nil
}

func (b *Builder) add(l line) {
	b.lines = append(b.lines, l)
}

// checkName keeps the first error; later calls are no-ops once one is set.
func (b *Builder) checkName(name string, pattern *regexp.Regexp) {
	if b.err == nil && !pattern.MatchString(name) {
		b.err = fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
}

// ChoiceBuilder refines a choice line.
type ChoiceBuilder struct {
	builder   *Builder
	marker    rune
	text      string
	condition string
	target    string
	depth     int
}

// When guards the choice with a condition such as "forest", "not forest" or
// "forest.path > 2".
func (c *ChoiceBuilder) When(condition string) *ChoiceBuilder {
	c.condition = strings.TrimSpace(condition)
	return c
}

// Depth nests the choice under the previous choice of depth-1.
func (c *ChoiceBuilder) Depth(depth int) *ChoiceBuilder {
	if depth > 0 {
		c.depth = depth
	}
	return c
}

// Go diverts straight from the choice to target.
func (c *ChoiceBuilder) Go(target string) *Builder {
	c.builder.checkName(target, targetPattern)
	c.target = target
	return c.builder
}

// Then returns to the parent builder so the branch body can follow.
func (c *ChoiceBuilder) Then() *Builder {
	return c.builder
}

func (c *ChoiceBuilder) render() string {
	var sb strings.Builder
	sb.WriteString(strings.Repeat(string(c.marker), c.depth))
	if c.condition != "" {
		sb.WriteString(" {" + c.condition + "}")
	}
	if c.text != "" {
		sb.WriteString(" " + c.text)
	}
	if c.target != "" {
		sb.WriteString(" -> " + c.target)
	}
	return sb.String()
}

// flatten keeps a single value on a single script line.
func flatten(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
