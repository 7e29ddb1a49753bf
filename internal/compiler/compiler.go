// Package compiler turns script text into a linked story graph.
//
// The pipeline runs strictly forward: include expansion, line lexing, line
// merging, knot/stitch tree building, graph building and linking. Each call
// to Compile uses its own Allocator, so concurrent compiles never share ids.
package compiler

import (
	"io/fs"
	"log/slog"
	"os"

	"github.com/aretw0/skein/internal/logging"
	"github.com/aretw0/skein/pkg/domain"
)

type config struct {
	fsys      fs.FS
	separator string
	logger    *slog.Logger
}

// Option configures Compile.
type Option func(*config)

// WithFS resolves INCLUDE directives against fsys.
func WithFS(fsys fs.FS) Option {
	return func(c *config) {
		c.fsys = fsys
	}
}

// WithBaseDir resolves INCLUDE directives against a directory on disk.
func WithBaseDir(dir string) Option {
	return func(c *config) {
		c.fsys = os.DirFS(dir)
	}
}

// WithSeparator sets the string joining merged content lines.
func WithSeparator(sep string) Option {
	return func(c *config) {
		c.separator = sep
	}
}

// WithLogger reports diagnostics to logger at warn level.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// Compile parses source into a linked graph.
// Without WithFS or WithBaseDir, includes resolve against the working directory.
func Compile(source string, opts ...Option) (*domain.Graph, error) {
	cfg := config{
		fsys:      os.DirFS("."),
		separator: DefaultSeparator,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	lines, err := ExpandIncludes(splitLines(source), cfg.fsys)
	if err != nil {
		return nil, err
	}

	alloc := NewAllocator()
	nodes, lexDiagnostics := lex(lines, alloc)
	nodes = MergeLines(nodes, cfg.separator)

	tree := NewTreeBuilder(alloc)
	for _, n := range nodes {
		if err := tree.Add(n); err != nil {
			return nil, err
		}
	}
	story := tree.Finish()
	story.Diagnostics = append(lexDiagnostics, story.Diagnostics...)

	g, err := BuildGraph(story)
	if err != nil {
		return nil, err
	}
	Link(g)

	for _, d := range g.Diagnostics {
		cfg.logger.Warn("script diagnostic", "line", d.Line, "message", d.Message)
	}
	return g, nil
}

func lex(lines []string, alloc *Allocator) ([]*domain.Node, []domain.Diagnostic) {
	p := NewLineParser(alloc)
	nodes := make([]*domain.Node, 0, len(lines))
	level := 0
	for i, line := range lines {
		var n *domain.Node
		n, level = p.ParseLine(line, i+1, level)
		if n != nil {
			nodes = append(nodes, n)
		}
	}
	return nodes, p.Diagnostics()
}
