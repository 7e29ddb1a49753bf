package skein

import (
	"io/fs"
	"log/slog"

	"github.com/aretw0/skein/internal/compiler"
	"github.com/aretw0/skein/internal/logging"
	"github.com/aretw0/skein/pkg/domain"
	"github.com/aretw0/skein/pkg/ports"
)

type parseConfig struct {
	id           string
	fsys         fs.FS
	separator    string
	logger       *slog.Logger
	compilerOpts []compiler.Option
}

// ParseOption configures Parse, ParseFile and ParseSource.
type ParseOption func(*parseConfig)

func newParseConfig(opts []ParseOption) *parseConfig {
	cfg := &parseConfig{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithStoryID names the story. The id is stamped on snapshots and events.
func WithStoryID(id string) ParseOption {
	return func(c *parseConfig) {
		c.id = id
	}
}

// WithBaseDir resolves INCLUDE directives against dir.
func WithBaseDir(dir string) ParseOption {
	return func(c *parseConfig) {
		c.compilerOpts = append(c.compilerOpts, compiler.WithBaseDir(dir))
	}
}

// WithFS resolves INCLUDE directives against fsys.
func WithFS(fsys fs.FS) ParseOption {
	return func(c *parseConfig) {
		c.fsys = fsys
	}
}

// WithSeparator sets the string joining consecutive content lines.
// An empty separator keeps the default single space.
func WithSeparator(sep string) ParseOption {
	return func(c *parseConfig) {
		c.separator = sep
	}
}

// WithParseLogger receives compiler diagnostics at warn level.
func WithParseLogger(logger *slog.Logger) ParseOption {
	return func(c *parseConfig) {
		c.logger = logger
	}
}

type engineConfig struct {
	logger      *slog.Logger
	observer    ports.StoryObserver
	hooks       domain.LifecycleHooks
	autoAdvance *bool
	variables   map[string]any
	parseOpts   []ParseOption
}

// Option configures an Engine.
type Option func(*engineConfig)

func newEngineConfig(opts []Option) *engineConfig {
	cfg := &engineConfig{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithLogger sets a structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(c *engineConfig) {
		c.logger = logger
	}
}

// WithObserver registers the presentation layer notified of new content,
// choice updates and completion.
func WithObserver(obs ports.StoryObserver) Option {
	return func(c *engineConfig) {
		c.observer = obs
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(c *engineConfig) {
		c.hooks = hooks
	}
}

// WithAutoAdvance overrides the story default. When enabled, a lone choice
// is taken without asking.
func WithAutoAdvance(enabled bool) Option {
	return func(c *engineConfig) {
		c.autoAdvance = &enabled
	}
}

// WithVariables seeds story variables on top of the story defaults.
func WithVariables(vars map[string]any) Option {
	return func(c *engineConfig) {
		c.variables = vars
	}
}

// WithParseOptions passes parse options through New.
func WithParseOptions(opts ...ParseOption) Option {
	return func(c *engineConfig) {
		c.parseOpts = append(c.parseOpts, opts...)
	}
}
