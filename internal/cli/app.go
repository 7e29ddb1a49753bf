// Package cli implements the commands of the skein binary. The cobra wiring
// lives in cmd/skein; everything here takes explicit writers so it can be
// tested without a terminal.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aretw0/skein"
	"github.com/aretw0/skein/internal/config"
	"github.com/aretw0/skein/internal/logging"
)

// GlobalOptions are the flags shared by every command.
type GlobalOptions struct {
	ConfigPath string
	LogLevel   string
	LogFormat  string
	Debug      bool
	Separator  string
}

// App bundles the resolved configuration and logger.
type App struct {
	Config *config.Config
	Logger *slog.Logger
	Stdout io.Writer
	Stderr io.Writer
}

// NewApp loads the configuration and applies flag overrides on top of it.
func NewApp(opts GlobalOptions) (*App, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if opts.LogLevel != "" {
		cfg.Log.Level = opts.LogLevel
	}
	if opts.LogFormat != "" {
		cfg.Log.Format = opts.LogFormat
	}
	if opts.Debug {
		cfg.Log.Level = "debug"
	}
	if opts.Separator != "" {
		cfg.Separator = opts.Separator
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	logger, err := logging.NewWithFormat(os.Stderr, level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	return &App{Config: cfg, Logger: logger, Stdout: os.Stdout, Stderr: os.Stderr}, nil
}

// parseOptions returns the parse options implied by the configuration.
func (a *App) parseOptions() []skein.ParseOption {
	return []skein.ParseOption{
		skein.WithSeparator(a.Config.Separator),
		skein.WithParseLogger(a.Logger),
	}
}

// ParseFile compiles a script with the configured separator.
func (a *App) ParseFile(path string) (*skein.Story, error) {
	story, err := skein.ParseFile(path, a.parseOptions()...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return story, nil
}
