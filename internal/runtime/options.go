package runtime

import (
	"log/slog"

	"github.com/aretw0/skein/pkg/domain"
	"github.com/aretw0/skein/pkg/ports"
)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the structured logger. Transitions are logged at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithObserver registers the presentation layer.
func WithObserver(obs ports.StoryObserver) Option {
	return func(e *Engine) {
		e.observer = obs
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithAutoAdvance makes the engine take a lone available choice on its own
// instead of waiting for the player.
func WithAutoAdvance(enabled bool) Option {
	return func(e *Engine) {
		e.autoAdvance = enabled
	}
}

// WithVariables seeds the story variables.
func WithVariables(vars map[string]any) Option {
	return func(e *Engine) {
		for k, v := range vars {
			e.state.Variables[k] = v
		}
	}
}

// WithStoryID stamps events and snapshots with the story identity.
// A non-empty digest makes Restore reject snapshots of other story versions.
func WithStoryID(id, digest string) Option {
	return func(e *Engine) {
		e.storyID = id
		e.digest = digest
	}
}
