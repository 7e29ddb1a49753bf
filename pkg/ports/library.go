package ports

import (
	"context"

	"github.com/aretw0/skein/pkg/domain"
)

// StoryLibrary resolves story IDs to their scripts.
// This allows the storage layer (Loam, FS, Memory) to be decoupled.
type StoryLibrary interface {
	// Get returns the story with the given ID.
	// Returns domain.ErrStoryNotFound if there is none.
	Get(ctx context.Context, id string) (*domain.StorySource, error)

	// List returns the IDs of every story in the library, sorted.
	List(ctx context.Context) ([]string, error)
}

// Watchable defines an interface for libraries that can notify about changes.
// This is typically used for hot-reload or dev-mode functionality.
type Watchable interface {
	// Watch returns a channel that receives the ID of every story that changed.
	// The channel is closed when ctx is done.
	Watch(ctx context.Context) (<-chan string, error)
}
