package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/aretw0/skein/pkg/domain"
)

// Library implements ports.StoryLibrary and ports.Watchable over a map.
// Put notifies watchers, which makes it handy for tests and embedded hosts.
type Library struct {
	mu       sync.RWMutex
	stories  map[string]*domain.StorySource
	watchers []chan string
}

// NewLibrary creates a library holding sources.
func NewLibrary(sources ...*domain.StorySource) *Library {
	l := &Library{stories: make(map[string]*domain.StorySource)}
	for _, src := range sources {
		l.stories[src.ID] = copySource(src)
	}
	return l
}

// NewLibraryFromScripts creates a library from id to script pairs with
// default settings.
func NewLibraryFromScripts(scripts map[string]string) *Library {
	l := NewLibrary()
	for id, script := range scripts {
		l.stories[id] = &domain.StorySource{ID: id, Script: script}
	}
	return l
}

// Get returns a copy of the story.
func (l *Library) Get(ctx context.Context, id string) (*domain.StorySource, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	src, ok := l.stories[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrStoryNotFound, id)
	}
	return copySource(src), nil
}

// List returns the story ids in order.
func (l *Library) List(ctx context.Context) ([]string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Sorted(maps.Keys(l.stories)), nil
}

// Put adds or replaces a story and tells every watcher about it.
func (l *Library) Put(src *domain.StorySource) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.stories[src.ID] = copySource(src)
	for _, ch := range l.watchers {
		select {
		case ch <- src.ID:
		default:
		}
	}
}

// Watch streams the ids passed to Put until ctx is done.
func (l *Library) Watch(ctx context.Context) (<-chan string, error) {
	ch := make(chan string, 16)

	l.mu.Lock()
	l.watchers = append(l.watchers, ch)
	l.mu.Unlock()

	go func() {
		<-ctx.Done()
		l.mu.Lock()
		l.watchers = slices.DeleteFunc(l.watchers, func(c chan string) bool { return c == ch })
		close(ch)
		l.mu.Unlock()
	}()
	return ch, nil
}

func copySource(src *domain.StorySource) *domain.StorySource {
	c := *src
	c.Variables = maps.Clone(src.Variables)
	return &c
}
