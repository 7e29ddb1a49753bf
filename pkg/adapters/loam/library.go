// Package loam serves stories kept as markdown documents in a Loam
// repository. The frontmatter carries the story settings and the body holds
// the script:
//
//	---
//	title: The Cellar
//	auto_advance: true
//	variables:
//	  gold: 3
//	---
//	Hello
//	* Go down -> cellar
package loam

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/loam"
	"github.com/aretw0/skein/pkg/domain"
)

// Library adapts a Loam repository to ports.StoryLibrary and ports.Watchable.
type Library struct {
	Repo *loam.TypedRepository[StoryMetadata]
}

// New creates a library over an existing typed repository.
func New(repo *loam.TypedRepository[StoryMetadata]) *Library {
	return &Library{Repo: repo}
}

// Open initializes a read-only, strict Loam repository at path.
// Strict mode decodes frontmatter numbers as json.Number, which conditions
// compare numerically.
func Open(path string) (*Library, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}

	repo, err := loam.Init(absPath,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}
	return New(loam.NewTypedRepository[StoryMetadata](repo)), nil
}

// Get returns the story whose id, from frontmatter or file name, matches.
func (l *Library) Get(ctx context.Context, id string) (*domain.StorySource, error) {
	index, err := l.index(ctx)
	if err != nil {
		return nil, err
	}
	src, ok := index[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrStoryNotFound, id)
	}
	return src, nil
}

// List returns every story id, sorted.
func (l *Library) List(ctx context.Context) ([]string, error) {
	index, err := l.index(ctx)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(index))
	for id := range index {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// index reads every document with a body. Two documents claiming the same
// id are an error.
func (l *Library) index(ctx context.Context) (map[string]*domain.StorySource, error) {
	docs, err := l.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	seen := make(map[string]string)
	out := make(map[string]*domain.StorySource)
	for _, doc := range docs {
		if strings.TrimSpace(doc.Content) == "" {
			continue
		}

		rawID := doc.Data.ID
		if rawID == "" {
			rawID = doc.ID
		}
		id := trimExtension(rawID)

		if existing, ok := seen[id]; ok {
			return nil, fmt.Errorf("collision detected: story '%s' is defined in both '%s' and '%s'", id, existing, doc.ID)
		}
		seen[id] = doc.ID

		out[id] = &domain.StorySource{
			ID:          id,
			Title:       doc.Data.Title,
			Script:      doc.Content,
			AutoAdvance: doc.Data.AutoAdvance,
			Separator:   doc.Data.Separator,
			Variables:   doc.Data.Variables,
		}
	}
	return out, nil
}

func trimExtension(id string) string {
	return filepath.ToSlash(strings.TrimSuffix(id, filepath.Ext(id)))
}

// Watch implements ports.Watchable. It streams the id of every changed
// markdown document.
func (l *Library) Watch(ctx context.Context) (<-chan string, error) {
	events, err := l.Repo.Watch(ctx, "**/*.md")
	if err != nil {
		return nil, fmt.Errorf("failed to start loam watcher: %w", err)
	}

	ch := make(chan string, 1)
	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-events:
				if !ok {
					return
				}
				select {
				case ch <- trimExtension(evt.ID):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return ch, nil
}
