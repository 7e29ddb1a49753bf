package tests

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/skein/pkg/domain"
	"github.com/aretw0/skein/pkg/ports"
)

// StoryLibraryContractTest is a reusable test suite that verifies if an adapter
// complies with ports.StoryLibrary. setupData maps every story the library
// holds to its script.
func StoryLibraryContractTest(t *testing.T, lib ports.StoryLibrary, setupData map[string]string) {
	t.Helper()
	ctx := context.Background()

	t.Run("Get_Success", func(t *testing.T) {
		for id, script := range setupData {
			story, err := lib.Get(ctx, id)
			if err != nil {
				t.Fatalf("unexpected error getting story %s: %v", id, err)
			}
			if story.ID != id {
				t.Errorf("id mismatch: got %q, want %q", story.ID, id)
			}
			if story.Script != script {
				t.Errorf("script mismatch for %s. got %q, want %q", id, story.Script, script)
			}
		}
	})

	t.Run("Get_NotFound", func(t *testing.T) {
		_, err := lib.Get(ctx, "non-existent-story")
		if !errors.Is(err, domain.ErrStoryNotFound) {
			t.Errorf("expected ErrStoryNotFound, got %v", err)
		}
	})

	t.Run("List", func(t *testing.T) {
		ids, err := lib.List(ctx)
		if err != nil {
			t.Fatalf("unexpected error listing stories: %v", err)
		}

		if len(ids) != len(setupData) {
			t.Errorf("expected %d stories, got %d", len(setupData), len(ids))
		}

		for i := 1; i < len(ids); i++ {
			if ids[i-1] > ids[i] {
				t.Errorf("list is not sorted: %v", ids)
				break
			}
		}

		lookup := make(map[string]bool)
		for _, id := range ids {
			lookup[id] = true
		}
		for id := range setupData {
			if !lookup[id] {
				t.Errorf("story %s missing from list", id)
			}
		}
	})
}
