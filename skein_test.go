package skein_test

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/aretw0/skein"
	"github.com/aretw0/skein/internal/compiler"
	"github.com/aretw0/skein/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoKnots = "Hello\n* A -> a\n* B -> b\n== a ==\nGot A\n== b ==\nGot B"

func TestNew_PlaysStory(t *testing.T) {
	eng, err := skein.New(twoKnots)
	require.NoError(t, err)
	require.NoError(t, eng.Start())

	ok, err := eng.Choose(1)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, []string{"Hello", "• B", "Got B", domain.AutoEndText}, eng.History())
	assert.True(t, eng.Complete())
	assert.Equal(t, domain.AutoEndID, eng.CurrentNode().ID)
	assert.Equal(t, 1, eng.Turn())
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rooms.ink"), []byte("== cellar ==\nDamp."), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "intro.ink"), []byte("Upstairs.\n-> cellar\nINCLUDE rooms.ink"), 0o644))

	story, err := skein.ParseFile(filepath.Join(dir, "intro.ink"))
	require.NoError(t, err)
	assert.Equal(t, "intro", story.ID)
	assert.NotEmpty(t, story.Digest)

	eng := skein.NewEngine(story)
	require.NoError(t, eng.Start())
	assert.Equal(t, []string{"Upstairs.", "Damp.", domain.AutoEndText}, eng.History())
}

func TestParseFile_Missing(t *testing.T) {
	_, err := skein.ParseFile(filepath.Join(t.TempDir(), "nope.ink"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestParse_Errors(t *testing.T) {
	_, err := skein.Parse("-> nowhere", skein.WithStoryID("lost"))
	require.ErrorIs(t, err, domain.ErrUnresolvedDivert)
	assert.Contains(t, err.Error(), "story lost")

	var parseErr *compiler.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, 1, parseErr.Line)

	_, err = skein.Parse("INCLUDE missing.ink", skein.WithFS(fstest.MapFS{}))
	require.ErrorIs(t, err, domain.ErrIncludeNotFound)
}

func TestParse_Digest(t *testing.T) {
	a, err := skein.Parse("One\nTwo")
	require.NoError(t, err)
	b, err := skein.Parse("One\nTwo")
	require.NoError(t, err)
	c, err := skein.Parse("One\nTwo", skein.WithSeparator("\n"))
	require.NoError(t, err)

	assert.Equal(t, a.Digest, b.Digest)
	assert.NotEqual(t, a.Digest, c.Digest)
	assert.Equal(t, "One\nTwo", c.Graph.Node(1).Content)
}

func TestParse_Diagnostics(t *testing.T) {
	story, err := skein.Parse("Hi\n* {gold == 3} Pay")
	require.NoError(t, err)
	assert.NotEmpty(t, story.Diagnostics())
}

func TestParseSource_Defaults(t *testing.T) {
	src := &domain.StorySource{
		ID:          "shop",
		Title:       "The Shop",
		Script:      "Welcome\n* Browse\n- Bye",
		AutoAdvance: true,
		Variables:   map[string]any{"gold": 3},
	}

	story, err := skein.ParseSource(src)
	require.NoError(t, err)
	assert.Equal(t, "shop", story.ID)
	assert.Equal(t, "The Shop", story.Title)
	assert.True(t, story.AutoAdvance)

	eng := skein.NewEngine(story)
	require.NoError(t, eng.Start())
	assert.True(t, eng.Complete(), "story default auto-advances the lone choice")
	v, ok := eng.Variable("gold")
	assert.True(t, ok)
	assert.Equal(t, 3, v)

	manual := skein.NewEngine(story, skein.WithAutoAdvance(false), skein.WithVariables(map[string]any{"gold": 9}))
	require.NoError(t, manual.Start())
	assert.False(t, manual.Complete())
	assert.Len(t, manual.AvailableChoices(), 1)
	v, _ = manual.Variable("gold")
	assert.Equal(t, 9, v)

	src.Variables["gold"] = 100
	v, _ = skein.NewEngine(story).Variable("gold")
	assert.Equal(t, 3, v, "the story keeps its own copy of the variables")
}

func TestEngine_SnapshotAcrossEngines(t *testing.T) {
	story, err := skein.Parse(twoKnots, skein.WithStoryID("two"))
	require.NoError(t, err)

	first := skein.NewEngine(story)
	require.NoError(t, first.Start())
	snap := first.Snapshot()
	assert.Equal(t, "two", snap.StoryID)
	assert.Equal(t, story.Digest, snap.Digest)

	second := skein.NewEngine(story)
	require.NoError(t, second.Restore(snap))
	ok, err := second.MakeChoice(2)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"Hello", "• A", "Got A", domain.AutoEndText}, second.History())

	changed, err := skein.Parse(twoKnots+"\nMore", skein.WithStoryID("two"))
	require.NoError(t, err)
	assert.ErrorIs(t, skein.NewEngine(changed).Restore(snap), domain.ErrSnapshotMismatch)
}

func TestEngine_ResetAndStats(t *testing.T) {
	eng, err := skein.New(twoKnots)
	require.NoError(t, err)
	require.NoError(t, eng.Start())
	_, err = eng.Choose(0)
	require.NoError(t, err)

	var stats skein.Stats = eng.Stats()
	assert.True(t, stats.IsComplete)
	assert.Equal(t, 4, stats.HistoryLength)

	eng.Reset()
	require.NoError(t, eng.Start())
	assert.Equal(t, []string{"Hello"}, eng.History())
	assert.Len(t, eng.AvailableChoices(), 1)
}
