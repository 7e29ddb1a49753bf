package runtime_test

import (
	"testing"
	"testing/fstest"

	"github.com/aretw0/skein/internal/compiler"
	"github.com/aretw0/skein/internal/runtime"
	"github.com/aretw0/skein/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(t *testing.T, source string, opts ...runtime.Option) *runtime.Engine {
	t.Helper()
	g, err := compiler.Compile(source, compiler.WithFS(fstest.MapFS{}))
	require.NoError(t, err)
	return runtime.NewEngine(g, opts...)
}

func choiceIDs(choices []*domain.Node) []int {
	ids := make([]int, 0, len(choices))
	for _, c := range choices {
		ids = append(ids, c.ID)
	}
	return ids
}

func labels(choices []*domain.Node) []string {
	out := make([]string, 0, len(choices))
	for _, c := range choices {
		out = append(out, c.Label())
	}
	return out
}

const twoKnots = "Hello\n* A -> a\n* B -> b\n== a ==\nGot A\n== b ==\nGot B"

func TestEngine_TwoKnots(t *testing.T) {
	e := newEngine(t, twoKnots)
	require.NoError(t, e.Start())

	assert.Equal(t, []string{"Hello"}, e.History())
	choices := e.AvailableChoices()
	require.Len(t, choices, 2)
	assert.Equal(t, []string{"A", "B"}, labels(choices))

	ok, err := e.MakeChoice(choices[0].ID)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, []string{"Hello", "• A", "Got A", domain.AutoEndText}, e.History())
	assert.True(t, e.Complete())
	assert.Empty(t, e.AvailableChoices())
	assert.Equal(t, domain.AutoEndID, e.CurrentNode().ID)

	ok, err = e.MakeChoice(choices[1].ID)
	require.NoError(t, err)
	assert.False(t, ok, "a finished story accepts no choice")
}

func TestEngine_PlainLines(t *testing.T) {
	var offered []int
	e := newEngine(t, "One\nTwo\n\nThree", runtime.WithObserver(observerFuncs{
		onChoices: func(c []*domain.Node) { offered = append(offered, len(c)) },
	}))
	require.NoError(t, e.Start())

	assert.Equal(t, []string{"One Two Three", domain.AutoEndText}, e.History())
	assert.True(t, e.Complete())
	assert.Equal(t, []int{0}, offered)
}

func TestEngine_EmptyStory(t *testing.T) {
	e := newEngine(t, "")
	require.NoError(t, e.Start())
	assert.Equal(t, []string{domain.AutoEndText}, e.History())
	assert.True(t, e.Complete())
}

const hub = `-> hub
== hub ==
Where now?
* Read the sign -> hub
+ Wait -> hub
* Leave -> END`

func TestEngine_StickyAndOneShot(t *testing.T) {
	e := newEngine(t, hub)
	require.NoError(t, e.Start())
	assert.Equal(t, []string{"Read the sign", "Wait", "Leave"}, labels(e.AvailableChoices()))

	ok, err := e.Choose(0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"Wait", "Leave"}, labels(e.AvailableChoices()), "a one-shot choice is gone once taken")

	for i := 0; i < 2; i++ {
		ok, err = e.Choose(0)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, []string{"Wait", "Leave"}, labels(e.AvailableChoices()), "a sticky choice stays")
	}

	ok, err = e.Choose(1)
	require.NoError(t, err)
	require.True(t, ok)

	assert.True(t, e.Complete())
	assert.Equal(t, []string{
		"Where now?",
		"• Read the sign", "Where now?",
		"• Wait", "Where now?",
		"• Wait", "Where now?",
		"• Leave", domain.EndText,
	}, e.History())
	assert.Equal(t, 4, e.Turn())
}

func TestEngine_RejectsUnknownChoice(t *testing.T) {
	e := newEngine(t, hub)
	require.NoError(t, e.Start())

	ok, err := e.MakeChoice(999)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = e.Choose(7)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = e.Choose(-1)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, []string{"Where now?"}, e.History())
}

func TestEngine_ConditionGating(t *testing.T) {
	e := newEngine(t, `-> hub
== hub ==
Outside.
+ {not cave} Enter the cave -> cave
+ {cave} Go back in -> cave
* Leave -> END
== cave ==
Dark. -> hub`)
	require.NoError(t, e.Start())

	assert.Equal(t, []string{"Enter the cave", "Leave"}, labels(e.AvailableChoices()))
	assert.Equal(t, 0, e.Snapshot().Containers["cave"].SeenCount)

	ok, err := e.Choose(0)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, []string{"Go back in", "Leave"}, labels(e.AvailableChoices()))
	cave := e.Snapshot().Containers["cave"]
	assert.Equal(t, 1, cave.SeenCount)
	assert.Equal(t, domain.StatusSeen, cave.Status)
	require.NotNil(t, cave.LastSeenTurn)
	assert.Equal(t, 1, *cave.LastSeenTurn)

	ok, err = e.Choose(0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, e.Snapshot().Containers["cave"].SeenCount)
}

func TestEngine_FallbackChoice(t *testing.T) {
	e := newEngine(t, `-> hub
== hub ==
Room.
* Take the key -> hub
* -> out
== out ==
Nothing left.`)
	require.NoError(t, e.Start())

	assert.Equal(t, []string{"Take the key"}, labels(e.AvailableChoices()), "fallbacks hide while other choices pass")

	ok, err := e.Choose(0)
	require.NoError(t, err)
	require.True(t, ok)

	assert.True(t, e.Complete())
	assert.Equal(t, []string{"Room.", "• Take the key", "Room.", "Nothing left.", domain.AutoEndText}, e.History())
}

func TestEngine_ExhaustedChoices(t *testing.T) {
	e := newEngine(t, "Hub\n-> hub\n== hub ==\n* A -> hub\n* B -> hub")
	require.NoError(t, e.Start())

	ok, err := e.Choose(0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"B"}, labels(e.AvailableChoices()))

	ok, err = e.Choose(0)
	require.True(t, ok)
	require.ErrorIs(t, err, domain.ErrDeadEnd, "spent choices leave no way out")
	assert.False(t, e.Complete())
	assert.NotContains(t, e.History(), domain.AutoEndText)
}

func TestEngine_GatedChoicesOnly(t *testing.T) {
	e := newEngine(t, "Hello\n* A -> a\n== a ==\nGot A\n* {not a} Again")
	require.NoError(t, e.Start())

	ok, err := e.Choose(0)
	require.True(t, ok)
	require.ErrorIs(t, err, domain.ErrDeadEnd)
	assert.False(t, e.Complete())
}

func TestEngine_SeenCountPerNode(t *testing.T) {
	e := newEngine(t, "Hello\n* A -> a\n== a ==\nGot A\n* X\n* Y")
	require.NoError(t, e.Start())

	_, err := e.Choose(0)
	require.NoError(t, err)
	assert.Equal(t, 1, e.Snapshot().Containers["a"].SeenCount)

	_, err = e.Choose(0)
	require.NoError(t, err)
	assert.Equal(t, 2, e.Snapshot().Containers["a"].SeenCount, "every node inside the knot counts")
	assert.True(t, e.Complete())
}

func TestEngine_OpensOnLoopingHub(t *testing.T) {
	e := newEngine(t, "== hub ==\n* A -> hub\n* B -> hub")
	require.NoError(t, e.Start())
	assert.Equal(t, []string{"A", "B"}, labels(e.AvailableChoices()))

	_, err := e.Choose(1)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, labels(e.AvailableChoices()))
}

func TestEngine_ChoiceOrderIsPositional(t *testing.T) {
	e := newEngine(t, "-> hub\n== hub ==\nRoom.\n* First -> hub\n+ Second -> hub\n+ {hub > 10} Third -> hub")
	require.NoError(t, e.Start())
	choices := e.AvailableChoices()
	require.Equal(t, []string{"First", "Second"}, labels(choices))

	var third int
	for id, n := range e.Graph().Nodes {
		if n.Label() == "Third" {
			third = id
		}
	}
	require.NotZero(t, third)

	order := e.Snapshot().ChoiceOrder
	assert.Equal(t, 1, order[choices[0].ID])
	assert.Equal(t, 2, order[choices[1].ID])
	assert.Equal(t, 3, order[third], "a gated choice still holds its place")

	_, err := e.Choose(0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Second"}, labels(e.AvailableChoices()))
	assert.Equal(t, 2, e.Snapshot().ChoiceOrder[choices[1].ID], "the order is assigned once")
}

func TestEngine_AutoAdvance(t *testing.T) {
	source := "Hi\n* Only [one] choice\n- Done"

	manual := newEngine(t, source)
	require.NoError(t, manual.Start())
	assert.Len(t, manual.AvailableChoices(), 1)
	assert.False(t, manual.Complete())

	auto := newEngine(t, source, runtime.WithAutoAdvance(true))
	require.NoError(t, auto.Start())
	assert.True(t, auto.Complete())
	assert.Equal(t, []string{"Hi", "Only choice", "Done", domain.AutoEndText}, auto.History())
}

func TestEngine_BracketContent(t *testing.T) {
	e := newEngine(t, "Hi\n* Hello [back] right back\n* [Leave] You leave.")
	require.NoError(t, e.Start())
	assert.Equal(t, []string{"Hello back", "Leave"}, labels(e.AvailableChoices()))

	_, err := e.Choose(0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Hi", "• Hello back", "Hello right back", domain.AutoEndText}, e.History())
}

func TestEngine_Glue(t *testing.T) {
	e := newEngine(t, "We hurried home <>\n-> fast\n== fast ==\n<> as fast as we could.")
	require.NoError(t, e.Start())
	assert.Equal(t, []string{"We hurried home as fast as we could.", domain.AutoEndText}, e.History())
}

func TestEngine_ContentLoop(t *testing.T) {
	e := newEngine(t, "-> a\n== a ==\nTick -> b\n== b ==\nTock -> a")
	require.NoError(t, e.Start())

	assert.True(t, e.Complete())
	assert.Equal(t, []string{"Tick", "Tock", domain.AutoEndText}, e.History())
}

func TestEngine_DeadEnd(t *testing.T) {
	g := domain.NewGraph()
	g.AddNode(&domain.Node{ID: 1, Kind: domain.KindBase, Content: "stuck"})
	for _, s := range domain.SentinelNodes() {
		g.AddNode(s)
	}
	g.AddEdge(domain.BeginID, 1)
	g.Linked = true

	e := runtime.NewEngine(g)
	err := e.Start()
	require.ErrorIs(t, err, domain.ErrDeadEnd)
	assert.False(t, e.Complete())
}

func TestEngine_LinksUnlinkedGraph(t *testing.T) {
	g := domain.NewGraph()
	g.AddNode(&domain.Node{ID: 1, Kind: domain.KindBase, Content: "alone"})
	for _, s := range domain.SentinelNodes() {
		g.AddNode(s)
	}

	e := runtime.NewEngine(g)
	require.NoError(t, e.Start())
	assert.Equal(t, []string{"alone", domain.AutoEndText}, e.History())
	assert.False(t, g.Linked, "the caller's graph is left untouched")
}

func TestEngine_Reset(t *testing.T) {
	e := newEngine(t, twoKnots)
	require.NoError(t, e.Start())
	_, err := e.Choose(0)
	require.NoError(t, err)
	require.True(t, e.Complete())

	e.Reset()
	assert.Empty(t, e.History())
	assert.False(t, e.Complete())
	assert.Equal(t, 1, e.Turn(), "the turn counter carries over")

	require.NoError(t, e.Start())
	assert.Equal(t, []string{"Hello"}, e.History())
	assert.Equal(t, []string{"B"}, labels(e.AvailableChoices()), "visitation survives a reset")
}

func TestEngine_Variables(t *testing.T) {
	g, err := compiler.Compile("Shop\n* Buy the sword\n* Leave", compiler.WithFS(fstest.MapFS{}))
	require.NoError(t, err)

	rich, err := domain.NewVariable(domain.VariableGt, "gold", 5)
	require.NoError(t, err)
	g.Node(2).Condition = rich

	e := runtime.NewEngine(g, runtime.WithVariables(map[string]any{"gold": 10}))
	require.NoError(t, e.Start())
	assert.Equal(t, []string{"Buy the sword", "Leave"}, labels(e.AvailableChoices()))

	e.SetVariable("gold", 1)
	assert.Equal(t, []string{"Leave"}, labels(e.AvailableChoices()))

	v, ok := e.Variable("gold")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, map[string]any{"gold": 1}, e.Variables())
}

func TestEngine_Stats(t *testing.T) {
	e := newEngine(t, twoKnots)
	require.NoError(t, e.Start())

	assert.Equal(t, runtime.Stats{
		TotalNodes:       8,
		TotalEdges:       7,
		CurrentNode:      1,
		HistoryLength:    1,
		ChoicesAvailable: 2,
		IsComplete:       false,
	}, e.Stats())
}

func TestEngine_SnapshotRestore(t *testing.T) {
	g, err := compiler.Compile(hub, compiler.WithFS(fstest.MapFS{}))
	require.NoError(t, err)

	first := runtime.NewEngine(g, runtime.WithStoryID("hub", "v1"))
	require.NoError(t, first.Start())
	_, err = first.Choose(0)
	require.NoError(t, err)

	snap := first.Snapshot()
	assert.Equal(t, "hub", snap.StoryID)
	assert.Equal(t, "v1", snap.Digest)

	second := runtime.NewEngine(g, runtime.WithStoryID("hub", "v1"))
	require.NoError(t, second.Restore(snap))
	assert.Equal(t, first.History(), second.History())
	assert.Equal(t, labels(first.AvailableChoices()), labels(second.AvailableChoices()))

	require.NoError(t, second.Start(), "start on a restored story is a no-op")
	assert.Equal(t, first.History(), second.History())

	ok, err := second.Choose(1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, second.Complete())
	assert.False(t, first.Complete(), "engines sharing a graph are independent")

	other := runtime.NewEngine(g, runtime.WithStoryID("hub", "v2"))
	assert.ErrorIs(t, other.Restore(snap), domain.ErrSnapshotMismatch)

	bad := snap.Clone()
	bad.CurrentNodeID = 404
	assert.ErrorIs(t, second.Restore(bad), domain.ErrSnapshotMismatch)
	assert.ErrorIs(t, second.Restore(nil), domain.ErrSnapshotMismatch)
}
