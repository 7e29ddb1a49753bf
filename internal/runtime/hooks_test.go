package runtime_test

import (
	"testing"

	"github.com/aretw0/skein/internal/runtime"
	"github.com/aretw0/skein/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type observerFuncs struct {
	onContent  func(string)
	onChoices  func([]*domain.Node)
	onComplete func()
}

func (o observerFuncs) ContentAdded(text string) {
	if o.onContent != nil {
		o.onContent(text)
	}
}

func (o observerFuncs) ChoicesUpdated(c []*domain.Node) {
	if o.onChoices != nil {
		o.onChoices(c)
	}
}

func (o observerFuncs) StoryCompleted() {
	if o.onComplete != nil {
		o.onComplete()
	}
}

func TestEngine_ObserverAndHooks(t *testing.T) {
	var (
		content   []string
		offers    [][]int
		completed int
		entered   []int
		taken     []*domain.ChoiceEvent
		done      *domain.CompleteEvent
	)

	e := newEngine(t, twoKnots,
		runtime.WithStoryID("two-knots", ""),
		runtime.WithObserver(observerFuncs{
			onContent:  func(s string) { content = append(content, s) },
			onChoices:  func(c []*domain.Node) { offers = append(offers, choiceIDs(c)) },
			onComplete: func() { completed++ },
		}),
		runtime.WithLifecycleHooks(domain.LifecycleHooks{
			OnNodeEnter: func(ev *domain.NodeEvent) { entered = append(entered, ev.NodeID) },
			OnChoice:    func(ev *domain.ChoiceEvent) { taken = append(taken, ev) },
			OnComplete:  func(ev *domain.CompleteEvent) { done = ev },
		}),
	)

	require.NoError(t, e.Start())
	_, err := e.MakeChoice(3)
	require.NoError(t, err)

	assert.Equal(t, []string{"Hello", "• B", "Got B", domain.AutoEndText}, content)
	assert.Equal(t, [][]int{{2, 3}, {}}, offers)
	assert.Equal(t, 1, completed)
	assert.Equal(t, []int{domain.BeginID, 1, 3, 7, domain.AutoEndID}, entered)

	require.Len(t, taken, 1)
	assert.Equal(t, 3, taken[0].NodeID)
	assert.Equal(t, "B", taken[0].Text)
	assert.Equal(t, 1, taken[0].Turn)
	assert.Equal(t, "two-knots", taken[0].StoryID)
	assert.Equal(t, domain.EventChoice, taken[0].Type)

	require.NotNil(t, done)
	assert.Equal(t, domain.AutoEndID, done.NodeID)
	assert.Equal(t, 1, done.Turns)
}
