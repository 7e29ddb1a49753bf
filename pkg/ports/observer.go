package ports

import "github.com/aretw0/skein/pkg/domain"

// StoryObserver is notified synchronously by the engine as a story unfolds.
// Implementations must not call back into the engine.
type StoryObserver interface {
	// ContentAdded is called for every line appended to the history.
	ContentAdded(text string)
	// ChoicesUpdated is called after each operation with the choices on offer.
	ChoicesUpdated(choices []*domain.Node)
	// StoryCompleted is called once the story reaches End or AutoEnd.
	StoryCompleted()
}

// ObserverFuncs adapts plain functions to StoryObserver. Nil fields are skipped.
type ObserverFuncs struct {
	OnContent  func(text string)
	OnChoices  func(choices []*domain.Node)
	OnComplete func()
}

func (o ObserverFuncs) ContentAdded(text string) {
	if o.OnContent != nil {
		o.OnContent(text)
	}
}

func (o ObserverFuncs) ChoicesUpdated(choices []*domain.Node) {
	if o.OnChoices != nil {
		o.OnChoices(choices)
	}
}

func (o ObserverFuncs) StoryCompleted() {
	if o.OnComplete != nil {
		o.OnComplete()
	}
}
