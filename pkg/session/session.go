package session

import (
	"github.com/aretw0/skein"
	"github.com/aretw0/skein/pkg/domain"
)

// Session is what clients see of a running story.
type Session struct {
	ID       string               `json:"id"`
	StoryID  string               `json:"story_id"`
	History  []string             `json:"history"`
	Choices  []Choice             `json:"choices"`
	Complete bool                 `json:"complete"`
	Turn     int                  `json:"turn"`
	Diff     *domain.SnapshotDiff `json:"diff,omitempty"`
}

// Choice is one option on offer. Index is what Choose expects.
type Choice struct {
	Index int    `json:"index"`
	ID    int    `json:"id"`
	Text  string `json:"text"`
}

func newSession(id string, eng *skein.Engine, diff *domain.SnapshotDiff) *Session {
	if diff != nil {
		diff.SessionID = id
	}

	choices := []Choice{}
	for i, c := range eng.AvailableChoices() {
		choices = append(choices, Choice{Index: i, ID: c.ID, Text: c.Label()})
	}

	return &Session{
		ID:       id,
		StoryID:  eng.Story().ID,
		History:  eng.History(),
		Choices:  choices,
		Complete: eng.Complete(),
		Turn:     eng.Turn(),
		Diff:     diff,
	}
}
