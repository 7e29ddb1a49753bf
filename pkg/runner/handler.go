package runner

import (
	"context"

	"github.com/aretw0/skein/pkg/domain"
)

// IOHandler defines the strategy for interacting with the reader.
// This allows switching between Text (CLI/TUI) and JSON (structured) modes.
type IOHandler interface {
	// Output presents one step of the story.
	Output(ctx context.Context, frame Frame) error

	// Input reads the next command. It returns io.EOF when the source is
	// exhausted.
	Input(ctx context.Context) (string, error)

	// SystemOutput presents a meta-message (invalid input, resume notices)
	// distinct from story content.
	SystemOutput(ctx context.Context, msg string) error
}

// Frame is what the runner hands to the IOHandler after each step.
type Frame struct {
	SessionID string   `json:"session_id,omitempty"`
	Lines     []string `json:"lines,omitempty"`
	// Restarted is set when Lines replays the history from the top, as after
	// a reset or a resume.
	Restarted bool                 `json:"restarted,omitempty"`
	Choices   []Choice             `json:"choices"`
	Turn      int                  `json:"turn"`
	Complete  bool                 `json:"complete"`
	Diff      *domain.SnapshotDiff `json:"diff,omitempty"`
}

// Choice is a choice as offered to the reader. Index is 1-based.
type Choice struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// ContentRenderer is a function that transforms content before outputting it.
// This allows for TUI rendering (markdown to ANSI) without coupling the core package.
type ContentRenderer func(string) (string, error)

// ChoiceFormatter renders one numbered choice line.
type ChoiceFormatter func(index int, text string) string

func choicesOf(nodes []*domain.Node) []Choice {
	out := make([]Choice, 0, len(nodes))
	for i, n := range nodes {
		out = append(out, Choice{Index: i + 1, Text: n.ChoiceText})
	}
	return out
}
