package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
)

// NewRenderer returns a function that renders content paragraphs as markdown
// using glamour. On anything but a terminal it returns the text unchanged.
func NewRenderer(w io.Writer) func(string) (string, error) {
	if !IsTerminal(w) {
		return plain
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return plain
	}
	return func(markdown string) (string, error) {
		out, err := r.Render(markdown)
		if err != nil {
			return markdown, err
		}
		return strings.TrimSpace(out), nil
	}
}

func plain(s string) (string, error) {
	return s, nil
}

// NewChoiceFormatter returns a formatter that colours choice numbers when w
// is a terminal.
func NewChoiceFormatter(w io.Writer) func(int, string) string {
	if !IsTerminal(w) {
		return func(i int, text string) string {
			return fmt.Sprintf("%d) %s", i, text)
		}
	}
	out := termenv.NewOutput(w)
	return func(i int, text string) string {
		num := out.String(fmt.Sprintf("%d)", i)).Foreground(out.Color("#c084fc")).Bold()
		return fmt.Sprintf("%s %s", num, text)
	}
}
