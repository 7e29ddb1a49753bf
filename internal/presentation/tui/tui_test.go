package tui

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsTerminal_Buffer(t *testing.T) {
	assert.False(t, IsTerminal(&bytes.Buffer{}))
}

func TestPrintBanner_Plain(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf, "The Cave")

	out := buf.String()
	assert.Contains(t, out, bannerLines[0].text)
	assert.Contains(t, out, "The Cave\n")
	assert.NotContains(t, out, "\x1b[", "no escape codes off a terminal")
}

func TestNewRenderer_Plain(t *testing.T) {
	render := NewRenderer(&bytes.Buffer{})
	out, err := render("**bold** text")
	require.NoError(t, err)
	assert.Equal(t, "**bold** text", out)
}

func TestNewChoiceFormatter_Plain(t *testing.T) {
	format := NewChoiceFormatter(&bytes.Buffer{})
	assert.Equal(t, "2) Open the door", format(2, "Open the door"))
}
