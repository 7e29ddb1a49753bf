package runner

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextHandler_Output(t *testing.T) {
	var out bytes.Buffer
	h := NewTextHandler(strings.NewReader(""), &out,
		WithTextHandlerRenderer(func(s string) (string, error) { return "* " + s, nil }),
		WithTextHandlerFormatter(func(i int, text string) string { return fmt.Sprintf("[%d] %s", i, text) }),
	)

	err := h.Output(context.Background(), Frame{
		Lines:   []string{"Hello", "World"},
		Choices: []Choice{{Index: 1, Text: "Go"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "* Hello\n* World\n\n[1] Go\n", out.String())
}

func TestTextHandler_Input(t *testing.T) {
	var out bytes.Buffer
	h := NewTextHandler(strings.NewReader("  2  \n\x1b3\n"), &out)

	got, err := h.Input(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2", got)

	got, err = h.Input(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "3", got)

	_, err = h.Input(context.Background())
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, "> > > ", out.String())
}

func TestTextHandler_InputCancelled(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()

	h := NewTextHandler(r, io.Discard)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.Input(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestJSONHandler_Input(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"bare number", "2\n", "2"},
		{"json string", "\"reset\"\n", "reset"},
		{"choice object", "{\"choice\": 3}\n", "3"},
		{"command object", "{\"command\": \"quit\"}\n", "quit"},
		{"plain text", "hello there\n", "hello there"},
		{"skips blank lines", "\n\n1", "1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewJSONHandler(strings.NewReader(tt.input), io.Discard)
			got, err := h.Input(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestJSONHandler_InputRejectsOversized(t *testing.T) {
	t.Setenv(EnvMaxInputSize, "4")

	var out bytes.Buffer
	h := NewJSONHandler(strings.NewReader("123456\n1\n"), &out)

	got, err := h.Input(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1", got)
	assert.Contains(t, out.String(), `"system":"input exceeds maximum allowed size`)

	_, err = h.Input(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}
