package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/skein"
	"github.com/aretw0/skein/internal/presentation/graph"
	"github.com/aretw0/skein/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoKnots = "Hello\n* A -> a\n* B -> b\n== a ==\nGot A\n== b ==\nGot B"

func TestGenerateMermaid(t *testing.T) {
	tests := []struct {
		name     string
		script   string
		contains []string
	}{
		{
			name:   "Shapes",
			script: twoKnots,
			contains: []string{
				"graph TD\n",
				"begin((\"BEGIN\"))",
				"end_((\"END\"))",
				"auto_end((\"AUTO_END\"))",
				"n1[\"Hello\"]",
				"n2{\"A\"}",
				"[/\"== a ==\"/]",
			},
		},
		{
			name:   "Choice Edges",
			script: twoKnots,
			contains: []string{
				"begin --> n1",
				"n1 -- \"A\" --> n2",
				"n1 -- \"B\" --> n3",
			},
		},
		{
			name:   "Conditional Choice",
			script: "== forest ==\nTrees\n* {forest} Again -> forest\n* Leave -> END",
			contains: []string{
				"[forest]\" .->",
			},
		},
		{
			name:   "Gather",
			script: "Start\n* One\n* Two\n- Joined",
			contains: []string{
				"[[\"Joined\"]]",
			},
		},
		{
			name:   "Quotes And Long Lines",
			script: "She said \"" + strings.Repeat("x", 60) + "\"",
			contains: []string{
				"[\"She said '" + strings.Repeat("x", 29) + "…\"]",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			story, err := skein.Parse(tt.script)
			require.NoError(t, err)

			out := graph.GenerateMermaid(story.Graph, nil)
			for _, want := range tt.contains {
				assert.Contains(t, out, want)
			}
			assert.NotContains(t, out, "classDef")
		})
	}
}

func TestGenerateMermaid_Overlay(t *testing.T) {
	eng, err := skein.New(twoKnots)
	require.NoError(t, err)
	require.NoError(t, eng.Start())
	_, err = eng.Choose(0)
	require.NoError(t, err)

	overlay := graph.OverlayFromSnapshot(eng.Snapshot())
	require.NotNil(t, overlay)
	assert.Equal(t, domain.AutoEndID, overlay.CurrentNode)

	out := graph.GenerateMermaid(eng.Story().Graph, overlay)
	assert.Contains(t, out, "classDef visited")
	assert.Contains(t, out, "class n1 visited;")
	assert.Contains(t, out, "class n2 visited;")
	assert.NotContains(t, out, "class n3 visited;")
	assert.Contains(t, out, "class auto_end current;")
}

func TestOverlayFromSnapshot_Nil(t *testing.T) {
	assert.Nil(t, graph.OverlayFromSnapshot(nil))
}
