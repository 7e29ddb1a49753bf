package compiler

import (
	"testing"

	"github.com/aretw0/skein/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func choice(content string) *domain.Node {
	return &domain.Node{ID: 1, Kind: domain.KindChoice, Level: 1, Line: 4, Content: content}
}

func TestPostProcess_Brackets(t *testing.T) {
	tests := []struct {
		content    string
		choiceText string
		after      string
	}{
		{"Hello [back] right back", "Hello back", "Hello right back"},
		{"[Leave]", "Leave", ""},
		{"Say [yes]", "Say yes", "Say"},
		{"[Go] now", "Go", "now"},
		{"No brackets", "No brackets", "No brackets"},
		{`Price \[5] [buy]`, `Price \[5] buy`, `Price \[5]`},
	}
	for _, tt := range tests {
		t.Run(tt.content, func(t *testing.T) {
			n := choice(tt.content)
			spawned, err := postProcess(n, NewAllocator())
			require.NoError(t, err)
			assert.Nil(t, spawned)
			assert.Equal(t, tt.choiceText, n.ChoiceText)
			assert.Equal(t, tt.after, n.Content)
		})
	}
}

func TestPostProcess_DuplicateBrackets(t *testing.T) {
	_, err := postProcess(choice("[a] or [b]"), NewAllocator())
	require.ErrorIs(t, err, domain.ErrDuplicateBrackets)

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 4, perr.Line)
}

func TestPostProcess_Divert(t *testing.T) {
	alloc := NewAllocator()
	alloc.Next()

	n := &domain.Node{ID: 1, Kind: domain.KindBase, Level: 2, Line: 9, Content: "Onwards -> cave.mouth # loud"}
	spawned, err := postProcess(n, alloc)
	require.NoError(t, err)
	require.NotNil(t, spawned)

	assert.Equal(t, "Onwards", n.Content)
	assert.Empty(t, n.Instruction)
	assert.Equal(t, domain.KindDivert, spawned.Kind)
	assert.Equal(t, "cave.mouth", spawned.Name)
	assert.Equal(t, "loud", spawned.Instruction)
	assert.Equal(t, 2, spawned.ID)
	assert.Equal(t, 2, spawned.Level)
	assert.Equal(t, 9, spawned.Line)
}

func TestPostProcess_FallbackChoice(t *testing.T) {
	n := choice("-> hideout")
	spawned, err := postProcess(n, NewAllocator())
	require.NoError(t, err)
	require.NotNil(t, spawned)

	assert.True(t, n.Fallback)
	assert.Empty(t, n.Content)
	assert.Empty(t, n.ChoiceText)
	assert.Equal(t, "hideout", spawned.Name)
}

func TestPostProcess_ChoiceWithDivertIsNotFallback(t *testing.T) {
	n := choice("[Run] -> away")
	spawned, err := postProcess(n, NewAllocator())
	require.NoError(t, err)
	require.NotNil(t, spawned)

	assert.False(t, n.Fallback)
	assert.Equal(t, "Run", n.ChoiceText)
	assert.Empty(t, n.Content)
}

func TestPostProcess_GlueAndInstruction(t *testing.T) {
	tests := []struct {
		content     string
		want        string
		before      bool
		after       bool
		instruction string
	}{
		{"<>and then", "and then", true, false, ""},
		{"and then<>", "and then", false, true, ""},
		{"<>mid<>dle<>", "middle", true, true, ""},
		{"Hello # mood: happy", "Hello", false, false, "mood: happy"},
		{"<>Hi <> # tag", "Hi", true, true, "tag"},
	}
	for _, tt := range tests {
		t.Run(tt.content, func(t *testing.T) {
			n := &domain.Node{ID: 1, Kind: domain.KindBase, Content: tt.content}
			_, err := postProcess(n, NewAllocator())
			require.NoError(t, err)
			assert.Equal(t, tt.want, n.Content)
			assert.Equal(t, tt.before, n.GlueBefore)
			assert.Equal(t, tt.after, n.GlueAfter)
			assert.Equal(t, tt.instruction, n.Instruction)
		})
	}
}
