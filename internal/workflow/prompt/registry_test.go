package prompt

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryFormatsAllPrompts(t *testing.T) {
	r := NewRegistry()
	cases := map[PromptID]map[string]any{
		PromptOutlineV1: {"topic": "remote work", "language": "English", "chapter_count": 5},
		PromptChapterV1: {
			"book_title": "B", "description": "D", "audience": "A", "chapter_title": "C",
			"language": "English", "tone": "Witty", "author_persona": "Expert in the field.", "conclusion_note": "",
		},
		PromptCoverArtV1: {"title": "B", "description": "D", "style": "Vintage"},
		PromptEditV1:     {"original": "teh text", "instruction": "fix", "context_block": "- Tone of voice: Casual"},
	}
	for id, vars := range cases {
		tpl, err := r.ChatTemplate(id)
		require.NoError(t, err, id)
		msgs, err := tpl.Format(context.Background(), vars)
		require.NoError(t, err, id)
		require.Len(t, msgs, 2)
		assert.NotContains(t, msgs[1].Content, "{", id)
	}
}

func TestRegistryCachesTemplate(t *testing.T) {
	r := NewRegistry()
	a, err := r.ChatTemplate(PromptEditV1)
	require.NoError(t, err)
	b, err := r.ChatTemplate(PromptEditV1)
	require.NoError(t, err)
	assert.Same(t, a, b)
}

func TestRegistryUnknownID(t *testing.T) {
	_, err := NewRegistry().ChatTemplate("nope")
	assert.Error(t, err)
}
