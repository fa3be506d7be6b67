package peer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultKnowledgeBase(t *testing.T) {
	kb, err := LoadKnowledgeBase("")
	require.NoError(t, err)

	suggestions := kb.Suggestions()
	require.NotEmpty(t, suggestions)
	assert.Equal(t, int64(1), suggestions[0].ID)

	for _, s := range suggestions {
		q, ok := kb.Question(s.ID)
		require.True(t, ok, "question %d not indexed", s.ID)
		assert.NotEmpty(t, q.Answer)
	}
}

func TestLoadKnowledgeBaseFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "faq.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
topics:
  - name: Lunch
    keywords: [Canteen]
    questions:
      - id: 42
        text: What is for lunch?
        answer: Dumplings.
`), 0o600))

	kb, err := LoadKnowledgeBase(path)
	require.NoError(t, err)

	q, ok := kb.Question(42)
	require.True(t, ok)
	assert.Equal(t, "Dumplings.", q.Answer)

	topic, ok := kb.Match("Is the CANTEEN open?")
	require.True(t, ok, "keywords are matched case-insensitively")
	assert.Equal(t, "Lunch", topic.Name)

	_, err = LoadKnowledgeBase(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParseKnowledgeBaseRejectsBadInput(t *testing.T) {
	tests := map[string]string{
		"not yaml":       "topics: [",
		"duplicate ids":  "topics:\n  - name: a\n    questions:\n      - {id: 1, text: x, answer: y}\n      - {id: 1, text: z, answer: w}\n",
		"missing answer": "topics:\n  - name: a\n    questions:\n      - {id: 1, text: x}\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseKnowledgeBase([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestMatchUsesWholeWords(t *testing.T) {
	kb, err := LoadKnowledgeBase("")
	require.NoError(t, err)

	_, ok := kb.Match("lunchbox")
	assert.False(t, ok)

	topic, ok := kb.Match("what's on the lunch menu?")
	require.True(t, ok)
	assert.Equal(t, "canteen", topic.Name)
}
