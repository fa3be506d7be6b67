// Package peer implements the development chat peer: the knowledge base,
// the reply logic and the WebSocket endpoint the client connects to.
package peer

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/ashureev/jecnabot/internal/domain"
)

//go:embed faq.yaml
var defaultFAQ []byte

// Question is one canned question with its answer.
type Question struct {
	ID     int64  `yaml:"id"`
	Text   string `yaml:"text"`
	Answer string `yaml:"answer"`
}

// Topic groups questions under keywords used for free-text matching.
type Topic struct {
	Name      string     `yaml:"name"`
	Keywords  []string   `yaml:"keywords"`
	Questions []Question `yaml:"questions"`
}

// KnowledgeBase is the FAQ the peer answers from.
type KnowledgeBase struct {
	Topics []Topic `yaml:"topics"`

	byID map[int64]*Question
}

// LoadKnowledgeBase reads the FAQ at path, or the embedded default when path
// is empty.
func LoadKnowledgeBase(path string) (*KnowledgeBase, error) {
	if path == "" {
		return ParseKnowledgeBase(defaultFAQ)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read knowledge base: %w", err)
	}
	return ParseKnowledgeBase(data)
}

// ParseKnowledgeBase decodes and validates a YAML FAQ.
func ParseKnowledgeBase(data []byte) (*KnowledgeBase, error) {
	var kb KnowledgeBase
	if err := yaml.Unmarshal(data, &kb); err != nil {
		return nil, fmt.Errorf("parse knowledge base: %w", err)
	}

	kb.byID = make(map[int64]*Question)
	for ti := range kb.Topics {
		topic := &kb.Topics[ti]
		for ki, kw := range topic.Keywords {
			topic.Keywords[ki] = strings.ToLower(strings.TrimSpace(kw))
		}
		for qi := range topic.Questions {
			q := &topic.Questions[qi]
			if q.Text == "" || q.Answer == "" {
				return nil, fmt.Errorf("question %d in topic %q needs text and answer", q.ID, topic.Name)
			}
			if _, dup := kb.byID[q.ID]; dup {
				return nil, fmt.Errorf("duplicate question id %d", q.ID)
			}
			kb.byID[q.ID] = q
		}
	}
	return &kb, nil
}

// Suggestions returns every question in file order.
func (kb *KnowledgeBase) Suggestions() []domain.Suggestion {
	var out []domain.Suggestion
	for _, t := range kb.Topics {
		for _, q := range t.Questions {
			out = append(out, domain.Suggestion{ID: q.ID, Text: q.Text})
		}
	}
	return out
}

// Question looks up a question by id.
func (kb *KnowledgeBase) Question(id int64) (*Question, bool) {
	q, ok := kb.byID[id]
	return q, ok
}

// Match returns the first topic with a keyword among the words of text.
func (kb *KnowledgeBase) Match(text string) (*Topic, bool) {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]struct{}, len(words))
	for _, w := range words {
		seen[w] = struct{}{}
	}
	for i := range kb.Topics {
		for _, kw := range kb.Topics[i].Keywords {
			if _, ok := seen[kw]; ok {
				return &kb.Topics[i], true
			}
		}
	}
	return nil, false
}
