package peer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ashureev/jecnabot/internal/domain"
)

const (
	// ExitCommand ends the session when sent by the client.
	ExitCommand = "exit"
	goodbye     = "Goodbye! Disconnecting..."
)

// Responder turns client frames into peer events.
type Responder struct {
	kb       *KnowledgeBase
	greeting string
}

// NewResponder creates a responder over kb.
func NewResponder(kb *KnowledgeBase, greeting string) *Responder {
	return &Responder{kb: kb, greeting: greeting}
}

// Welcome is the first event of every session.
func (r *Responder) Welcome() domain.Envelope {
	return domain.Envelope{
		Type:      domain.EventWelcome,
		Message:   r.greeting,
		Questions: r.kb.Suggestions(),
	}
}

// Reply answers one client frame. done is true when the session should end
// after the reply is sent.
func (r *Responder) Reply(text string) (env domain.Envelope, done bool) {
	trimmed := strings.TrimSpace(text)
	if strings.EqualFold(trimmed, ExitCommand) {
		return domain.Envelope{Type: domain.EventInfo, Message: goodbye}, true
	}

	if id, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		if q, ok := r.kb.Question(id); ok {
			return response(q.Answer), false
		}
	}

	if topic, ok := r.kb.Match(trimmed); ok {
		var b strings.Builder
		fmt.Fprintf(&b, "I can help with %s. Try one of these:", topic.Name)
		for _, q := range topic.Questions {
			fmt.Fprintf(&b, "\n[%d] %s", q.ID, q.Text)
		}
		return response(b.String()), false
	}

	return response(text + " -> How else can I help?"), false
}

func response(msg string) domain.Envelope {
	return domain.Envelope{Type: domain.EventResponse, Message: msg}
}
