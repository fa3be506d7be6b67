package chat

import (
	"github.com/ashureev/jecnabot/internal/domain"
	"github.com/ashureev/jecnabot/internal/transport"
)

// State is the observable state of a chat session.
type State struct {
	Messages    []domain.Message
	Suggestions []domain.Suggestion
	Pending     bool
	Input       string
	Conn        transport.State
	// Notice is a transient, user-facing status line (e.g. a reply timeout).
	Notice string
	Email  string
}

// clone returns a deep copy so snapshots never alias loop-owned slices.
func (s State) clone() State {
	out := s
	if s.Messages != nil {
		out.Messages = make([]domain.Message, len(s.Messages))
		copy(out.Messages, s.Messages)
	}
	if s.Suggestions != nil {
		out.Suggestions = make([]domain.Suggestion, len(s.Suggestions))
		copy(out.Suggestions, s.Suggestions)
	}
	return out
}

// LastMessage returns the most recent transcript entry.
func (s State) LastMessage() (domain.Message, bool) {
	if len(s.Messages) == 0 {
		return domain.Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}

// CanSend reports whether the send affordance is live.
func (s State) CanSend() bool {
	return !s.Pending && s.Conn == transport.StateOpen
}

func (s *State) messageIndex(id int64) int {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].ID == id {
			return i
		}
	}
	return -1
}
