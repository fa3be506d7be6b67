package domain

// EventType discriminates inbound peer events.
type EventType string

const (
	EventWelcome  EventType = "welcome"
	EventResponse EventType = "response"
	EventInfo     EventType = "info"
)

// Envelope is the JSON shape of every peer -> client event.
// Questions is only meaningful on welcome events.
type Envelope struct {
	Type      EventType    `json:"type"`
	Message   string       `json:"message"`
	Questions []Suggestion `json:"questions,omitempty"`
}

// Known reports whether t is one of the event types the client understands.
func (t EventType) Known() bool {
	switch t {
	case EventWelcome, EventResponse, EventInfo:
		return true
	}
	return false
}
