package domain

// Sender identifies who authored a transcript entry.
type Sender string

const (
	// SenderUser marks messages typed or selected by the local user.
	SenderUser Sender = "user"
	// SenderBot marks messages produced by the peer.
	SenderBot Sender = "bot"
)

// Message is one transcript entry.
type Message struct {
	ID      int64  `json:"id"`
	Sender  Sender `json:"sender"`
	Text    string `json:"text"`
	Pending bool   `json:"pending,omitempty"`
}

// Suggestion is a canned question offered by the peer after a greeting.
type Suggestion struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
}
