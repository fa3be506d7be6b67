package tui

import (
	"github.com/ashureev/jecnabot/internal/chat"
)

// Directive is a navigation request raised by the controller.
type Directive int

const (
	DirectiveLogin Directive = iota + 1
	DirectiveChat
)

// Bridge carries controller callbacks into the bubbletea program. It
// implements chat.Renderer and chat.Navigator and never blocks the caller.
type Bridge struct {
	states     chan chat.State
	directives chan Directive
}

// NewBridge creates an unattached bridge.
func NewBridge() *Bridge {
	return &Bridge{
		states:     make(chan chat.State, 1),
		directives: make(chan Directive, 4),
	}
}

// Render keeps only the newest snapshot; intermediate ones are dropped.
// There is a single producer (the controller loop).
func (b *Bridge) Render(s chat.State) {
	for {
		select {
		case b.states <- s:
			return
		default:
		}
		select {
		case <-b.states:
		default:
		}
	}
}

// ToLogin implements chat.Navigator.
func (b *Bridge) ToLogin() { b.direct(DirectiveLogin) }

// ToChat implements chat.Navigator.
func (b *Bridge) ToChat() { b.direct(DirectiveChat) }

func (b *Bridge) direct(d Directive) {
	select {
	case b.directives <- d:
	default:
	}
}

var (
	_ chat.Renderer  = (*Bridge)(nil)
	_ chat.Navigator = (*Bridge)(nil)
)
