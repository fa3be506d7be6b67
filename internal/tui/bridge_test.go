package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ashureev/jecnabot/internal/chat"
)

func TestBridgeKeepsNewestState(t *testing.T) {
	b := NewBridge()

	b.Render(chat.State{Input: "one"})
	b.Render(chat.State{Input: "two"})
	b.Render(chat.State{Input: "three"})

	got := <-b.states
	assert.Equal(t, "three", got.Input)
	select {
	case s := <-b.states:
		t.Fatalf("unexpected extra state %+v", s)
	default:
	}
}

func TestBridgeDirectivesNeverBlock(t *testing.T) {
	b := NewBridge()
	for i := 0; i < 10; i++ {
		b.ToLogin()
	}
	b.ToChat()

	assert.Equal(t, DirectiveLogin, <-b.directives)
	assert.Len(t, b.directives, 3)
}
