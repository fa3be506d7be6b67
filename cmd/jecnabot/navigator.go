package main

import (
	"fmt"
	"io"

	"github.com/ashureev/jecnabot/internal/chat"
)

// navigator turns screen directives into instructions for the next command.
type navigator struct {
	out io.Writer
}

var _ chat.Navigator = navigator{}

func (n navigator) ToLogin() {
	fmt.Fprintln(n.out, "You are not logged in. Run `jecnabot login` to continue.")
}

func (n navigator) ToChat() {
	fmt.Fprintln(n.out, "Run `jecnabot chat` to start chatting.")
}
