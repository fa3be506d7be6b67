// Package transport provides the duplex connection the chat controller uses
// to talk to its peer.
package transport

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNoCredential is returned when dialing without an access token.
	ErrNoCredential = errors.New("no credential")
	// ErrConnClosed is returned by Send after the connection has ended.
	ErrConnClosed = errors.New("connection closed")
	// ErrSendQueueFull is returned by Send when the outbound queue is saturated.
	ErrSendQueueFull = errors.New("send queue full")
)

// EventKind discriminates connection events.
type EventKind int

const (
	EventOpen EventKind = iota
	EventMessage
	EventClose
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventOpen:
		return "open"
	case EventMessage:
		return "message"
	case EventClose:
		return "close"
	case EventError:
		return "error"
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Event is one item of the connection's event sequence.
type Event struct {
	Kind EventKind
	// Data holds the frame payload for EventMessage.
	Data []byte
	// Code and Reason describe the close for EventClose.
	Code   int
	Reason string
	// Err is set for EventError.
	Err error
}

// State is the lifecycle state of a connection.
type State int32

const (
	StateConnecting State = iota
	StateOpen
	StateClosed
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	case StateErrored:
		return "errored"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Conn is a live duplex connection.
//
// Events yields EventOpen first and is closed after the final close or error
// event. Send never blocks: frames are queued and written in call order.
type Conn interface {
	Events() <-chan Event
	Send(text string) error
	State() State
	Close() error
}

// Dialer opens connections to a peer endpoint.
type Dialer interface {
	Dial(ctx context.Context, endpoint, token string) (Conn, error)
}
