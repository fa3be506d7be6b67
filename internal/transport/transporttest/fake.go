// Package transporttest provides in-memory transport.Conn and
// transport.Dialer implementations for tests.
package transporttest

import (
	"context"
	"sync"
	"time"

	"github.com/ashureev/jecnabot/internal/transport"
)

// Conn is a scripted connection. Tests push inbound events with Deliver and
// inspect outbound frames with Sent.
type Conn struct {
	mu     sync.Mutex
	events chan transport.Event
	sent   []string
	state  transport.State
	closed bool
	notify chan struct{}

	holdOpen   bool
	closeCalls int
}

// NewConn returns an open connection whose first event is EventOpen.
func NewConn() *Conn {
	c := &Conn{
		events: make(chan transport.Event, 64),
		state:  transport.StateOpen,
		notify: make(chan struct{}, 1),
	}
	c.events <- transport.Event{Kind: transport.EventOpen}
	return c
}

func (c *Conn) Events() <-chan transport.Event { return c.events }

// Send records text; it fails once the connection is closed.
func (c *Conn) Send(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return transport.ErrConnClosed
	}
	c.sent = append(c.sent, text)
	select {
	case c.notify <- struct{}{}:
	default:
	}
	return nil
}

func (c *Conn) State() transport.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// HoldOpen makes Close record the call but keep the event channel open, so
// tests can push events after the consumer has let go.
func (c *Conn) HoldOpen() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.holdOpen = true
}

// Close marks the connection closed and ends the event sequence.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeCalls++
	if c.holdOpen || c.closed {
		return nil
	}
	c.closed = true
	if c.state == transport.StateOpen {
		c.state = transport.StateClosed
	}
	close(c.events)
	return nil
}

// Closed reports whether Close has been called.
func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeCalls > 0
}

// Queued returns how many pushed events nobody has consumed yet.
func (c *Conn) Queued() int {
	return len(c.events)
}

// Deliver pushes a raw inbound frame.
func (c *Conn) Deliver(payload string) {
	c.push(transport.Event{Kind: transport.EventMessage, Data: []byte(payload)})
}

// Fail pushes a transport error event.
func (c *Conn) Fail(err error) {
	c.mu.Lock()
	c.state = transport.StateErrored
	c.mu.Unlock()
	c.push(transport.Event{Kind: transport.EventError, Err: err})
}

// PeerClose pushes a close event as if the peer hung up.
func (c *Conn) PeerClose(code int, reason string) {
	c.mu.Lock()
	c.state = transport.StateClosed
	c.mu.Unlock()
	c.push(transport.Event{Kind: transport.EventClose, Code: code, Reason: reason})
}

func (c *Conn) push(ev transport.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.events <- ev
}

// Sent returns a copy of every frame sent so far.
func (c *Conn) Sent() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.sent...)
}

// WaitSent blocks until at least n frames were sent or the timeout expires.
func (c *Conn) WaitSent(n int, timeout time.Duration) []string {
	deadline := time.After(timeout)
	for {
		if sent := c.Sent(); len(sent) >= n {
			return sent
		}
		select {
		case <-c.notify:
		case <-deadline:
			return c.Sent()
		}
	}
}

// Dialer hands out a prepared Conn and records the dial arguments.
type Dialer struct {
	mu       sync.Mutex
	conn     *Conn
	err      error
	calls    int
	endpoint string
	token    string
	gate     chan struct{}
}

// NewDialer returns a dialer that yields conn, or err when non-nil.
func NewDialer(conn *Conn, err error) *Dialer {
	return &Dialer{conn: conn, err: err}
}

// Hold makes subsequent dials wait until Release or until their context is
// cancelled.
func (d *Dialer) Hold() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gate = make(chan struct{})
}

// Release lets held dials complete.
func (d *Dialer) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.gate != nil {
		close(d.gate)
		d.gate = nil
	}
}

// Dial records the call and returns the prepared connection.
func (d *Dialer) Dial(ctx context.Context, endpoint, token string) (transport.Conn, error) {
	d.mu.Lock()
	d.calls++
	d.endpoint = endpoint
	d.token = token
	gate := d.gate
	d.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if d.err != nil {
		return nil, d.err
	}
	if _, err := transport.BuildEndpoint(endpoint, token); err != nil {
		return nil, err
	}
	return d.conn, nil
}

// Calls returns how many times Dial was invoked.
func (d *Dialer) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

// LastToken returns the credential passed to the most recent Dial.
func (d *Dialer) LastToken() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.token
}
