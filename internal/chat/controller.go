// Package chat implements the chat session controller: the transcript, the
// pending-reply gate, peer suggestions and the single peer connection.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ashureev/jecnabot/internal/auth"
	"github.com/ashureev/jecnabot/internal/config"
	"github.com/ashureev/jecnabot/internal/domain"
	"github.com/ashureev/jecnabot/internal/transport"
)

var (
	// ErrUnauthenticated is returned by Activate when no credential is stored.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrAlreadyActive is returned by a second Activate.
	ErrAlreadyActive = errors.New("chat session already active")
	// ErrNotActive is returned by actions issued before Activate.
	ErrNotActive = errors.New("chat session not active")
	// ErrClosed is returned by actions issued after Teardown.
	ErrClosed = errors.New("chat session closed")
)

// DefaultPlaceholder is shown in a bot message while its text is withheld.
const DefaultPlaceholder = "..."

// Navigator receives one-way navigation directives.
type Navigator interface {
	ToLogin()
	ToChat()
}

// Renderer is notified with a snapshot after every state change.
// Render runs on the controller loop and must not call back into the
// controller synchronously.
type Renderer interface {
	Render(State)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(State)

// Render calls f(s).
func (f RendererFunc) Render(s State) { f(s) }

// Options configures a Controller.
type Options struct {
	Endpoint       string
	TypingMode     config.TypingMode
	TypingInterval time.Duration
	TypingDelay    time.Duration
	// ReplyTimeout clears a pending send that got no reply; 0 disables it.
	ReplyTimeout time.Duration
	Placeholder  string
}

// OptionsFromConfig maps client configuration onto controller options.
func OptionsFromConfig(cfg *config.ClientConfig) Options {
	return Options{
		Endpoint:       cfg.PeerURL,
		TypingMode:     cfg.TypingMode,
		TypingInterval: cfg.TypingInterval,
		TypingDelay:    cfg.TypingDelay,
		ReplyTimeout:   cfg.ReplyTimeout,
	}
}

// Deps are the collaborators a Controller calls into.
type Deps struct {
	Credentials auth.Store
	Dialer      transport.Dialer
	Navigator   Navigator
	Renderer    Renderer
	Logger      *slog.Logger
}

type phase int

const (
	phaseIdle phase = iota
	phaseConnecting
	phaseActive
	phaseClosed
)

// Controller owns one chat session. All state is mutated on a single loop
// goroutine fed by user actions, peer events and scheduled tasks.
// A Controller is single-use: reconnecting means a new Controller.
type Controller struct {
	opts   Options
	deps   Deps
	logger *slog.Logger

	mu        sync.Mutex
	phase     phase
	published State
	cancel    context.CancelFunc
	dialStop  context.CancelFunc
	conn      transport.Conn
	actions   chan func()
	done      chan struct{}
	sched     *scheduler
	closeOnce sync.Once

	// Loop-owned.
	ctx     context.Context
	state   State
	session *auth.Session
	nextID  int64
	timeout *task
}

// New creates an inactive controller.
func New(opts Options, deps Deps) *Controller {
	if opts.Placeholder == "" {
		opts.Placeholder = DefaultPlaceholder
	}
	if opts.TypingMode == "" {
		opts.TypingMode = config.TypingOff
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	c := &Controller{
		opts:   opts,
		deps:   deps,
		logger: logger.With("component", "chat"),
	}
	c.state.Conn = transport.StateConnecting
	c.published = c.state.clone()
	return c
}

// Activate loads the credential, dials the peer and starts the session loop.
// Without a credential it redirects to login and never dials.
func (c *Controller) Activate(ctx context.Context) error {
	redirect, err := c.activate(ctx)
	if redirect && errors.Is(err, ErrUnauthenticated) && c.deps.Navigator != nil {
		c.deps.Navigator.ToLogin()
	}
	return err
}

// activate dials without holding mu so Snapshot and Teardown stay
// responsive. The dial context lives until Teardown, which cancels it.
func (c *Controller) activate(ctx context.Context) (bool, error) {
	c.mu.Lock()
	switch c.phase {
	case phaseConnecting, phaseActive:
		c.mu.Unlock()
		return false, ErrAlreadyActive
	case phaseClosed:
		c.mu.Unlock()
		return false, ErrClosed
	}
	dialCtx, dialStop := context.WithCancel(ctx)
	c.phase = phaseConnecting
	c.dialStop = dialStop
	c.mu.Unlock()

	session, err := c.deps.Credentials.Current(dialCtx)
	if err != nil {
		return false, c.abortConnect(fmt.Errorf("load credential: %w", err), false)
	}
	if !session.Valid() {
		c.logger.Info("No credential, redirecting to login")
		return true, c.abortConnect(ErrUnauthenticated, false)
	}

	conn, err := c.deps.Dialer.Dial(dialCtx, c.opts.Endpoint, session.Token)
	if err != nil {
		return false, c.abortConnect(fmt.Errorf("connect to peer: %w", err), true)
	}

	c.mu.Lock()
	if c.phase != phaseConnecting {
		c.mu.Unlock()
		c.logger.Info("Torn down while connecting, dropping connection")
		if closeErr := conn.Close(); closeErr != nil {
			c.logger.Warn("Failed to close peer connection", "error", closeErr)
		}
		return false, ErrClosed
	}
	loopCtx, cancel := context.WithCancel(context.Background())
	c.ctx = loopCtx
	c.cancel = cancel
	c.conn = conn
	c.session = session
	c.actions = make(chan func())
	c.done = make(chan struct{})
	c.sched = newScheduler(loopCtx, c.actions)
	c.state.Email = session.Email
	c.state.Conn = conn.State()
	c.phase = phaseActive
	c.published = c.state.clone()
	c.mu.Unlock()

	c.logger.Info("Chat session activated", "email", session.Email)
	go c.run(conn.Events())
	return false, nil
}

// abortConnect returns the controller to idle after a failed activation,
// or reports ErrClosed when Teardown won the race.
func (c *Controller) abortConnect(err error, dialFailed bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dialStop != nil {
		c.dialStop()
		c.dialStop = nil
	}
	if c.phase != phaseConnecting {
		return ErrClosed
	}
	c.phase = phaseIdle
	if dialFailed {
		c.state.Conn = transport.StateErrored
		c.published = c.state.clone()
	}
	return err
}

// Session returns the identity the session was activated with.
func (c *Controller) Session() *auth.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	cp := *c.session
	return &cp
}

// Snapshot returns a deep copy of the latest state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.published.clone()
}

// SendMessage appends and transmits text and raises the pending flag. Blank
// text is a no-op. It does not consult the pending flag; the input path
// (SendInput) is the gated one. It reports false when nothing was sent.
func (c *Controller) SendMessage(text string) (bool, error) {
	var sent bool
	err := c.do(func() { sent = c.sendText(text) })
	return sent, err
}

// SelectSuggestion transmits the suggestion id, appends its text and raises
// the pending flag. Callers offering suggestions gate on State.CanSend.
func (c *Controller) SelectSuggestion(id int64, text string) (bool, error) {
	var sent bool
	err := c.do(func() { sent = c.selectSuggestion(id, text) })
	return sent, err
}

// SetInput replaces the draft input buffer.
func (c *Controller) SetInput(text string) error {
	return c.do(func() {
		if c.state.Input == text {
			return
		}
		c.state.Input = text
		c.publish()
	})
}

// SendInput sends the draft input buffer. It is inert while a reply is
// pending.
func (c *Controller) SendInput() (bool, error) {
	var sent bool
	err := c.do(func() {
		if c.state.Pending {
			return
		}
		sent = c.sendText(c.state.Input)
	})
	return sent, err
}

// Logout clears the stored credential, ends the session and redirects to
// login.
func (c *Controller) Logout(ctx context.Context) error {
	clearErr := c.deps.Credentials.Clear(ctx)
	if clearErr != nil {
		c.logger.Error("Failed to clear credential", "error", clearErr)
	}
	c.Teardown()
	if c.deps.Navigator != nil {
		c.deps.Navigator.ToLogin()
	}
	if clearErr != nil {
		return fmt.Errorf("clear credential: %w", clearErr)
	}
	return nil
}

// Teardown releases the connection and stops the loop. Events arriving
// afterwards are discarded. Safe to call more than once.
func (c *Controller) Teardown() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		prev := c.phase
		c.phase = phaseClosed
		cancel, conn, done, sched, dialStop := c.cancel, c.conn, c.done, c.sched, c.dialStop
		c.mu.Unlock()

		if dialStop != nil {
			defer dialStop()
		}
		if prev != phaseActive {
			return
		}
		cancel()
		<-done
		sched.Stop()
		if err := conn.Close(); err != nil {
			c.logger.Warn("Failed to close peer connection", "error", err)
		}

		c.mu.Lock()
		c.published.Conn = transport.StateClosed
		c.mu.Unlock()
		c.logger.Info("Chat session torn down")
	})
}

// do runs fn on the loop and waits for it.
func (c *Controller) do(fn func()) error {
	c.mu.Lock()
	p, actions, done := c.phase, c.actions, c.done
	c.mu.Unlock()
	switch p {
	case phaseIdle, phaseConnecting:
		return ErrNotActive
	case phaseClosed:
		return ErrClosed
	}

	finished := make(chan struct{})
	select {
	case actions <- func() { fn(); close(finished) }:
	case <-done:
		return ErrClosed
	}
	select {
	case <-finished:
		return nil
	case <-done:
		select {
		case <-finished:
			return nil
		default:
			return ErrClosed
		}
	}
}

func (c *Controller) run(events <-chan transport.Event) {
	defer close(c.done)
	for {
		select {
		case <-c.ctx.Done():
			return
		case fn := <-c.actions:
			if c.ctx.Err() != nil {
				return
			}
			fn()
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if c.ctx.Err() != nil {
				return
			}
			c.handleEvent(ev)
		}
	}
}

// publish copies loop state to the snapshot and notifies the renderer.
func (c *Controller) publish() {
	snap := c.state.clone()
	c.mu.Lock()
	c.published = snap
	c.mu.Unlock()
	if c.deps.Renderer != nil {
		c.deps.Renderer.Render(snap.clone())
	}
}

// sendText appends the user entry before transmitting, so every non-blank
// call leaves exactly one entry even when the frame cannot be sent.
func (c *Controller) sendText(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	c.appendMessage(domain.SenderUser, text, false)
	if !c.transmit(text) {
		return false
	}
	c.state.Input = ""
	c.afterOutbound()
	return true
}

func (c *Controller) selectSuggestion(id int64, text string) bool {
	c.appendMessage(domain.SenderUser, text, false)
	if !c.transmit(strconv.FormatInt(id, 10)) {
		return false
	}
	c.afterOutbound()
	return true
}

// transmit sends frame; on failure it records a notice and publishes.
func (c *Controller) transmit(frame string) bool {
	if err := c.conn.Send(frame); err != nil {
		c.logger.Warn("Failed to send frame", "error", err)
		c.state.Notice = "Message not sent: " + err.Error()
		c.publish()
		return false
	}
	return true
}

// afterOutbound clears suggestions, closes the gate and arms the timeout.
func (c *Controller) afterOutbound() {
	c.state.Suggestions = nil
	c.state.Pending = true
	c.state.Notice = ""
	c.armTimeout()
	c.publish()
}

func (c *Controller) armTimeout() {
	c.timeout.Cancel()
	c.timeout = nil
	if c.opts.ReplyTimeout <= 0 {
		return
	}
	c.timeout = c.sched.After(c.opts.ReplyTimeout, func() {
		c.timeout = nil
		if !c.state.Pending {
			return
		}
		c.logger.Warn("No reply from peer", "timeout", c.opts.ReplyTimeout)
		c.state.Pending = false
		c.state.Notice = "No reply from the server. You can send again."
		c.publish()
	})
}

func (c *Controller) clearPending() {
	c.timeout.Cancel()
	c.timeout = nil
	c.state.Pending = false
}

func (c *Controller) appendMessage(sender domain.Sender, text string, pending bool) int64 {
	c.nextID++
	c.state.Messages = append(c.state.Messages, domain.Message{
		ID:      c.nextID,
		Sender:  sender,
		Text:    text,
		Pending: pending,
	})
	return c.nextID
}
