package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/coder/websocket"
)

const (
	defaultQueueSize = 64
	defaultReadLimit = 1 << 20 // 1MB
)

// WebSocketDialer dials peers over WebSocket.
type WebSocketDialer struct {
	// HTTPClient is used for the handshake; nil means http.DefaultClient.
	HTTPClient *http.Client
	// QueueSize bounds the outbound queue; <= 0 means 64.
	QueueSize int
	// ReadLimit bounds a single inbound frame; <= 0 means 1MB.
	ReadLimit int64

	logger *slog.Logger
}

// NewWebSocketDialer creates a dialer with default limits.
func NewWebSocketDialer(logger *slog.Logger) *WebSocketDialer {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebSocketDialer{logger: logger}
}

// Dial performs the handshake with the credential as a query parameter.
// ctx bounds the handshake only.
func (d *WebSocketDialer) Dial(ctx context.Context, endpoint, token string) (Conn, error) {
	logger := d.logger
	if logger == nil {
		logger = slog.Default()
	}

	target, err := BuildEndpoint(endpoint, token)
	if err != nil {
		return nil, err
	}

	logger.Info("Dialing peer", "endpoint", redact(target))
	ws, resp, err := websocket.Dial(ctx, target, &websocket.DialOptions{
		HTTPClient: d.HTTPClient,
	})
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial peer: handshake status %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dial peer: %w", err)
	}

	readLimit := d.ReadLimit
	if readLimit <= 0 {
		readLimit = defaultReadLimit
	}
	ws.SetReadLimit(readLimit)

	queueSize := d.QueueSize
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return newWSConn(ws, queueSize, logger), nil
}

// wsConn adapts websocket.Conn to Conn with a reader and a writer goroutine.
type wsConn struct {
	ws     *websocket.Conn
	logger *slog.Logger
	events chan Event
	out    chan string
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	state      atomic.Int32
	closing    atomic.Bool
	finishOnce sync.Once
	closeOnce  sync.Once
}

func newWSConn(ws *websocket.Conn, queueSize int, logger *slog.Logger) *wsConn {
	ctx, cancel := context.WithCancel(context.Background())
	c := &wsConn{
		ws:     ws,
		logger: logger,
		events: make(chan Event, queueSize),
		out:    make(chan string, queueSize),
		ctx:    ctx,
		cancel: cancel,
	}
	c.state.Store(int32(StateOpen))
	c.events <- Event{Kind: EventOpen}

	c.wg.Add(2)
	go c.readLoop()
	go c.writeLoop()
	go func() {
		c.wg.Wait()
		close(c.events)
	}()
	return c
}

func (c *wsConn) Events() <-chan Event { return c.events }

func (c *wsConn) State() State { return State(c.state.Load()) }

// Send queues text for transmission. It never blocks.
func (c *wsConn) Send(text string) error {
	if c.ctx.Err() != nil {
		return ErrConnClosed
	}
	select {
	case c.out <- text:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// Close performs the close handshake and waits for both loops to exit.
func (c *wsConn) Close() error {
	c.closeOnce.Do(func() {
		c.closing.Store(true)
		c.state.CompareAndSwap(int32(StateOpen), int32(StateClosed))
		if err := c.ws.Close(websocket.StatusNormalClosure, "session ended"); err != nil {
			c.logger.Debug("Failed to close websocket", "error", err)
		}
		c.cancel()
		c.wg.Wait()
	})
	return nil
}

func (c *wsConn) readLoop() {
	defer c.wg.Done()
	for {
		_, data, err := c.ws.Read(c.ctx)
		if err != nil {
			c.finish(err)
			return
		}
		c.emit(Event{Kind: EventMessage, Data: data})
	}
}

func (c *wsConn) writeLoop() {
	defer c.wg.Done()
	for {
		select {
		case <-c.ctx.Done():
			return
		case text := <-c.out:
			if err := c.ws.Write(c.ctx, websocket.MessageText, []byte(text)); err != nil {
				c.finish(fmt.Errorf("write frame: %w", err))
				return
			}
		}
	}
}

// finish records the terminal event exactly once and stops both loops.
func (c *wsConn) finish(err error) {
	c.finishOnce.Do(func() {
		if c.closing.Load() || errors.Is(err, context.Canceled) {
			return
		}
		if status := websocket.CloseStatus(err); status != -1 {
			c.state.Store(int32(StateClosed))
			var ce websocket.CloseError
			reason := ""
			if errors.As(err, &ce) {
				reason = ce.Reason
			}
			c.logger.Info("Peer closed connection", "code", int(status), "reason", reason)
			c.emit(Event{Kind: EventClose, Code: int(status), Reason: reason})
			return
		}
		c.state.Store(int32(StateErrored))
		c.logger.Warn("Peer connection failed", "error", err)
		c.emit(Event{Kind: EventError, Err: err})
	})
	c.cancel()
}

func (c *wsConn) emit(ev Event) {
	select {
	case c.events <- ev:
	case <-c.ctx.Done():
	}
}
