package transport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// peerFunc runs against each accepted server-side connection.
type peerFunc func(ctx context.Context, ws *websocket.Conn)

// newPeer starts a server; callers close it so goroutine checks see it gone.
func newPeer(fn peerFunc) (*httptest.Server, *sync.Map) {
	seen := &sync.Map{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen.Store("token", r.URL.Query().Get(TokenParam))
		ws, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer func() { _ = ws.CloseNow() }()
		fn(r.Context(), ws)
	}))
	return srv, seen
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func nextEvent(t *testing.T, c Conn) Event {
	t.Helper()
	select {
	case ev, ok := <-c.Events():
		require.True(t, ok, "event channel closed")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func echoPeer(ctx context.Context, ws *websocket.Conn) {
	for {
		typ, data, err := ws.Read(ctx)
		if err != nil {
			return
		}
		if err := ws.Write(ctx, typ, data); err != nil {
			return
		}
	}
}

func TestDialSendsTokenAndEchoesInOrder(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	srv, seen := newPeer(echoPeer)
	defer srv.Close()
	conn, err := NewWebSocketDialer(nil).Dial(context.Background(), wsURL(srv), "tok-1")
	require.NoError(t, err)

	assert.Equal(t, EventOpen, nextEvent(t, conn).Kind)
	assert.Equal(t, StateOpen, conn.State())
	token, _ := seen.Load("token")
	assert.Equal(t, "tok-1", token)

	for _, text := range []string{"first", "second", "third"} {
		require.NoError(t, conn.Send(text))
	}
	for _, want := range []string{"first", "second", "third"} {
		ev := nextEvent(t, conn)
		require.Equal(t, EventMessage, ev.Kind)
		assert.Equal(t, want, string(ev.Data))
	}

	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close(), "Close must be idempotent")
	assert.Equal(t, StateClosed, conn.State())
	assert.ErrorIs(t, conn.Send("late"), ErrConnClosed)

	// The event channel drains and closes after teardown.
	for range conn.Events() {
	}
}

func TestPeerCloseEmitsCloseEvent(t *testing.T) {
	srv, _ := newPeer(func(ctx context.Context, ws *websocket.Conn) {
		_ = ws.Write(ctx, websocket.MessageText, []byte("bye"))
		_ = ws.Close(websocket.StatusGoingAway, "server shutdown")
	})
	defer srv.Close()

	conn, err := NewWebSocketDialer(nil).Dial(context.Background(), wsURL(srv), "tok")
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	assert.Equal(t, EventOpen, nextEvent(t, conn).Kind)
	ev := nextEvent(t, conn)
	assert.Equal(t, "bye", string(ev.Data))

	ev = nextEvent(t, conn)
	require.Equal(t, EventClose, ev.Kind)
	assert.Equal(t, int(websocket.StatusGoingAway), ev.Code)
	assert.Equal(t, "server shutdown", ev.Reason)
	assert.Equal(t, StateClosed, conn.State())

	_, ok := <-conn.Events()
	assert.False(t, ok, "events should close after the final event")
}

func TestDialRejectedHandshake(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := NewWebSocketDialer(nil).Dial(context.Background(), wsURL(srv), "bad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestDialWithoutTokenNeverConnects(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer srv.Close()

	_, err := NewWebSocketDialer(nil).Dial(context.Background(), wsURL(srv), "")
	assert.True(t, errors.Is(err, ErrNoCredential))
	assert.Zero(t, hits)
}
