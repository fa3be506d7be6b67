package peer

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ashureev/jecnabot/internal/domain"
	"github.com/ashureev/jecnabot/internal/store"
)

const (
	defaultLogQueueSize = 100
	logCloseTimeout     = 5 * time.Second
	slowSaveThreshold   = 100 * time.Millisecond
)

// messageLog persists one chat session's messages in the background so a
// slow database never delays replies. When the queue is full the oldest
// pending message is dropped.
type messageLog struct {
	repo      store.Repository
	userID    string
	sessionID string

	queue     chan *domain.StoredMessage
	done      chan struct{}
	closeOnce sync.Once
	dropped   atomic.Int64
}

func newMessageLog(repo store.Repository, userID, sessionID string, size int) *messageLog {
	if size <= 0 {
		size = defaultLogQueueSize
	}
	l := &messageLog{
		repo:      repo,
		userID:    userID,
		sessionID: sessionID,
		queue:     make(chan *domain.StoredMessage, size),
		done:      make(chan struct{}),
	}
	go l.process()
	return l
}

// Record queues one side of the conversation. It never blocks and must not
// be called after Close.
func (l *messageLog) Record(content string, isQuestion bool) {
	msg := &domain.StoredMessage{
		SessionID:  l.sessionID,
		UserID:     l.userID,
		Content:    content,
		IsQuestion: isQuestion,
	}

	select {
	case l.queue <- msg:
		return
	default:
	}

	select {
	case <-l.queue:
		l.dropped.Add(1)
		slog.Warn("Message log queue full, dropped oldest", "user_id", l.userID, "session_id", l.sessionID)
	default:
	}

	select {
	case l.queue <- msg:
	default:
		l.dropped.Add(1)
		slog.Warn("Message log queue full, dropped message", "user_id", l.userID, "session_id", l.sessionID)
	}
}

// Dropped reports how many messages were discarded under backpressure.
func (l *messageLog) Dropped() int64 {
	return l.dropped.Load()
}

// Close flushes queued messages and stops the worker.
func (l *messageLog) Close() {
	l.closeOnce.Do(func() {
		remaining := len(l.queue)
		close(l.queue)

		select {
		case <-l.done:
		case <-time.After(logCloseTimeout):
			slog.Warn("Message log flush timed out", "user_id", l.userID, "remaining", remaining)
		}
	})
}

func (l *messageLog) process() {
	defer close(l.done)
	for msg := range l.queue {
		start := time.Now()
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		err := l.repo.SaveMessage(ctx, msg)
		cancel()
		if err != nil {
			slog.Warn("Failed to save message", "error", err, "user_id", l.userID)
			continue
		}
		if d := time.Since(start); d > slowSaveThreshold {
			slog.Warn("Slow message save", "user_id", l.userID, "duration_ms", d.Milliseconds())
		}
	}
}
