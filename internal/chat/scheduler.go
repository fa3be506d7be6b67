package chat

import (
	"context"
	"sync"
	"time"
)

// scheduler runs delayed work on the controller loop. Work is posted through
// post and never runs after Stop.
type scheduler struct {
	ctx  context.Context
	post chan<- func()

	mu      sync.Mutex
	tasks   map[*task]struct{}
	stopped bool
	wg      sync.WaitGroup
}

// task is a handle to scheduled work. Cancel must be called from the loop.
type task struct {
	s         *scheduler
	timer     *time.Timer
	cancelled bool
}

func newScheduler(ctx context.Context, post chan<- func()) *scheduler {
	return &scheduler{
		ctx:   ctx,
		post:  post,
		tasks: make(map[*task]struct{}),
	}
}

// After schedules fn on the loop after d. It returns nil once stopped.
func (s *scheduler) After(d time.Duration, fn func()) *task {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil
	}

	t := &task{s: s}
	s.tasks[t] = struct{}{}
	s.wg.Add(1)
	t.timer = time.AfterFunc(d, func() {
		defer s.wg.Done()
		s.forget(t)
		select {
		case s.post <- func() {
			if !t.cancelled {
				fn()
			}
		}:
		case <-s.ctx.Done():
		}
	})
	return t
}

// Cancel prevents the task from running. Safe on a nil task.
func (t *task) Cancel() {
	if t == nil {
		return
	}
	t.cancelled = true
	if t.timer.Stop() {
		t.s.forget(t)
		t.s.wg.Done()
	}
}

// Stop cancels all outstanding tasks and waits for in-flight callbacks.
// The scheduler context must already be cancelled.
func (s *scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	for t := range s.tasks {
		if t.timer.Stop() {
			s.wg.Done()
		}
		delete(s.tasks, t)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *scheduler) forget(t *task) {
	s.mu.Lock()
	delete(s.tasks, t)
	s.mu.Unlock()
}
