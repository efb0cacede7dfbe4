// Package poller runs a check on an interval until it reports completion or
// is stopped.
package poller

import (
	"context"
	"sync"
	"time"
)

// DefaultInterval replaces a non-positive interval passed to Every.
const DefaultInterval = time.Second

// CheckFunc is one poll. Returning done=true ends the task.
type CheckFunc func(ctx context.Context) (done bool, err error)

// Task is a running poll loop. Stop it, or wait on Done.
type Task struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.Mutex
	lastErr error
	polls   int
	reached bool
}

// Every runs check immediately and then every interval, until check returns
// done, ctx is cancelled or Stop is called. Errors from check do not end the
// loop; the last one is kept for Err.
func Every(ctx context.Context, interval time.Duration, check CheckFunc) *Task {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ctx, cancel := context.WithCancel(ctx)
	t := &Task{cancel: cancel, done: make(chan struct{})}
	go t.run(ctx, interval, check)
	return t
}

func (t *Task) run(ctx context.Context, interval time.Duration, check CheckFunc) {
	defer close(t.done)
	defer t.cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		done, err := check(ctx)
		t.mu.Lock()
		t.polls++
		t.lastErr = err
		if done {
			t.reached = true
		}
		t.mu.Unlock()
		if done {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Stop cancels the loop and waits for it to exit. Safe to call more than once.
func (t *Task) Stop() {
	t.cancel()
	<-t.done
}

// Done is closed when the loop has exited
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Completed reports whether the check reported done
func (t *Task) Completed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.reached
}

// Polls returns how many checks ran
func (t *Task) Polls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.polls
}

// Err returns the error of the most recent check
func (t *Task) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastErr
}
