package session

import (
	"context"
	"errors"
)

// ErrLoopStopped is returned when work is handed to a loop that has exited.
var ErrLoopStopped = errors.New("session loop stopped")

// Dispatcher runs callbacks on the goroutine that owns session state.
type Dispatcher interface {
	Dispatch(fn func())
}

// Loop is a Dispatcher backed by a single goroutine draining a queue.
type Loop struct {
	events chan func()
	done   chan struct{}
}

// NewLoop creates a loop with the given queue capacity.
func NewLoop(capacity int) *Loop {
	return &Loop{
		events: make(chan func(), capacity),
		done:   make(chan struct{}),
	}
}

// Run executes queued callbacks in order until ctx is done. Call it once.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.done)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.events:
			fn()
		}
	}
}

// Dispatch queues fn. Callbacks handed over after Run has returned are dropped.
func (l *Loop) Dispatch(fn func()) {
	select {
	case l.events <- fn:
	case <-l.done:
	}
}

// Do runs fn on the loop and waits for it to finish.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	wrapped := func() {
		defer close(finished)
		fn()
	}

	select {
	case l.events <- wrapped:
	case <-l.done:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-finished:
		return nil
	case <-l.done:
		// Run may have exited with wrapped still queued.
		select {
		case <-finished:
			return nil
		default:
			return ErrLoopStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}
