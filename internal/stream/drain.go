package stream

import (
	"context"
	"sync"

	"agui-platform-runner/internal/agui"
)

// Drain subscribes to obs and calls fn for each event on the calling
// goroutine until the stream ends, fn fails or ctx is done. Events are queued
// without bound so a slow consumer never blocks the publisher.
//
// It returns nil when the stream completes, the stream's error when it fails,
// and otherwise the error from fn or ctx.
func Drain(ctx context.Context, obs Observable, fn func(agui.Event) error) error {
	q := newQueue()
	sub := obs.Subscribe(Observer{Next: q.push, Error: q.fail, Complete: q.complete})
	defer sub.Close()

	for {
		ev, ok, err := q.pop(ctx)
		if !ok {
			return err
		}
		if err := fn(ev); err != nil {
			return err
		}
	}
}

// Collect drains obs into a slice.
func Collect(ctx context.Context, obs Observable) ([]agui.Event, error) {
	var out []agui.Event
	err := Drain(ctx, obs, func(ev agui.Event) error {
		out = append(out, ev)
		return nil
	})
	return out, err
}

type queue struct {
	mu     sync.Mutex
	items  []agui.Event
	done   bool
	err    error
	signal chan struct{}
}

func newQueue() *queue {
	return &queue{signal: make(chan struct{}, 1)}
}

func (q *queue) push(ev agui.Event) {
	q.mu.Lock()
	q.items = append(q.items, ev)
	q.mu.Unlock()
	q.notify()
}

func (q *queue) fail(err error) {
	q.mu.Lock()
	q.done, q.err = true, err
	q.mu.Unlock()
	q.notify()
}

func (q *queue) complete() {
	q.fail(nil)
}

func (q *queue) notify() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

func (q *queue) pop(ctx context.Context) (agui.Event, bool, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			ev := q.items[0]
			q.items[0] = agui.Event{}
			q.items = q.items[1:]
			q.mu.Unlock()
			return ev, true, nil
		}
		if q.done {
			err := q.err
			q.mu.Unlock()
			return agui.Event{}, false, err
		}
		q.mu.Unlock()

		select {
		case <-q.signal:
		case <-ctx.Done():
			return agui.Event{}, false, ctx.Err()
		}
	}
}
