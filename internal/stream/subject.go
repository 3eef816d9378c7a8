// Package stream provides the in-memory publish/subscribe primitive used to
// fan agent events out to every observer of a run.
package stream

import (
	"sync"
	"sync/atomic"

	"agui-platform-runner/internal/agui"
)

// Observer receives the events of an Observable. All callbacks are optional.
// Callbacks run on the publisher's goroutine, one at a time and in emission
// order; they must not block and must not publish to the subject they
// observe.
type Observer struct {
	Next     func(agui.Event)
	Error    func(error)
	Complete func()
}

// Observable is the read side of a Subject.
type Observable interface {
	// Subscribe registers o and synchronously replays every event emitted so
	// far, followed by the terminal signal if the stream already ended.
	Subscribe(o Observer) *Subscription
}

// Subject is a replaying multicast stream: every subscriber sees the full
// event sequence from the start, then live events, then exactly one terminal
// signal.
type Subject struct {
	// emitMu serializes delivery so that replay and live events never
	// interleave for a subscriber.
	emitMu sync.Mutex

	mu     sync.Mutex
	buffer []agui.Event
	subs   []*Subscription
	done   bool
	err    error
}

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	subject *Subject
	obs     Observer
	closed  atomic.Bool
}

// NewSubject returns an open subject with an empty buffer.
func NewSubject() *Subject {
	return &Subject{}
}

// Next emits ev to all current subscribers and buffers it for future ones.
// Calls after Complete or Error are ignored.
func (s *Subject) Next(ev agui.Event) {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return
	}
	s.buffer = append(s.buffer, ev)
	subs := append([]*Subscription(nil), s.subs...)
	s.mu.Unlock()

	for _, sub := range subs {
		sub.next(ev)
	}
}

// Complete ends the stream successfully.
func (s *Subject) Complete() {
	s.terminate(nil)
}

// Error ends the stream with err.
func (s *Subject) Error(err error) {
	s.terminate(err)
}

func (s *Subject) terminate(err error) {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return
	}
	s.done = true
	s.err = err
	subs := s.subs
	s.subs = nil
	s.mu.Unlock()

	for _, sub := range subs {
		sub.terminate(err)
	}
}

// Subscribe implements Observable.
func (s *Subject) Subscribe(o Observer) *Subscription {
	sub := &Subscription{subject: s, obs: o}

	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.mu.Lock()
	replay := append([]agui.Event(nil), s.buffer...)
	done, err := s.done, s.err
	if !done {
		s.subs = append(s.subs, sub)
	}
	s.mu.Unlock()

	for _, ev := range replay {
		sub.next(ev)
	}
	if done {
		sub.terminate(err)
	}
	return sub
}

// Done reports whether the subject has completed or errored.
func (s *Subject) Done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Len returns the number of buffered events.
func (s *Subject) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buffer)
}

// Close detaches the subscription. It is idempotent and may be called from
// any goroutine, including from inside an observer callback.
func (sub *Subscription) Close() {
	if !sub.closed.CompareAndSwap(false, true) {
		return
	}
	s := sub.subject
	s.mu.Lock()
	for i, other := range s.subs {
		if other == sub {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			break
		}
	}
	s.mu.Unlock()
}

func (sub *Subscription) next(ev agui.Event) {
	if sub.closed.Load() || sub.obs.Next == nil {
		return
	}
	sub.obs.Next(ev)
}

func (sub *Subscription) terminate(err error) {
	if sub.closed.Swap(true) {
		return
	}
	switch {
	case err != nil && sub.obs.Error != nil:
		sub.obs.Error(err)
	case err == nil && sub.obs.Complete != nil:
		sub.obs.Complete()
	}
}
