package stream

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agui-platform-runner/internal/agui"
)

func custom(n string) agui.Event {
	return agui.NewEvent(agui.EventTypeCustom, map[string]any{"name": n})
}

func names(evs []agui.Event) []string {
	out := make([]string, 0, len(evs))
	for _, ev := range evs {
		out = append(out, ev.StringField("name"))
	}
	return out
}

type recorder struct {
	mu        sync.Mutex
	events    []agui.Event
	completed int
	err       error
}

func (r *recorder) observer() Observer {
	return Observer{
		Next: func(ev agui.Event) {
			r.mu.Lock()
			r.events = append(r.events, ev)
			r.mu.Unlock()
		},
		Error: func(err error) {
			r.mu.Lock()
			r.err = err
			r.mu.Unlock()
		},
		Complete: func() {
			r.mu.Lock()
			r.completed++
			r.mu.Unlock()
		},
	}
}

func TestSubjectReplaysToLateSubscriber(t *testing.T) {
	s := NewSubject()
	s.Next(custom("a"))
	s.Next(custom("b"))

	var r recorder
	s.Subscribe(r.observer())
	s.Next(custom("c"))

	assert.Equal(t, []string{"a", "b", "c"}, names(r.events))
	assert.Equal(t, 0, r.completed)
	assert.Equal(t, 3, s.Len())
}

func TestSubjectSubscribeAfterComplete(t *testing.T) {
	s := NewSubject()
	s.Next(custom("a"))
	s.Complete()

	var r recorder
	s.Subscribe(r.observer())

	assert.Equal(t, []string{"a"}, names(r.events))
	assert.Equal(t, 1, r.completed)
	assert.True(t, s.Done())
}

func TestSubjectIgnoresEmissionAfterTerminal(t *testing.T) {
	s := NewSubject()
	var r recorder
	s.Subscribe(r.observer())

	s.Complete()
	s.Next(custom("late"))
	s.Complete()
	s.Error(errors.New("late"))

	assert.Empty(t, r.events)
	assert.Equal(t, 1, r.completed)
	assert.NoError(t, r.err)
}

func TestSubjectErrorReachesSubscribers(t *testing.T) {
	s := NewSubject()
	var r recorder
	s.Subscribe(r.observer())

	boom := errors.New("boom")
	s.Error(boom)

	assert.ErrorIs(t, r.err, boom)
	assert.Equal(t, 0, r.completed)

	var late recorder
	s.Subscribe(late.observer())
	assert.ErrorIs(t, late.err, boom)
}

func TestSubscriptionClose(t *testing.T) {
	s := NewSubject()
	var r recorder
	sub := s.Subscribe(r.observer())

	s.Next(custom("a"))
	sub.Close()
	sub.Close()
	s.Next(custom("b"))
	s.Complete()

	assert.Equal(t, []string{"a"}, names(r.events))
	assert.Equal(t, 0, r.completed)
}

func TestSubscriptionCloseFromCallback(t *testing.T) {
	s := NewSubject()
	var got []string
	var sub *Subscription
	sub = s.Subscribe(Observer{Next: func(ev agui.Event) {
		got = append(got, ev.StringField("name"))
		if sub != nil {
			sub.Close()
		}
	}})

	s.Next(custom("a"))
	s.Next(custom("b"))

	assert.Equal(t, []string{"a"}, got)
}

func TestCollect(t *testing.T) {
	s := NewSubject()
	go func() {
		for _, n := range []string{"a", "b", "c"} {
			s.Next(custom(n))
		}
		s.Complete()
	}()

	evs, err := Collect(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, names(evs))
}

func TestDrainReturnsStreamError(t *testing.T) {
	s := NewSubject()
	s.Next(custom("a"))
	boom := errors.New("boom")
	s.Error(boom)

	evs, err := Collect(context.Background(), s)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"a"}, names(evs))
}

func TestDrainStopsOnCallbackError(t *testing.T) {
	s := NewSubject()
	s.Next(custom("a"))
	s.Next(custom("b"))

	stop := errors.New("stop")
	var seen int
	err := Drain(context.Background(), s, func(agui.Event) error {
		seen++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, seen)
}

func TestDrainHonorsContext(t *testing.T) {
	s := NewSubject()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := Collect(ctx, s)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSubjectConcurrentSubscribersSeeSameOrder(t *testing.T) {
	s := NewSubject()
	const n = 200

	var wg sync.WaitGroup
	results := make([][]agui.Event, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			evs, err := Collect(context.Background(), s)
			assert.NoError(t, err)
			results[i] = evs
		}(i)
	}

	for i := 0; i < n; i++ {
		s.Next(agui.NewEvent(agui.EventTypeCustom, map[string]any{"seq": i}))
	}
	s.Complete()
	wg.Wait()

	for _, evs := range results {
		require.Len(t, evs, n)
		for i, ev := range evs {
			v, _ := ev.Field("seq")
			assert.Equal(t, i, v)
		}
	}
}
