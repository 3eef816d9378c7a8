package runner

import (
	"context"

	"agui-platform-runner/internal/agui"
	"agui-platform-runner/internal/stream"
)

// Connect returns the events of threadID for a joining observer: the
// thread's stored history first, then the live tail of a run in flight.
// Live events whose messageId was already replayed from history are
// dropped. Without a run in flight the stream completes right after the
// history. Cancelling ctx detaches from the live run and completes the
// stream.
func (r *Runner) Connect(ctx context.Context, threadID string) stream.Observable {
	out := stream.NewSubject()
	go r.replay(ctx, threadID, out)
	return out
}

func (r *Runner) replay(ctx context.Context, threadID string, out *stream.Subject) {
	logger := r.logger.With().Str("thread_id", threadID).Logger()

	seen := make(map[string]struct{})
	var historic []agui.Event
	if r.history != nil {
		historic = r.history.HistoricEvents(ctx, threadID)
	}
	for _, ev := range historic {
		for _, id := range ev.MessageIDs() {
			seen[id] = struct{}{}
		}
		out.Next(ev)
	}

	if ctx.Err() != nil {
		out.Complete()
		return
	}

	live, ok := r.registry.liveSubject(threadID)
	if !ok {
		logger.Debug().Int("historic", len(historic)).Msg("connect replayed history only")
		out.Complete()
		return
	}

	logger.Debug().Int("historic", len(historic)).Msg("connect attached to live run")
	sub := live.Subscribe(stream.Observer{
		Next: func(ev agui.Event) {
			if ev.MessageID != "" {
				if _, dup := seen[ev.MessageID]; dup {
					return
				}
			}
			out.Next(ev)
		},
		Error:    out.Error,
		Complete: out.Complete,
	})

	context.AfterFunc(ctx, func() {
		sub.Close()
		out.Complete()
	})
}
