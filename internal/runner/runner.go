// Package runner bridges agent runs to every observer of a thread: the caller
// that started the run and any number of late-joining connect requests.
package runner

import (
	"context"
	"errors"
	"fmt"

	"github.com/ag-ui-protocol/ag-ui/sdks/community/go/pkg/core/events"
	"github.com/rs/zerolog"

	"agui-platform-runner/internal/agent"
	"agui-platform-runner/internal/agui"
	"agui-platform-runner/internal/stream"
)

// ErrThreadRunning is returned by Run when the thread already has a run in
// flight.
var ErrThreadRunning = errors.New("thread already running")

// unknownRunID labels a restored run whose id cannot be recovered.
const unknownRunID = "unknown"

// HistorySource rebuilds the stored events of a thread.
type HistorySource interface {
	HistoricEvents(ctx context.Context, threadID string) []agui.Event
}

// Options configures a Runner.
type Options struct {
	// Registry defaults to a new empty registry.
	Registry *Registry
	// History may be nil, in which case connect replays no history.
	History HistorySource
	Logger  zerolog.Logger
}

// Runner coordinates runs, stops and connects per thread.
type Runner struct {
	registry *Registry
	history  HistorySource
	logger   zerolog.Logger
	newRunID func() string
}

// New creates a new runner
func New(opts Options) *Runner {
	reg := opts.Registry
	if reg == nil {
		reg = NewRegistry()
	}
	return &Runner{
		registry: reg,
		history:  opts.History,
		logger:   opts.Logger.With().Str("component", "runner").Logger(),
		newRunID: events.GenerateRunID,
	}
}

// RunRequest starts one agent run on a thread.
type RunRequest struct {
	ThreadID string
	Agent    agent.Agent
	Input    agent.RunInput
}

// IsRunning reports whether threadID has a run in flight.
func (r *Runner) IsRunning(threadID string) bool {
	return r.registry.IsRunning(threadID)
}

// Run starts req.Agent on req.ThreadID and returns the events of this
// invocation. The agent keeps running if ctx is cancelled; use Stop to end
// it early. Run fails with ErrThreadRunning without side effects if the
// thread is busy.
func (r *Runner) Run(ctx context.Context, req RunRequest) (stream.Observable, error) {
	if req.Agent == nil {
		return nil, errors.New("run request has no agent")
	}

	input := req.Input
	input.ThreadID = req.ThreadID
	if input.RunID == "" {
		input.RunID = r.newRunID()
	}

	conn := &Connection{
		live:  stream.NewSubject(),
		agent: req.Agent,
		run:   stream.NewSubject(),
	}
	state := &RunState{RunID: input.RunID, conn: conn}

	reg := r.registry
	reg.mu.Lock()
	if _, busy := reg.running[req.ThreadID]; busy {
		reg.mu.Unlock()
		return nil, ErrThreadRunning
	}
	prev := reg.connections[req.ThreadID]
	reg.running[req.ThreadID] = state
	reg.connections[req.ThreadID] = conn
	reg.mu.Unlock()

	// A predecessor still streaming its finalization keeps feeding observers
	// through the new live subject. Its completion is not forwarded.
	if prev != nil {
		prev.live.Subscribe(stream.Observer{
			Next:  conn.live.Next,
			Error: conn.live.Error,
		})
	}

	logger := r.logger.With().Str("thread_id", req.ThreadID).Str("run_id", input.RunID).Logger()
	logger.Info().Bool("bridged", prev != nil).Msg("run started")

	go r.execute(context.WithoutCancel(ctx), logger, req.ThreadID, req.Agent, conn, input)

	return conn.run, nil
}

func (r *Runner) execute(ctx context.Context, logger zerolog.Logger, threadID string, ag agent.Agent, conn *Connection, input agent.RunInput) {
	err := invoke(ctx, ag, input, agent.Callbacks{
		OnEvent: func(ev agui.Event) { r.publish(conn, ev) },
	})
	if err != nil {
		logger.Warn().Err(err).Msg("agent run failed")
	}
	r.finalize(logger, threadID, conn, input.RunID)
}

func invoke(ctx context.Context, ag agent.Agent, input agent.RunInput, cb agent.Callbacks) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("agent panicked: %v", p)
		}
	}()
	return ag.Run(ctx, input, cb)
}

// publish buffers ev and broadcasts it to the live and run subjects.
func (r *Runner) publish(conn *Connection, ev agui.Event) {
	conn.emitMu.Lock()
	defer conn.emitMu.Unlock()

	r.registry.mu.Lock()
	if conn.finalized {
		r.registry.mu.Unlock()
		return
	}
	conn.events = append(conn.events, ev)
	r.registry.mu.Unlock()

	conn.live.Next(ev)
	conn.run.Next(ev)
}

// finalize closes the run: synthesizes missing terminal events, clears the
// registry entries still owned by this run and completes both subjects.
func (r *Runner) finalize(logger zerolog.Logger, threadID string, conn *Connection, runID string) {
	conn.emitMu.Lock()

	reg := r.registry
	reg.mu.Lock()
	buffered := conn.events
	stopRequested := conn.stopRequested
	conn.finalized = true
	reg.mu.Unlock()

	closing := FinalizeRunEvents(buffered, FinalizeOptions{
		StopRequested: stopRequested,
		ThreadID:      threadID,
		RunID:         runID,
	})
	for _, ev := range closing {
		conn.live.Next(ev)
		conn.run.Next(ev)
	}

	reg.mu.Lock()
	if rs, ok := reg.running[threadID]; ok && rs.conn == conn {
		delete(reg.running, threadID)
	}
	conn.agent = nil
	conn.events = nil
	conn.stopRequested = false
	if reg.connections[threadID] == conn {
		delete(reg.connections, threadID)
	}
	reg.mu.Unlock()

	conn.emitMu.Unlock()

	conn.run.Complete()
	conn.live.Complete()

	logger.Info().
		Int("events", len(buffered)).
		Int("synthesized", len(closing)).
		Bool("stop_requested", stopRequested).
		Msg("run finalized")
}

// Stop asks the agent running on threadID to abort. It returns true only if
// this call initiated the stop; a thread that is idle, not attached to an
// agent or already stopping yields false. If the abort fails the stop is
// rolled back.
func (r *Runner) Stop(threadID string) bool {
	reg := r.registry
	reg.mu.Lock()
	state, running := reg.running[threadID]
	conn := reg.connections[threadID]
	if !running || conn == nil || conn.agent == nil || conn.stopRequested {
		reg.mu.Unlock()
		return false
	}
	conn.stopRequested = true
	delete(reg.running, threadID)
	ag := conn.agent
	reg.mu.Unlock()

	logger := r.logger.With().Str("thread_id", threadID).Str("run_id", state.RunID).Logger()

	if err := ag.Abort(); err != nil {
		logger.Error().Err(err).Msg("failed to abort agent run")

		reg.mu.Lock()
		if reg.connections[threadID] == conn && !conn.finalized {
			conn.stopRequested = false
			if _, ok := reg.running[threadID]; !ok {
				reg.running[threadID] = &RunState{RunID: rollbackRunID(conn.events, state), conn: conn}
			}
		}
		reg.mu.Unlock()
		return false
	}

	logger.Info().Msg("run stop requested")
	return true
}

// rollbackRunID recovers the id of a run whose stop is being undone.
func rollbackRunID(buffered []agui.Event, removed *RunState) string {
	if len(buffered) > 0 && buffered[0].Type == agui.EventTypeRunStarted && buffered[0].RunID != "" {
		return buffered[0].RunID
	}
	if removed != nil && removed.RunID != "" {
		return removed.RunID
	}
	return unknownRunID
}
