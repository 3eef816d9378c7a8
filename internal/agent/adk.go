package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ag-ui-protocol/ag-ui/sdks/community/go/pkg/core/events"
	"github.com/rs/zerolog"
	adkagent "google.golang.org/adk/agent"
	"google.golang.org/adk/runner"
	"google.golang.org/genai"

	"agui-platform-runner/internal/agui"
	"agui-platform-runner/internal/session"
)

const defaultReply = "I received your message, but couldn't generate a response."

// ADKConfig configures an ADKFactory.
type ADKConfig struct {
	AppName  string
	Agent    adkagent.Agent
	Sessions *session.Manager
	States   *StateManager
	// Timeout bounds a single run. Zero means 60s.
	Timeout time.Duration
	Logger  zerolog.Logger
}

// ADKFactory creates agents that execute an ADK agent through a shared runner.
type ADKFactory struct {
	runner   *runner.Runner
	sessions *session.Manager
	states   *StateManager
	timeout  time.Duration
	logger   zerolog.Logger
}

// NewADKFactory creates a new ADK agent factory
func NewADKFactory(cfg ADKConfig) (*ADKFactory, error) {
	r, err := runner.New(runner.Config{
		AppName:        cfg.AppName,
		Agent:          cfg.Agent,
		SessionService: cfg.Sessions.Service(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create runner: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	states := cfg.States
	if states == nil {
		states = NewStateManager()
	}

	return &ADKFactory{
		runner:   r,
		sessions: cfg.Sessions,
		states:   states,
		timeout:  timeout,
		logger:   cfg.Logger.With().Str("component", "adk").Logger(),
	}, nil
}

// NewAgent implements Factory.
func (f *ADKFactory) NewAgent() Agent {
	return &adkRun{factory: f}
}

// adkRun is a single-use Agent.
type adkRun struct {
	factory *ADKFactory

	mu      sync.Mutex
	cancel  context.CancelFunc
	started bool
	aborted bool
	done    bool
}

func (a *adkRun) Abort() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.done {
		return ErrRunCompleted
	}
	a.aborted = true
	if a.cancel != nil {
		a.cancel()
	}
	return nil
}

func (a *adkRun) Run(ctx context.Context, input RunInput, cb Callbacks) error {
	ctx, cancel := context.WithTimeout(ctx, a.factory.timeout)
	defer cancel()

	a.mu.Lock()
	switch {
	case a.started:
		a.mu.Unlock()
		return errors.New("agent already ran")
	case a.aborted:
		a.done = true
		a.mu.Unlock()
		return ErrAborted
	}
	a.started = true
	a.cancel = cancel
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.done = true
		a.cancel = nil
		a.mu.Unlock()
	}()

	return a.execute(ctx, input, cb)
}

func (a *adkRun) isAborted() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.aborted
}

func (a *adkRun) execute(ctx context.Context, input RunInput, cb Callbacks) error {
	f := a.factory
	logger := f.logger.With().Str("thread_id", input.ThreadID).Str("run_id", input.RunID).Logger()

	emit := func(ev events.Event) {
		converted, err := agui.FromAGUI(ev)
		if err != nil {
			logger.Error().Err(err).Msg("dropping untranslatable event")
			return
		}
		cb.emit(converted)
	}

	emit(events.NewRunStartedEvent(input.ThreadID, input.RunID))
	cb.emit(agui.NewStateSnapshot(f.states.Merge(input.ThreadID, input.State)))

	userContent := lastUserContent(input.Messages)
	if userContent == nil {
		emit(events.NewRunErrorEvent(ErrNoUserMessage.Error(), events.WithRunID(input.RunID)))
		return ErrNoUserMessage
	}

	sess, err := f.sessions.GetOrCreate(ctx, input.ThreadID)
	if err != nil {
		emit(events.NewRunErrorEvent(fmt.Sprintf("failed to get session: %v", err), events.WithRunID(input.RunID)))
		return err
	}

	messageID := events.GenerateMessageID()
	emit(events.NewTextMessageStartEvent(messageID, events.WithRole(agui.RoleAssistant)))

	tr := newTranslator(messageID, emit)
	var runErr error
	for adkEvent, err := range f.runner.Run(ctx, f.sessions.UserID(), sess.ID(), userContent, adkagent.RunConfig{}) {
		if err != nil {
			runErr = err
			break
		}
		if adkEvent == nil {
			continue
		}
		tr.translate(adkEvent.Content)
		if adkEvent.IsFinalResponse() {
			break
		}
	}
	if runErr == nil {
		runErr = ctx.Err()
	}

	if runErr != nil {
		emit(events.NewTextMessageEndEvent(messageID))
		if a.isAborted() {
			logger.Info().Msg("agent run aborted")
			return ErrAborted
		}
		logger.Error().Err(runErr).Msg("agent execution failed")
		emit(events.NewRunErrorEvent(fmt.Sprintf("agent execution error: %v", runErr), events.WithRunID(input.RunID)))
		return fmt.Errorf("agent execution error: %w", runErr)
	}

	if tr.Text() == "" {
		tr.translate(genai.NewContentFromText(defaultReply, genai.RoleModel))
	}
	emit(events.NewTextMessageEndEvent(messageID))
	cb.newMessage(agui.Message{ID: messageID, Role: agui.RoleAssistant, Content: tr.Text()})
	emit(events.NewRunFinishedEvent(input.ThreadID, input.RunID))
	return nil
}

// lastUserContent returns the most recent non-empty user message.
func lastUserContent(messages []agui.Message) *genai.Content {
	for i := len(messages) - 1; i >= 0; i-- {
		m := messages[i]
		if m.Role == agui.RoleUser && m.Content != "" {
			return genai.NewContentFromText(m.Content, genai.RoleUser)
		}
	}
	return nil
}
