// Package agent defines the runnable, abortable agent the run bridge drives,
// and its Google ADK implementation.
package agent

import (
	"context"
	"errors"

	adkagent "google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/model/gemini"
	"google.golang.org/adk/tool"
	"google.golang.org/adk/tool/geminitool"
	"google.golang.org/genai"

	"agui-platform-runner/internal/agui"
)

var (
	// ErrRunCompleted is returned by Abort once the run has ended.
	ErrRunCompleted = errors.New("agent run already completed")
	// ErrAborted is returned by Run when the run was aborted.
	ErrAborted = errors.New("agent run aborted")
	// ErrNoUserMessage is returned when the input has nothing to answer.
	ErrNoUserMessage = errors.New("no valid user message found")
)

// RunInput is the conversation input of one run.
type RunInput struct {
	ThreadID       string
	RunID          string
	Messages       []agui.Message
	State          map[string]any
	Tools          []any
	Context        []any
	ForwardedProps any
}

// Callbacks receive the output of a run. All of them are optional.
type Callbacks struct {
	// OnEvent is called for every event in emission order.
	OnEvent func(agui.Event)
	// OnNewMessage is called when the agent completes a message.
	OnNewMessage func(agui.Message)
	// OnRunStarted is called with the RUN_STARTED event, after OnEvent.
	OnRunStarted func(agui.Event)
}

func (c Callbacks) emit(ev agui.Event) {
	if c.OnEvent != nil {
		c.OnEvent(ev)
	}
	if ev.Type == agui.EventTypeRunStarted && c.OnRunStarted != nil {
		c.OnRunStarted(ev)
	}
}

func (c Callbacks) newMessage(m agui.Message) {
	if c.OnNewMessage != nil {
		c.OnNewMessage(m)
	}
}

// Agent runs once against a thread and can be aborted mid-run.
type Agent interface {
	// Run blocks until the run ends. A nil error means the run completed.
	Run(ctx context.Context, input RunInput, cb Callbacks) error
	// Abort asks a running agent to stop. It does not wait for Run to return.
	Abort() error
}

// Factory creates a fresh Agent for each run.
type Factory interface {
	NewAgent() Agent
}

// ModelOptions configures the LLM agent.
type ModelOptions struct {
	APIKey      string
	Model       string
	Name        string
	Description string
	Instruction string
}

// NewModelAgent creates a Gemini-backed ADK agent with Google Search
func NewModelAgent(ctx context.Context, opts ModelOptions) (adkagent.Agent, error) {
	model, err := gemini.NewModel(ctx, opts.Model, &genai.ClientConfig{
		APIKey: opts.APIKey,
	})
	if err != nil {
		return nil, err
	}

	return llmagent.New(llmagent.Config{
		Name:        opts.Name,
		Model:       model,
		Description: opts.Description,
		Instruction: opts.Instruction,
		Tools: []tool.Tool{
			geminitool.GoogleSearch{},
		},
	})
}
