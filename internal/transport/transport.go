// Package transport holds what the SSE and Connect transports share: the run
// bridge they expose and the request-to-run plumbing.
package transport

import (
	"context"
	"errors"
	"fmt"

	"agui-platform-runner/internal/agent"
	"agui-platform-runner/internal/agui_adapter"
	"agui-platform-runner/internal/runner"
	"agui-platform-runner/internal/stream"
)

// ErrInvalidInput wraps request validation failures.
var ErrInvalidInput = errors.New("invalid input")

// Bridge is the set of run bridge operations exposed to clients.
type Bridge interface {
	Run(ctx context.Context, req runner.RunRequest) (stream.Observable, error)
	Connect(ctx context.Context, threadID string) stream.Observable
	IsRunning(threadID string) bool
	Stop(threadID string) bool
}

// StartRun validates input and starts a run with a fresh agent.
func StartRun(ctx context.Context, bridge Bridge, agents agent.Factory, input *agui_adapter.RunAgentInput) (stream.Observable, error) {
	if err := input.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return bridge.Run(ctx, runner.RunRequest{
		ThreadID: input.ThreadID,
		Agent:    agents.NewAgent(),
		Input:    input.ToRunInput(),
	})
}
