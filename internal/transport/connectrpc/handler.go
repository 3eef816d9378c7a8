package connectrpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"connectrpc.com/connect"
	"github.com/rs/zerolog"
	"google.golang.org/protobuf/types/known/structpb"

	"agui-platform-runner/internal/agent"
	"agui-platform-runner/internal/agui"
	"agui-platform-runner/internal/agui_adapter"
	"agui-platform-runner/internal/runner"
	"agui-platform-runner/internal/stream"
	"agui-platform-runner/internal/transport"
)

// AGUIServiceName is the fully-qualified name of the service.
const AGUIServiceName = "agui.v1.AGUIService"

// Procedure paths of the service.
const (
	RunAgentProcedure  = "/" + AGUIServiceName + "/RunAgent"
	ConnectProcedure   = "/" + AGUIServiceName + "/Connect"
	IsRunningProcedure = "/" + AGUIServiceName + "/IsRunning"
	StopProcedure      = "/" + AGUIServiceName + "/Stop"
)

// Handler handles Connect RPC requests for the AG-UI protocol
// Only responsible for Protobuf serialization - run logic is in the bridge
type Handler struct {
	bridge transport.Bridge
	agents agent.Factory
	logger zerolog.Logger
}

// NewHandler creates a new Connect RPC handler
func NewHandler(bridge transport.Bridge, agents agent.Factory, logger zerolog.Logger) *Handler {
	return &Handler{
		bridge: bridge,
		agents: agents,
		logger: logger.With().Str("transport", "connect").Logger(),
	}
}

// NewServiceHandler returns the service path prefix and its HTTP handler.
func NewServiceHandler(h *Handler, opts ...connect.HandlerOption) (string, http.Handler) {
	mux := http.NewServeMux()
	mux.Handle(RunAgentProcedure, connect.NewServerStreamHandler(RunAgentProcedure, h.RunAgent, opts...))
	mux.Handle(ConnectProcedure, connect.NewServerStreamHandler(ConnectProcedure, h.Connect, opts...))
	mux.Handle(IsRunningProcedure, connect.NewUnaryHandler(IsRunningProcedure, h.IsRunning, opts...))
	mux.Handle(StopProcedure, connect.NewUnaryHandler(StopProcedure, h.Stop, opts...))
	return "/" + AGUIServiceName + "/", mux
}

// RunAgent starts a run and streams its events
func (h *Handler) RunAgent(ctx context.Context, req *connect.Request[structpb.Struct], out *connect.ServerStream[structpb.Struct]) error {
	var input agui_adapter.RunAgentInput
	if err := decodeStruct(req.Msg, &input); err != nil {
		return connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("failed to convert request: %w", err))
	}

	obs, err := transport.StartRun(ctx, h.bridge, h.agents, &input)
	switch {
	case errors.Is(err, transport.ErrInvalidInput):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, runner.ErrThreadRunning):
		return connect.NewError(connect.CodeAlreadyExists, err)
	case err != nil:
		h.logger.Error().Err(err).Str("thread_id", input.ThreadID).Msg("failed to start run")
		return connect.NewError(connect.CodeInternal, err)
	}

	return h.send(ctx, obs, out)
}

// Connect streams the history and live tail of a thread
func (h *Handler) Connect(ctx context.Context, req *connect.Request[structpb.Struct], out *connect.ServerStream[structpb.Struct]) error {
	var input agui_adapter.ConnectInput
	if err := decodeStruct(req.Msg, &input); err != nil {
		return connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("failed to convert request: %w", err))
	}
	if err := input.Validate(); err != nil {
		return connect.NewError(connect.CodeInvalidArgument, err)
	}

	return h.send(ctx, h.bridge.Connect(ctx, input.ThreadID), out)
}

// IsRunning reports whether a thread has a run in flight
func (h *Handler) IsRunning(_ context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	threadID, err := threadIDOf(req.Msg)
	if err != nil {
		return nil, err
	}
	return threadReply(threadID, "running", h.bridge.IsRunning(threadID))
}

// Stop requests the run of a thread to stop
func (h *Handler) Stop(_ context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	threadID, err := threadIDOf(req.Msg)
	if err != nil {
		return nil, err
	}
	return threadReply(threadID, "stopped", h.bridge.Stop(threadID))
}

func (h *Handler) send(ctx context.Context, obs stream.Observable, out *connect.ServerStream[structpb.Struct]) error {
	err := stream.Drain(ctx, obs, func(ev agui.Event) error {
		msg, err := convertEvent(ev)
		if err != nil {
			return fmt.Errorf("failed to convert event: %w", err)
		}
		return out.Send(msg)
	})
	if err != nil && ctx.Err() == nil {
		h.logger.Warn().Err(err).Msg("event stream ended with error")
		return connect.NewError(connect.CodeInternal, err)
	}
	return nil
}

func threadIDOf(msg *structpb.Struct) (string, error) {
	var input agui_adapter.ConnectInput
	if err := decodeStruct(msg, &input); err != nil {
		return "", connect.NewError(connect.CodeInvalidArgument, err)
	}
	if err := input.Validate(); err != nil {
		return "", connect.NewError(connect.CodeInvalidArgument, err)
	}
	return input.ThreadID, nil
}

func threadReply(threadID, key string, value bool) (*connect.Response[structpb.Struct], error) {
	msg, err := structpb.NewStruct(map[string]any{"threadId": threadID, key: value})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(msg), nil
}

// decodeStruct maps a protobuf Struct onto a JSON-tagged Go value
func decodeStruct(msg *structpb.Struct, v any) error {
	data, err := json.Marshal(msg.AsMap())
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// convertEvent converts an AG-UI event to a protobuf Struct
func convertEvent(ev agui.Event) (*structpb.Struct, error) {
	eventJSON, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}

	var eventMap map[string]any
	if err := json.Unmarshal(eventJSON, &eventMap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event JSON: %w", err)
	}

	return structpb.NewStruct(eventMap)
}
