package sse

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"agui-platform-runner/internal/agent"
	"agui-platform-runner/internal/agui"
	"agui-platform-runner/internal/agui_adapter"
	"agui-platform-runner/internal/runner"
	"agui-platform-runner/internal/stream"
	"agui-platform-runner/internal/transport"
)

// Handler serves the run bridge over HTTP with Server-Sent Events
// Only responsible for HTTP/SSE serialization - run logic is in the bridge
type Handler struct {
	bridge transport.Bridge
	agents agent.Factory
	logger zerolog.Logger
}

// NewHandler creates a new SSE handler
func NewHandler(bridge transport.Bridge, agents agent.Factory, logger zerolog.Logger) *Handler {
	return &Handler{
		bridge: bridge,
		agents: agents,
		logger: logger.With().Str("transport", "sse").Logger(),
	}
}

// RegisterRoutes registers the agent routes
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/agent")
	g.POST("/run", h.Run)
	g.POST("/connect", h.Connect)
	g.GET("/threads/:thread_id/running", h.IsRunning)
	g.POST("/threads/:thread_id/stop", h.Stop)
}

// Run starts a run and streams its events.
// POST /agent/run
func (h *Handler) Run(c echo.Context) error {
	var input agui_adapter.RunAgentInput
	if err := json.NewDecoder(c.Request().Body).Decode(&input); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	obs, err := transport.StartRun(c.Request().Context(), h.bridge, h.agents, &input)
	switch {
	case errors.Is(err, transport.ErrInvalidInput):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, runner.ErrThreadRunning):
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	case err != nil:
		h.logger.Error().Err(err).Str("thread_id", input.ThreadID).Msg("failed to start run")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to start run"})
	}

	return h.stream(c, input.ThreadID, obs)
}

// Connect streams the history and live tail of a thread.
// POST /agent/connect
func (h *Handler) Connect(c echo.Context) error {
	var input agui_adapter.ConnectInput
	if err := json.NewDecoder(c.Request().Body).Decode(&input); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if err := input.Validate(); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	ctx := c.Request().Context()
	return h.stream(c, input.ThreadID, h.bridge.Connect(ctx, input.ThreadID))
}

// IsRunning reports whether a thread has a run in flight.
// GET /agent/threads/:thread_id/running
func (h *Handler) IsRunning(c echo.Context) error {
	threadID := c.Param("thread_id")
	return c.JSON(http.StatusOK, map[string]any{
		"threadId": threadID,
		"running":  h.bridge.IsRunning(threadID),
	})
}

// Stop requests the run of a thread to stop.
// POST /agent/threads/:thread_id/stop
func (h *Handler) Stop(c echo.Context) error {
	threadID := c.Param("thread_id")
	return c.JSON(http.StatusOK, map[string]any{
		"threadId": threadID,
		"stopped":  h.bridge.Stop(threadID),
	})
}

// stream writes every event of obs until it ends or the client goes away.
func (h *Handler) stream(c echo.Context, threadID string, obs stream.Observable) error {
	ctx := c.Request().Context()

	c.Response().Header().Set("Content-Type", "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().Header().Set("X-Accel-Buffering", "no")
	c.Response().WriteHeader(http.StatusOK)
	c.Response().Flush()

	err := stream.Drain(ctx, obs, func(ev agui.Event) error {
		return writeEvent(c, ev)
	})
	if err != nil && ctx.Err() == nil {
		h.logger.Warn().Err(err).Str("thread_id", threadID).Msg("event stream ended with error")
	}
	return nil
}

// writeEvent sends a single event in SSE format.
func writeEvent(c echo.Context, ev agui.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if _, err := fmt.Fprintf(c.Response(), "data: %s\n\n", data); err != nil {
		return err
	}
	c.Response().Flush()
	return nil
}
