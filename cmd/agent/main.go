package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"agui-platform-runner/internal/agent"
	"agui-platform-runner/internal/config"
	"agui-platform-runner/internal/logging"
	"agui-platform-runner/internal/platform"
	"agui-platform-runner/internal/runner"
	"agui-platform-runner/internal/server"
	"agui-platform-runner/internal/session"
	"agui-platform-runner/internal/transport/connectrpc"
	"agui-platform-runner/internal/transport/sse"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logger := logging.Default(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Create agent
	model, err := agent.NewModelAgent(ctx, agent.ModelOptions{
		APIKey:      cfg.GoogleAPIKey,
		Model:       cfg.Model,
		Name:        "assistant",
		Description: "A helpful assistant that can search the web.",
		Instruction: "You are a helpful assistant. Use Google Search when the answer depends on current information.",
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create agent")
	}

	// Initialize components
	states := agent.NewStateManager()
	agents, err := agent.NewADKFactory(agent.ADKConfig{
		AppName:  cfg.AppName,
		Agent:    model,
		Sessions: session.NewManager(cfg.AppName, cfg.UserID),
		States:   states,
		Timeout:  cfg.AgentTimeout,
		Logger:   logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create agent factory")
	}

	history := platform.NewHistory(platform.NewClient(platform.Options{
		BaseURL: cfg.PlatformURL,
		APIKey:  cfg.LangSmithAPIKey,
		Timeout: cfg.PlatformTimeout,
	}), logger)

	bridge := runner.New(runner.Options{History: history, Logger: logger})

	srv := server.New(cfg, logger,
		sse.NewHandler(bridge, agents, logger),
		connectrpc.NewHandler(bridge, agents, logger),
	)

	go cleanupStates(ctx, states, cfg.StateTTL)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	<-ctx.Done()
	logger.Info().Msg("shutting down server")

	if err := srv.ShutdownTimeout(5 * time.Second); err != nil {
		logger.Error().Err(err).Msg("error shutting down server")
	}
}

// cleanupStates drops idle thread state until ctx is done
func cleanupStates(ctx context.Context, states *agent.StateManager, ttl time.Duration) {
	ticker := time.NewTicker(ttl / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			states.Cleanup(ttl)
		}
	}
}
