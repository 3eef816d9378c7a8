package server

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"agui-platform-runner/internal/config"
	"agui-platform-runner/internal/transport/connectrpc"
	"agui-platform-runner/internal/transport/sse"
)

// Server represents the HTTP server
type Server struct {
	echo   *echo.Echo
	addr   string
	logger zerolog.Logger
}

// New creates a new server instance with the SSE and Connect RPC transports
func New(cfg *config.Config, logger zerolog.Logger, sseHandler *sse.Handler, connectHandler *connectrpc.Handler) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			ev := logger.Info()
			if v.Error != nil {
				ev = logger.Error().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	sseHandler.RegisterRoutes(e)

	if connectHandler != nil {
		path, handler := connectrpc.NewServiceHandler(connectHandler)
		e.Any(path+"*", echo.WrapHandler(handler))
	}

	return &Server{
		echo:   e,
		addr:   ":" + cfg.Port,
		logger: logger,
	}
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.addr).Msg("starting AG-UI server")
	return s.echo.Start(s.addr)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// ShutdownTimeout shuts down the server with a default timeout
func (s *Server) ShutdownTimeout(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.Shutdown(ctx)
}
