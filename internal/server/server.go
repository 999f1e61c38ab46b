// Package server hosts the headless HTTP + WebSocket API over the
// published results and the pipeline controls.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/YoelDevSoft1/ProyectoP2P-sub002/internal/server/handler"
	"github.com/YoelDevSoft1/ProyectoP2P-sub002/internal/server/middleware"
	"github.com/YoelDevSoft1/ProyectoP2P-sub002/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	// APIKey enables authentication when non-empty. The health endpoint
	// stays open either way.
	APIKey string
	// RateLimitPerMin caps requests per client IP; zero disables it.
	RateLimitPerMin int
}

// Handlers aggregates the HTTP handlers the server registers. History
// may be nil when neither snapshot history nor cold storage is wired.
type Handlers struct {
	Health   *handler.HealthHandler
	Results  *handler.ResultsHandler
	Pipeline *handler.PipelineHandler
	History  *handler.HistoryHandler
}

// Server is the headless API server.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer registers all routes and builds the middleware chain.
// limiter may be nil to disable rate limiting outright.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter middleware.RateLimiter, logger *slog.Logger) *Server {
	api := http.NewServeMux()
	api.HandleFunc("GET /api/results", handlers.Results.ListResults)
	api.HandleFunc("GET /api/results/{pair}", handlers.Results.GetResult)
	api.HandleFunc("POST /api/pipeline/cycle", handlers.Pipeline.TriggerCycle)
	api.HandleFunc("GET /api/pipeline/status", handlers.Pipeline.Status)
	if handlers.History != nil {
		api.HandleFunc("GET /api/snapshots/{pair}", handlers.History.LatestSnapshot)
		api.HandleFunc("GET /api/archive", handlers.History.ListArchive)
		api.HandleFunc("GET /api/archive/{key...}", handlers.History.GetArchiveObject)
	}
	if wsHub != nil {
		api.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Health check stays outside auth so load balancers can probe it.
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)
	mux.Handle("/", middleware.Auth(cfg.APIKey)(api))

	var h http.Handler = mux
	if limiter != nil && cfg.RateLimitPerMin > 0 {
		h = middleware.RateLimit(limiter, cfg.RateLimitPerMin, time.Minute)(h)
	}
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      h,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}
}

// Start listens for requests until the server errors or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server starting", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
