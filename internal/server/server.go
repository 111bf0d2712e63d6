// Package server exposes the headless HTTP + WebSocket API of the tracker.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/alphatracker/internal/server/handler"
	"github.com/alanyoungcy/alphatracker/internal/server/middleware"
	"github.com/alanyoungcy/alphatracker/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health    *handler.HealthHandler
	Tokens    *handler.TokenHandler
	Snapshots *handler.SnapshotHandler
}

// Server is the headless HTTP + WebSocket API server for the tracker.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// It wires up middleware (logging, CORS, auth) and attaches the WebSocket hub.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// --- Register routes ---

	// Health check (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Token endpoints.
	mux.HandleFunc("GET /api/tokens", handlers.Tokens.ListTokens)
	mux.HandleFunc("POST /api/tokens", handlers.Tokens.TrackToken)
	mux.HandleFunc("GET /api/tokens/search/{query}", handlers.Tokens.SearchTokens)
	mux.HandleFunc("GET /api/tokens/{symbol}", handlers.Tokens.GetToken)
	mux.HandleFunc("DELETE /api/tokens/{symbol}", handlers.Tokens.UntrackToken)
	mux.HandleFunc("PUT /api/tokens/{symbol}/priority", handlers.Tokens.SetPriority)
	mux.HandleFunc("PUT /api/tokens/{symbol}/notes", handlers.Tokens.SetNotes)
	mux.HandleFunc("GET /api/tokens/{symbol}/price", handlers.Tokens.GetPrice)
	mux.HandleFunc("GET /api/tokens/{symbol}/futures", handlers.Tokens.VerifyFutures)
	mux.HandleFunc("GET /api/tokens/{symbol}/history", handlers.Tokens.GetHistory)

	// Snapshot archive endpoints.
	if handlers.Snapshots != nil {
		mux.HandleFunc("GET /api/snapshots", handlers.Snapshots.ListSnapshots)
		mux.HandleFunc("GET /api/snapshots/{key...}", handlers.Snapshots.GetSnapshot)
	}

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain.
	var h http.Handler = mux

	// Apply auth middleware (skips if APIKey is empty).
	h = middleware.Auth(cfg.APIKey)(h)

	// Apply request logging middleware.
	h = middleware.Logging(logger)(h)

	// Apply CORS middleware.
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
