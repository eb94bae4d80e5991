// Package api exposes the action run engine over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/hugo-lorenzo-mato/actionrun/internal/api/middleware"
	"github.com/hugo-lorenzo-mato/actionrun/internal/core"
	"github.com/hugo-lorenzo-mato/actionrun/internal/diagnostics"
	"github.com/hugo-lorenzo-mato/actionrun/internal/engine"
	"github.com/hugo-lorenzo-mato/actionrun/internal/events"
	"github.com/hugo-lorenzo-mato/actionrun/internal/logging"
	"github.com/hugo-lorenzo-mato/actionrun/internal/query"
)

// Engine is the subset of the engine facade the API serves.
type Engine interface {
	ListActions() []core.ActionDefinition
	Plan(ctx context.Context, owner string, req engine.ExecuteRequest) (*engine.Plan, error)
	Execute(ctx context.Context, owner string, req engine.ExecuteRequest) (*core.Run, error)
	Retry(ctx context.Context, owner, id string) (*core.Run, error)
	Get(ctx context.Context, owner, id string) (*core.Run, error)
	Query(ctx context.Context, owner string, f query.Filter) ([]*core.Run, error)
}

// Server provides HTTP endpoints for action runs.
type Server struct {
	router         chi.Router
	engine         Engine
	eventBus       *events.EventBus
	logger         *logging.Logger
	collector      *diagnostics.Collector
	corsEnabled    bool
	allowedOrigins []string
	requestTimeout time.Duration

	stopping chan struct{}
	stopOnce sync.Once
}

// ServerOption configures the server.
type ServerOption func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *logging.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithEventBus enables the SSE feed.
func WithEventBus(bus *events.EventBus) ServerOption {
	return func(s *Server) {
		s.eventBus = bus
	}
}

// WithDiagnostics enables the system endpoint.
func WithDiagnostics(c *diagnostics.Collector) ServerOption {
	return func(s *Server) {
		s.collector = c
	}
}

// WithCORS configures cross-origin access. Disabled when enabled is false.
func WithCORS(enabled bool, origins []string) ServerOption {
	return func(s *Server) {
		s.corsEnabled = enabled
		s.allowedOrigins = origins
	}
}

// WithRequestTimeout bounds non-streaming requests.
func WithRequestTimeout(d time.Duration) ServerOption {
	return func(s *Server) {
		s.requestTimeout = d
	}
}

// NewServer creates a new API server.
func NewServer(eng Engine, opts ...ServerOption) *Server {
	s := &Server{
		engine:         eng,
		corsEnabled:    true,
		allowedOrigins: []string{"*"},
		requestTimeout: 60 * time.Second,
		stopping:       make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.NewNop()
	}
	s.logger = s.logger.WithComponent("api")

	s.router = s.setupRouter()
	return s
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRouter configures Chi router with all routes and middleware.
func (s *Server) setupRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(s.loggingMiddleware)

	if s.corsEnabled {
		corsHandler := cors.New(cors.Options{
			AllowedOrigins:   s.allowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.HeaderOwnerToken},
			AllowCredentials: false,
			MaxAge:           300,
		})
		r.Use(corsHandler.Handler)
	}

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		// Streaming lives outside the request timeout.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireOwner)
			r.Get("/events", s.handleSSE)
		})

		r.Group(func(r chi.Router) {
			r.Use(chimw.Timeout(s.requestTimeout))

			r.Get("/system", s.handleSystem)
			r.Get("/actions", s.handleListActions)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireOwner)

				r.Post("/actions/plan", s.handlePlan)

				r.Route("/runs", func(r chi.Router) {
					r.Get("/", s.handleListRuns)
					r.Post("/", s.handleExecute)
					r.Route("/{runID}", func(r chi.Router) {
						r.Get("/", s.handleGetRun)
						r.Post("/retry", s.handleRetry)
					})
				})
			})
		})
	})

	return r
}

// loggingMiddleware logs HTTP requests.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			s.logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"bytes", ww.BytesWritten(),
				"request_id", chimw.GetReqID(r.Context()),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

// respondJSON sends a JSON response.
func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			s.logger.Error("failed to encode response", "status", status, "error", err)
		}
	}
}

// respondError sends a JSON error response.
func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, ErrorResponse{Error: message})
}

// decodeJSON reads the request body into v. An empty body leaves v as is.
func decodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// handleHealth returns server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// handleSystem returns a diagnostics snapshot.
func (s *Server) handleSystem(w http.ResponseWriter, _ *http.Request) {
	if s.collector == nil {
		s.respondError(w, http.StatusServiceUnavailable, "diagnostics not available")
		return
	}
	s.respondJSON(w, http.StatusOK, s.collector.Collect())
}

// ListenAndServe starts the HTTP server and shuts it down when ctx ends.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	// Streams never finish on their own; end them so Shutdown can drain.
	srv.RegisterOnShutdown(s.stopStreams)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting API server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) stopStreams() {
	s.stopOnce.Do(func() { close(s.stopping) })
}
