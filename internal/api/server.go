// Package api serves dataset schemas over HTTP and validates Arrow IPC
// payloads against them.
package api

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"tabschema/internal/config"
	"tabschema/internal/middleware"
	"tabschema/internal/schema"
)

// OpenAPIDocument describes the routes served by Server.
//
//go:embed openapi.yaml
var OpenAPIDocument []byte

// Server exposes one immutable DatasetSchema.
type Server struct {
	schema *schema.DatasetSchema
	cfg    *config.Config
	logger *slog.Logger
	mem    memory.Allocator
	tokens middleware.TokenValidator
}

// NewServer creates a Server. A nil cfg uses the environment defaults and a
// nil logger uses slog.Default().
func NewServer(ds *schema.DatasetSchema, cfg *config.Config, logger *slog.Logger) *Server {
	if cfg == nil {
		cfg = &config.Config{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		schema: ds,
		cfg:    cfg,
		logger: logger,
		mem:    memory.DefaultAllocator,
	}
}

// WithTokenValidator sets the bearer token validator, usually the one built
// by middleware.NewTokenValidator. Without it bearer tokens are rejected.
func (s *Server) WithTokenValidator(v middleware.TokenValidator) *Server {
	s.tokens = v
	return s
}

// Routes builds the HTTP handler. Background work started for the handler
// (rate limiter eviction) stops when ctx is done.
func (s *Server) Routes(ctx context.Context) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-API-Key", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "Retry-After"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealth)
	r.Get("/openapi.yaml", handleOpenAPI)

	r.Route("/v1", func(r chi.Router) {
		if s.cfg.RateLimitRPS > 0 {
			r.Use(middleware.RateLimiter(ctx, middleware.RateLimitConfig{
				RequestsPerSecond: s.cfg.RateLimitRPS,
				Burst:             s.cfg.RateLimitBurst,
				Logger:            s.logger,
			}))
		}
		if s.tokens != nil || s.cfg.AuthEnabled() {
			r.Use(middleware.Authenticate(middleware.AuthConfig{
				Tokens:  s.tokens,
				APIKeys: s.cfg.APIKeys,
				Logger:  s.logger,
			}))
		}
		r.Get("/types", s.handleListTypes)
		r.Get("/tables", s.handleListTables)
		r.Get("/tables/{table}", s.handleGetTable)
		r.Post("/tables/{table}/validate", s.handleValidate)
	})
	return r
}

// ListenAndServe serves on cfg.ListenAddr until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.Routes(ctx),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       5 * time.Minute,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info("shutting down schema service")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("schema service listening", "addr", s.cfg.ListenAddr, "dataset", s.schema.Name)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}
