// Package server wires the prompt store, service, handlers and middleware
// into an HTTP server.
//
// Dependency chain, assembled in New:
//
//	config → sqlite.DB → PromptService → PromptHandler / HealthHandler → chi router
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/sync/errgroup"

	"github.com/sakif/prompt-vault/internal/config"
	"github.com/sakif/prompt-vault/internal/handler"
	"github.com/sakif/prompt-vault/internal/middleware"
	"github.com/sakif/prompt-vault/internal/ratelimit"
	sqliteRepo "github.com/sakif/prompt-vault/internal/repository/sqlite"
	"github.com/sakif/prompt-vault/internal/service"
)

// MaxBodyBytes caps request bodies on the API.
const MaxBodyBytes = 1 << 20

// Server represents the HTTP server and all its dependencies.
// The server owns the database connection and closes it on shutdown.
type Server struct {
	router  *chi.Mux
	config  *config.Config
	logger  *slog.Logger
	db      *sqliteRepo.DB
	limiter *ratelimit.KeyedRateLimiter // nil when rate limiting is disabled
}

// New opens the database at cfg.Storage.DBPath and builds the router.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.Storage.DBPath, sqliteRepo.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if cfg.RateLimit.RPS > 0 {
		s.limiter = ratelimit.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	}

	s.setupRoutes()

	return s, nil
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures middleware and routes.
//
//	GET    /api/health
//	GET    /api/prompts?search=&tag=&favorite=true
//	POST   /api/prompts
//	GET    /api/prompts/{id}
//	PUT    /api/prompts/{id}
//	DELETE /api/prompts/{id}
//	POST   /api/prompts/{id}/copy
//	POST   /api/prompts/{id}/favorite
//	GET    /api/tags
//	GET    /*              built client, when STATIC_DIR is set
func (s *Server) setupRoutes() {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.config.Server.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	promptService := service.NewPromptService(s.db, s.logger)
	promptHandler := handler.NewPromptHandler(promptService, s.logger)
	healthHandler := handler.NewHealthHandler(s.db, promptService, s.logger)

	s.router.Route("/api", func(r chi.Router) {
		if s.limiter != nil {
			r.Use(middleware.RateLimit(s.limiter, s.logger))
		}
		r.Use(chimiddleware.RequestSize(MaxBodyBytes))

		r.NotFound(handler.HandleNotFound)
		r.MethodNotAllowed(handler.HandleMethodNotAllowed)

		r.Get("/health", healthHandler.HandleHealth)

		r.Route("/prompts", func(r chi.Router) {
			r.Get("/", promptHandler.HandleList)
			r.Post("/", promptHandler.HandleCreate)
			r.Get("/{id}", promptHandler.HandleGet)
			r.Put("/{id}", promptHandler.HandleUpdate)
			r.Delete("/{id}", promptHandler.HandleDelete)
			r.Post("/{id}/copy", promptHandler.HandleCopy)
			r.Post("/{id}/favorite", promptHandler.HandleToggleFavorite)
		})

		r.Get("/tags", promptHandler.HandleTags)
	})

	if dir := s.config.Server.StaticDir; dir != "" {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			s.router.Handle("/*", handler.NewSPAHandler(dir))
		} else {
			s.logger.Warn("static directory not found, client will not be served",
				slog.String("dir", dir),
			)
		}
	}
}

// Close releases the database and the rate limiter.
func (s *Server) Close() error {
	if s.limiter != nil {
		s.limiter.Stop()
	}
	return s.db.Close()
}

// Start serves HTTP until ctx is cancelled or SIGINT/SIGTERM arrives, then
// drains in-flight requests within the shutdown timeout and closes the
// database.
func (s *Server) Start(ctx context.Context) error {
	defer func() {
		if err := s.Close(); err != nil {
			s.logger.Error("failed to close database", slog.String("error", err.Error()))
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Server.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  s.config.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Server.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Server.Port)),
			slog.String("database", s.config.Storage.DBPath),
			slog.String("env", s.config.App.Environment),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("shutting down", slog.Duration("timeout", s.config.Server.ShutdownTimeout))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
		return nil
	})

	return g.Wait()
}
