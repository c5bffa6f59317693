// Package server wires storage, services and handlers into one chi router
// and runs it with graceful shutdown.
//
// DEPENDENCY FLOW:
//
//	main.go:    config → logger → sqlstore.DB (opened, migrated) → server.New
//	server.New: DB → services → handlers → routes
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
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sakif/snippet-hub/internal/auth"
	"github.com/sakif/snippet-hub/internal/config"
	"github.com/sakif/snippet-hub/internal/handler"
	"github.com/sakif/snippet-hub/internal/middleware"
	"github.com/sakif/snippet-hub/internal/repository"
	"github.com/sakif/snippet-hub/internal/service"
)

// Server owns the router. The store's lifetime belongs to the caller.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	store  repository.Store
	github handler.GitHubAuth
}

// Option customises New.
type Option func(*Server)

// WithGitHub replaces the GitHub OAuth client, e.g. with a fake in tests.
func WithGitHub(g handler.GitHubAuth) Option {
	return func(s *Server) { s.github = g }
}

func New(cfg *config.Config, store repository.Store, logger *slog.Logger, opts ...Option) (*Server, error) {
	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		store:  store,
	}
	if cfg.GitHubEnabled() {
		s.github = auth.NewGitHubProvider(cfg.GitHubClientID, cfg.GitHubClientSecret, cfg.GitHubCallbackURL)
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.setupRoutes(); err != nil {
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// Handler exposes the router, mostly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes builds the dependency graph and mounts every route.
//
// Middleware order: request id, real ip, logging, metrics, panic recovery,
// then session resolution. Logging sits outside Recoverer so a recovered
// panic is still logged with its 500.
func (s *Server) setupRoutes() error {
	// === Services ===
	tokens, err := auth.NewTokenService(s.config.SessionSecret, s.config.SessionTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords, err := auth.NewPasswordService(s.config.BcryptCost)
	if err != nil {
		return fmt.Errorf("creating password service: %w", err)
	}
	sessions := auth.NewSessions(tokens, s.store, s.config.CookieSecure, s.logger)

	auditService := service.NewAuditService(s.store, s.logger)
	authService := service.NewAuthService(s.store, passwords, auditService, s.logger)
	adminService := service.NewAdminService(s.store, auditService, s.logger)
	snippetService := service.NewSnippetService(s.store, auditService, s.config.DefaultLanguage, s.logger)
	voteService := service.NewVoteService(s.store, s.logger)
	statsService := service.NewStatsService(s.store, s.logger)

	// === Handlers ===
	authHandler := handler.NewAuthHandler(authService, sessions, s.github, s.config.CookieSecure, s.logger)
	accountHandler := handler.NewAccountHandler(authService, sessions, s.logger)
	snippetHandler := handler.NewSnippetHandler(snippetService, voteService, s.logger)
	userHandler := handler.NewUserHandler(statsService, s.logger)
	adminHandler := handler.NewAdminHandler(adminService, auditService, s.logger)
	healthHandler := handler.NewHealthHandler(s.store, s.logger)

	// === Global middleware ===
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(middleware.Metrics)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(sessions.Middleware)

	s.router.Get("/healthz", healthHandler.HandleHealth)
	if s.config.MetricsEnabled {
		s.router.Handle("/metrics", promhttp.Handler())
	}

	// === Auth ===
	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.HandleRegister)
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/logout", authHandler.HandleLogout)
		if s.github != nil {
			r.Get("/github/login", authHandler.HandleGitHubLogin)
			r.Get("/github/callback", authHandler.HandleGitHubCallback)
		}
	})

	// === API ===
	s.router.Route("/api", func(r chi.Router) {
		r.With(auth.RequireAuth).Route("/me", func(r chi.Router) {
			r.Get("/", accountHandler.HandleMe)
			r.Put("/", accountHandler.HandleUpdate)
			r.Delete("/", accountHandler.HandleDelete)
		})

		r.Route("/snippets", func(r chi.Router) {
			r.Get("/", snippetHandler.HandleListRecent)
			r.Get("/{id}", snippetHandler.HandleGet)

			r.Group(func(r chi.Router) {
				r.Use(auth.RequireAuth)
				r.Post("/", snippetHandler.HandleCreate)
				r.Put("/{id}", snippetHandler.HandleUpdate)
				r.Delete("/{id}", snippetHandler.HandleDelete)
				r.Post("/{id}/visibility", snippetHandler.HandleToggleVisibility)
				r.Post("/{id}/vote/{direction}", snippetHandler.HandleVote)
			})
		})

		r.Get("/users", userHandler.HandleSearch)
		r.Get("/users/{username}", userHandler.HandleProfile)
		r.Get("/leaderboard/snippets", userHandler.HandleLeaderboardSnippets)
		r.Get("/leaderboard/reputation", userHandler.HandleLeaderboardReputation)
		r.Get("/stats/countries", userHandler.HandleCountries)

		r.Route("/admin", func(r chi.Router) {
			r.Use(auth.RequireAdmin)
			r.Get("/users", adminHandler.HandleListUsers)
			r.Post("/users/{id}/moderator", adminHandler.HandleToggleModerator)
			r.Delete("/users/{id}", adminHandler.HandleDeleteUser)
			r.Get("/audit", adminHandler.HandleAudit)
		})
	})

	return nil
}

// Start serves until SIGINT or SIGTERM, then gives in-flight requests 30
// seconds to finish.
func (s *Server) Start() error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.Bool("github_login", s.github != nil),
			slog.Bool("metrics", s.config.MetricsEnabled),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}
	return nil
}
