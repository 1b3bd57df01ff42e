// Package server wires the store, services, handlers and routes together
// and runs the HTTP server.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/kanban/internal/auth"
	"github.com/sakif/kanban/internal/config"
	"github.com/sakif/kanban/internal/events"
	"github.com/sakif/kanban/internal/handler"
	"github.com/sakif/kanban/internal/middleware"
	"github.com/sakif/kanban/internal/repository"
	"github.com/sakif/kanban/internal/repository/memory"
	sqliteRepo "github.com/sakif/kanban/internal/repository/sqlite"
	"github.com/sakif/kanban/internal/service"
)

// limiterIdle is how long a client IP stays in the login rate limiter
// after its last attempt.
const limiterIdle = 10 * time.Minute

// Store is a repository backend the server owns and closes on shutdown.
type Store interface {
	repository.Store
	io.Closer
}

type Server struct {
	router   *chi.Mux
	config   *config.Config
	logger   *slog.Logger
	store    Store
	sessions *auth.SessionAuthority
	hub      *events.Hub
	limiter  *middleware.RateLimiter
}

// OpenStore opens the backend named by cfg.Driver. File-backed sqlite
// databases get their parent directory created.
func OpenStore(cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return memory.New(), nil
	case config.DriverSQLite:
		if cfg.DBPath != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
				return nil, fmt.Errorf("creating database directory: %w", err)
			}
		}
		db, err := sqliteRepo.New(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// New opens the store and builds the full dependency graph. The revocation
// sweeper is not started until Start.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	store, err := OpenStore(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	s, err := NewWithStore(cfg, logger, store, auth.NewPasswordService(cfg.Auth.BcryptCost))
	if err != nil {
		store.Close()
		return nil, err
	}
	return s, nil
}

// NewWithStore builds a server on an already opened store. Tests use it to
// inject a cheap password hasher.
func NewWithStore(cfg *config.Config, logger *slog.Logger, store Store, passwords *auth.PasswordService) (*Server, error) {
	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenIssuer, cfg.Auth.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("creating token service: %w", err)
	}

	s := &Server{
		router:   chi.NewRouter(),
		config:   cfg,
		logger:   logger,
		store:    store,
		sessions: auth.NewSessionAuthority(tokens, store, logger, cfg.Auth.SweepInterval).WithAccountCheck(store),
		hub:      events.NewHub(logger),
		limiter:  middleware.NewRateLimiter(cfg.Auth.LoginRateLimit, cfg.Auth.LoginRateBurst),
	}
	s.setupRoutes(passwords)
	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes registers every route.
//
//	GET  /healthz
//	POST /users, /auth/register           register (rate limited)
//	POST /sessions, /auth/login           login (rate limited)
//	everything else requires a bearer token
func (s *Server) setupRoutes(passwords *auth.PasswordService) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	authService := service.NewAuthService(s.store, s.sessions, passwords, s.logger)
	boardService := service.NewBoardService(s.store, s.hub, s.logger)

	authHandler := handler.NewAuthHandler(authService, s.logger)
	boardHandler := handler.NewBoardHandler(boardService, s.hub, s.logger, s.config.AllowedOrigins)

	s.router.Get("/healthz", s.handleHealth)

	s.router.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(s.limiter, middleware.ClientIP))
		r.Post("/users", authHandler.HandleRegister)
		r.Post("/auth/register", authHandler.HandleRegister)
		r.Post("/sessions", authHandler.HandleLogin)
		r.Post("/auth/login", authHandler.HandleLogin)
	})

	s.router.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(s.sessions, s.logger))

		r.Delete("/sessions", authHandler.HandleLogout)
		r.Post("/auth/logout", authHandler.HandleLogout)

		r.Get("/users", authHandler.HandleListUsers)
		r.Delete("/users", authHandler.HandleDeleteSelf)
		r.Get("/users/me", authHandler.HandleMe)
		r.Get("/users/{userId}", authHandler.HandleGetUser)
		r.Put("/users/{userId}", authHandler.HandleChangePassword)
		r.Put("/users/{userId}/password", authHandler.HandleChangePassword)

		r.Route("/boards", func(r chi.Router) {
			r.Get("/", boardHandler.HandleListBoards)
			r.Post("/", boardHandler.HandleCreateBoard)

			r.Route("/{boardId}", func(r chi.Router) {
				r.Get("/", boardHandler.HandleGetBoard)
				r.Put("/", boardHandler.HandleUpdateBoard)
				r.Delete("/", boardHandler.HandleDeleteBoard)

				r.Get("/events", boardHandler.HandleBoardEvents)

				r.Post("/members", boardHandler.HandleAddMember)
				r.Put("/members/{userId}", boardHandler.HandleUpdateMember)
				r.Delete("/members/{userId}", boardHandler.HandleRemoveMember)

				r.Get("/lists", boardHandler.HandleListLists)
				r.Post("/lists", boardHandler.HandleCreateList)
			})
		})

		r.Route("/lists/{listId}", func(r chi.Router) {
			r.Get("/", boardHandler.HandleGetList)
			r.Put("/", boardHandler.HandleUpdateList)
			r.Delete("/", boardHandler.HandleDeleteList)

			r.Get("/cards", boardHandler.HandleListCards)
			r.Post("/cards", boardHandler.HandleCreateCard)
			r.Put("/cards", boardHandler.HandleUpdateCardInList)
			r.Delete("/cards", boardHandler.HandleDeleteCardInList)
			r.Get("/cards/{cardId}", boardHandler.HandleGetCardInList)
		})

		r.Route("/cards/{cardId}", func(r chi.Router) {
			r.Get("/", boardHandler.HandleGetCard)
			r.Put("/", boardHandler.HandleUpdateCard)
			r.Delete("/", boardHandler.HandleDeleteCard)

			r.Post("/checklist", boardHandler.HandleAddChecklistItem)
			r.Patch("/checklist/{itemId}", boardHandler.HandleToggleChecklistItem)

			r.Get("/comments", boardHandler.HandleListCardComments)
			r.Post("/comments", boardHandler.HandleCreateCardComment)
		})

		r.Get("/comments", boardHandler.HandleListComments)
		r.Post("/comments", boardHandler.HandleCreateComment)
		r.Get("/comments/{commentId}", boardHandler.HandleGetComment)
		r.Patch("/comments/{commentId}", boardHandler.HandleUpdateComment)
		r.Delete("/comments/{commentId}", boardHandler.HandleDeleteComment)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// Close stops background work and closes the store.
func (s *Server) Close() error {
	s.sessions.Stop()
	return s.store.Close()
}

// Start serves until SIGINT or SIGTERM, then shuts down gracefully:
// in-flight requests get 30 seconds, then the sweeper stops and the store
// is closed.
func (s *Server) Start() error {
	defer s.Close()

	s.sessions.Start()

	// No read/write timeouts: they would also cut long-lived websocket
	// connections. Slow clients are bounded by ReadHeaderTimeout.
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go s.cleanupLimiter(ctx)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("store", s.config.Store.Driver),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case <-ctx.Done():
		s.logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}
	return nil
}

func (s *Server) cleanupLimiter(ctx context.Context) {
	ticker := time.NewTicker(limiterIdle)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.limiter.Cleanup(limiterIdle); n > 0 {
				s.logger.Debug("rate limiter cleaned up", slog.Int("removed", n))
			}
		}
	}
}
