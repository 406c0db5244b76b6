package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/hostwatch/hostwatch/internal/handler"
	"github.com/hostwatch/hostwatch/internal/model"
	"github.com/hostwatch/hostwatch/internal/openapi"
	"github.com/hostwatch/hostwatch/internal/server/middleware"
	"github.com/hostwatch/hostwatch/internal/service"
	"github.com/hostwatch/hostwatch/internal/ui"
)

// Config holds the HTTP server configuration.
type Config struct {
	Host               string
	Port               int
	ShutdownTimeout    time.Duration
	CORSOrigins        []string
	StaticDir          string // frontend build served at /; overrides the embedded one
	EnableUI           bool
	LoginRatePerMinute int
	Version            string
}

// DefaultConfig returns a Config with sensible production defaults.
func DefaultConfig() Config {
	return Config{
		Host:               "0.0.0.0",
		Port:               4000,
		ShutdownTimeout:    15 * time.Second,
		CORSOrigins:        []string{"*"},
		LoginRatePerMinute: 10,
		EnableUI:           true,
		Version:            "dev",
	}
}

// Server is the hostwatch HTTP server. It owns the Chi router and the
// services the handlers call into.
type Server struct {
	cfg        Config
	router     chi.Router
	guard      *service.Guard
	creds      *service.CredentialService
	dash       handler.Dashboard
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a new Server, wires up all routes and middleware, and returns
// it ready to listen. Call ListenAndServe to start accepting connections.
func New(cfg Config, guard *service.Guard, creds *service.CredentialService, dash handler.Dashboard, logger *slog.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		guard:  guard,
		creds:  creds,
		dash:   dash,
		logger: logger,
	}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// --- Global middleware ---
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(chimw.Compress(5))

	authHandler := handler.NewAuthHandler(s.guard, s.creds, s.logger)
	dashHandler := handler.NewDashboardHandler(s.dash, s.logger)
	openAPIHandler := handler.NewOpenAPIHandler(openapi.Options{
		Version:     s.cfg.Version,
		AuthEnabled: s.guard.Enabled(),
	})

	// --- Open endpoints ---
	r.Get("/health", s.handleHealth)
	r.Get("/openapi.json", openAPIHandler.ServeSpec)

	// --- API routes ---
	r.Route("/api", func(r chi.Router) {
		r.With(middleware.RateLimit(s.cfg.LoginRatePerMinute)).Post("/auth/login", authHandler.Login)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(s.guard, s.logger))

			r.Get("/auth/me", authHandler.Me)
			r.Post("/auth/password", authHandler.ChangePassword)

			r.Get("/system", dashHandler.System)
			r.Get("/docker", dashHandler.Docker)
			r.Get("/services", dashHandler.Services)
			r.Get("/firebird", dashHandler.Firebird)
			r.Get("/tunnel", dashHandler.Tunnel)
			r.Get("/traffic", dashHandler.Traffic)

			// User administration
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin(s.guard))
				r.Get("/users", authHandler.ListUsers)
				r.Post("/users", authHandler.CreateUser)
				r.Patch("/users/{username}", authHandler.UpdateUser)
			})
		})

		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			writeJSONError(w, http.StatusNotFound, "Not found")
		})
	})

	// --- Frontend ---
	if fsys := s.frontend(); fsys != nil {
		r.Get("/*", spaHandler(fsys))
	}

	s.router = r
}

// frontend picks the filesystem served at /: the configured static
// directory, else the embedded build, else nothing.
func (s *Server) frontend() fs.FS {
	if s.cfg.StaticDir != "" {
		return os.DirFS(s.cfg.StaticDir)
	}
	if !s.cfg.EnableUI {
		return nil
	}
	distFS, err := fs.Sub(ui.Dist, "dist")
	if err != nil {
		s.logger.Error("failed to create sub filesystem for UI", "error", err)
		return nil
	}
	return distFS
}

// spaHandler serves files from fsys and falls back to index.html for
// client-side routes.
func spaHandler(fsys fs.FS) http.HandlerFunc {
	fileServer := http.FileServer(http.FS(fsys))
	return func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
		if name != "" && name != "index.html" {
			if info, err := fs.Stat(fsys, name); err == nil && !info.IsDir() {
				fileServer.ServeHTTP(w, r)
				return
			}
		}

		f, err := fsys.Open("index.html")
		if err != nil {
			http.Error(w, "UI not available", http.StatusNotFound)
			return
		}
		defer f.Close()
		stat, err := f.Stat()
		rs, ok := f.(io.ReadSeeker)
		if err != nil || !ok {
			http.Error(w, "UI not available", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		http.ServeContent(w, r, "index.html", stat.ModTime(), rs)
	}
}

// handleHealth is a liveness probe. It does not touch Docker or the store.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, model.HealthResponse{Status: "ok", Service: "hostwatch"})
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.cfg.Host, fmt.Sprint(s.cfg.Port))
}

// ListenAndServe starts the HTTP server and blocks until a SIGINT or SIGTERM
// is received, then drains in-flight requests.
func (s *Server) ListenAndServe() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", s.Addr())
	if err != nil {
		return fmt.Errorf("server listen: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", ln.Addr().String(), "auth", s.guard.Enabled())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server listen: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

// Router returns the underlying Chi router, useful for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ServeHTTP implements http.Handler, delegating to the router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, model.ErrorResponse{Error: model.ErrorDetail{Code: status, Message: message}})
}
