// Package admin exposes the agent's operations to the control panel over a
// local HTTP API. Every response uses the same envelope, so panel plugins
// can check a single ok flag instead of parsing per-endpoint shapes.
package admin

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	errors "github.com/veloserve/veloctl/internal/errors"
	"github.com/veloserve/veloctl/internal/logger"
)

const (
	defaultAddr            = "127.0.0.1:8572"
	defaultRequestTimeout  = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second
)

// Options configures the admin API server.
type Options struct {
	// Addr is the listen address. The API carries no transport security
	// of its own, so anything beyond localhost should sit behind a proxy.
	Addr string

	// Token, when set, is required as a bearer token on every /api/v1
	// request. The health endpoint stays open for probes.
	Token string

	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// Server is the admin API HTTP server.
type Server struct {
	opts Options
	srv  *http.Server
	log  logger.Logger
}

// NewServer assembles the middleware stack and route tree around rt.
func NewServer(opts Options, rt *Routes, log logger.Logger) *Server {
	if opts.Addr == "" {
		opts.Addr = defaultAddr
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = defaultShutdownTimeout
	}
	if log == nil {
		log = logger.NilLogger{}
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(opts.RequestTimeout))
	router.Use(requestLogger(log))

	router.Get("/health", rt.health)
	router.Route("/api/v1", func(api chi.Router) {
		if opts.Token != "" {
			api.Use(bearerAuth(opts.Token))
		}
		api.Mount("/", rt.Router())
	})

	return &Server{
		opts: opts,
		srv: &http.Server{
			Addr:         opts.Addr,
			Handler:      router,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: opts.RequestTimeout,
			IdleTimeout:  120 * time.Second,
		},
		log: log,
	}
}

// Handler returns the assembled route tree.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	serveErr := make(chan error, 1)
	go func() {
		s.log.Info("admin api listening on %s", s.opts.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return errors.IO("admin api server failed", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return errors.IO("admin api shutdown failed", err)
	}
	s.log.Info("admin api stopped")
	return nil
}

// requestLogger logs one line per request at debug level.
func requestLogger(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			log.Debug("http %s %s %d %s %s",
				r.Method,
				r.URL.Path,
				ww.Status(),
				time.Since(start),
				middleware.GetReqID(r.Context()),
			)
		})
	}
}

// bearerAuth rejects requests that do not carry the configured token.
func bearerAuth(token string) func(http.Handler) http.Handler {
	want := []byte("Bearer " + token)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := []byte(r.Header.Get("Authorization"))
			if subtle.ConstantTimeCompare(got, want) != 1 {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(Response{
					OK:    false,
					Error: &ErrorBody{Code: string(errors.ErrCodePermission), Message: "invalid or missing bearer token"},
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
