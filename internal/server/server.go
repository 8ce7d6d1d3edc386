// Package server is the thin HTTP shell around the fetch pipeline: route
// registration, CORS, JSON framing, and error-kind to status mapping.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/Prem-080/cgpa-fetcher/internal/app"
	"github.com/Prem-080/cgpa-fetcher/internal/fetcher"
)

// GradeFetcher is the core the HTTP layer delegates to. An interface so
// handler tests run against a fake.
type GradeFetcher interface {
	Fetch(ctx context.Context, roll, term string) (*fetcher.Result, error)
}

// Server wraps the HTTP listener and routes.
type Server struct {
	httpServer *http.Server
	handler    *handler
}

// New builds the server around the given fetcher.
func New(cfg app.ServerConfig, f GradeFetcher) *Server {
	h := &handler{fetcher: f, startedAt: time.Now()}

	r := mux.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(corsMiddleware(cfg.AllowedOrigins))

	r.HandleFunc("/", h.index).Methods(http.MethodGet)
	r.HandleFunc("/health", h.health).Methods(http.MethodGet)
	r.HandleFunc("/fetch-grade", h.fetchGrade).Methods(http.MethodPost, http.MethodOptions)

	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.Addr,
			Handler:      r,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		handler: h,
	}
}

// ListenAndServe blocks serving requests until Shutdown or a listener error.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests within ctx's deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Router exposes the route tree for tests.
func (s *Server) Router() http.Handler {
	return s.httpServer.Handler
}

type ctxKey string

// requestIDKey carries the per-request correlation ID.
const requestIDKey ctxKey = "request-id"

// requestIDMiddleware tags each request with a correlation ID, echoed back in
// the X-Request-ID header and attached to log lines.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

// corsMiddleware allows the configured origins; requests without an Origin
// header (curl, health probes) pass through untouched.
func corsMiddleware(allowed []string) mux.MiddlewareFunc {
	allowedSet := make(map[string]bool, len(allowed))
	for _, origin := range allowed {
		allowedSet[origin] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if origin := r.Header.Get("Origin"); origin != "" && allowedSet[origin] {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
