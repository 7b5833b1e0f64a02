// Package api provides the read-only observability HTTP API for
// refda-agent: health, counters, and namespace introspection. ARI exchange
// itself never goes through HTTP; it uses the transports in pkg/transport.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/jhuapl-dtnma/refda-go/internal/config"
	"github.com/jhuapl-dtnma/refda-go/pkg/agent"
)

// Server represents the observability API server.
type Server struct {
	cfg    *config.Config
	agent  *agent.Agent
	router chi.Router
}

// NewServer creates a new observability API server over the given agent.
func NewServer(cfg *config.Config, a *agent.Agent) *Server {
	s := &Server{cfg: cfg, agent: a}
	s.setupRouter()
	return s
}

// setupRouter configures all routes.
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * 1000000000)) // 60 seconds

	if s.cfg.Security.CORSEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.cfg.API.AllowedOrigins,
			AllowedMethods:   []string{"GET", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	if s.cfg.API.APIKey != "" {
		r.Use(s.apiKeyAuth)
	}

	r.Get("/healthz", s.handleHealth)
	r.Get("/version", s.handleVersion)
	r.Get("/metrics", s.handleCounters)
	r.Get("/namespaces", s.handleListNamespaces)
	r.Get("/namespaces/{org}/{model}", s.handleGetNamespace)
	r.Get("/alarms", s.handleListAlarms)

	s.router = r
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// apiKeyAuth is middleware that validates the observability API key.
func (s *Server) apiKeyAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" {
			next.ServeHTTP(w, r)
			return
		}

		apiKey := r.Header.Get("X-API-Key")
		if apiKey == "" {
			apiKey = r.URL.Query().Get("api_key")
		}

		if apiKey != s.cfg.API.APIKey {
			writeError(w, http.StatusUnauthorized, "Invalid or missing API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}
