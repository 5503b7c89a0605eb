// Package httpapi implements spec.md §6.1's HTTP surface: plan+search,
// the SSE answer stream, user-event ingestion, and preference
// inspection/reset. Grounded on the teacher's chassis.NewServer chi
// wiring (middleware.Logger, Recoverer, RequestID on every route),
// adapted from a QUIC/HTTP3 service registry into a plain net/http
// router since this domain has no MCP/QUIC surface to serve.
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/lucenthq/lucent/internal/eventstore"
	"github.com/lucenthq/lucent/internal/pipeline"
)

// buildInfo is threaded into /health the way observability.heartbeat.go
// reports worker identity in the teacher's pack.
var buildInfo = "dev"

// SetBuildInfo overrides the version string /health reports.
func SetBuildInfo(v string) {
	if v != "" {
		buildInfo = v
	}
}

// API wires the pipeline and event store to HTTP handlers.
type API struct {
	pipeline *pipeline.Pipeline
	store    eventstore.Store
	logger   *slog.Logger
}

// New creates an API.
func New(p *pipeline.Pipeline, store eventstore.Store, logger *slog.Logger) *API {
	if logger == nil {
		logger = slog.Default()
	}
	return &API{pipeline: p, store: store, logger: logger}
}

// Router builds the chi router for every route in spec.md §6.1.
// webOrigin configures the CORS allow-origin for browser clients.
func (a *API) Router(webOrigin string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders)
	r.Use(maxBody)
	r.Use(corsMiddleware(webOrigin))

	r.Get("/health", a.handleHealth)
	r.Get("/api/search", a.handleSearch)
	r.Post("/api/answer", a.handleAnswer)
	r.Post("/api/events", a.handleEventsPost)
	r.Get("/api/events", a.handleEventsGet)
	r.Get("/api/preferences", a.handlePreferences)
	r.Delete("/api/preferences", a.handlePreferencesDelete)

	return r
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":        true,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   buildInfo,
	})
}

// corsMiddleware allows one configured origin, matching spec.md §6.3's
// single WEB_ORIGIN setting; no third-party CORS library appears anywhere
// in the example pack, so this is a deliberately small stdlib handler
// rather than a dependency reach.
func corsMiddleware(origin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
