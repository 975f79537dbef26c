package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// RouterOptions lists the handlers mounted by NewRouter.
type RouterOptions struct {
	// GraphQL serves /graphql.
	GraphQL http.Handler
	// Metrics serves /metrics when set.
	Metrics http.Handler
	// Ready reports readiness on /healthz. Nil is always ready.
	Ready func() error
}

// NewRouter mounts the GraphQL endpoint, metrics and the health check.
func NewRouter(opts RouterOptions) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Handle("/graphql", opts.GraphQL)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if opts.Ready != nil {
			if err := opts.Ready(); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()}, false)
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}, false)
	})
	return r
}
