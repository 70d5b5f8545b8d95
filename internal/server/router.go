package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	reqid "github.com/hanpama/feedgraph/internal/reqid"
)

// Routes are the handlers mounted by NewRouter. Metrics is optional.
type Routes struct {
	GraphQL http.Handler
	Metrics http.Handler

	// CORSOrigins enables CORS for the listed origins. "*" allows any.
	CORSOrigins []string
}

// NewRouter mounts the GraphQL endpoint at /graphql, metrics at /metrics and
// a liveness probe at /healthz.
func NewRouter(rt Routes) http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)

	if len(rt.CORSOrigins) > 0 {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins: rt.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", reqid.Header},
			ExposedHeaders: []string{reqid.Header},
			MaxAge:         300,
		}))
	}

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})
	router.Handle("/graphql", rt.GraphQL)
	if rt.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", rt.Metrics)
	}
	return router
}
