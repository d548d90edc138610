// v0
// internal/api/router.go
package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"it.uniroma2.dicii/nrg-champ/footfall/internal/metrics"
)

// NewRouter registers the generator routes; every route except /metrics is
// instrumented.
func NewRouter(s *Server, m *metrics.Metrics) *mux.Router {
	r := mux.NewRouter()

	r.Handle("/health", m.WrapHandler("/health", http.HandlerFunc(s.health))).Methods(http.MethodGet)
	r.Handle("/generate", m.WrapHandler("/generate", http.HandlerFunc(s.generate))).Methods(http.MethodPost)
	r.Handle("/windows", m.WrapHandler("/windows", http.HandlerFunc(s.windows))).Methods(http.MethodGet)
	r.Handle("/metrics", m.Handler()).Methods(http.MethodGet)

	return r
}
