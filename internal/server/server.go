package server

import (
	"net/http"

	"github.com/ballotbeat/backend/internal/cache"
	"github.com/ballotbeat/backend/internal/config"
	"github.com/ballotbeat/backend/internal/store"
)

// Server holds dependencies for HTTP handlers. It reads exclusively through
// the cache (latest) and the store's query surface (point-in-time); it never
// touches the scheduler or the ingestion path.
type Server struct {
	cfg   *config.Config
	cache *cache.Cache
	store store.Store
}

func New(cfg *config.Config, cache *cache.Cache, store store.Store) *Server {
	return &Server{cfg: cfg, cache: cache, store: store}
}

// Router returns the HTTP handler with all routes registered.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/results", s.handleResults)
	mux.HandleFunc("GET /api/contests/{id}", s.handleContest)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return s.corsMiddleware(mux)
}
