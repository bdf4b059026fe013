package server

import (
	"net/http"
	"strings"
)

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		w.Header().Set("Access-Control-Allow-Origin", s.allowedOrigin(origin))
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) allowedOrigin(origin string) string {
	// No configured origins means a public read-only API.
	if len(s.cfg.AllowedOrigins) == 0 {
		return "*"
	}
	if origin == "" {
		return s.cfg.AllowedOrigins[0]
	}

	for _, allowed := range s.cfg.AllowedOrigins {
		if origin == allowed {
			return origin
		}
	}

	// Allow localhost for development
	if strings.HasPrefix(origin, "http://localhost") {
		return origin
	}

	return s.cfg.AllowedOrigins[0]
}
