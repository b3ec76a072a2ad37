// Package middleware holds the HTTP middleware shared by the relay's routes.
package middleware

import (
	"net/http"
	"slices"
)

// CORS lets browser clients on the allowed origins read the history
// endpoints. An allowed entry of "*" matches any origin.
type CORS struct {
	allowed []string
}

func NewCORS(allowedOrigins []string) *CORS {
	return &CORS{allowed: allowedOrigins}
}

func (c *CORS) allows(origin string) bool {
	return slices.Contains(c.allowed, "*") || slices.Contains(c.allowed, origin)
}

func (c *CORS) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && c.allows(origin) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Add("Vary", "Origin")
			h.Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept")
		}

		// Preflight
		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
