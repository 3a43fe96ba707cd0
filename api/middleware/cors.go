package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

var defaultCORSOrigins = []string{
	"http://localhost:3000", // local admin dashboard
}

// CORS applies the admin API's allowed origin policy. With no origins
// configured, dev allows the local dashboard and every other environment
// sends no CORS headers at all.
func CORS(origins []string, dev bool) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		if !dev {
			return func(next http.Handler) http.Handler { return next }
		}
		origins = defaultCORSOrigins
	}
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}
