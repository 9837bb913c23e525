package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"
)

var devCORSOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
	"http://127.0.0.1:3000",
}

// CORS allows the storefront origin, plus local dev servers outside prod.
func CORS(siteURL string, allowDev bool) func(http.Handler) http.Handler {
	origins := []string{}
	if site := strings.TrimRight(strings.TrimSpace(siteURL), "/"); site != "" {
		origins = append(origins, site)
	}
	if allowDev {
		origins = append(origins, devCORSOrigins...)
	}
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Requested-With", "X-Voter-Fingerprint"},
		ExposedHeaders:   []string{requestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}
