package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/wkmcp/internal/models"
	"golang.org/x/time/rate"
)

type contextKey string

const userContextKey contextKey = "user"

// UserFromContext returns the authenticated user attached by [AuthMiddleware].
func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(userContextKey).(*models.User)
	return user, ok
}

// verifier resolves a presented API key to a user.
type verifier interface {
	Verify(apiKey string) (*models.User, error)
}

// AuthMiddleware enforces bearer-token authentication with a locally issued
// key and stores the resolved user on the request context.
func AuthMiddleware(v verifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				http.Error(w, "Missing bearer token", http.StatusUnauthorized)
				return
			}

			user, err := v.Verify(token)
			if err != nil {
				http.Error(w, "Invalid API key", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userContextKey, user)))
		})
	}
}

// ThrottleMiddleware bounds a route with a shared token bucket. Requests over
// budget get 429 rather than queueing.
func ThrottleMiddleware(limiter *rate.Limiter) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				http.Error(w, "Too many requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// LoggingMiddleware logs one line per request.
func LoggingMiddleware(logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Debug("request", "method", r.Method, "path", r.URL.Path, "elapsed", time.Since(start))
		})
	}
}
