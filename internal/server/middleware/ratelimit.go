package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/statusplay/statusplay/internal/server/ratelimit"
	"github.com/statusplay/statusplay/internal/utils/response"
)

// RateLimit guards an interaction endpoint with the shared limiter.
// Assumes AuthMiddleware ran first.
func RateLimit(limiter *ratelimit.Limiter, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := GetUserIDFromContext(r.Context())
			if !ok {
				response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(
					errors.New("user not authenticated")))
				return
			}

			allowed, err := limiter.Allow(r.Context(), userID, action)
			if err != nil {
				response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(
					fmt.Errorf("rate limit check failed: %w", err)))
				return
			}

			if !allowed {
				w.Header().Set("X-RateLimit-Reset", "60")
				response.WriteJSON(w, http.StatusTooManyRequests, response.GeneralError(
					errors.New("rate limit exceeded")))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitedHandler wraps a handler with rate limiting for a specific action
func RateLimitedHandler(limiter *ratelimit.Limiter, action string, handler http.HandlerFunc) http.Handler {
	return RateLimit(limiter, action)(http.HandlerFunc(handler))
}
