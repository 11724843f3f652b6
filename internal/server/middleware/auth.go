package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/statusplay/statusplay/internal/utils/jwt"
	"github.com/statusplay/statusplay/internal/utils/response"
)

type contextKey string

const UserIDKey contextKey = "userID"

// bearerToken pulls the token out of the Authorization header. The second
// return value reports why extraction failed, for the 401 body.
func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	switch {
	case header == "":
		return "", errors.New("Authorization header required")
	case !strings.HasPrefix(header, "Bearer "):
		return "", errors.New("Invalid authorization header format")
	}

	token := strings.TrimPrefix(header, "Bearer ")
	if token == "" {
		return "", errors.New("Token not provided")
	}
	return token, nil
}

// AuthMiddleware rejects requests without a valid bearer token and stores
// the token's subject in the request context under UserIDKey.
func AuthMiddleware(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r)
			if err != nil {
				response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(err))
				return
			}

			userID, err := jwt.ExtractUserIDFromToken(token, jwtSecret)
			if err != nil {
				response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(
					errors.New("Invalid token")))
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserIDFromContext returns the authenticated user ID, if any.
func GetUserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok
}
