package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"bloom-backend/internal/identity"
)

const (
	msgMissingHeader = "Authorization header required"
	msgBadScheme     = "Invalid authorization header format"
)

var errMissingToken = errors.New("token required")

// TokenValidator resolves a bearer token to a user ID
type TokenValidator interface {
	ValidateJWT(ctx context.Context, token string) (string, error)
}

// bearerToken extracts the token from an "Authorization: Bearer <token>" header.
// On failure it returns the message to send back instead.
func bearerToken(header string) (token, problem string) {
	if header == "" {
		return "", msgMissingHeader
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" || strings.Contains(token, " ") {
		return "", msgBadScheme
	}
	return token, ""
}

// AuthMiddleware rejects requests without a valid bearer token and stores the
// caller's user ID in the request context for identity.Resolver.
func AuthMiddleware(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, problem := bearerToken(r.Header.Get("Authorization"))
			if problem != "" {
				respondError(w, problem, http.StatusUnauthorized)
				return
			}

			userID, err := validator.ValidateJWT(r.Context(), token)
			if err != nil {
				respondError(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(identity.WithUserID(r.Context(), userID)))
		})
	}
}

func respondError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// ValidateWebSocketToken validates the token passed in the WebSocket query string,
// since browsers cannot set headers on the upgrade request.
func ValidateWebSocketToken(ctx context.Context, token string, validator TokenValidator) (string, error) {
	if token == "" {
		return "", errMissingToken
	}
	return validator.ValidateJWT(ctx, token)
}
