package stubapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

type contextKey struct{}

// ErrNoUserInContext is returned when no user is found in context
var ErrNoUserInContext = errors.New("no authenticated user in context")

// UsernameFromContext returns the subject put in context by the auth middleware.
func UsernameFromContext(ctx context.Context) (string, error) {
	username, ok := ctx.Value(contextKey{}).(string)
	if !ok || username == "" {
		return "", ErrNoUserInContext
	}
	return username, nil
}

// AuthMiddleware validates the bearer token of protected routes (stateless).
func (h *Handler) AuthMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := extractBearer(r)
			if raw == "" {
				writeUnauthorized(w, "Not authenticated")
				return
			}

			username, err := h.tokens.Verify(raw)
			if err != nil {
				h.logger.Info("rejected bearer token", "error", err, "request_id", r.Header.Get("X-Request-ID"))
				writeUnauthorized(w, "Could not validate credentials")
				return
			}

			ctx := context.WithValue(r.Context(), contextKey{}, username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractBearer extracts the token from an "Authorization: Bearer <token>" header
func extractBearer(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

func writeUnauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeJSON(w, http.StatusUnauthorized, ErrorResponse{Detail: detail})
}
