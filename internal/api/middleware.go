package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"metals-dashboard/internal/auth"
)

type contextKey string

const userIDKey contextKey = "user_id"

// requireAuth validates the bearer token before any handler runs. Requests
// without a valid session are rejected here and never reach the data stores.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			http.Error(w, "missing session token", http.StatusUnauthorized)
			return
		}

		userID, err := h.sessions.Validate(token)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrSessionExpired):
				http.Error(w, "session expired", http.StatusUnauthorized)
			case errors.Is(err, auth.ErrSessionNotFound):
				http.Error(w, "invalid session token", http.StatusUnauthorized)
			default:
				h.log.Error("session validation failed", zap.Error(err))
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

func userIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}
