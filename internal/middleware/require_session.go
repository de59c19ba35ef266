package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"authgate/internal/models"
)

type ctxKey string

const ctxSession ctxKey = "session"

// TokenResolver turns a session cookie value into a live session.
type TokenResolver interface {
	Resolve(ctx context.Context, token string) (*models.SessionPayload, error)
}

// RequireSession reads the session token from the named cookie, or from a
// Bearer Authorization header, and rejects requests without a live session.
func RequireSession(resolver TokenResolver, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := sessionToken(r, cookieName)
			if token == "" {
				writeJSONError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			session, err := resolver.Resolve(r.Context(), token)
			if err != nil {
				zap.L().Error("Failed to resolve session", zap.Error(err))
				writeJSONError(w, http.StatusInternalServerError, "Error processing request")
				return
			}
			if session == nil {
				writeJSONError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			ctx := context.WithValue(r.Context(), ctxSession, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func SessionFromContext(ctx context.Context) (*models.SessionPayload, bool) {
	s, ok := ctx.Value(ctxSession).(*models.SessionPayload)
	return s, ok && s != nil
}

// WithSession returns a copy of ctx carrying session.
func WithSession(ctx context.Context, session *models.SessionPayload) context.Context {
	return context.WithValue(ctx, ctxSession, session)
}

func sessionToken(r *http.Request, cookieName string) string {
	if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
		return c.Value
	}
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": message})
}
