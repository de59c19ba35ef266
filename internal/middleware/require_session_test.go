package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"authgate/internal/models"
)

type tokenMap map[string]*models.SessionPayload

func (m tokenMap) Resolve(_ context.Context, token string) (*models.SessionPayload, error) {
	return m[token], nil
}

func TestRequireSession(t *testing.T) {
	resolver := tokenMap{"good": sessionWithRole("user")}
	h := RequireSession(resolver, "sid")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, ok := SessionFromContext(r.Context())
		if !ok {
			w.WriteHeader(http.StatusTeapot)
			return
		}
		_, _ = w.Write([]byte(s.User.ID))
	}))

	tests := []struct {
		name   string
		setup  func(r *http.Request)
		status int
	}{
		{name: "cookie", setup: func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "sid", Value: "good"}) }, status: http.StatusOK},
		{name: "bearer", setup: func(r *http.Request) { r.Header.Set("Authorization", "Bearer good") }, status: http.StatusOK},
		{name: "unknown token", setup: func(r *http.Request) { r.Header.Set("Authorization", "Bearer bad") }, status: http.StatusUnauthorized},
		{name: "missing", setup: func(r *http.Request) {}, status: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.setup(req)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}
