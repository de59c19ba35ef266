package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authgate/internal/models"
	"authgate/internal/services"
)

type fakeSessions struct {
	signUpErr  error
	signInErr  error
	signedOut  []string
	resolved   *models.SessionPayload
	lastSignUp services.SignUpInput
}

func (f *fakeSessions) signed() *services.SignedSession {
	return &services.SignedSession{
		User:    &models.User{ID: "u1", Email: "a@b.com", Role: models.RoleUser},
		Session: &models.Session{ID: "s1", UserID: "u1", ExpiresAt: time.Now().Add(time.Hour)},
		Token:   "signed-token",
	}
}

func (f *fakeSessions) SignUp(_ context.Context, in services.SignUpInput, _ services.ClientMeta) (*services.SignedSession, error) {
	f.lastSignUp = in
	if f.signUpErr != nil {
		return nil, f.signUpErr
	}
	return f.signed(), nil
}

func (f *fakeSessions) SignIn(context.Context, string, string, services.ClientMeta) (*services.SignedSession, error) {
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	return f.signed(), nil
}

func (f *fakeSessions) Resolve(context.Context, string) (*models.SessionPayload, error) {
	return f.resolved, nil
}

func (f *fakeSessions) SignOut(_ context.Context, token string) error {
	f.signedOut = append(f.signedOut, token)
	return nil
}

type recordingGate struct{ invalidated []string }

func (g *recordingGate) Invalidate(h string) { g.invalidated = append(g.invalidated, h) }

const cookieName = "authgate.session_token"

func newAuthHandler(s *fakeSessions, g *recordingGate) *AuthHandler {
	return NewAuthHandler(s, g, CookieOptions{Name: cookieName})
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == cookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", cookieName)
	return nil
}

func TestSignUpSetsCookie(t *testing.T) {
	s := &fakeSessions{}
	h := newAuthHandler(s, &recordingGate{})

	w := postJSON(h.SignUp, "/api/auth/sign-up/email", map[string]any{
		"name": "Alice", "email": " a@b.com ", "username": "@alice", "password": "Str0ng!Pass",
	})

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	c := sessionCookie(t, w)
	assert.Equal(t, "signed-token", c.Value)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, "a@b.com", s.lastSignUp.Email)
}

func TestSignUpValidation(t *testing.T) {
	h := newAuthHandler(&fakeSessions{}, &recordingGate{})

	w := postJSON(h.SignUp, "/api/auth/sign-up/email", map[string]any{
		"name": "A", "email": "a@b.com", "username": "ab", "password": "password",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	details, ok := decodeBody(t, w)["details"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, details, "name")
	assert.Contains(t, details, "username")
	assert.Contains(t, details, "password")
}

func TestSignUpDuplicate(t *testing.T) {
	h := newAuthHandler(&fakeSessions{signUpErr: services.ErrUserExists}, &recordingGate{})

	w := postJSON(h.SignUp, "/api/auth/sign-up/email", map[string]any{
		"name": "Alice", "email": "a@b.com", "username": "alice", "password": "Str0ng!Pass",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "User already exists", decodeBody(t, w)["error"])
}

func TestSignInInvalidCredentials(t *testing.T) {
	h := newAuthHandler(&fakeSessions{signInErr: services.ErrInvalidCredentials}, &recordingGate{})

	w := postJSON(h.SignIn, "/api/auth/sign-in/email", map[string]any{"email": "a@b.com", "password": "whatever"})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid email or password", decodeBody(t, w)["error"])
}

func TestSignInSuccess(t *testing.T) {
	h := newAuthHandler(&fakeSessions{}, &recordingGate{})

	w := postJSON(h.SignIn, "/api/auth/sign-in/email", map[string]any{"email": "a@b.com", "password": "whatever"})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "signed-token", sessionCookie(t, w).Value)
	assert.NotNil(t, decodeBody(t, w)["expiresAt"])
}

func TestSignOutInvalidatesGateCache(t *testing.T) {
	s := &fakeSessions{}
	g := &recordingGate{}
	h := newAuthHandler(s, g)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/sign-out", nil)
	req.Header.Set("Cookie", cookieName+"=signed-token; theme=dark")
	w := httptest.NewRecorder()
	h.SignOut(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"signed-token"}, s.signedOut)
	assert.Equal(t, []string{cookieName + "=signed-token; theme=dark"}, g.invalidated)
	assert.Equal(t, -1, sessionCookie(t, w).MaxAge)
}

func TestGetSession(t *testing.T) {
	s := &fakeSessions{}
	h := newAuthHandler(s, &recordingGate{})

	w := httptest.NewRecorder()
	h.GetSession(w, httptest.NewRequest(http.MethodGet, "/api/auth/get-session", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "null\n", w.Body.String())

	s.resolved = &models.SessionPayload{User: models.User{ID: "u1", Role: "admin"}}
	req := httptest.NewRequest(http.MethodGet, "/api/auth/get-session", nil)
	req.AddCookie(&http.Cookie{Name: cookieName, Value: "signed-token"})
	w = httptest.NewRecorder()
	h.GetSession(w, req)

	user, ok := decodeBody(t, w)["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "admin", user["role"])
}
