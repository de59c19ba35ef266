package handlers

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"authgate/internal/middleware"
	"authgate/internal/models"
	"authgate/internal/services"
	"authgate/internal/validation"
)

type SessionManager interface {
	SignUp(ctx context.Context, in services.SignUpInput, meta services.ClientMeta) (*services.SignedSession, error)
	SignIn(ctx context.Context, email, password string, meta services.ClientMeta) (*services.SignedSession, error)
	Resolve(ctx context.Context, token string) (*models.SessionPayload, error)
	SignOut(ctx context.Context, token string) error
}

// SessionInvalidator drops the gate's cached resolution of a Cookie header.
type SessionInvalidator interface {
	Invalidate(cookieHeader string)
}

type CookieOptions struct {
	Name   string
	Secure bool
}

type AuthHandler struct {
	sessions SessionManager
	gate     SessionInvalidator
	cookie   CookieOptions
	v        *validator.Validate
}

func NewAuthHandler(sessions SessionManager, gate SessionInvalidator, cookie CookieOptions) *AuthHandler {
	return &AuthHandler{
		sessions: sessions,
		gate:     gate,
		cookie:   cookie,
		v:        validation.New(),
	}
}

// @Tags Auth
// @Summary Sign up with email and password
// @Accept json
// @Produce json
// @Param request body models.SignUpRequest true "New account"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/auth/sign-up/email [post]
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req models.SignUpRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if err := h.v.Struct(req); err != nil {
		details := validation.FieldErrors(err)
		if issues := validation.PasswordIssues(req.Password); len(issues) > 0 && validation.HasField(err, "password") {
			details["password"] = strings.Join(issues, " ")
		}
		writeValidationError(w, "Invalid input", details)
		return
	}

	signed, err := h.sessions.SignUp(r.Context(), services.SignUpInput{
		Name:     req.Name,
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
		Image:    req.Image,
	}, clientMeta(r))
	if errors.Is(err, services.ErrUserExists) {
		writeJSONError(w, http.StatusBadRequest, "User already exists")
		return
	}
	if err != nil {
		writeInternalError(w, r, "Sign up failed", err)
		return
	}

	h.setSessionCookie(w, signed.Token, signed.Session.ExpiresAt)
	writeJSON(w, http.StatusCreated, map[string]any{"user": signed.User})
}

// @Tags Auth
// @Summary Sign in with email and password
// @Accept json
// @Produce json
// @Param request body models.SignInRequest true "Credentials"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/auth/sign-in/email [post]
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req models.SignInRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if err := h.v.Struct(req); err != nil {
		writeValidationError(w, "Invalid input", validation.FieldErrors(err))
		return
	}

	signed, err := h.sessions.SignIn(r.Context(), req.Email, req.Password, clientMeta(r))
	if errors.Is(err, services.ErrInvalidCredentials) {
		writeJSONError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	if err != nil {
		writeInternalError(w, r, "Sign in failed", err)
		return
	}

	// A cached "no session" for the old cookie must not outlive the sign-in.
	h.gate.Invalidate(middleware.CookieHeader(r))
	h.setSessionCookie(w, signed.Token, signed.Session.ExpiresAt)
	writeJSON(w, http.StatusOK, map[string]any{
		"user":      signed.User,
		"expiresAt": signed.Session.ExpiresAt,
	})
}

// @Tags Auth
// @Summary Sign out
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/auth/sign-out [post]
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(h.cookie.Name); err == nil && c.Value != "" {
		if err := h.sessions.SignOut(r.Context(), c.Value); err != nil {
			writeInternalError(w, r, "Sign out failed", err)
			return
		}
	}

	h.gate.Invalidate(middleware.CookieHeader(r))
	h.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// @Tags Auth
// @Summary Resolve the caller's session
// @Description Returns the session and user behind the session cookie, or null.
// @Produce json
// @Success 200 {object} models.SessionPayload
// @Failure 500 {object} map[string]interface{}
// @Router /api/auth/get-session [get]
func (h *AuthHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	var session *models.SessionPayload
	if c, err := r.Cookie(h.cookie.Name); err == nil && c.Value != "" {
		session, err = h.sessions.Resolve(r.Context(), c.Value)
		if err != nil {
			writeInternalError(w, r, "Session lookup failed", err)
			return
		}
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, session)
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func clientMeta(r *http.Request) services.ClientMeta {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	return services.ClientMeta{IPAddress: ip, UserAgent: r.UserAgent()}
}
