package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"authgate/internal/models"
	"authgate/internal/services"
	"authgate/internal/validation"
)

type EmailVerifier interface {
	SendVerification(ctx context.Context, email string) error
	Verify(ctx context.Context, token string) error
}

type VerificationHandler struct {
	verifier EmailVerifier
	v        *validator.Validate
}

func NewVerificationHandler(verifier EmailVerifier) *VerificationHandler {
	return &VerificationHandler{verifier: verifier, v: validation.New()}
}

// @Tags Auth
// @Summary Resend the email verification link
// @Accept json
// @Produce json
// @Param request body models.ResendVerificationRequest true "Account email"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 429 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/auth/resend-verification-email [post]
func (h *VerificationHandler) Resend(w http.ResponseWriter, r *http.Request) {
	var req models.ResendVerificationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid email address")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if err := h.v.Struct(req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid email address")
		return
	}

	if err := h.verifier.SendVerification(r.Context(), req.Email); err != nil {
		writeInternalError(w, r, "Verification email failed", err)
		return
	}
	writeJSONMessage(w, http.StatusOK, "If the account exists, a verification email has been sent")
}

// @Tags Auth
// @Summary Verify an email address
// @Produce json
// @Param token query string true "Verification token"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/auth/verify-email [get]
func (h *VerificationHandler) Verify(w http.ResponseWriter, r *http.Request) {
	err := h.verifier.Verify(r.Context(), strings.TrimSpace(r.URL.Query().Get("token")))
	if errors.Is(err, services.ErrInvalidOrExpiredToken) {
		writeJSONError(w, http.StatusBadRequest, "Invalid or expired verification token")
		return
	}
	if err != nil {
		writeInternalError(w, r, "Email verification failed", err)
		return
	}
	writeJSONMessage(w, http.StatusOK, "Email verified successfully")
}
