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

type PasswordResetter interface {
	RequestReset(ctx context.Context, email string) error
	RedeemReset(ctx context.Context, token, newPassword string) error
}

type PasswordHandler struct {
	resets PasswordResetter
	v      *validator.Validate
}

func NewPasswordHandler(resets PasswordResetter) *PasswordHandler {
	return &PasswordHandler{resets: resets, v: validation.New()}
}

// @Tags Auth
// @Summary Request a password reset email
// @Description Always answers with the same message whether or not the email belongs to an account.
// @Accept json
// @Produce json
// @Param request body models.ForgotPasswordRequest true "Account email"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 429 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/auth/forget-password [post]
func (h *PasswordHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req models.ForgotPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid email address")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if err := h.v.Struct(req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid email address")
		return
	}

	if err := h.resets.RequestReset(r.Context(), req.Email); err != nil {
		writeInternalError(w, r, "Password reset request failed", err)
		return
	}

	writeJSONMessage(w, http.StatusOK, "Reset email sent successfully")
}

// @Tags Auth
// @Summary Set a new password with a reset token
// @Accept json
// @Produce json
// @Param request body models.ResetPasswordRequest true "Reset token and new password"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/auth/reset-password [post]
func (h *PasswordHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req models.ResetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid password format")
		return
	}
	if err := h.v.Struct(req); err != nil {
		details := validation.FieldErrors(err)
		if issues := validation.PasswordIssues(req.Password); len(issues) > 0 && validation.HasField(err, "password") {
			details["password"] = strings.Join(issues, " ")
		}
		writeValidationError(w, "Invalid password format", details)
		return
	}

	err := h.resets.RedeemReset(r.Context(), strings.TrimSpace(req.Token), req.Password)
	if errors.Is(err, services.ErrInvalidOrExpiredToken) {
		writeJSONError(w, http.StatusBadRequest, "Invalid or expired reset token")
		return
	}
	if err != nil {
		writeInternalError(w, r, "Password reset failed", err)
		return
	}

	writeJSONMessage(w, http.StatusOK, "Password changed successfully")
}
