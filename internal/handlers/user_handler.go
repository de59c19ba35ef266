package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"authgate/internal/middleware"
	"authgate/internal/models"
	"authgate/internal/services"
	"authgate/internal/validation"
)

type UsernameChecker interface {
	UsernameExists(ctx context.Context, username string) (bool, error)
}

type AvatarUploader interface {
	Upload(ctx context.Context, userID string, r io.Reader) (string, error)
}

type UserHandler struct {
	users    UsernameChecker
	avatars  AvatarUploader
	maxBytes int64
}

func NewUserHandler(users UsernameChecker, avatars AvatarUploader, maxBytes int64) *UserHandler {
	return &UserHandler{users: users, avatars: avatars, maxBytes: maxBytes}
}

// @Tags Account
// @Summary Check whether a username is free
// @Produce json
// @Param username query string true "Username, an optional leading @ is ignored"
// @Success 200 {object} models.UsernameAvailability
// @Failure 400 {object} models.UsernameAvailability
// @Failure 500 {object} models.UsernameAvailability
// @Router /api/check-username [get]
func (h *UserHandler) CheckUsername(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("username")
	if raw == "" {
		writeJSON(w, http.StatusBadRequest, models.UsernameAvailability{Message: "Username is required"})
		return
	}
	if !validation.ValidUsername(raw) {
		writeJSON(w, http.StatusBadRequest, models.UsernameAvailability{
			Message: "Username must be 4-20 characters of letters, numbers, underscores or dots",
		})
		return
	}

	exists, err := h.users.UsernameExists(r.Context(), validation.NormalizeUsername(raw))
	if err != nil {
		zap.L().Error("Username check failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, models.UsernameAvailability{
			Message: "An error occurred while checking username",
		})
		return
	}

	resp := models.UsernameAvailability{IsAvailable: !exists, Message: "Username is available"}
	if exists {
		resp.Message = "Username is already taken"
	}
	writeJSON(w, http.StatusOK, resp)
}

// @Tags Account
// @Summary Upload the caller's avatar
// @Accept multipart/form-data
// @Produce json
// @Param image formData file true "PNG, JPEG, WebP or GIF image"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Failure 413 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/user/avatar [post]
func (h *UserHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	// Leave room for the multipart envelope around the file.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+64<<10)
	file, _, err := r.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSONError(w, http.StatusRequestEntityTooLarge, "Image too large")
			return
		}
		writeJSONError(w, http.StatusBadRequest, "Image file is required")
		return
	}
	defer file.Close()

	url, err := h.avatars.Upload(r.Context(), session.User.ID, file)
	switch {
	case errors.Is(err, services.ErrStorageDisabled):
		writeJSONError(w, http.StatusServiceUnavailable, "Avatar uploads are not available")
	case errors.Is(err, services.ErrImageTooLarge):
		writeJSONError(w, http.StatusRequestEntityTooLarge, "Image too large")
	case errors.Is(err, services.ErrUnsupportedImage):
		writeJSONError(w, http.StatusBadRequest, "Unsupported image type")
	case err != nil:
		writeInternalError(w, r, "Avatar upload failed", err)
	default:
		writeJSON(w, http.StatusOK, map[string]any{"image": url})
	}
}
