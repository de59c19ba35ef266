package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authgate/internal/repository"
	"authgate/internal/services"
)

type noopMailer struct{ sent int }

func (n *noopMailer) Send(context.Context, services.Message) error {
	n.sent++
	return nil
}

type fastHasher struct{}

func (fastHasher) Hash(p string) (string, error) { return "h:" + p, nil }
func (fastHasher) Compare(h, p string) error    { return nil }

func newPasswordHandler(t *testing.T) (*PasswordHandler, sqlmock.Sqlmock, *noopMailer) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mailer := &noopMailer{}
	svc := services.NewPasswordResetService(repository.NewStore(db), fastHasher{}, mailer, "http://app", 24*time.Hour)
	return NewPasswordHandler(svc), mock, mailer
}

func postJSON(h http.HandlerFunc, path string, body any) *httptest.ResponseRecorder {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	w := httptest.NewRecorder()
	h(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

var userRowCols = []string{"id", "name", "email", "username", "email_verified", "image", "role", "created_at", "updated_at"}

func TestForgotPasswordSameAnswerForKnownAndUnknownEmails(t *testing.T) {
	h, mock, mailer := newPasswordHandler(t)
	now := time.Now().UTC()

	mock.ExpectQuery("FROM users").
		WithArgs("nobody@b.com").
		WillReturnRows(sqlmock.NewRows(userRowCols))

	mock.ExpectQuery("FROM users").
		WithArgs("a@b.com").
		WillReturnRows(sqlmock.NewRows(userRowCols).AddRow("u1", "A", "a@b.com", "alice", true, "", "user", now, now))
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM verifications").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO verifications").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	unknown := postJSON(h.ForgotPassword, "/api/auth/forget-password", map[string]any{"email": "nobody@b.com"})
	known := postJSON(h.ForgotPassword, "/api/auth/forget-password", map[string]any{"email": "a@b.com"})

	assert.Equal(t, http.StatusOK, unknown.Code)
	assert.Equal(t, http.StatusOK, known.Code)
	assert.Equal(t, unknown.Body.String(), known.Body.String())
	assert.Equal(t, "Reset email sent successfully", decodeBody(t, known)["message"])
	assert.Equal(t, 1, mailer.sent)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestForgotPasswordRejectsBadEmail(t *testing.T) {
	h, mock, _ := newPasswordHandler(t)

	w := postJSON(h.ForgotPassword, "/api/auth/forget-password", map[string]any{"email": "not-an-email"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid email address", decodeBody(t, w)["error"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestForgotPasswordDatabaseFailure(t *testing.T) {
	h, mock, _ := newPasswordHandler(t)

	mock.ExpectQuery("FROM users").WillReturnError(assert.AnError)

	w := postJSON(h.ForgotPassword, "/api/auth/forget-password", map[string]any{"email": "a@b.com"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Error processing request", decodeBody(t, w)["error"])
}

func TestResetPasswordRejectsWeakPassword(t *testing.T) {
	h, mock, _ := newPasswordHandler(t)

	w := postJSON(h.ResetPassword, "/api/auth/reset-password", map[string]any{"token": "abcd", "password": "password"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeBody(t, w)
	assert.Equal(t, "Invalid password format", resp["error"])
	details, ok := resp["details"].(map[string]any)
	require.True(t, ok, "details missing: %v", resp)
	assert.Contains(t, details["password"], "uppercase")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResetPasswordRejectsPasswordOverBcryptLimit(t *testing.T) {
	h, mock, _ := newPasswordHandler(t)

	// 72 characters but 140 bytes.
	password := "Aa1!" + strings.Repeat("é", 68)
	w := postJSON(h.ResetPassword, "/api/auth/reset-password", map[string]any{"token": "abcd", "password": password})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeBody(t, w)
	assert.Equal(t, "Invalid password format", resp["error"])
	details, ok := resp["details"].(map[string]any)
	require.True(t, ok, "details missing: %v", resp)
	assert.Contains(t, details["password"], "72 bytes")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResetPasswordConfirmMismatch(t *testing.T) {
	h, _, _ := newPasswordHandler(t)

	w := postJSON(h.ResetPassword, "/api/auth/reset-password", map[string]any{
		"token": "abcd", "password": "Str0ng!Pass", "confirmPassword": "Str0ng!Pas",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestResetPasswordInvalidToken(t *testing.T) {
	h, mock, _ := newPasswordHandler(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM verifications").WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	w := postJSON(h.ResetPassword, "/api/auth/reset-password", map[string]any{"token": "abcd", "password": "Str0ng!Pass"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid or expired reset token", decodeBody(t, w)["error"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResetPasswordSuccess(t *testing.T) {
	h, mock, _ := newPasswordHandler(t)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM verifications").
		WillReturnRows(sqlmock.NewRows([]string{"id", "identifier", "purpose", "value", "expires_at", "created_at"}).
			AddRow("v1", "u1", "reset-password", services.HashToken("abcd"), now.Add(time.Hour), now))
	mock.ExpectExec("INSERT INTO accounts").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM verifications").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM sessions").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	w := postJSON(h.ResetPassword, "/api/auth/reset-password", map[string]any{"token": "abcd", "password": "Str0ng!Pass"})

	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Password changed successfully", decodeBody(t, w)["message"])
	require.NoError(t, mock.ExpectationsWereMet())
}
