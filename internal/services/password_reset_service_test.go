package services

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authgate/internal/models"
)

type recordingRevoker struct{ users []string }

func (r *recordingRevoker) RevokeUser(id string) { r.users = append(r.users, id) }

func expectUserByEmail(mock sqlmock.Sqlmock, email string, verified bool) {
	now := time.Now().UTC()
	mock.ExpectQuery("FROM users").
		WithArgs(email).
		WillReturnRows(sqlmock.NewRows(userCols).AddRow("u1", "Alice", email, "alice", verified, "", "user", now, now))
}

func TestRequestResetUnknownEmailIsSilent(t *testing.T) {
	store, mock := newMockStore(t)
	mailer := &recordingMailer{}
	svc := NewPasswordResetService(store, plainHasher{}, mailer, "http://app", 24*time.Hour)

	mock.ExpectQuery("FROM users").
		WithArgs("nobody@b.com").
		WillReturnRows(sqlmock.NewRows(userCols))

	require.NoError(t, svc.RequestReset(context.Background(), "nobody@b.com"))
	assert.Empty(t, mailer.sent)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestResetReplacesPriorTokenAndMailsLink(t *testing.T) {
	store, mock := newMockStore(t)
	mailer := &recordingMailer{}
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	svc := NewPasswordResetService(store, plainHasher{}, mailer, "http://app", 24*time.Hour)
	svc.now = fixedClock(now)

	stored := &captureArg{}
	expectUserByEmail(mock, "a@b.com", true)
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM verifications WHERE purpose = \$1 AND identifier = \$2`).
		WithArgs(models.PurposeResetPassword, "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO verifications").
		WithArgs(sqlmock.AnyArg(), "u1", models.PurposeResetPassword, stored, now.Add(24*time.Hour), now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, svc.RequestReset(context.Background(), "a@b.com"))
	require.NoError(t, mock.ExpectationsWereMet())

	require.Len(t, mailer.sent, 1)
	msg := mailer.sent[0]
	assert.Equal(t, "a@b.com", msg.To)
	assert.Equal(t, "Reset your password", msg.Subject)

	token := tokenFromURL(t, msg.Text, "http://app/reset-password?token=")
	assert.Len(t, token, 64)
	assert.Equal(t, HashToken(token), stored.value, "only the hash is persisted")
	assert.Contains(t, msg.HTML, "24 hours")
}

func TestRequestResetDeliveryFailureRemovesToken(t *testing.T) {
	store, mock := newMockStore(t)
	mailer := &recordingMailer{err: errors.New("smtp down")}
	svc := NewPasswordResetService(store, plainHasher{}, mailer, "http://app", 24*time.Hour)

	expectUserByEmail(mock, "a@b.com", true)
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM verifications").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO verifications").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectExec(`DELETE FROM verifications WHERE id = \$1`).WillReturnResult(sqlmock.NewResult(0, 1))

	err := svc.RequestReset(context.Background(), "a@b.com")
	require.ErrorIs(t, err, ErrDeliveryFailed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedeemResetConsumesTokensAndRevokesSessions(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	revoker := &recordingRevoker{}
	svc := NewPasswordResetService(store, plainHasher{}, &recordingMailer{}, "http://app", 24*time.Hour)
	svc.now = fixedClock(now)
	svc.SetRevoker(revoker)

	raw := "abcd"
	mock.ExpectBegin()
	mock.ExpectQuery(`FROM verifications.*FOR UPDATE`).
		WithArgs(models.PurposeResetPassword, HashToken(raw), now).
		WillReturnRows(sqlmock.NewRows([]string{"id", "identifier", "purpose", "value", "expires_at", "created_at"}).
			AddRow("v1", "u1", models.PurposeResetPassword, HashToken(raw), now.Add(time.Hour), now))
	mock.ExpectExec("INSERT INTO accounts").
		WithArgs(sqlmock.AnyArg(), "u1", models.CredentialProvider, "hashed:N3w!passw0rd", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM verifications WHERE purpose").
		WithArgs(models.PurposeResetPassword, "u1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM sessions WHERE user_id").
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	require.NoError(t, svc.RedeemReset(context.Background(), raw, "N3w!passw0rd"))
	require.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, []string{"u1"}, revoker.users)
}

func TestRedeemResetSecondUseFails(t *testing.T) {
	store, mock := newMockStore(t)
	svc := NewPasswordResetService(store, plainHasher{}, &recordingMailer{}, "http://app", 24*time.Hour)

	// The first redemption deleted the row, so the lookup finds nothing.
	mock.ExpectBegin()
	mock.ExpectQuery("FROM verifications").WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	err := svc.RedeemReset(context.Background(), "abcd", "N3w!passw0rd")
	require.ErrorIs(t, err, ErrInvalidOrExpiredToken)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedeemResetExpiredMatchesMissing(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	svc := NewPasswordResetService(store, plainHasher{}, &recordingMailer{}, "http://app", 24*time.Hour)
	svc.now = fixedClock(now)

	// Expired rows are filtered by expires_at > now.
	mock.ExpectBegin()
	mock.ExpectQuery(`expires_at > \$3`).
		WithArgs(models.PurposeResetPassword, HashToken("old"), now).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	expired := svc.RedeemReset(context.Background(), "old", "N3w!passw0rd")
	missing := svc.RedeemReset(context.Background(), "", "N3w!passw0rd")

	require.ErrorIs(t, expired, ErrInvalidOrExpiredToken)
	require.ErrorIs(t, missing, ErrInvalidOrExpiredToken)
	assert.Equal(t, expired.Error(), missing.Error())
	require.NoError(t, mock.ExpectationsWereMet())
}
