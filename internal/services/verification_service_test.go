package services

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authgate/internal/models"
)

func TestSendVerificationSkipsVerifiedUsers(t *testing.T) {
	store, mock := newMockStore(t)
	mailer := &recordingMailer{}
	svc := NewVerificationService(store, mailer, "http://app", time.Hour)

	expectUserByEmail(mock, "a@b.com", true)

	require.NoError(t, svc.SendVerification(context.Background(), "a@b.com"))
	assert.Empty(t, mailer.sent)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSendVerificationMailsLink(t *testing.T) {
	store, mock := newMockStore(t)
	mailer := &recordingMailer{}
	svc := NewVerificationService(store, mailer, "http://app", time.Hour)

	expectUserByEmail(mock, "a@b.com", false)
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM verifications").
		WithArgs(models.PurposeEmailVerification, "u1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO verifications").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, svc.SendVerification(context.Background(), "a@b.com"))
	require.Len(t, mailer.sent, 1)
	token := tokenFromURL(t, mailer.sent[0].Text, "http://app/api/auth/verify-email?token=")
	assert.Len(t, token, 64)
	assert.Contains(t, mailer.sent[0].HTML, "1 hour")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyMarksEmailVerified(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()
	svc := NewVerificationService(store, &recordingMailer{}, "http://app", time.Hour)
	svc.now = fixedClock(now)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM verifications").
		WithArgs(models.PurposeEmailVerification, HashToken("tok"), now).
		WillReturnRows(sqlmock.NewRows([]string{"id", "identifier", "purpose", "value", "expires_at", "created_at"}).
			AddRow("v1", "u1", models.PurposeEmailVerification, HashToken("tok"), now.Add(time.Hour), now))
	mock.ExpectExec("UPDATE users SET email_verified = TRUE").
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM verifications").
		WithArgs(models.PurposeEmailVerification, "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, svc.Verify(context.Background(), "tok"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyUnknownToken(t *testing.T) {
	store, mock := newMockStore(t)
	svc := NewVerificationService(store, &recordingMailer{}, "http://app", time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM verifications").WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	require.ErrorIs(t, svc.Verify(context.Background(), "nope"), ErrInvalidOrExpiredToken)
}
