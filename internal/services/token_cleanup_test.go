package services

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestSweepExpired(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectExec("DELETE FROM verifications WHERE expires_at").
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec("DELETE FROM sessions WHERE expires_at").
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, SweepExpired(context.Background(), store, now))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenCleanupStopsWithContext(t *testing.T) {
	store, mock := newMockStore(t)
	// The sqlmock DB is closed by t.Cleanup, after this deferred check.
	defer goleak.VerifyNone(t,
		goleak.IgnoreCurrent(),
		goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"),
	)
	mock.MatchExpectationsInOrder(false)
	for range 100 {
		mock.ExpectExec("DELETE FROM").WillReturnResult(sqlmock.NewResult(0, 0))
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := StartTokenCleanup(ctx, store, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup loop did not stop")
	}
}
