package services

import (
	"context"
	"database/sql/driver"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"authgate/internal/repository"
)

var userCols = []string{"id", "name", "email", "username", "email_verified", "image", "role", "created_at", "updated_at"}

type plainHasher struct{}

func (plainHasher) Hash(p string) (string, error) { return "hashed:" + p, nil }

func (plainHasher) Compare(hash, p string) error {
	if hash != "hashed:"+p {
		return errors.New("mismatch")
	}
	return nil
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

// captureArg matches any value and remembers it.
type captureArg struct {
	value string
}

func (c *captureArg) Match(v driver.Value) bool {
	s, ok := v.(string)
	c.value = s
	return ok
}

func newMockStore(t *testing.T) (*repository.Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return repository.NewStore(db), mock
}

func tokenFromURL(t *testing.T, text, marker string) string {
	t.Helper()
	i := strings.Index(text, marker)
	require.GreaterOrEqual(t, i, 0, "no %q in %q", marker, text)
	return text[i+len(marker):]
}

func fixedClock(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}
