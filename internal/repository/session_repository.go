package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/samber/oops"

	"authgate/internal/models"
)

type SessionRepository interface {
	Create(ctx context.Context, s *models.Session) error
	GetValid(ctx context.Context, id string, now time.Time) (*models.Session, error)
	Delete(ctx context.Context, id string) error
	DeleteByUser(ctx context.Context, userID string) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type sessionRepository struct {
	db DBTX
}

func (r *sessionRepository) Create(ctx context.Context, s *models.Session) error {
	query := `
		INSERT INTO sessions (id, user_id, expires_at, ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := r.db.ExecContext(ctx, query, s.ID, s.UserID, s.ExpiresAt, s.IPAddress, s.UserAgent, s.CreatedAt); err != nil {
		return oops.Code("SESSION_CREATE_FAILED").With("user_id", s.UserID).Wrap(err)
	}
	return nil
}

func (r *sessionRepository) GetValid(ctx context.Context, id string, now time.Time) (*models.Session, error) {
	query := `
		SELECT id, user_id, expires_at, ip_address, user_agent, created_at
		FROM sessions
		WHERE id = $1 AND expires_at > $2
	`

	var s models.Session
	var ip, ua sql.NullString
	err := r.db.QueryRowContext(ctx, query, id, now).Scan(&s.ID, &s.UserID, &s.ExpiresAt, &ip, &ua, &s.CreatedAt)
	if err != nil {
		if noRows(err) {
			return nil, oops.Code("SESSION_NOT_FOUND").With("session_id", id).Wrap(ErrNotFound)
		}
		return nil, oops.Code("SESSION_QUERY_FAILED").With("session_id", id).Wrap(err)
	}
	s.IPAddress = ip.String
	s.UserAgent = ua.String
	return &s, nil
}

func (r *sessionRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return oops.Code("SESSION_DELETE_FAILED").With("session_id", id).Wrap(err)
	}
	return nil
}

func (r *sessionRepository) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	if err != nil {
		return 0, oops.Code("SESSION_DELETE_FAILED").With("user_id", userID).Wrap(err)
	}
	return res.RowsAffected()
}

func (r *sessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, oops.Code("SESSION_PURGE_FAILED").Wrap(err)
	}
	return res.RowsAffected()
}
