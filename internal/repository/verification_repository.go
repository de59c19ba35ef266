package repository

import (
	"context"
	"time"

	"github.com/samber/oops"

	"authgate/internal/models"
)

type VerificationRepository interface {
	Create(ctx context.Context, v *models.Verification) error
	// GetValidByValue locks and returns the unexpired row with the given hash.
	GetValidByValue(ctx context.Context, purpose string, valueHash string, now time.Time) (*models.Verification, error)
	Delete(ctx context.Context, id string) error
	DeleteByIdentifier(ctx context.Context, purpose string, identifier string) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type verificationRepository struct {
	db DBTX
}

func (r *verificationRepository) Create(ctx context.Context, v *models.Verification) error {
	query := `
		INSERT INTO verifications (id, identifier, purpose, value, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := r.db.ExecContext(ctx, query, v.ID, v.Identifier, v.Purpose, v.Value, v.ExpiresAt, v.CreatedAt); err != nil {
		return oops.Code("VERIFICATION_CREATE_FAILED").
			With("purpose", v.Purpose).
			With("identifier", v.Identifier).
			Wrap(err)
	}
	return nil
}

func (r *verificationRepository) GetValidByValue(ctx context.Context, purpose string, valueHash string, now time.Time) (*models.Verification, error) {
	query := `
		SELECT id, identifier, purpose, value, expires_at, created_at
		FROM verifications
		WHERE purpose = $1
		AND value = $2
		AND expires_at > $3
		ORDER BY created_at DESC
		LIMIT 1
		FOR UPDATE
	`

	var v models.Verification
	err := r.db.QueryRowContext(ctx, query, purpose, valueHash, now).
		Scan(&v.ID, &v.Identifier, &v.Purpose, &v.Value, &v.ExpiresAt, &v.CreatedAt)
	if err != nil {
		if noRows(err) {
			return nil, oops.Code("VERIFICATION_NOT_FOUND").With("purpose", purpose).Wrap(ErrNotFound)
		}
		return nil, oops.Code("VERIFICATION_QUERY_FAILED").With("purpose", purpose).Wrap(err)
	}
	return &v, nil
}

func (r *verificationRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM verifications WHERE id = $1`, id)
	if err != nil {
		return oops.Code("VERIFICATION_DELETE_FAILED").With("id", id).Wrap(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return oops.Code("VERIFICATION_DELETE_FAILED").With("id", id).Wrap(err)
	}
	if n == 0 {
		return oops.Code("VERIFICATION_NOT_FOUND").With("id", id).Wrap(ErrNotFound)
	}
	return nil
}

func (r *verificationRepository) DeleteByIdentifier(ctx context.Context, purpose string, identifier string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM verifications WHERE purpose = $1 AND identifier = $2`, purpose, identifier)
	if err != nil {
		return 0, oops.Code("VERIFICATION_DELETE_FAILED").
			With("purpose", purpose).
			With("identifier", identifier).
			Wrap(err)
	}
	return res.RowsAffected()
}

func (r *verificationRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM verifications WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, oops.Code("VERIFICATION_PURGE_FAILED").Wrap(err)
	}
	return res.RowsAffected()
}
