package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/samber/oops"

	"authgate/internal/models"
)

type AccountRepository interface {
	Create(ctx context.Context, account *models.Account) error
	GetCredential(ctx context.Context, userID string) (*models.Account, error)
	UpsertPassword(ctx context.Context, userID string, passwordHash string) error
}

type accountRepository struct {
	db DBTX
}

func (r *accountRepository) Create(ctx context.Context, a *models.Account) error {
	query := `
		INSERT INTO accounts (id, user_id, provider_id, account_id, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
	`
	if _, err := r.db.ExecContext(ctx, query, a.ID, a.UserID, a.ProviderID, a.AccountID, a.PasswordHash, a.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return oops.Code("ACCOUNT_DUPLICATE").With("user_id", a.UserID).Wrap(ErrDuplicate)
		}
		return oops.Code("ACCOUNT_CREATE_FAILED").With("user_id", a.UserID).Wrap(err)
	}
	return nil
}

func (r *accountRepository) GetCredential(ctx context.Context, userID string) (*models.Account, error) {
	query := `
		SELECT id, user_id, provider_id, account_id, COALESCE(password_hash, ''), created_at, updated_at
		FROM accounts
		WHERE user_id = $1 AND provider_id = $2
	`

	var a models.Account
	err := r.db.QueryRowContext(ctx, query, userID, models.CredentialProvider).
		Scan(&a.ID, &a.UserID, &a.ProviderID, &a.AccountID, &a.PasswordHash, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if noRows(err) {
			return nil, oops.Code("ACCOUNT_NOT_FOUND").With("user_id", userID).Wrap(ErrNotFound)
		}
		return nil, oops.Code("ACCOUNT_QUERY_FAILED").With("user_id", userID).Wrap(err)
	}
	return &a, nil
}

// UpsertPassword sets the credential hash, creating the credential account for
// users that only signed in through a social provider so far.
func (r *accountRepository) UpsertPassword(ctx context.Context, userID string, passwordHash string) error {
	query := `
		INSERT INTO accounts (id, user_id, provider_id, account_id, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $2, $4, $5, $5)
		ON CONFLICT (user_id, provider_id)
		DO UPDATE SET password_hash = EXCLUDED.password_hash, updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.ExecContext(ctx, query, uuid.NewString(), userID, models.CredentialProvider, passwordHash, time.Now().UTC())
	if err != nil {
		return oops.Code("ACCOUNT_UPDATE_PASSWORD_FAILED").With("user_id", userID).Wrap(err)
	}
	return nil
}
