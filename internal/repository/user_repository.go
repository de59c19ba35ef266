package repository

import (
	"context"
	"database/sql"

	"github.com/samber/oops"

	"authgate/internal/models"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	UpdateImage(ctx context.Context, id string, image string) error
	MarkEmailVerified(ctx context.Context, id string) error
}

type userRepository struct {
	db DBTX
}

const userColumns = `id, name, email, COALESCE(username, ''), email_verified, COALESCE(image, ''), role, created_at, updated_at`

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, name, email, username, email_verified, image, role, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, NULLIF($6, ''), $7, $8, $8)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.Name, user.Email, user.Username, user.EmailVerified, user.Image, user.Role, user.CreatedAt,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return oops.Code("USER_DUPLICATE").With("email", user.Email).Wrap(ErrDuplicate)
		}
		return oops.Code("USER_CREATE_FAILED").With("email", user.Email).Wrap(err)
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + `
		FROM users
		WHERE id = $1
	`
	return r.scan(r.db.QueryRowContext(ctx, query, id), "id", id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + `
		FROM users
		WHERE LOWER(email) = LOWER($1)
	`
	return r.scan(r.db.QueryRowContext(ctx, query, email), "email", email)
}

func (r *userRepository) scan(row *sql.Row, key, value string) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Username, &u.EmailVerified, &u.Image, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if noRows(err) {
			return nil, oops.Code("USER_NOT_FOUND").With(key, value).Wrap(ErrNotFound)
		}
		return nil, oops.Code("USER_QUERY_FAILED").With(key, value).Wrap(err)
	}
	return &u, nil
}

func (r *userRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE LOWER(username) = LOWER($1))`, username,
	).Scan(&exists)
	if err != nil {
		return false, oops.Code("USERNAME_QUERY_FAILED").With("username", username).Wrap(err)
	}
	return exists, nil
}

func (r *userRepository) UpdateImage(ctx context.Context, id string, image string) error {
	return r.update(ctx, `UPDATE users SET image = $1, updated_at = NOW() WHERE id = $2`, "USER_UPDATE_IMAGE_FAILED", id, image, id)
}

func (r *userRepository) MarkEmailVerified(ctx context.Context, id string) error {
	return r.update(ctx, `UPDATE users SET email_verified = TRUE, updated_at = NOW() WHERE id = $1`, "USER_VERIFY_EMAIL_FAILED", id, id)
}

func (r *userRepository) update(ctx context.Context, query, code, id string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return oops.Code(code).With("user_id", id).Wrap(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return oops.Code(code).With("user_id", id).Wrap(err)
	}
	if n == 0 {
		return oops.Code("USER_NOT_FOUND").With("user_id", id).Wrap(ErrNotFound)
	}
	return nil
}
