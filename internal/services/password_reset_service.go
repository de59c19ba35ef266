package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/samber/oops"
	"go.uber.org/zap"

	"authgate/internal/metrics"
	"authgate/internal/models"
	"authgate/internal/repository"
)

// SessionRevoker drops cached sessions of a user after their sessions were deleted.
type SessionRevoker interface {
	RevokeUser(userID string)
}

type PasswordResetService struct {
	store   *repository.Store
	hasher  PasswordHasher
	mailer  EmailSender
	revoker SessionRevoker
	appURL  string
	ttl     time.Duration
	now     func() time.Time
}

func NewPasswordResetService(store *repository.Store, hasher PasswordHasher, mailer EmailSender, appURL string, ttl time.Duration) *PasswordResetService {
	return &PasswordResetService{
		store:  store,
		hasher: hasher,
		mailer: mailer,
		appURL: appURL,
		ttl:    ttl,
		now:    time.Now,
	}
}

func (s *PasswordResetService) SetRevoker(r SessionRevoker) {
	s.revoker = r
}

// RequestReset issues a reset token for the account behind email and mails the
// reset link. Unknown emails succeed silently.
func (s *PasswordResetService) RequestReset(ctx context.Context, email string) error {
	user, err := s.store.Users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		metrics.PasswordResets.WithLabelValues("request", "unknown_email").Inc()
		return nil
	}
	if err != nil {
		metrics.PasswordResets.WithLabelValues("request", "error").Inc()
		return err
	}

	raw, v, err := issueToken(ctx, s.store, user.ID, models.PurposeResetPassword, s.now().UTC(), s.ttl)
	if err != nil {
		metrics.PasswordResets.WithLabelValues("request", "error").Inc()
		return err
	}

	msg, err := resetPasswordEmail(user.Email, s.appURL+"/reset-password?token="+raw, s.ttl)
	if err == nil {
		err = s.mailer.Send(ctx, msg)
	}
	if err != nil {
		revokeIssued(ctx, s.store, v)
		metrics.PasswordResets.WithLabelValues("request", "delivery_failed").Inc()
		return oops.Code("RESET_EMAIL_FAILED").
			With("user_id", user.ID).
			Wrap(fmt.Errorf("%w: %w", ErrDeliveryFailed, err))
	}

	metrics.PasswordResets.WithLabelValues("request", "sent").Inc()
	return nil
}

// RedeemReset sets a new password for the owner of token. The token and every
// other reset token of the user are consumed, and the user's sessions revoked.
func (s *PasswordResetService) RedeemReset(ctx context.Context, token, newPassword string) error {
	if token == "" {
		metrics.PasswordResets.WithLabelValues("redeem", "invalid_token").Inc()
		return ErrInvalidOrExpiredToken
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		metrics.PasswordResets.WithLabelValues("redeem", "error").Inc()
		return oops.Code("PASSWORD_HASH_FAILED").Wrap(err)
	}

	var userID string
	err = s.store.WithinTx(ctx, func(tx *repository.Store) error {
		v, err := tx.Verifications.GetValidByValue(ctx, models.PurposeResetPassword, HashToken(token), s.now().UTC())
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidOrExpiredToken
		}
		if err != nil {
			return err
		}
		userID = v.Identifier

		if err := tx.Accounts.UpsertPassword(ctx, userID, hash); err != nil {
			return err
		}
		if _, err := tx.Verifications.DeleteByIdentifier(ctx, models.PurposeResetPassword, userID); err != nil {
			return err
		}
		_, err = tx.Sessions.DeleteByUser(ctx, userID)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrInvalidOrExpiredToken) {
			metrics.PasswordResets.WithLabelValues("redeem", "invalid_token").Inc()
		} else {
			metrics.PasswordResets.WithLabelValues("redeem", "error").Inc()
		}
		return err
	}

	if s.revoker != nil {
		s.revoker.RevokeUser(userID)
	}
	metrics.PasswordResets.WithLabelValues("redeem", "success").Inc()
	return nil
}

// issueToken replaces any outstanding token of the same purpose for userID.
func issueToken(ctx context.Context, store *repository.Store, userID, purpose string, now time.Time, ttl time.Duration) (string, *models.Verification, error) {
	raw, hash, err := GenerateToken()
	if err != nil {
		return "", nil, oops.Code("TOKEN_GENERATE_FAILED").Wrap(err)
	}

	v := &models.Verification{
		ID:         uuid.NewString(),
		Identifier: userID,
		Purpose:    purpose,
		Value:      hash,
		ExpiresAt:  now.Add(ttl),
		CreatedAt:  now,
	}

	err = store.WithinTx(ctx, func(tx *repository.Store) error {
		if _, err := tx.Verifications.DeleteByIdentifier(ctx, purpose, userID); err != nil {
			return err
		}
		return tx.Verifications.Create(ctx, v)
	})
	if err != nil {
		return "", nil, err
	}
	return raw, v, nil
}

// revokeIssued removes a token whose email never went out.
func revokeIssued(ctx context.Context, store *repository.Store, v *models.Verification) {
	if err := store.Verifications.Delete(context.WithoutCancel(ctx), v.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		zap.L().Error("Failed to remove undelivered token",
			zap.String("purpose", v.Purpose),
			zap.String("user_id", v.Identifier),
			zap.Error(err),
		)
	}
}
