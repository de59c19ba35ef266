package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/oops"

	"authgate/internal/models"
	"authgate/internal/repository"
)

type VerificationService struct {
	store  *repository.Store
	mailer EmailSender
	appURL string
	ttl    time.Duration
	now    func() time.Time
}

func NewVerificationService(store *repository.Store, mailer EmailSender, appURL string, ttl time.Duration) *VerificationService {
	return &VerificationService{
		store:  store,
		mailer: mailer,
		appURL: appURL,
		ttl:    ttl,
		now:    time.Now,
	}
}

// SendVerification mails a fresh verification link. Unknown and already
// verified emails succeed without sending anything.
func (s *VerificationService) SendVerification(ctx context.Context, email string) error {
	user, err := s.store.Users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if user.EmailVerified {
		return nil
	}
	return s.sendTo(ctx, user)
}

func (s *VerificationService) sendTo(ctx context.Context, user *models.User) error {
	raw, v, err := issueToken(ctx, s.store, user.ID, models.PurposeEmailVerification, s.now().UTC(), s.ttl)
	if err != nil {
		return err
	}

	msg, err := verificationEmail(user.Email, s.appURL+"/api/auth/verify-email?token="+raw, s.ttl)
	if err == nil {
		err = s.mailer.Send(ctx, msg)
	}
	if err != nil {
		revokeIssued(ctx, s.store, v)
		return oops.Code("VERIFICATION_EMAIL_FAILED").
			With("user_id", user.ID).
			Wrap(fmt.Errorf("%w: %w", ErrDeliveryFailed, err))
	}
	return nil
}

// Verify consumes a verification token and marks its owner's email verified.
func (s *VerificationService) Verify(ctx context.Context, token string) error {
	if token == "" {
		return ErrInvalidOrExpiredToken
	}

	return s.store.WithinTx(ctx, func(tx *repository.Store) error {
		v, err := tx.Verifications.GetValidByValue(ctx, models.PurposeEmailVerification, HashToken(token), s.now().UTC())
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidOrExpiredToken
		}
		if err != nil {
			return err
		}

		if err := tx.Users.MarkEmailVerified(ctx, v.Identifier); err != nil {
			return err
		}
		_, err = tx.Verifications.DeleteByIdentifier(ctx, models.PurposeEmailVerification, v.Identifier)
		return err
	})
}
