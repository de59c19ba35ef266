package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/oops"
	"go.uber.org/zap"

	"authgate/internal/models"
	"authgate/internal/repository"
	"authgate/internal/validation"
)

type ClientMeta struct {
	IPAddress string
	UserAgent string
}

type SignUpInput struct {
	Name     string
	Email    string
	Username string
	Password string
	Image    string
}

// SignedSession is an opened session and the signed cookie value that refers to it.
type SignedSession struct {
	User    *models.User
	Session *models.Session
	Token   string
}

type SessionService struct {
	store    *repository.Store
	hasher   PasswordHasher
	tokens   *SessionTokens
	verifier *VerificationService
	ttl      time.Duration
	now      func() time.Time
}

func NewSessionService(store *repository.Store, hasher PasswordHasher, tokens *SessionTokens, verifier *VerificationService, ttl time.Duration) *SessionService {
	return &SessionService{
		store:    store,
		hasher:   hasher,
		tokens:   tokens,
		verifier: verifier,
		ttl:      ttl,
		now:      time.Now,
	}
}

func (s *SessionService) SignUp(ctx context.Context, in SignUpInput, meta ClientMeta) (*SignedSession, error) {
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, oops.Code("PASSWORD_HASH_FAILED").Wrap(err)
	}

	now := s.now().UTC()
	user := &models.User{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(in.Name),
		Email:     strings.TrimSpace(in.Email),
		Username:  validation.NormalizeUsername(in.Username),
		Image:     in.Image,
		Role:      models.RoleUser,
		CreatedAt: now,
	}

	err = s.store.WithinTx(ctx, func(tx *repository.Store) error {
		if err := tx.Users.Create(ctx, user); err != nil {
			return err
		}
		return tx.Accounts.Create(ctx, &models.Account{
			ID:           uuid.NewString(),
			UserID:       user.ID,
			ProviderID:   models.CredentialProvider,
			AccountID:    user.ID,
			PasswordHash: hash,
			CreatedAt:    now,
		})
	})
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, ErrUserExists
	}
	if err != nil {
		return nil, err
	}

	if s.verifier != nil {
		if err := s.verifier.sendTo(ctx, user); err != nil {
			zap.L().Warn("Failed to send verification email", zap.String("user_id", user.ID), zap.Error(err))
		}
	}

	return s.open(ctx, user, meta)
}

func (s *SessionService) SignIn(ctx context.Context, email, password string, meta ClientMeta) (*SignedSession, error) {
	user, err := s.store.Users.GetByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	account, err := s.store.Accounts.GetCredential(ctx, user.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if account.PasswordHash == "" || s.hasher.Compare(account.PasswordHash, password) != nil {
		return nil, ErrInvalidCredentials
	}

	return s.open(ctx, user, meta)
}

func (s *SessionService) open(ctx context.Context, user *models.User, meta ClientMeta) (*SignedSession, error) {
	now := s.now().UTC()
	session := &models.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		ExpiresAt: now.Add(s.ttl),
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		CreatedAt: now,
	}
	if err := s.store.Sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue(user.ID, session.ID, now, session.ExpiresAt)
	if err != nil {
		return nil, oops.Code("SESSION_SIGN_FAILED").With("user_id", user.ID).Wrap(err)
	}
	return &SignedSession{User: user, Session: session, Token: token}, nil
}

// Resolve returns the session behind a cookie value, or nil when the value does
// not refer to a live session.
func (s *SessionService) Resolve(ctx context.Context, token string) (*models.SessionPayload, error) {
	if token == "" {
		return nil, nil
	}
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, nil
	}

	session, err := s.store.Sessions.GetValid(ctx, claims.SessionID, s.now().UTC())
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if session.UserID != claims.Subject {
		return nil, nil
	}

	user, err := s.store.Users.GetByID(ctx, session.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &models.SessionPayload{Session: *session, User: *user}, nil
}

func (s *SessionService) SignOut(ctx context.Context, token string) error {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil
	}
	return s.store.Sessions.Delete(ctx, claims.SessionID)
}
