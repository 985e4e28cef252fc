// Package service holds the business logic of GlobiFy: accounts, catalog
// entries, the shared feed and profiles. Persistence is reached through the
// repository interfaces declared here.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/atinyakov/globify/internal/metrics"
	"github.com/atinyakov/globify/internal/models"
	"github.com/atinyakov/globify/internal/validation"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UserRepository defines the persistence operations required by AuthService.
type UserRepository interface {
	// CreateUser inserts an unverified user. It returns models.ErrConflict
	// when the username or email is taken.
	CreateUser(ctx context.Context, u *models.User) (int64, error)
	// GetByUsername returns models.ErrNotFound for an unknown user.
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	// VerifyByToken redeems token and returns the verified username.
	VerifyByToken(ctx context.Context, token string) (string, error)
}

// VerificationDispatcher delivers a verification token to an address.
type VerificationDispatcher interface {
	Dispatch(email, token string)
}

// RegisterInput is the registration form.
type RegisterInput struct {
	Username string `validate:"required,min=3,max=32,alphanumunicode"`
	Email    string `validate:"required,email,max=255"`
	Password string `validate:"required,min=6,max=72"`
}

// AuthService implements registration, verification and login.
type AuthService struct {
	repo     UserRepository
	hasher   PasswordHasher
	verifier VerificationDispatcher
	log      *zap.Logger

	// newToken is replaced in tests.
	newToken func() string

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthService constructs an AuthService.
func NewAuthService(repo UserRepository, hasher PasswordHasher, verifier VerificationDispatcher, log *zap.Logger) *AuthService {
	return &AuthService{
		repo:     repo,
		hasher:   hasher,
		verifier: verifier,
		log:      log,
		newToken: uuid.NewString,
	}
}

// Register creates an unverified account and hands its token to the
// verifier. Invalid input is reported as models.ErrInvalidInput wrapping a
// *validation.Error.
func (s *AuthService) Register(ctx context.Context, username, email, password string) error {
	in := RegisterInput{
		Username: strings.TrimSpace(username),
		Email:    strings.TrimSpace(email),
		Password: password,
	}
	if err := validation.Struct(in); err != nil {
		return fmt.Errorf("%w: %w", models.ErrInvalidInput, err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	token := s.newToken()
	id, err := s.repo.CreateUser(ctx, &models.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		VerifyToken:  token,
	})
	if err != nil {
		return err
	}

	metrics.RegistrationsTotal.Inc()
	s.log.Info("user registered", zap.Int64("user_id", id), zap.String("username", in.Username))

	s.verifier.Dispatch(in.Email, token)
	return nil
}

// Verify redeems a verification token.
func (s *AuthService) Verify(ctx context.Context, token string) (string, error) {
	username, err := s.repo.VerifyByToken(ctx, token)
	if err != nil {
		return "", err
	}
	s.log.Info("user verified", zap.String("username", username))
	return username, nil
}

// Login checks the credentials and returns the user. Unknown users cost the
// same bcrypt comparison as known ones.
func (s *AuthService) Login(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.repo.GetByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, models.ErrNotFound) {
		_ = s.hasher.Compare(s.dummy(), password)
		metrics.RecordLogin("invalid_credentials")
		return nil, models.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		metrics.RecordLogin("invalid_credentials")
		return nil, models.ErrInvalidCredentials
	}
	if !user.Verified {
		metrics.RecordLogin("unverified")
		return nil, models.ErrUnverified
	}

	metrics.RecordLogin("ok")
	return user, nil
}

// Resolve returns the user for a session username, or nil if the account no
// longer exists.
func (s *AuthService) Resolve(ctx context.Context, username string) (*models.User, error) {
	user, err := s.repo.GetByUsername(ctx, username)
	if errors.Is(err, models.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AuthService) dummy() string {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash("globify-dummy-password")
		if err != nil {
			s.log.Warn("dummy hash", zap.Error(err))
		}
		s.dummyHash = h
	})
	return s.dummyHash
}
