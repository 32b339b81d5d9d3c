package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/atrium-realty/atrium/internal/authz"
	"github.com/atrium-realty/atrium/internal/shared"
)

// Mailer delivers account emails. The jobs package provides the
// queue-backed implementation.
type Mailer interface {
	SendVerificationEmail(ctx context.Context, to, token string) error
	SendPasswordResetEmail(ctx context.Context, to, token string) error
}

// Service wraps authentication business rules.
type Service struct {
	repo   Repository
	tokens *TokenIssuer
	mailer Mailer
	logger *slog.Logger
}

// NewService constructs a new Service.
func NewService(repo Repository, tokens *TokenIssuer, mailer Mailer, logger *slog.Logger) *Service {
	return &Service{repo: repo, tokens: tokens, mailer: mailer, logger: logger}
}

// Authenticate validates email/password credentials. Every failure mode
// returns shared.ErrInvalidCredentials so responses cannot be used to probe
// which addresses exist.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// Register creates a client account and sends the verification email.
// Back-office roles are assigned later through the staff directory, never at
// sign-up.
func (s *Service) Register(ctx context.Context, email, name, phone, password string) (*User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user, err := s.repo.Create(ctx, User{
		Email:        email,
		Name:         name,
		Phone:        phone,
		PasswordHash: string(hashed),
		Role:         authz.RoleClient,
		IsActive:     true,
	})
	if err != nil {
		return nil, err
	}
	if s.mailer != nil && s.tokens != nil {
		token, err := s.tokens.Issue(PurposeEmailVerify, user.ID, user.Email, EmailVerifyTTL)
		if err == nil {
			err = s.mailer.SendVerificationEmail(ctx, user.Email, token)
		}
		if err != nil && s.logger != nil {
			// The account exists either way; verification can be re-sent.
			s.logger.Warn("send verification email", slog.String("email", user.Email), slog.Any("error", err))
		}
	}
	return user, nil
}

// VerifyEmail consumes a verification token and stamps the account.
func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	userID, _, err := s.tokens.Parse(PurposeEmailVerify, token)
	if err != nil {
		return err
	}
	return s.repo.MarkEmailVerified(ctx, userID)
}

// RequestPasswordReset emails a reset link if the address is registered. It
// reports success for unknown addresses too so the endpoint cannot be used
// to enumerate accounts.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil
		}
		return err
	}
	token, err := s.tokens.Issue(PurposePasswordReset, user.ID, user.Email, PasswordResetTTL)
	if err != nil {
		return err
	}
	if s.mailer == nil {
		return nil
	}
	return s.mailer.SendPasswordResetEmail(ctx, user.Email, token)
}

// ResetPassword consumes a reset token and replaces the password.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	userID, _, err := s.tokens.Parse(PurposePasswordReset, token)
	if err != nil {
		return err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.repo.UpdatePassword(ctx, userID, string(hashed))
}

// RegisterSession persists the session metadata in postgres.
func (s *Service) RegisterSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	return s.repo.CreateSession(ctx, id, userID, expiresAt, ip, ua)
}

// RemoveSession deletes a session record from postgres.
func (s *Service) RemoveSession(ctx context.Context, id string) error {
	return s.repo.DeleteSession(ctx, id)
}
