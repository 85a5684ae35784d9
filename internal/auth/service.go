// AngelaMos | 2026
// service.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/carterperez-dev/identity-api/internal/config"
	"github.com/carterperez-dev/identity-api/internal/core"
)

// Mailer is the outbound email surface the auth flows depend on.
type Mailer interface {
	SendVerificationEmail(ctx context.Context, to, token string) error
	SendPasswordResetEmail(ctx context.Context, to, token string) error
}

type Service struct {
	accounts AccountProvider
	tokens   *TokenManager
	mailer   Mailer
	logger   *slog.Logger

	verificationTTL time.Duration
	resetTTL        time.Duration
}

func NewService(
	accounts AccountProvider,
	tokens *TokenManager,
	mailer Mailer,
	cfg config.AuthConfig,
	logger *slog.Logger,
) *Service {
	return &Service{
		accounts:        accounts,
		tokens:          tokens,
		mailer:          mailer,
		logger:          logger,
		verificationTTL: cfg.VerificationExpire,
		resetTTL:        cfg.ResetExpire,
	}
}

// Register creates an unverified account and emails its verification link.
// The plaintext token exists only in this request and in the email; storage
// only ever sees its digest.
func (s *Service) Register(
	ctx context.Context,
	req RegisterRequest,
) (*Account, error) {
	passwordHash, err := core.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	token, err := core.NewOneTimeToken(s.verificationTTL)
	if err != nil {
		return nil, fmt.Errorf("issue verification token: %w", err)
	}

	account, err := s.accounts.CreateUnverified(
		ctx,
		strings.TrimSpace(req.Name),
		normalizeEmail(req.Email),
		passwordHash,
		token.Digest,
		token.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}

	if err := s.mailer.SendVerificationEmail(
		ctx,
		account.Email,
		token.Plaintext,
	); err != nil {
		s.logger.Error("verification email failed",
			"user_id", account.ID,
			"error", err,
		)
		return nil, fmt.Errorf("send verification email: %w", core.ErrEmailDelivery)
	}

	return account, nil
}

// VerifyEmail consumes a verification token. The conditional update in the
// store guarantees at most one caller wins a given token, so concurrent
// verification attempts cannot both succeed.
func (s *Service) VerifyEmail(ctx context.Context, token string) (*Account, error) {
	account, err := s.accounts.ConsumeVerificationToken(
		ctx,
		core.HashToken(token),
		time.Now(),
	)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("verify email: %w", core.ErrOneTimeToken)
		}
		return nil, err
	}

	return account, nil
}

// Login verifies the credentials and mints both tokens. Password
// verification runs at full cost even for unknown emails, and the
// verification check happens only after the password proves out, so the
// error sequence leaks nothing about which part failed first.
func (s *Service) Login(
	ctx context.Context,
	req LoginRequest,
) (*Account, string, string, error) {
	account, err := s.accounts.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil && !errors.Is(err, core.ErrNotFound) {
		return nil, "", "", err
	}

	var storedHash *string
	if account != nil {
		storedHash = &account.PasswordHash
	}

	valid, newHash, err := core.VerifyPasswordTimingSafe(req.Password, storedHash)
	if err != nil {
		return nil, "", "", fmt.Errorf("verify password: %w", err)
	}

	if !valid || account == nil {
		return nil, "", "", fmt.Errorf("login: %w", core.ErrUnauthorized)
	}

	if !account.IsVerified {
		return nil, "", "", fmt.Errorf("login: %w", core.ErrNotVerified)
	}

	if newHash != "" {
		if err := s.accounts.UpdatePassword(ctx, account.ID, newHash); err != nil {
			s.logger.Warn("password rehash failed",
				"user_id", account.ID,
				"error", err,
			)
		}
	}

	if err := s.accounts.TouchLastLogin(ctx, account.ID); err != nil {
		s.logger.Warn("last login update failed",
			"user_id", account.ID,
			"error", err,
		)
	}

	accessToken, err := s.tokens.Mint(DomainAccess, account.ID)
	if err != nil {
		return nil, "", "", fmt.Errorf("mint access token: %w", err)
	}

	refreshToken, err := s.tokens.Mint(DomainRefresh, account.ID)
	if err != nil {
		return nil, "", "", fmt.Errorf("mint refresh token: %w", err)
	}

	return account, accessToken, refreshToken, nil
}

// Refresh exchanges a valid refresh token for a fresh token pair, sliding
// the refresh window forward on every use. The account is re-resolved on
// every exchange, so a deleted account stops refreshing immediately even
// though the token itself is stateless.
func (s *Service) Refresh(
	ctx context.Context,
	refreshToken string,
) (string, string, error) {
	userID, err := s.tokens.Verify(ctx, DomainRefresh, refreshToken)
	if err != nil {
		return "", "", err
	}

	if _, err := s.accounts.GetByID(ctx, userID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return "", "", fmt.Errorf("refresh: %w", core.ErrUnauthorized)
		}
		return "", "", err
	}

	accessToken, err := s.tokens.Mint(DomainAccess, userID)
	if err != nil {
		return "", "", fmt.Errorf("mint access token: %w", err)
	}

	rotated, err := s.tokens.Mint(DomainRefresh, userID)
	if err != nil {
		return "", "", fmt.Errorf("mint refresh token: %w", err)
	}

	return accessToken, rotated, nil
}

// ForgotPassword issues a reset token when the email matches an account and
// does nothing otherwise. Callers get the same outcome either way; even a
// delivery failure is only logged, because surfacing it would reveal which
// emails have accounts.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	account, err := s.accounts.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil
		}
		return err
	}

	token, err := core.NewOneTimeToken(s.resetTTL)
	if err != nil {
		return fmt.Errorf("issue reset token: %w", err)
	}

	if err := s.accounts.SetResetToken(
		ctx,
		account.ID,
		token.Digest,
		token.ExpiresAt,
	); err != nil {
		return err
	}

	if err := s.mailer.SendPasswordResetEmail(
		ctx,
		account.Email,
		token.Plaintext,
	); err != nil {
		s.logger.Error("reset email failed",
			"user_id", account.ID,
			"error", err,
		)
	}

	return nil
}

// ResetPassword hashes the replacement up front so the token consumption and
// password swap land in one conditional update.
func (s *Service) ResetPassword(
	ctx context.Context,
	token, newPassword string,
) (*Account, error) {
	newHash, err := core.HashPassword(newPassword)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	account, err := s.accounts.ConsumeResetToken(
		ctx,
		core.HashToken(token),
		newHash,
		time.Now(),
	)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("reset password: %w", core.ErrOneTimeToken)
		}
		return nil, err
	}

	return account, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
