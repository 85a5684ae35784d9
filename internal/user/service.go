// AngelaMos | 2026
// service.go

package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/carterperez-dev/identity-api/internal/auth"
	"github.com/carterperez-dev/identity-api/internal/core"
	"github.com/carterperez-dev/identity-api/internal/middleware"
)

var ErrWrongPassword = errors.New("current password is incorrect")

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) GetMe(ctx context.Context, userID string) (*User, error) {
	if userID == "" {
		return nil, fmt.Errorf("get me: %w", core.ErrUnauthorized)
	}

	return s.repo.GetByID(ctx, userID)
}

func (s *Service) UpdateMe(
	ctx context.Context,
	userID string,
	req UpdateProfileRequest,
) (*User, error) {
	if userID == "" {
		return nil, fmt.Errorf("update me: %w", core.ErrUnauthorized)
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		user.Name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		user.Email = NormalizeEmail(*req.Email)
	}

	if err := s.repo.UpdateProfile(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// ChangePassword requires re-proof of the current password before the new
// one is accepted. The new password is hashed exactly once, here.
func (s *Service) ChangePassword(
	ctx context.Context,
	userID, currentPassword, newPassword string,
) error {
	if userID == "" {
		return fmt.Errorf("change password: %w", core.ErrUnauthorized)
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	valid, _, err := core.VerifyPasswordWithRehash(
		currentPassword,
		user.PasswordHash,
	)
	if err != nil {
		return fmt.Errorf("verify current password: %w", err)
	}

	if !valid {
		return ErrWrongPassword
	}

	newHash, err := core.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash new password: %w", err)
	}

	return s.repo.UpdatePassword(ctx, userID, newHash)
}

func (s *Service) ListUsers(
	ctx context.Context,
	params ListUsersParams,
) ([]User, int, error) {
	return s.repo.List(ctx, params)
}

// AccountTotals feeds the operator stats endpoints.
func (s *Service) AccountTotals(
	ctx context.Context,
) (total, verified, admins int, err error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return 0, 0, 0, err
	}

	return stats.Total, stats.Verified, stats.Admins, nil
}

// UpdateUserRoles replaces the whole role set. An admin can never change
// their own roles, whatever the requested set.
func (s *Service) UpdateUserRoles(
	ctx context.Context,
	requesterID, targetID string,
	roles Roles,
) (*User, error) {
	if requesterID == targetID {
		return nil, fmt.Errorf(
			"update roles: %w",
			core.ErrSelfAction,
		)
	}

	if err := roles.Validate(); err != nil {
		return nil, fmt.Errorf("update roles: %w: %w", core.ErrInvalidInput, err)
	}

	user, err := s.repo.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}

	user.Roles = roles
	if err := s.repo.UpdateRoles(ctx, targetID, roles); err != nil {
		return nil, err
	}

	return user, nil
}

// DeleteUser hard-deletes an account. Self-deletion is rejected before the
// target is even looked up.
func (s *Service) DeleteUser(
	ctx context.Context,
	requesterID, targetID string,
) error {
	if requesterID == targetID {
		return fmt.Errorf("delete user: %w", core.ErrSelfAction)
	}

	return s.repo.Delete(ctx, targetID)
}

// --- auth.AccountProvider ---

func (s *Service) GetByID(
	ctx context.Context,
	id string,
) (*auth.Account, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return toAccount(user), nil
}

func (s *Service) GetByEmail(
	ctx context.Context,
	email string,
) (*auth.Account, error) {
	user, err := s.repo.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, err
	}

	return toAccount(user), nil
}

// CreateUnverified persists a fresh account together with its outstanding
// verification token in a single insert.
func (s *Service) CreateUnverified(
	ctx context.Context,
	name, email, passwordHash, tokenDigest string,
	tokenExpiresAt time.Time,
) (*auth.Account, error) {
	user := &User{
		ID:                         uuid.New().String(),
		Name:                       strings.TrimSpace(name),
		Email:                      NormalizeEmail(email),
		PasswordHash:               passwordHash,
		IsVerified:                 false,
		Roles:                      DefaultRoles(),
		EmailVerificationTokenHash: &tokenDigest,
		EmailVerificationExpiresAt: &tokenExpiresAt,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	return toAccount(user), nil
}

func (s *Service) ConsumeVerificationToken(
	ctx context.Context,
	digest string,
	now time.Time,
) (*auth.Account, error) {
	user, err := s.repo.ConsumeVerificationToken(ctx, digest, now)
	if err != nil {
		return nil, err
	}

	return toAccount(user), nil
}

func (s *Service) SetResetToken(
	ctx context.Context,
	id, digest string,
	expiresAt time.Time,
) error {
	return s.repo.SetResetToken(ctx, id, digest, expiresAt)
}

func (s *Service) ConsumeResetToken(
	ctx context.Context,
	digest, newPasswordHash string,
	now time.Time,
) (*auth.Account, error) {
	user, err := s.repo.ConsumeResetToken(ctx, digest, newPasswordHash, now)
	if err != nil {
		return nil, err
	}

	return toAccount(user), nil
}

func (s *Service) TouchLastLogin(ctx context.Context, id string) error {
	return s.repo.TouchLastLogin(ctx, id)
}

func (s *Service) UpdatePassword(
	ctx context.Context,
	id, passwordHash string,
) error {
	return s.repo.UpdatePassword(ctx, id, passwordHash)
}

func toAccount(u *User) *auth.Account {
	return &auth.Account{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		IsVerified:   u.IsVerified,
		Roles:        append([]string(nil), u.Roles...),
	}
}

// --- middleware.AccountSource ---

// GetAccount resolves an account for the authorization guard. The password
// hash stays behind; the guard never sees it.
func (s *Service) GetAccount(
	ctx context.Context,
	id string,
) (*middleware.Account, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return &middleware.Account{
		ID:         user.ID,
		Name:       user.Name,
		Email:      user.Email,
		Roles:      append([]string(nil), user.Roles...),
		IsVerified: user.IsVerified,
	}, nil
}

var (
	_ auth.AccountProvider     = (*Service)(nil)
	_ middleware.AccountSource = (*Service)(nil)
)
