// AngelaMos | 2026
// dto.go

package auth

import (
	"context"
	"time"
)

// Account is the credential-bearing view of a user that the auth flows
// operate on. It carries the password hash; it never leaves this package.
type Account struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	IsVerified   bool
	Roles        []string
}

// AccountProvider is the persistence surface the auth flows need. The user
// package implements it on top of its repository.
type AccountProvider interface {
	GetByID(ctx context.Context, id string) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
	CreateUnverified(
		ctx context.Context,
		name, email, passwordHash, tokenDigest string,
		tokenExpiresAt time.Time,
	) (*Account, error)
	ConsumeVerificationToken(
		ctx context.Context,
		digest string,
		now time.Time,
	) (*Account, error)
	SetResetToken(
		ctx context.Context,
		id, digest string,
		expiresAt time.Time,
	) error
	ConsumeResetToken(
		ctx context.Context,
		digest, newPasswordHash string,
		now time.Time,
	) (*Account, error)
	TouchLastLogin(ctx context.Context, id string) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

type RegisterRequest struct {
	Name     string `json:"name"     validate:"required,min=1,max=100"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token"       validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8,max=128"`
}

// AccountResponse is the public projection of an account returned from the
// auth endpoints.
type AccountResponse struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Email      string   `json:"email"`
	Roles      []string `json:"roles"`
	IsVerified bool     `json:"isVerified"`
}

type RegisterResponse struct {
	Message string          `json:"message"`
	User    AccountResponse `json:"user"`
}

type LoginResponse struct {
	Message     string          `json:"message"`
	AccessToken string          `json:"accessToken"`
	User        AccountResponse `json:"user"`
}

type RefreshResponse struct {
	AccessToken string `json:"accessToken"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func toAccountResponse(a *Account) AccountResponse {
	return AccountResponse{
		ID:         a.ID,
		Name:       a.Name,
		Email:      a.Email,
		Roles:      append([]string(nil), a.Roles...),
		IsVerified: a.IsVerified,
	}
}
