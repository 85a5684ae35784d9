// AngelaMos | 2026
// entity.go

package user

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// User is the persistent account aggregate. The one-time token fields are
// paired: a digest and its expiry are set and cleared together.
type User struct {
	ID                         string     `db:"id"`
	Name                       string     `db:"name"`
	Email                      string     `db:"email"`
	PasswordHash               string     `db:"password_hash"`
	IsVerified                 bool       `db:"is_verified"`
	Roles                      Roles      `db:"roles"`
	EmailVerificationTokenHash *string    `db:"email_verification_token_hash"`
	EmailVerificationExpiresAt *time.Time `db:"email_verification_expires_at"`
	PasswordResetTokenHash     *string    `db:"password_reset_token_hash"`
	PasswordResetExpiresAt     *time.Time `db:"password_reset_expires_at"`
	LastLoginAt                *time.Time `db:"last_login_at"`
	CreatedAt                  time.Time  `db:"created_at"`
	UpdatedAt                  time.Time  `db:"updated_at"`
}

func (u *User) IsAdmin() bool {
	return u.Roles.Has(RoleAdmin)
}

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAdmin
}

// Roles is a non-empty set of role names stored as a Postgres text[].
type Roles []string

func DefaultRoles() Roles {
	return Roles{RoleUser}
}

func (r Roles) Has(role string) bool {
	for _, candidate := range r {
		if candidate == role {
			return true
		}
	}
	return false
}

// Validate rejects empty sets, duplicates, and unknown members, naming the
// first bad value it finds.
func (r Roles) Validate() error {
	if len(r) == 0 {
		return fmt.Errorf("roles must not be empty")
	}

	seen := make(map[string]struct{}, len(r))
	for _, role := range r {
		if !ValidRole(role) {
			return fmt.Errorf("invalid role %q", role)
		}
		if _, dup := seen[role]; dup {
			return fmt.Errorf("duplicate role %q", role)
		}
		seen[role] = struct{}{}
	}

	return nil
}

// Scan parses the text[] literal the pgx stdlib driver hands back, e.g.
// `{user,admin}`. Role names never need array quoting.
func (r *Roles) Scan(src any) error {
	var literal string

	switch v := src.(type) {
	case nil:
		*r = nil
		return nil
	case string:
		literal = v
	case []byte:
		literal = string(v)
	default:
		return fmt.Errorf("scan roles: unsupported type %T", src)
	}

	literal = strings.TrimPrefix(literal, "{")
	literal = strings.TrimSuffix(literal, "}")
	if literal == "" {
		*r = Roles{}
		return nil
	}

	parts := strings.Split(literal, ",")
	roles := make(Roles, 0, len(parts))
	for _, part := range parts {
		roles = append(roles, strings.Trim(part, `"`))
	}

	*r = roles
	return nil
}

func (r Roles) Value() (driver.Value, error) {
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("encode roles: %w", err)
	}
	return "{" + strings.Join(r, ",") + "}", nil
}
