// AngelaMos | 2026
// repository.go

package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/carterperez-dev/identity-api/internal/core"
)

// Repository is the durable credential store. The Consume* methods are the
// serialization point for one-time tokens: each is a single conditional
// UPDATE, so when two requests race to consume the same token the database
// picks exactly one winner and the loser sees ErrNotFound.
type Repository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	UpdateProfile(ctx context.Context, user *User) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdateRoles(ctx context.Context, id string, roles Roles) error
	ConsumeVerificationToken(
		ctx context.Context,
		digest string,
		now time.Time,
	) (*User, error)
	SetResetToken(
		ctx context.Context,
		id, digest string,
		expiresAt time.Time,
	) error
	ConsumeResetToken(
		ctx context.Context,
		digest, newPasswordHash string,
		now time.Time,
	) (*User, error)
	TouchLastLogin(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, params ListUsersParams) ([]User, int, error)
	Stats(ctx context.Context) (AccountStats, error)
}

const userColumns = `
	id, name, email, password_hash, is_verified, roles,
	email_verification_token_hash, email_verification_expires_at,
	password_reset_token_hash, password_reset_expires_at,
	last_login_at, created_at, updated_at`

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (
			id, name, email, password_hash, is_verified, roles,
			email_verification_token_hash, email_verification_expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`

	err := r.db.GetContext(ctx, user, query,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.IsVerified,
		user.Roles,
		user.EmailVerificationTokenHash,
		user.EmailVerificationExpiresAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("create user: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create user: %w", err)
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*User, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM users WHERE id = $1`,
		userColumns,
	)

	var user User
	err := r.db.GetContext(ctx, &user, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get user: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	return &user, nil
}

func (r *repository) GetByEmail(
	ctx context.Context,
	email string,
) (*User, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM users WHERE email = $1`,
		userColumns,
	)

	var user User
	err := r.db.GetContext(ctx, &user, query, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get user by email: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}

	return &user, nil
}

func (r *repository) UpdateProfile(ctx context.Context, user *User) error {
	query := `
		UPDATE users
		SET name = $2, email = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &user.UpdatedAt, query,
		user.ID,
		user.Name,
		user.Email,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update profile: %w", core.ErrNotFound)
	}
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("update profile: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("update profile: %w", err)
	}

	return nil
}

func (r *repository) UpdatePassword(
	ctx context.Context,
	id, passwordHash string,
) error {
	query := `
		UPDATE users
		SET password_hash = $2, updated_at = NOW()
		WHERE id = $1`

	return r.execExpectingRow(ctx, "update password", query, id, passwordHash)
}

func (r *repository) UpdateRoles(
	ctx context.Context,
	id string,
	roles Roles,
) error {
	query := `
		UPDATE users
		SET roles = $2, updated_at = NOW()
		WHERE id = $1`

	return r.execExpectingRow(ctx, "update roles", query, id, roles)
}

func (r *repository) ConsumeVerificationToken(
	ctx context.Context,
	digest string,
	now time.Time,
) (*User, error) {
	query := fmt.Sprintf(`
		UPDATE users
		SET is_verified = true,
		    email_verification_token_hash = NULL,
		    email_verification_expires_at = NULL,
		    updated_at = NOW()
		WHERE email_verification_token_hash = $1
		  AND email_verification_expires_at > $2
		RETURNING %s`, userColumns)

	var user User
	err := r.db.GetContext(ctx, &user, query, digest, now)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("consume verification token: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("consume verification token: %w", err)
	}

	return &user, nil
}

func (r *repository) SetResetToken(
	ctx context.Context,
	id, digest string,
	expiresAt time.Time,
) error {
	query := `
		UPDATE users
		SET password_reset_token_hash = $2,
		    password_reset_expires_at = $3,
		    updated_at = NOW()
		WHERE id = $1`

	return r.execExpectingRow(ctx, "set reset token", query, id, digest, expiresAt)
}

func (r *repository) ConsumeResetToken(
	ctx context.Context,
	digest, newPasswordHash string,
	now time.Time,
) (*User, error) {
	query := fmt.Sprintf(`
		UPDATE users
		SET password_hash = $2,
		    password_reset_token_hash = NULL,
		    password_reset_expires_at = NULL,
		    updated_at = NOW()
		WHERE password_reset_token_hash = $1
		  AND password_reset_expires_at > $3
		RETURNING %s`, userColumns)

	var user User
	err := r.db.GetContext(ctx, &user, query, digest, newPasswordHash, now)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("consume reset token: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("consume reset token: %w", err)
	}

	return &user, nil
}

func (r *repository) TouchLastLogin(ctx context.Context, id string) error {
	query := `
		UPDATE users
		SET last_login_at = NOW()
		WHERE id = $1`

	return r.execExpectingRow(ctx, "touch last login", query, id)
}

func (r *repository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM users WHERE id = $1`

	return r.execExpectingRow(ctx, "delete user", query, id)
}

func (r *repository) List(
	ctx context.Context,
	params ListUsersParams,
) ([]User, int, error) {
	params.Normalize()

	whereClause := "TRUE"
	var args []any
	argIdx := 1

	if params.Search != "" {
		whereClause = fmt.Sprintf(
			"(email ILIKE $%d OR name ILIKE $%d)", argIdx, argIdx)
		args = append(args, "%"+escapeLike(params.Search)+"%")
		argIdx++
	}

	countQuery := fmt.Sprintf(
		"SELECT COUNT(*) FROM users WHERE %s",
		whereClause,
	)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM users
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		userColumns, whereClause, argIdx, argIdx+1)

	args = append(args, params.Limit, params.Offset())

	var users []User
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	return users, total, nil
}

func (r *repository) Stats(ctx context.Context) (AccountStats, error) {
	query := `
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE is_verified) AS verified,
			COUNT(*) FILTER (WHERE 'admin' = ANY(roles)) AS admins
		FROM users`

	var stats AccountStats
	if err := r.db.GetContext(ctx, &stats, query); err != nil {
		return AccountStats{}, fmt.Errorf("account stats: %w", err)
	}

	return stats, nil
}

func (r *repository) execExpectingRow(
	ctx context.Context,
	op, query string,
	args ...any,
) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if rows == 0 {
		return fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}

	return nil
}

func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "%", "\\%")
	s = strings.ReplaceAll(s, "_", "\\_")
	return s
}
