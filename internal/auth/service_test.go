// AngelaMos | 2026
// service_test.go

package auth

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/identity-api/internal/config"
	"github.com/carterperez-dev/identity-api/internal/core"
)

type fakeRecord struct {
	account       Account
	verifyDigest  string
	verifyExpires time.Time
	resetDigest   string
	resetExpires  time.Time
	lastLoginAt   *time.Time
}

// fakeAccounts is an in-memory AccountProvider with the same one-winner
// consume semantics as the real store.
type fakeAccounts struct {
	mu   sync.Mutex
	byID map[string]*fakeRecord
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{byID: make(map[string]*fakeRecord)}
}

func (f *fakeAccounts) GetByID(_ context.Context, id string) (*Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	rec, ok := f.byID[id]
	if !ok {
		return nil, fmt.Errorf("get account: %w", core.ErrNotFound)
	}

	account := rec.account
	return &account, nil
}

func (f *fakeAccounts) GetByEmail(
	_ context.Context,
	email string,
) (*Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, rec := range f.byID {
		if rec.account.Email == email {
			account := rec.account
			return &account, nil
		}
	}

	return nil, fmt.Errorf("get account by email: %w", core.ErrNotFound)
}

func (f *fakeAccounts) CreateUnverified(
	_ context.Context,
	name, email, passwordHash, tokenDigest string,
	tokenExpiresAt time.Time,
) (*Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, rec := range f.byID {
		if rec.account.Email == email {
			return nil, fmt.Errorf("create account: %w", core.ErrDuplicateKey)
		}
	}

	rec := &fakeRecord{
		account: Account{
			ID:           uuid.New().String(),
			Name:         name,
			Email:        email,
			PasswordHash: passwordHash,
			Roles:        []string{"user"},
		},
		verifyDigest:  tokenDigest,
		verifyExpires: tokenExpiresAt,
	}
	f.byID[rec.account.ID] = rec

	account := rec.account
	return &account, nil
}

func (f *fakeAccounts) ConsumeVerificationToken(
	_ context.Context,
	digest string,
	now time.Time,
) (*Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, rec := range f.byID {
		if rec.verifyDigest == digest && rec.verifyExpires.After(now) {
			rec.account.IsVerified = true
			rec.verifyDigest = ""
			rec.verifyExpires = time.Time{}

			account := rec.account
			return &account, nil
		}
	}

	return nil, fmt.Errorf("consume verification token: %w", core.ErrNotFound)
}

func (f *fakeAccounts) SetResetToken(
	_ context.Context,
	id, digest string,
	expiresAt time.Time,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	rec, ok := f.byID[id]
	if !ok {
		return fmt.Errorf("set reset token: %w", core.ErrNotFound)
	}

	rec.resetDigest = digest
	rec.resetExpires = expiresAt
	return nil
}

func (f *fakeAccounts) ConsumeResetToken(
	_ context.Context,
	digest, newPasswordHash string,
	now time.Time,
) (*Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, rec := range f.byID {
		if rec.resetDigest == digest && rec.resetExpires.After(now) {
			rec.account.PasswordHash = newPasswordHash
			rec.resetDigest = ""
			rec.resetExpires = time.Time{}

			account := rec.account
			return &account, nil
		}
	}

	return nil, fmt.Errorf("consume reset token: %w", core.ErrNotFound)
}

func (f *fakeAccounts) TouchLastLogin(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	rec, ok := f.byID[id]
	if !ok {
		return fmt.Errorf("touch last login: %w", core.ErrNotFound)
	}

	now := time.Now()
	rec.lastLoginAt = &now
	return nil
}

func (f *fakeAccounts) UpdatePassword(
	_ context.Context,
	id, passwordHash string,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	rec, ok := f.byID[id]
	if !ok {
		return fmt.Errorf("update password: %w", core.ErrNotFound)
	}

	rec.account.PasswordHash = passwordHash
	return nil
}

func (f *fakeAccounts) delete(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.byID, id)
}

type sentMail struct {
	to    string
	token string
}

type fakeMailer struct {
	mu            sync.Mutex
	verifications []sentMail
	resets        []sentMail
	fail          bool
}

func (m *fakeMailer) SendVerificationEmail(
	_ context.Context,
	to, token string,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fail {
		return fmt.Errorf("smtp unavailable")
	}

	m.verifications = append(m.verifications, sentMail{to: to, token: token})
	return nil
}

func (m *fakeMailer) SendPasswordResetEmail(
	_ context.Context,
	to, token string,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fail {
		return fmt.Errorf("smtp unavailable")
	}

	m.resets = append(m.resets, sentMail{to: to, token: token})
	return nil
}

func (m *fakeMailer) lastVerification(t *testing.T) sentMail {
	t.Helper()

	m.mu.Lock()
	defer m.mu.Unlock()

	require.NotEmpty(t, m.verifications)
	return m.verifications[len(m.verifications)-1]
}

func (m *fakeMailer) lastReset(t *testing.T) sentMail {
	t.Helper()

	m.mu.Lock()
	defer m.mu.Unlock()

	require.NotEmpty(t, m.resets)
	return m.resets[len(m.resets)-1]
}

func newTestService(t *testing.T) (*Service, *fakeAccounts, *fakeMailer) {
	t.Helper()
	return newTestServiceWithConfig(t, testAuthConfig())
}

func newTestServiceWithConfig(
	t *testing.T,
	cfg config.AuthConfig,
) (*Service, *fakeAccounts, *fakeMailer) {
	t.Helper()

	accounts := newFakeAccounts()
	mailer := &fakeMailer{}
	tm := newTestTokenManager(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	svc := NewService(accounts, tm, mailer, cfg, logger)
	return svc, accounts, mailer
}

func registerVerified(
	t *testing.T,
	svc *Service,
	mailer *fakeMailer,
	email, password string,
) *Account {
	t.Helper()
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterRequest{
		Name:     "Test User",
		Email:    email,
		Password: password,
	})
	require.NoError(t, err)

	account, err := svc.VerifyEmail(ctx, mailer.lastVerification(t).token)
	require.NoError(t, err)
	require.True(t, account.IsVerified)

	return account
}

func TestRegisterCreatesUnverifiedAccount(t *testing.T) {
	svc, accounts, mailer := newTestService(t)
	ctx := context.Background()

	account, err := svc.Register(ctx, RegisterRequest{
		Name:     "  Ada Lovelace  ",
		Email:    "Ada@Example.COM",
		Password: "analytical-engine",
	})
	require.NoError(t, err)

	assert.Equal(t, "Ada Lovelace", account.Name)
	assert.Equal(t, "ada@example.com", account.Email)
	assert.False(t, account.IsVerified)
	assert.NotEqual(t, "analytical-engine", account.PasswordHash)

	sent := mailer.lastVerification(t)
	assert.Equal(t, "ada@example.com", sent.to)

	rec := accounts.byID[account.ID]
	assert.Equal(t, core.HashToken(sent.token), rec.verifyDigest,
		"store must hold the digest, never the plaintext")
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	req := RegisterRequest{
		Name:     "First",
		Email:    "taken@example.com",
		Password: "password-one",
	}
	_, err := svc.Register(ctx, req)
	require.NoError(t, err)

	req.Name = "Second"
	_, err = svc.Register(ctx, req)
	assert.ErrorIs(t, err, core.ErrDuplicateKey)
}

func TestRegisterEmailDeliveryFailure(t *testing.T) {
	svc, _, mailer := newTestService(t)
	mailer.fail = true

	_, err := svc.Register(context.Background(), RegisterRequest{
		Name:     "Unlucky",
		Email:    "unlucky@example.com",
		Password: "some-password",
	})
	assert.ErrorIs(t, err, core.ErrEmailDelivery)
}

func TestVerifyEmailConsumesTokenOnce(t *testing.T) {
	svc, _, mailer := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterRequest{
		Name:     "Grace",
		Email:    "grace@example.com",
		Password: "cobol-forever",
	})
	require.NoError(t, err)

	token := mailer.lastVerification(t).token

	account, err := svc.VerifyEmail(ctx, token)
	require.NoError(t, err)
	assert.True(t, account.IsVerified)

	_, err = svc.VerifyEmail(ctx, token)
	assert.ErrorIs(t, err, core.ErrOneTimeToken)
}

func TestVerifyEmailUnknownToken(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.VerifyEmail(context.Background(), "never-issued")
	assert.ErrorIs(t, err, core.ErrOneTimeToken)
}

func TestVerifyEmailExpiredToken(t *testing.T) {
	cfg := testAuthConfig()
	cfg.VerificationExpire = -time.Minute
	svc, _, mailer := newTestServiceWithConfig(t, cfg)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterRequest{
		Name:     "Late",
		Email:    "late@example.com",
		Password: "snoozed-too-long",
	})
	require.NoError(t, err)

	_, err = svc.VerifyEmail(ctx, mailer.lastVerification(t).token)
	assert.ErrorIs(t, err, core.ErrOneTimeToken)
}

func TestLoginSuccess(t *testing.T) {
	svc, _, mailer := newTestService(t)
	ctx := context.Background()

	registered := registerVerified(
		t, svc, mailer, "login@example.com", "open-sesame")

	account, access, refresh, err := svc.Login(ctx, LoginRequest{
		Email:    "login@example.com",
		Password: "open-sesame",
	})
	require.NoError(t, err)
	assert.Equal(t, registered.ID, account.ID)
	assert.NotEmpty(t, access)
	assert.NotEmpty(t, refresh)
	assert.NotEqual(t, access, refresh)

	subject, err := svc.tokens.Verify(ctx, DomainAccess, access)
	require.NoError(t, err)
	assert.Equal(t, account.ID, subject)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _, mailer := newTestService(t)

	registerVerified(t, svc, mailer, "victim@example.com", "right-password")

	_, _, _, err := svc.Login(context.Background(), LoginRequest{
		Email:    "victim@example.com",
		Password: "wrong-password",
	})
	assert.ErrorIs(t, err, core.ErrUnauthorized)
}

func TestLoginUnknownEmail(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, _, _, err := svc.Login(context.Background(), LoginRequest{
		Email:    "nobody@example.com",
		Password: "whatever",
	})
	assert.ErrorIs(t, err, core.ErrUnauthorized)
}

func TestLoginUnverifiedAccount(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterRequest{
		Name:     "Impatient",
		Email:    "impatient@example.com",
		Password: "cant-wait-123",
	})
	require.NoError(t, err)

	_, _, _, err = svc.Login(ctx, LoginRequest{
		Email:    "impatient@example.com",
		Password: "cant-wait-123",
	})
	assert.ErrorIs(t, err, core.ErrNotVerified)
}

func TestRefreshMintsNewAccessToken(t *testing.T) {
	svc, _, mailer := newTestService(t)
	ctx := context.Background()

	account := registerVerified(
		t, svc, mailer, "refresher@example.com", "long-session")

	refresh, err := svc.tokens.Mint(DomainRefresh, account.ID)
	require.NoError(t, err)

	access, rotated, err := svc.Refresh(ctx, refresh)
	require.NoError(t, err)

	subject, err := svc.tokens.Verify(ctx, DomainAccess, access)
	require.NoError(t, err)
	assert.Equal(t, account.ID, subject)

	// A fresh refresh token comes back alongside the access token.
	assert.NotEmpty(t, rotated)
	subject, err = svc.tokens.Verify(ctx, DomainRefresh, rotated)
	require.NoError(t, err)
	assert.Equal(t, account.ID, subject)
}

func TestRefreshRejectsInvalidToken(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, _, err := svc.Refresh(context.Background(), "garbage")
	assert.ErrorIs(t, err, core.ErrTokenInvalid)
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	svc, _, mailer := newTestService(t)
	ctx := context.Background()

	account := registerVerified(
		t, svc, mailer, "sneaky@example.com", "domain-swap")

	access, err := svc.tokens.Mint(DomainAccess, account.ID)
	require.NoError(t, err)

	_, _, err = svc.Refresh(ctx, access)
	assert.ErrorIs(t, err, core.ErrTokenInvalid)
}

func TestRefreshAfterAccountDeleted(t *testing.T) {
	svc, accounts, mailer := newTestService(t)
	ctx := context.Background()

	account := registerVerified(
		t, svc, mailer, "deleted@example.com", "soon-gone-123")

	refresh, err := svc.tokens.Mint(DomainRefresh, account.ID)
	require.NoError(t, err)

	accounts.delete(account.ID)

	_, _, err = svc.Refresh(ctx, refresh)
	assert.ErrorIs(t, err, core.ErrUnauthorized)
}

func TestForgotPasswordUnknownEmailIsSilent(t *testing.T) {
	svc, _, mailer := newTestService(t)

	err := svc.ForgotPassword(context.Background(), "ghost@example.com")
	require.NoError(t, err)
	assert.Empty(t, mailer.resets)
}

func TestForgotPasswordSwallowsMailFailure(t *testing.T) {
	svc, _, mailer := newTestService(t)
	ctx := context.Background()

	registerVerified(t, svc, mailer, "flaky@example.com", "stable-password")
	mailer.fail = true

	// Delivery trouble for a known address must look exactly like an
	// unknown one, or the endpoint becomes an account oracle.
	err := svc.ForgotPassword(ctx, "flaky@example.com")
	assert.NoError(t, err)

	err = svc.ForgotPassword(ctx, "unknown@example.com")
	assert.NoError(t, err)
}

func TestResetPasswordExpiredToken(t *testing.T) {
	cfg := testAuthConfig()
	cfg.ResetExpire = -time.Minute
	svc, _, mailer := newTestServiceWithConfig(t, cfg)
	ctx := context.Background()

	registerVerified(t, svc, mailer, "slow@example.com", "old-password")

	require.NoError(t, svc.ForgotPassword(ctx, "slow@example.com"))
	token := mailer.lastReset(t).token

	_, err := svc.ResetPassword(ctx, token, "new-password-99")
	assert.ErrorIs(t, err, core.ErrOneTimeToken)

	// The stale token changed nothing.
	_, _, _, err = svc.Login(ctx, LoginRequest{
		Email:    "slow@example.com",
		Password: "old-password",
	})
	assert.NoError(t, err)
}

func TestPasswordResetFlow(t *testing.T) {
	svc, _, mailer := newTestService(t)
	ctx := context.Background()

	registerVerified(t, svc, mailer, "reset@example.com", "old-password")

	require.NoError(t, svc.ForgotPassword(ctx, "reset@example.com"))
	token := mailer.lastReset(t).token

	_, err := svc.ResetPassword(ctx, token, "new-password-99")
	require.NoError(t, err)

	// Old credentials stop working, new ones work.
	_, _, _, err = svc.Login(ctx, LoginRequest{
		Email:    "reset@example.com",
		Password: "old-password",
	})
	assert.ErrorIs(t, err, core.ErrUnauthorized)

	_, _, _, err = svc.Login(ctx, LoginRequest{
		Email:    "reset@example.com",
		Password: "new-password-99",
	})
	assert.NoError(t, err)

	// The token was consumed by the first reset.
	_, err = svc.ResetPassword(ctx, token, "another-password")
	assert.ErrorIs(t, err, core.ErrOneTimeToken)
}

func TestResetPasswordUnknownToken(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.ResetPassword(
		context.Background(),
		"never-issued",
		"irrelevant-password",
	)
	assert.ErrorIs(t, err, core.ErrOneTimeToken)
}
