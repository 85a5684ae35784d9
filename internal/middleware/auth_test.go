// AngelaMos | 2026
// auth_test.go

package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/identity-api/internal/core"
)

type stubVerifier struct {
	subject string
	err     error
}

func (s *stubVerifier) VerifyAccessToken(
	_ context.Context,
	_ string,
) (string, error) {
	return s.subject, s.err
}

type stubAccounts struct {
	accounts map[string]*Account
}

func (s *stubAccounts) GetAccount(
	_ context.Context,
	id string,
) (*Account, error) {
	account, ok := s.accounts[id]
	if !ok {
		return nil, fmt.Errorf("get account: %w", core.ErrNotFound)
	}
	return account, nil
}

func okHandler(captured **Account) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if captured != nil {
			*captured = GetAccount(r.Context())
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthenticatorAttachesAccount(t *testing.T) {
	accounts := &stubAccounts{accounts: map[string]*Account{
		"user-1": {ID: "user-1", Email: "a@example.com", Roles: []string{"user"}},
	}}
	verifier := &stubVerifier{subject: "user-1"}

	var captured *Account
	handler := Authenticator(verifier, accounts)(okHandler(&captured))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer some-token")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, captured)
	assert.Equal(t, "user-1", captured.ID)
}

func TestAuthenticatorMissingToken(t *testing.T) {
	handler := Authenticator(
		&stubVerifier{subject: "user-1"},
		&stubAccounts{},
	)(okHandler(nil))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticatorBadToken(t *testing.T) {
	handler := Authenticator(
		&stubVerifier{err: core.ErrTokenInvalid},
		&stubAccounts{},
	)(okHandler(nil))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer tampered")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "TOKEN_INVALID")
}

// A valid token for a deleted account must fail closed.
func TestAuthenticatorVanishedAccount(t *testing.T) {
	handler := Authenticator(
		&stubVerifier{subject: "ghost"},
		&stubAccounts{accounts: map[string]*Account{}},
	)(okHandler(nil))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer valid-but-orphaned")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAdmin(t *testing.T) {
	tests := []struct {
		name       string
		account    *Account
		wantStatus int
	}{
		{
			name:       "admin passes",
			account:    &Account{ID: "1", Roles: []string{"user", "admin"}},
			wantStatus: http.StatusOK,
		},
		{
			name:       "plain user forbidden",
			account:    &Account{ID: "2", Roles: []string{"user"}},
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "unauthenticated gets 401 not 403",
			account:    nil,
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := RequireAdmin(okHandler(nil))

			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tt.account != nil {
				ctx := context.WithValue(req.Context(), accountKey, tt.account)
				req = req.WithContext(ctx)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestExtractToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{name: "bearer token", header: "Bearer abc123", want: "abc123"},
		{name: "lowercase scheme", header: "bearer abc123", want: "abc123"},
		{name: "missing header", header: "", want: ""},
		{name: "wrong scheme", header: "Basic dXNlcjpwYXNz", want: ""},
		{name: "scheme only", header: "Bearer", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			assert.Equal(t, tt.want, ExtractToken(req))
		})
	}
}

func TestContextHelpersWithoutAccount(t *testing.T) {
	ctx := context.Background()

	assert.Nil(t, GetAccount(ctx))
	assert.Empty(t, GetUserID(ctx))
	assert.False(t, IsAdmin(ctx))
}
