// AngelaMos | 2026
// auth.go

package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/carterperez-dev/identity-api/internal/core"
)

const accountKey contextKey = "account"

// Account is the identity the guard attaches to the request context. It is
// resolved fresh from the store on every request, so a deleted account
// fails authentication even while its access token is still unexpired.
type Account struct {
	ID         string
	Name       string
	Email      string
	Roles      []string
	IsVerified bool
}

func (a *Account) HasRole(role string) bool {
	for _, candidate := range a.Roles {
		if candidate == role {
			return true
		}
	}
	return false
}

type TokenVerifier interface {
	VerifyAccessToken(ctx context.Context, token string) (string, error)
}

type AccountSource interface {
	GetAccount(ctx context.Context, id string) (*Account, error)
}

// Authenticator resolves the bearer access token to an account and attaches
// it to the context. Every failure is a uniform 401: a missing header, a
// tampered token, an expired token and a vanished account all look the
// same from outside.
func Authenticator(
	verifier TokenVerifier,
	accounts AccountSource,
) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractToken(r)

			if token == "" {
				core.JSONError(
					w,
					core.UnauthorizedError("missing authorization token"),
				)
				return
			}

			userID, err := verifier.VerifyAccessToken(r.Context(), token)
			if err != nil {
				core.JSONError(w, core.TokenInvalidError())
				return
			}

			account, err := accounts.GetAccount(r.Context(), userID)
			if err != nil {
				core.JSONError(w, core.UnauthorizedError("user not found"))
				return
			}

			ctx := context.WithValue(r.Context(), accountKey, account)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRoles passes when the account holds at least one of the required
// roles. Authentication (401) is always checked before authorization (403).
func RequireRoles(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			account := GetAccount(r.Context())

			if account == nil {
				core.JSONError(
					w,
					core.UnauthorizedError("authentication required"),
				)
				return
			}

			for _, role := range roles {
				if account.HasRole(role) {
					next.ServeHTTP(w, r)
					return
				}
			}

			core.JSONError(w, core.ForbiddenError("insufficient permissions"))
		})
	}
}

func RequireAdmin(next http.Handler) http.Handler {
	return RequireRoles("admin")(next)
}

func ExtractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}

func GetAccount(ctx context.Context) *Account {
	if account, ok := ctx.Value(accountKey).(*Account); ok {
		return account
	}
	return nil
}

func GetUserID(ctx context.Context) string {
	if account := GetAccount(ctx); account != nil {
		return account.ID
	}
	return ""
}

func IsAdmin(ctx context.Context) bool {
	if account := GetAccount(ctx); account != nil {
		return account.HasRole("admin")
	}
	return false
}
