// AngelaMos | 2026
// tokens.go

package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"

	"github.com/carterperez-dev/identity-api/internal/config"
	"github.com/carterperez-dev/identity-api/internal/core"
)

// Domain selects one of the two independent signing domains. Each has its
// own symmetric key and expiry policy, so a refresh token can never pass
// verification as an access token or vice versa.
type Domain string

const (
	DomainAccess  Domain = "access"
	DomainRefresh Domain = "refresh"
)

type domainKey struct {
	key jwk.Key
	ttl time.Duration
}

type TokenManager struct {
	domains  map[Domain]domainKey
	issuer   string
	audience string
}

func NewTokenManager(cfg config.AuthConfig) (*TokenManager, error) {
	accessKey, err := jwk.Import([]byte(cfg.AccessTokenSecret))
	if err != nil {
		return nil, fmt.Errorf("import access key: %w", err)
	}

	refreshKey, err := jwk.Import([]byte(cfg.RefreshTokenSecret))
	if err != nil {
		return nil, fmt.Errorf("import refresh key: %w", err)
	}

	return &TokenManager{
		domains: map[Domain]domainKey{
			DomainAccess:  {key: accessKey, ttl: cfg.AccessTokenExpire},
			DomainRefresh: {key: refreshKey, ttl: cfg.RefreshTokenExpire},
		},
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
	}, nil
}

func (m *TokenManager) Mint(domain Domain, userID string) (string, error) {
	dk, ok := m.domains[domain]
	if !ok {
		return "", fmt.Errorf("mint token: unknown domain %q", domain)
	}

	now := time.Now()

	token, err := jwt.NewBuilder().
		JwtID(uuid.New().String()).
		Issuer(m.issuer).
		Audience([]string{m.audience}).
		Subject(userID).
		IssuedAt(now).
		Expiration(now.Add(dk.ttl)).
		NotBefore(now).
		Claim("type", string(domain)).
		Build()
	if err != nil {
		return "", fmt.Errorf("build token: %w", err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256(), dk.key))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return string(signed), nil
}

// Verify checks a token against one domain and returns the embedded user
// id. Every failure mode (bad signature, malformed input, wrong domain,
// expiry) collapses into core.ErrTokenInvalid so callers cannot tell them
// apart.
func (m *TokenManager) Verify(
	ctx context.Context,
	domain Domain,
	tokenString string,
) (string, error) {
	dk, ok := m.domains[domain]
	if !ok {
		return "", fmt.Errorf("verify token: unknown domain %q", domain)
	}

	token, err := jwt.Parse(
		[]byte(tokenString),
		jwt.WithKey(jwa.HS256(), dk.key),
		jwt.WithValidate(true),
		jwt.WithIssuer(m.issuer),
		jwt.WithAudience(m.audience),
	)
	if err != nil {
		return "", fmt.Errorf("verify token: %w", core.ErrTokenInvalid)
	}

	var tokenType string
	if err := token.Get("type", &tokenType); err != nil ||
		tokenType != string(domain) {
		return "", fmt.Errorf("verify token: %w", core.ErrTokenInvalid)
	}

	subject, ok := token.Subject()
	if !ok || subject == "" {
		return "", fmt.Errorf("verify token: %w", core.ErrTokenInvalid)
	}

	return subject, nil
}

// VerifyAccessToken satisfies the middleware guard's verifier contract.
func (m *TokenManager) VerifyAccessToken(
	ctx context.Context,
	tokenString string,
) (string, error) {
	return m.Verify(ctx, DomainAccess, tokenString)
}

func (m *TokenManager) RefreshTTL() time.Duration {
	return m.domains[DomainRefresh].ttl
}

func (m *TokenManager) AccessTTL() time.Duration {
	return m.domains[DomainAccess].ttl
}
