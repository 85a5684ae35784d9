// AngelaMos | 2026
// security_test.go

package core

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/argon2"
)

func TestHashPasswordProducesPHCFormat(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(hash, "$argon2id$"))
	assert.Len(t, strings.Split(hash, "$"), 6)
}

func TestHashPasswordSaltsEveryCall(t *testing.T) {
	first, err := HashPassword("same password")
	require.NoError(t, err)

	second, err := HashPassword("same password")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestVerifyPassword(t *testing.T) {
	hash, err := HashPassword("s3cret-passw0rd")
	require.NoError(t, err)

	valid, err := VerifyPassword("s3cret-passw0rd", hash)
	require.NoError(t, err)
	assert.True(t, valid)

	valid, err = VerifyPassword("wrong password", hash)
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestVerifyPasswordRejectsMalformedHash(t *testing.T) {
	_, err := VerifyPassword("anything", "not-a-phc-string")
	assert.Error(t, err)
}

func TestVerifyPasswordTimingSafeUnknownAccount(t *testing.T) {
	valid, newHash, err := VerifyPasswordTimingSafe("anything", nil)
	require.NoError(t, err)
	assert.False(t, valid)
	assert.Empty(t, newHash)

	empty := ""
	valid, _, err = VerifyPasswordTimingSafe("anything", &empty)
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestVerifyPasswordTimingSafeKnownAccount(t *testing.T) {
	hash, err := HashPassword("the right one")
	require.NoError(t, err)

	valid, newHash, err := VerifyPasswordTimingSafe("the right one", &hash)
	require.NoError(t, err)
	assert.True(t, valid)
	assert.Empty(t, newHash, "current parameters should not trigger a rehash")

	valid, _, err = VerifyPasswordTimingSafe("the wrong one", &hash)
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestVerifyPasswordWithRehashOnParameterDrift(t *testing.T) {
	// Same password hashed under weaker parameters than the current ones.
	stale := hashWithParams(t, "magic-words", 16*1024, 2, 1)

	valid, newHash, err := VerifyPasswordWithRehash("magic-words", stale)
	require.NoError(t, err)
	assert.True(t, valid)
	assert.NotEmpty(t, newHash)
	assert.NotEqual(t, stale, newHash)
}

func hashWithParams(
	t *testing.T,
	password string,
	memory, iterations uint32,
	threads uint8,
) string {
	t.Helper()

	salt := make([]byte, saltLength)
	_, err := rand.Read(salt)
	require.NoError(t, err)

	hash := argon2.IDKey(
		[]byte(password),
		salt,
		iterations,
		memory,
		threads,
		argonKeyLen,
	)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		memory,
		iterations,
		threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	)
}

func TestNewOneTimeToken(t *testing.T) {
	token, err := NewOneTimeToken(time.Hour)
	require.NoError(t, err)

	assert.NotEmpty(t, token.Plaintext)
	assert.Equal(t, HashToken(token.Plaintext), token.Digest)
	assert.NotEqual(t, token.Plaintext, token.Digest)
	assert.WithinDuration(t, time.Now().Add(time.Hour), token.ExpiresAt, 5*time.Second)
}

func TestNewOneTimeTokenIsUnique(t *testing.T) {
	first, err := NewOneTimeToken(time.Hour)
	require.NoError(t, err)

	second, err := NewOneTimeToken(time.Hour)
	require.NoError(t, err)

	assert.NotEqual(t, first.Plaintext, second.Plaintext)
	assert.NotEqual(t, first.Digest, second.Digest)
}

func TestHashTokenIsDeterministic(t *testing.T) {
	assert.Equal(t, HashToken("abc"), HashToken("abc"))
	assert.NotEqual(t, HashToken("abc"), HashToken("abd"))
	assert.Len(t, HashToken("abc"), 64)
}
