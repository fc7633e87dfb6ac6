package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateOTPCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		code, err := GenerateOTPCode()
		require.NoError(t, err)
		require.Len(t, code, 6)
		assert.GreaterOrEqual(t, code[0], byte('1'), "code must not have a leading zero")
		seen[code] = true
	}
	assert.Greater(t, len(seen), 150, "codes should not repeat often")
}

func TestGenerateOpaqueToken(t *testing.T) {
	a, err := GenerateOpaqueToken()
	require.NoError(t, err)
	b, err := GenerateOpaqueToken()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.NotContains(t, a, "=")
	assert.NotContains(t, a, "+")
	assert.NotContains(t, a, "/")
}

func TestHashTokenStable(t *testing.T) {
	assert.Equal(t, HashToken("secret"), HashToken("secret"))
	assert.NotEqual(t, HashToken("secret"), HashToken("Secret"))
	assert.Len(t, HashToken("anything"), 64)
}

func TestSignAndParseAccessToken(t *testing.T) {
	signed, err := SignAccessToken("access-secret", "user-1", "+15550001111", time.Minute)
	require.NoError(t, err)

	claims, err := ParseUserToken(signed, "access-secret", TokenTypeAccess)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "+15550001111", claims.Phone)
	assert.Equal(t, TokenTypeAccess, claims.TokenType)
}

func TestParseRejectsWrongType(t *testing.T) {
	signed, err := SignRefreshToken("refresh-secret", "user-1", time.Minute)
	require.NoError(t, err)

	_, err = ParseUserToken(signed, "refresh-secret", TokenTypeAccess)
	assert.Error(t, err, "a refresh token must not pass as an access token")
}

func TestParseRejectsWrongSecret(t *testing.T) {
	signed, err := SignAccessToken("access-secret", "user-1", "", time.Minute)
	require.NoError(t, err)

	_, err = ParseUserToken(signed, "other-secret", TokenTypeAccess)
	assert.Error(t, err)
}

func TestParseRejectsExpired(t *testing.T) {
	signed, err := SignAccessToken("access-secret", "user-1", "", -time.Minute)
	require.NoError(t, err)

	_, err = ParseUserToken(signed, "access-secret", TokenTypeAccess)
	assert.Error(t, err)
}
