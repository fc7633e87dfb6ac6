package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	// Minimum cost keeps the test fast; behavior is cost-independent.
	hash, err := HashPassword("correct horse battery staple", 4)
	require.NoError(t, err)

	assert.True(t, VerifyPassword("correct horse battery staple", hash))
	assert.False(t, VerifyPassword("correct horse battery", hash))
}

func TestHashPasswordSalted(t *testing.T) {
	a, err := HashPassword("same-password", 4)
	require.NoError(t, err)
	b, err := HashPassword("same-password", 4)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestVerifyPasswordMalformedHash(t *testing.T) {
	assert.False(t, VerifyPassword("anything", "not-a-bcrypt-hash"))
	assert.False(t, VerifyPassword("anything", ""))
}
