package cryptopackage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateFromPassword_Format(t *testing.T) {
	hash, err := GenerateFromPassword("password123")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(hash, "$argon2id$"))
	assert.NotContains(t, hash, "password123")
}

func TestGenerateFromPassword_UniqueSalt(t *testing.T) {
	hash1, err := GenerateFromPassword("password123")
	require.NoError(t, err)
	hash2, err := GenerateFromPassword("password123")
	require.NoError(t, err)

	assert.NotEqual(t, hash1, hash2)
}

func TestComparePasswordAndHash(t *testing.T) {
	hash, err := GenerateFromPassword("password123")
	require.NoError(t, err)

	ok, err := ComparePasswordAndHash("password123", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ComparePasswordAndHash("wrongpassword", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestComparePasswordAndHash_MalformedHash(t *testing.T) {
	_, err := ComparePasswordAndHash("password123", "not-a-hash")
	assert.Error(t, err)
}
