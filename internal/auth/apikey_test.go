package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAPIKey(t *testing.T) {
	t.Parallel()

	key, err := GenerateAPIKey("")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(key.Plaintext, DefaultKeyDecorator+"-"))
	assert.Len(t, key.Prefix, APIKeyPrefixLength)

	decorator, secret, ok := SplitAPIKey(key.Plaintext)
	require.True(t, ok)
	assert.Equal(t, DefaultKeyDecorator, decorator)
	assert.Equal(t, key.Prefix, secret[:APIKeyPrefixLength])

	t.Run("verify roundtrip", func(t *testing.T) {
		assert.True(t, VerifyAPIKeySecret(secret, key.Salt, key.Hash))
		assert.False(t, VerifyAPIKeySecret(secret+"x", key.Salt, key.Hash))
		assert.False(t, VerifyAPIKeySecret(secret, "00", key.Hash))
	})

	t.Run("hyphenated decorator rejected", func(t *testing.T) {
		_, err := GenerateAPIKey("bad-name")
		assert.Error(t, err)
	})
}

func TestSplitAPIKey(t *testing.T) {
	t.Parallel()

	_, _, ok := SplitAPIKey("nodash")
	assert.False(t, ok)

	_, _, ok = SplitAPIKey("-secretsecret")
	assert.False(t, ok)

	_, _, ok = SplitAPIKey("aa-short")
	assert.False(t, ok)

	decorator, secret, ok := SplitAPIKey("aa-secret-with-dashes")
	require.True(t, ok)
	assert.Equal(t, "aa", decorator)
	assert.Equal(t, "secret-with-dashes", secret)
}
