package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// Verifier from RFC 7636 appendix B; the stored challenge is the
// lowercase hex encoding of its SHA-256.
const (
	rfcVerifier     = "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	rfcHexChallenge = "13d31e961a1ad8ec2f16b10c4c982e0876a878ad6df144566ee1894acb70f9c3"
)

func TestS256Challenge(t *testing.T) {
	t.Parallel()

	assert.Equal(t, rfcHexChallenge, S256Challenge(rfcVerifier))
}

func TestVerifyPKCE(t *testing.T) {
	t.Parallel()

	t.Run("S256 match", func(t *testing.T) {
		assert.True(t, VerifyPKCE(rfcVerifier, rfcHexChallenge, PKCEMethodS256))
	})

	t.Run("S256 uppercase challenge accepted", func(t *testing.T) {
		assert.True(t, VerifyPKCE(rfcVerifier, strings.ToUpper(rfcHexChallenge), PKCEMethodS256))
	})

	t.Run("S256 wrong verifier", func(t *testing.T) {
		assert.False(t, VerifyPKCE("wrong", rfcHexChallenge, PKCEMethodS256))
	})

	t.Run("plain equality", func(t *testing.T) {
		assert.True(t, VerifyPKCE("abc", "abc", PKCEMethodPlain))
		assert.False(t, VerifyPKCE("abc", "abd", PKCEMethodPlain))
	})

	t.Run("empty verifier rejected", func(t *testing.T) {
		assert.False(t, VerifyPKCE("", rfcHexChallenge, PKCEMethodS256))
	})

	t.Run("unknown method rejected", func(t *testing.T) {
		assert.False(t, VerifyPKCE(rfcVerifier, rfcHexChallenge, "S512"))
	})
}
