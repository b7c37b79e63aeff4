package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// PKCE challenge methods per RFC 7636.
const (
	PKCEMethodPlain = "plain"
	PKCEMethodS256  = "S256"
)

// S256Challenge computes the stored form of an S256 code challenge:
// lowercase hex of SHA-256(verifier). Note this deviates from the
// base64url encoding in RFC 7636 section 4.2; first-party clients send
// the hex form.
func S256Challenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return hex.EncodeToString(sum[:])
}

// ValidPKCEMethod reports whether the method string is supported.
func ValidPKCEMethod(method string) bool {
	return method == PKCEMethodPlain || method == PKCEMethodS256
}

// VerifyPKCE checks a code verifier against the challenge recorded at
// authorization time. Comparison is constant-time; hex challenges are
// normalised to lowercase first.
func VerifyPKCE(verifier, challenge, method string) bool {
	if verifier == "" || challenge == "" {
		return false
	}
	switch method {
	case PKCEMethodPlain:
		return subtle.ConstantTimeCompare([]byte(verifier), []byte(challenge)) == 1
	case PKCEMethodS256:
		derived := S256Challenge(verifier)
		return subtle.ConstantTimeCompare([]byte(derived), []byte(strings.ToLower(challenge))) == 1
	default:
		return false
	}
}
