package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"

	"github.com/opentrusty/opentrusty/internal/apperr"
)

const (
	// DefaultKeyDecorator is the human-readable prefix on generated keys.
	DefaultKeyDecorator = "ot"

	// APIKeyPrefixLength is how many leading secret characters are stored
	// as the lookup index.
	APIKeyPrefixLength = 8

	apiKeySecretBytes = 32 // 256 bits
	apiKeySaltBytes   = 16 // 128 bits

	// PBKDF2Iterations is deliberately high; key verification is a rare
	// operation compared to JWT checks.
	PBKDF2Iterations = 100_000

	pbkdf2KeyLength = 32
)

// GeneratedAPIKey is the one-time creation result. Plaintext is shown to
// the caller once and never stored.
type GeneratedAPIKey struct {
	Plaintext string
	Prefix    string
	Salt      string
	Hash      string
	Decorator string
}

// GenerateAPIKey mints a new API key in the form <decorator>-<secret>.
func GenerateAPIKey(decorator string) (*GeneratedAPIKey, error) {
	if decorator == "" {
		decorator = DefaultKeyDecorator
	}
	if strings.Contains(decorator, "-") {
		return nil, apperr.E(apperr.KindValidation, "decorator must not contain a hyphen")
	}

	secretBytes := make([]byte, apiKeySecretBytes)
	if _, err := rand.Read(secretBytes); err != nil {
		return nil, fmt.Errorf("generate api key secret: %w", err)
	}
	secret := base64.RawURLEncoding.EncodeToString(secretBytes)

	saltBytes := make([]byte, apiKeySaltBytes)
	if _, err := rand.Read(saltBytes); err != nil {
		return nil, fmt.Errorf("generate api key salt: %w", err)
	}
	salt := hex.EncodeToString(saltBytes)

	return &GeneratedAPIKey{
		Plaintext: decorator + "-" + secret,
		Prefix:    secret[:APIKeyPrefixLength],
		Salt:      salt,
		Hash:      HashAPIKeySecret(secret, salt),
		Decorator: decorator,
	}, nil
}

// SplitAPIKey separates a presented plaintext key into decorator and
// secret. The decorator never contains a hyphen, so the first one is the
// separator.
func SplitAPIKey(plaintext string) (decorator, secret string, ok bool) {
	decorator, secret, ok = strings.Cut(plaintext, "-")
	if !ok || decorator == "" || len(secret) < APIKeyPrefixLength {
		return "", "", false
	}
	return decorator, secret, true
}

// HashAPIKeySecret derives the stored hash from a secret and its salt.
func HashAPIKeySecret(secret, salt string) string {
	key := pbkdf2.Key([]byte(secret), []byte(salt), PBKDF2Iterations, pbkdf2KeyLength, sha256.New)
	return hex.EncodeToString(key)
}

// VerifyAPIKeySecret compares a presented secret against the stored
// salt/hash pair in constant time.
func VerifyAPIKeySecret(secret, salt, storedHash string) bool {
	derived := HashAPIKeySecret(secret, salt)
	return subtle.ConstantTimeCompare([]byte(derived), []byte(storedHash)) == 1
}
