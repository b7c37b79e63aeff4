package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

const (
	// SessionDuration is the default console session lifetime
	SessionDuration = 12 * time.Hour

	// TokenLength is the length of generated opaque tokens in bytes
	TokenLength = 32
)

// GenerateBearerToken generates a cryptographically secure random bearer
// token. Returns the token (hex string) and its SHA256 hex hash for
// storage; the plaintext never touches the database.
func GenerateBearerToken() (string, string, error) {
	tokenBytes := make([]byte, TokenLength)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", "", fmt.Errorf("generate random token: %w", err)
	}

	token := hex.EncodeToString(tokenBytes)
	return token, HashToken(token), nil
}

// GenerateOpaqueToken generates a random token without a stored hash,
// used for refresh tokens and authorization codes which are looked up by
// value.
func GenerateOpaqueToken() (string, error) {
	tokenBytes := make([]byte, TokenLength)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", fmt.Errorf("generate random token: %w", err)
	}
	return hex.EncodeToString(tokenBytes), nil
}

// HashToken creates a SHA256 hash of a token string.
func HashToken(token string) string {
	hasher := sha256.New()
	hasher.Write([]byte(token))
	return hex.EncodeToString(hasher.Sum(nil))
}
