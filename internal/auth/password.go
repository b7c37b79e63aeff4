package auth

import (
	"regexp"

	"golang.org/x/crypto/bcrypt"

	"github.com/opentrusty/opentrusty/internal/apperr"
)

const (
	passwordMinLength = 8
	passwordMaxLength = 64

	usernameMinLength = 4
	usernameMaxLength = 32
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidateUsername enforces the username character and length policy.
func ValidateUsername(username string) error {
	if len(username) < usernameMinLength || len(username) > usernameMaxLength {
		return apperr.Ef(apperr.KindValidation, "username must be %d-%d characters", usernameMinLength, usernameMaxLength)
	}
	if !usernamePattern.MatchString(username) {
		return apperr.E(apperr.KindValidation, "username may contain only letters, digits, underscore, and hyphen")
	}
	return nil
}

// ValidatePassword enforces the password policy: 8 to 64 printable ASCII
// characters containing at least one lowercase letter, one uppercase
// letter, one digit, and one symbol.
func ValidatePassword(password string) error {
	if len(password) < passwordMinLength || len(password) > passwordMaxLength {
		return apperr.Ef(apperr.KindValidation, "password must be %d-%d characters", passwordMinLength, passwordMaxLength)
	}

	var lower, upper, digit, punct bool
	for _, c := range password {
		switch {
		case c < 0x20 || c > 0x7e:
			return apperr.E(apperr.KindValidation, "password must contain only printable ASCII characters")
		case c >= 'a' && c <= 'z':
			lower = true
		case c >= 'A' && c <= 'Z':
			upper = true
		case c >= '0' && c <= '9':
			digit = true
		case c != ' ':
			punct = true
		}
	}
	if !lower || !upper || !digit || !punct {
		return apperr.E(apperr.KindValidation, "password must contain lowercase, uppercase, digit, and punctuation characters")
	}
	return nil
}

// HashPassword hashes a password with bcrypt at the default cost.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "hash password", err)
	}
	return string(hash), nil
}

// VerifyPassword compares a password against its bcrypt hash. Failures
// collapse to unauthenticated without detail.
func VerifyPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return apperr.E(apperr.KindUnauthenticated, "invalid credentials")
	}
	return nil
}
