package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opentrusty/opentrusty/internal/apperr"
)

func TestValidatePassword(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"valid", "Str0ng!pass", false},
		{"minimum length", "Aa1!aaaa", false},
		{"too short", "Aa1!aaa", true},
		{"too long", "Aa1!" + strings.Repeat("a", 61), true},
		{"missing uppercase", "str0ng!pass", true},
		{"missing lowercase", "STR0NG!PASS", true},
		{"missing digit", "Strong!pass", true},
		{"missing punctuation", "Str0ngpass1", true},
		{"non ascii rejected", "Str0ng!päss", true},
		{"control char rejected", "Str0ng!pa\tss", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.wantErr {
				assert.True(t, apperr.IsKind(err, apperr.KindValidation), "expected validation error, got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateUsername(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateUsername("alice_01"))
	assert.NoError(t, ValidateUsername("a-b-"))
	assert.Error(t, ValidateUsername("abc"))
	assert.Error(t, ValidateUsername(strings.Repeat("a", 33)))
	assert.Error(t, ValidateUsername("with space"))
	assert.Error(t, ValidateUsername("dot.ted"))
}

func TestHashAndVerifyPassword(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("Str0ng!pass")
	require.NoError(t, err)
	require.NotEqual(t, "Str0ng!pass", hash)

	assert.NoError(t, VerifyPassword(hash, "Str0ng!pass"))

	err = VerifyPassword(hash, "Wr0ng!pass")
	assert.True(t, apperr.IsKind(err, apperr.KindUnauthenticated))
}
