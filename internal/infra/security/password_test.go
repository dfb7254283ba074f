package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPasswordAndVerify(t *testing.T) {
	hash, err := HashPassword("s3cret-passw0rd", DefaultArgon2Config())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "argon2id$"))

	ok, err := VerifyPassword("s3cret-passw0rd", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword("wrong-password", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashPasswordProducesUniqueSalts(t *testing.T) {
	first, err := HashPassword("same-password", DefaultArgon2Config())
	require.NoError(t, err)
	second, err := HashPassword("same-password", DefaultArgon2Config())
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestVerifyPasswordRejectsMalformedHash(t *testing.T) {
	cases := []string{
		"",
		"plaintext",
		"argon2id$v=19$m=65536,t=3,p=4$onlysalt",
		"bcrypt$v=19$m=65536,t=3,p=4$c2FsdA$aGFzaA",
	}
	for _, hash := range cases {
		ok, err := VerifyPassword("anything", hash)
		assert.Error(t, err, "hash %q", hash)
		assert.False(t, ok)
	}
}

func TestVerifyPasswordRejectsTamperedHash(t *testing.T) {
	hash, err := HashPassword("s3cret-passw0rd", DefaultArgon2Config())
	require.NoError(t, err)

	tampered := hash[:len(hash)-2] + "zz"
	ok, _ := VerifyPassword("s3cret-passw0rd", tampered)
	assert.False(t, ok)
}

func TestGenerateSecureToken(t *testing.T) {
	first, err := GenerateSecureToken(16)
	require.NoError(t, err)
	second, err := GenerateSecureToken(16)
	require.NoError(t, err)

	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)
	assert.NotContains(t, first, "=")
	assert.NotContains(t, first, "/")
	assert.NotContains(t, first, "+")
}

func TestDefaultPasswordValidator(t *testing.T) {
	validator := DefaultPasswordValidator()

	assert.NoError(t, validator.Validate("horse-battery-staple-42"))

	err := validator.Validate("short")
	require.Error(t, err)
	var vErr *PasswordValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "min_length", vErr.Code)

	err = validator.Validate(strings.Repeat("a", 51))
	require.Error(t, err)
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "max_length", vErr.Code)
}
