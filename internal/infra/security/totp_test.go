package security

import (
	"testing"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func totpCodeAt(t *testing.T, secret string, at time.Time) string {
	t.Helper()
	code, err := totp.GenerateCodeCustom(secret, at, totp.ValidateOpts{
		Period:    totpPeriod,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	require.NoError(t, err)
	return code
}

func TestTotpVerifierCreateSecret(t *testing.T) {
	verifier := NewTotpVerifier("docs")

	first, err := verifier.CreateSecret("alice")
	require.NoError(t, err)
	second, err := verifier.CreateSecret("alice")
	require.NoError(t, err)

	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)
}

func TestTotpVerifierAuthorize(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 15, 0, time.UTC)
	verifier := NewTotpVerifier("docs").WithClock(func() time.Time { return now })

	secret, err := verifier.CreateSecret("alice")
	require.NoError(t, err)

	assert.True(t, verifier.Authorize(secret, totpCodeAt(t, secret, now)))

	// One step of skew is tolerated either side.
	assert.True(t, verifier.Authorize(secret, totpCodeAt(t, secret, now.Add(-totpPeriod*time.Second))))
	assert.True(t, verifier.Authorize(secret, totpCodeAt(t, secret, now.Add(totpPeriod*time.Second))))

	// Two steps away is out of the accepted window.
	assert.False(t, verifier.Authorize(secret, totpCodeAt(t, secret, now.Add(-2*totpPeriod*time.Second))))

	assert.False(t, verifier.Authorize(secret, "000000"))
	assert.False(t, verifier.Authorize(secret, "not-a-code"))
	assert.False(t, verifier.Authorize("", "123456"))
}
