package security

import (
	"fmt"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const totpPeriod = 30

// TotpVerifier generates shared secrets and validates time-based one-time
// codes. It holds no per-user state; validation is a pure function of
// (secret, code, current time).
type TotpVerifier struct {
	issuer string
	now    func() time.Time
}

// NewTotpVerifier constructs a verifier labelling secrets with the issuer.
func NewTotpVerifier(issuer string) *TotpVerifier {
	if issuer == "" {
		issuer = "docs"
	}
	return &TotpVerifier{issuer: issuer, now: time.Now}
}

// WithClock overrides the clock for deterministic tests.
func (v *TotpVerifier) WithClock(now func() time.Time) *TotpVerifier {
	if now != nil {
		v.now = now
	}
	return v
}

// CreateSecret generates a new base32 shared secret for the account.
func (v *TotpVerifier) CreateSecret(accountName string) (string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      v.issuer,
		AccountName: accountName,
	})
	if err != nil {
		return "", fmt.Errorf("generate totp secret: %w", err)
	}
	return key.Secret(), nil
}

// Authorize validates a 6-digit code against the secret, accepting the
// current 30-second step plus one step of skew either side.
func (v *TotpVerifier) Authorize(secret, code string) bool {
	ok, err := totp.ValidateCustom(code, secret, v.now(), totp.ValidateOpts{
		Period:    totpPeriod,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return false
	}
	return ok
}
