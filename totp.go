package authcore

import (
	"strings"

	"github.com/MrEthical07/authcore/clock"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	totpSecretBytes = 20
	totpPeriod      = 30
)

// totpManager issues and checks RFC 6238 codes: six digits, 30 second
// step, SHA1. Checks are evaluated at the injected clock's now.
type totpManager struct {
	issuer string
	skew   uint
	clock  clock.Clock
}

func newTOTPManager(cfg TOTPConfig, clk clock.Clock) *totpManager {
	return &totpManager{issuer: cfg.Issuer, skew: cfg.Skew, clock: clk}
}

// GenerateSecret returns a fresh base32 secret and its otpauth URI.
func (m *totpManager) GenerateSecret(account string) (string, string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      m.issuer,
		AccountName: account,
		Period:      totpPeriod,
		SecretSize:  totpSecretBytes,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", "", err
	}
	return key.Secret(), key.URL(), nil
}

// Check reports whether code is valid for secret within the skew window.
// Malformed secrets and codes are simply invalid.
func (m *totpManager) Check(secret, code string) bool {
	code = strings.TrimSpace(code)
	if secret == "" || len(code) != int(otp.DigitsSix) || !isNumericString(code) {
		return false
	}
	ok, err := totp.ValidateCustom(code, secret, m.clock.Now().UTC(), totp.ValidateOpts{
		Period:    totpPeriod,
		Skew:      m.skew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}

// code returns the current code for secret. Tests use it to act as the
// authenticator app.
func (m *totpManager) code(secret string) (string, error) {
	return totp.GenerateCodeCustom(secret, m.clock.Now().UTC(), totp.ValidateOpts{
		Period:    totpPeriod,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
}

func isNumericString(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
