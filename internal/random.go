package internal

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"math/big"
	"strings"
)

const (
	sessionIDSize = 16

	// RecoveryCodeAlphabet omits characters that are easy to confuse (0/O, 1/I).
	RecoveryCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	RecoveryCodeLength   = 10
)

// NewSessionID returns 128 random bits as unpadded base64url.
func NewSessionID() (string, error) {
	var raw [sessionIDSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// NewRecoveryCode draws length characters from RecoveryCodeAlphabet.
// randomIndex defaults to crypto/rand.
func NewRecoveryCode(length int, randomIndex func(int) (int, error)) (string, error) {
	if length <= 0 {
		return "", errors.New("invalid recovery code length")
	}
	if randomIndex == nil {
		randomIndex = cryptoRandomIndex
	}
	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		n, err := randomIndex(len(RecoveryCodeAlphabet))
		if err != nil {
			return "", err
		}
		b.WriteByte(RecoveryCodeAlphabet[n])
	}
	return b.String(), nil
}

// NewRecoveryCodes returns n distinct codes.
func NewRecoveryCodes(n int) ([]string, error) {
	codes := make([]string, 0, n)
	seen := make(map[string]struct{}, n)
	for len(codes) < n {
		code, err := NewRecoveryCode(RecoveryCodeLength, nil)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}
	return codes, nil
}

// FormatRecoveryCode splits a code in two halves joined by a dash.
func FormatRecoveryCode(code string) string {
	n := len(code)
	if n < 8 {
		return code
	}
	mid := n / 2
	return code[:mid] + "-" + code[mid:]
}

// CanonicalizeRecoveryCode upper-cases and strips spaces and dashes so that
// formatted and raw input hash the same.
func CanonicalizeRecoveryCode(code string) string {
	s := strings.ToUpper(strings.TrimSpace(code))
	s = strings.ReplaceAll(s, "-", "")
	s = strings.ReplaceAll(s, " ", "")
	return s
}

func cryptoRandomIndex(max int) (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		return 0, err
	}
	return int(n.Int64()), nil
}
