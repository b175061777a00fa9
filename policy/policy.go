// Package policy holds the pure credential gates applied before anything is
// hashed or stored: the password composition rule and the username format.
package policy

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const (
	// MinUsernameLen is the shortest accepted username.
	MinUsernameLen = 3
	// MaxUsernameLen is the longest accepted username.
	MaxUsernameLen = 20
	// DefaultMinPasswordLen is used when a caller passes a non-positive minimum.
	DefaultMinPasswordLen = 8
	// Punctuation is the fixed set of symbols a password may (and must) draw from.
	Punctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"
)

var (
	ErrUsernameLength  = errors.New("username length out of range")
	ErrUsernameCharset = errors.New("username contains invalid characters")

	ErrPasswordTooShort    = errors.New("password too short")
	ErrPasswordComposition = errors.New("password needs a letter, a digit and a punctuation character")
	ErrPasswordCharset     = errors.New("password contains characters outside the allowed alphabet")
)

// UsernamePattern is alphanumeric runs joined by single '.', '_' or '-'.
var UsernamePattern = regexp.MustCompile(`^[a-zA-Z0-9]+([._-][a-zA-Z0-9]+)*$`)

// NormalizeUsername case-folds a username for storage and lookup.
func NormalizeUsername(username string) string {
	return strings.ToLower(username)
}

// Username rejects names outside 3..20 characters or not matching UsernamePattern.
func Username(username string) error {
	if len(username) < MinUsernameLen || len(username) > MaxUsernameLen {
		return fmt.Errorf("%w: must be %d-%d characters", ErrUsernameLength, MinUsernameLen, MaxUsernameLen)
	}
	if !UsernamePattern.MatchString(username) {
		return ErrUsernameCharset
	}
	return nil
}

// Password checks length, alphabet and composition. minLen <= 0 selects
// DefaultMinPasswordLen.
func Password(password string, minLen int) error {
	if minLen <= 0 {
		minLen = DefaultMinPasswordLen
	}
	if len(password) < minLen {
		return fmt.Errorf("%w: minimum is %d", ErrPasswordTooShort, minLen)
	}

	var letter, digit, punct bool
	for i := 0; i < len(password); i++ {
		c := password[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
			letter = true
		case c >= '0' && c <= '9':
			digit = true
		case strings.IndexByte(Punctuation, c) >= 0:
			punct = true
		default:
			return ErrPasswordCharset
		}
	}
	if !letter || !digit || !punct {
		return ErrPasswordComposition
	}
	return nil
}
