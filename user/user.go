// Package user holds the account record and the storage contract the engine
// depends on.
package user

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no user matches a lookup.
	ErrNotFound = errors.New("user not found")
	// ErrAlreadyExists is returned by Create on a username collision.
	ErrAlreadyExists = errors.New("user already exists")
	// ErrConflict is returned by Update when the stored version moved on.
	ErrConflict = errors.New("user version conflict")
)

// Posture is the OTP enrollment state of an account.
type Posture int

const (
	// NoOtp means no secret has been generated.
	NoOtp Posture = iota
	// OtpPendingVerification means a secret exists but possession was never proven.
	OtpPendingVerification
	// OtpEnrolled means the user proved possession of the secret.
	OtpEnrolled
)

func (p Posture) String() string {
	switch p {
	case OtpPendingVerification:
		return "otp_pending_verification"
	case OtpEnrolled:
		return "otp_enrolled"
	default:
		return "no_otp"
	}
}

// MarshalText encodes the posture by name.
func (p Posture) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// User is the identity record. RecoveryCodes holds argon2id hashes only.
// Version is bumped by every successful Update and guards read-modify-write
// cycles such as recovery-code consumption.
type User struct {
	ID               string
	Username         string
	PasswordHash     string
	OTPSecret        string
	OTPEnrollmentURI string
	OTPVerified      bool
	RecoveryCodes    []string
	PasswordExpired  bool
	IsAdmin          bool
	Version          int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Posture derives the enrollment state from the OTP fields.
func (u *User) Posture() Posture {
	switch {
	case u.OTPSecret == "":
		return NoOtp
	case u.OTPVerified:
		return OtpEnrolled
	default:
		return OtpPendingVerification
	}
}

// OTPEnrolled reports whether login requires a second factor.
func (u *User) OTPEnrolled() bool {
	return u.Posture() == OtpEnrolled
}

// SetOTP installs a freshly generated secret and drops any prior enrollment.
func (u *User) SetOTP(secret, uri string) {
	u.OTPSecret = secret
	u.OTPEnrollmentURI = uri
	u.OTPVerified = false
}

// ClearOTP removes the secret and enrollment.
func (u *User) ClearOTP() {
	u.OTPSecret = ""
	u.OTPEnrollmentURI = ""
	u.OTPVerified = false
}

// RemoveRecoveryCode drops the hash at index i, keeping the order of the rest.
func (u *User) RemoveRecoveryCode(i int) {
	if i < 0 || i >= len(u.RecoveryCodes) {
		return
	}
	codes := make([]string, 0, len(u.RecoveryCodes)-1)
	codes = append(codes, u.RecoveryCodes[:i]...)
	codes = append(codes, u.RecoveryCodes[i+1:]...)
	u.RecoveryCodes = codes
}

// Clone returns a deep copy.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	out := *u
	out.RecoveryCodes = append([]string(nil), u.RecoveryCodes...)
	return &out
}

// Store persists users. Usernames are stored already case-folded.
type Store interface {
	// Create inserts u. It returns ErrAlreadyExists on a username collision.
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	// Update writes u only if the stored version equals u.Version, then
	// increments u.Version. A mismatch returns ErrConflict.
	Update(ctx context.Context, u *User) error
}
