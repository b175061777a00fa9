package flows

import (
	"time"

	"github.com/MrEthical07/authcore/session"
	"github.com/MrEthical07/authcore/user"
)

// TokenPair is a freshly signed access/refresh pair. ExpiresAt is the
// refresh deadline of the backing session row.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	SessionID    string    `json:"session_id"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// SignupResult carries the first session and the only copy of the
// cleartext recovery codes.
type SignupResult struct {
	UserID        string    `json:"user_id"`
	Tokens        TokenPair `json:"tokens"`
	RecoveryCodes []string  `json:"recovery_codes"`
}

// LoginResult is either a token pair or, for OTP-enrolled users, a request
// for the second factor with no session created.
type LoginResult struct {
	OTPRequired bool       `json:"otp_required"`
	UserID      string     `json:"user_id"`
	Tokens      *TokenPair `json:"tokens,omitempty"`
}

// OTPEnrollment is the pending secret returned by GenerateOTP.
type OTPEnrollment struct {
	Secret string `json:"secret"`
	URI    string `json:"uri"`
}

// SessionInfo describes one live session. LastSeen is zero when the
// activity cache has no entry.
type SessionInfo struct {
	SessionID string          `json:"session_id"`
	Device    *session.Device `json:"device,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	ExpiresAt time.Time       `json:"expires_at"`
	LastSeen  time.Time       `json:"last_seen,omitzero"`
}

// AccountInfo is the credential posture of a user.
type AccountInfo struct {
	UserID                 string       `json:"user_id"`
	Username               string       `json:"username"`
	Posture                user.Posture `json:"posture"`
	PasswordExpired        bool         `json:"password_expired"`
	IsAdmin                bool         `json:"is_admin"`
	RecoveryCodesRemaining int          `json:"recovery_codes_remaining"`
	CreatedAt              time.Time    `json:"created_at"`
}
