package session

import "time"

// Device is the descriptor captured at issuance. The core stores and echoes
// it back but never interprets it.
type Device struct {
	OS         string `json:"os,omitempty"`
	IsMobile   bool   `json:"is_mobile"`
	Browser    string `json:"browser,omitempty"`
	AppVersion string `json:"app_version,omitempty"`
	Model      string `json:"model,omitempty"`
}

// Session is one outstanding token pair. SessionID is the jti shared by the
// access and refresh tokens and is the only join key between a decoded
// token and server-side state.
type Session struct {
	ID        string
	UserID    string
	SessionID string
	ExpiresAt time.Time
	CreatedAt time.Time
	Device    *Device
}

// Expired reports whether now is past the refresh deadline.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Clone returns a deep copy.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	if s.Device != nil {
		d := *s.Device
		out.Device = &d
	}
	return &out
}
