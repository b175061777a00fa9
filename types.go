package authcore

import (
	"context"

	internalaudit "github.com/MrEthical07/authcore/internal/audit"
	"github.com/MrEthical07/authcore/internal/flows"
	"github.com/MrEthical07/authcore/session"
)

// Device is the client descriptor stored with a session and echoed back by
// ListSessions. The engine never interprets it.
type Device = session.Device

// TokenPair is a signed access/refresh pair sharing one session id.
type TokenPair = flows.TokenPair

// SignupResult carries the first session and the only copy of the
// cleartext recovery codes. Codes are formatted XXXXX-XXXXX; dashes and
// case are ignored when a code is redeemed.
type SignupResult = flows.SignupResult

// LoginResult is either Tokens or, when OTPRequired is set, the user id to
// pass to ValidateLoginOTP.
type LoginResult = flows.LoginResult

// OTPEnrollment is a pending TOTP secret and its otpauth URI.
type OTPEnrollment = flows.OTPEnrollment

// SessionInfo describes one live session of a user.
type SessionInfo = flows.SessionInfo

// AccountInfo is the credential posture of a user.
type AccountInfo = flows.AccountInfo

// SignupRequest is the input of Engine.Signup.
type SignupRequest struct {
	Username string
	Password string
	Device   *Device
}

// LoginRequest is the input of Engine.Login.
type LoginRequest struct {
	Username string
	Password string
	Device   *Device
}

// RecoveryRequest is the input of the three recovery operations. Password
// is only read by RecoverUsingPassword and OTP only by RecoverUsingOTP.
type RecoveryRequest struct {
	Username     string
	Password     string
	OTP          string
	RecoveryCode string
	Device       *Device
}

// Transactor groups store writes. The context handed to fn carries the
// transaction; stores that recognise it join, others write directly.
// memstore.Store and sqlstore.Store implement it.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// AuditEvent is the structured audit payload delivered to sinks.
type AuditEvent = internalaudit.Event

// AuditSink consumes audit events. Emit runs on the dispatcher goroutine.
type AuditSink = internalaudit.Sink

// NoOpAuditSink discards every event.
type NoOpAuditSink = internalaudit.NoOpSink

// ChannelAuditSink forwards events into a buffered channel.
type ChannelAuditSink = internalaudit.ChannelSink

// JSONWriterAuditSink writes one JSON object per line.
type JSONWriterAuditSink = internalaudit.JSONWriterSink

// SlogAuditSink logs each event through a slog.Logger.
type SlogAuditSink = internalaudit.SlogSink

// NewChannelAuditSink returns a channel sink with the given buffer.
func NewChannelAuditSink(buffer int) *ChannelAuditSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterAuditSink is a JSON lines sink over w.
var NewJSONWriterAuditSink = internalaudit.NewJSONWriterSink

// NewSlogAuditSink is a slog-backed sink.
var NewSlogAuditSink = internalaudit.NewSlogSink
