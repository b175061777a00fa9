package authcore

import (
	"context"
	"errors"
	"log/slog"

	"github.com/MrEthical07/authcore/internal/flows"
	"github.com/MrEthical07/authcore/jwt"
)

const (
	auditEventSignupSuccess        = "signup_success"
	auditEventSignupFailure        = "signup_failure"
	auditEventLoginSuccess         = "login_success"
	auditEventLoginFailure         = "login_failure"
	auditEventLoginOTPRequired     = "login_otp_required"
	auditEventOTPLoginSuccess      = "otp_login_success"
	auditEventOTPLoginFailure      = "otp_login_failure"
	auditEventOTPGenerated         = "otp_generated"
	auditEventOTPVerified          = "otp_verified"
	auditEventOTPVerifyFailure     = "otp_verify_failure"
	auditEventOTPDisabled          = "otp_disabled"
	auditEventRefreshSuccess       = "refresh_success"
	auditEventRefreshInvalid       = "refresh_invalid"
	auditEventRefreshExpired       = "refresh_expired"
	auditEventLogoutSession        = "logout_session"
	auditEventLogoutAll            = "logout_all"
	auditEventRecoverySuccess      = "recovery_success"
	auditEventRecoveryFailure      = "recovery_failure"
	auditEventPasswordSet          = "password_set"
	auditEventPasswordUpdate       = "password_update"
	auditEventPasswordFailure      = "password_change_failure"
	auditEventPasswordRehashFailed = "password_rehash_failed"
)

func flowEvents() flows.Events {
	return flows.Events{
		SignupSuccess:      auditEventSignupSuccess,
		SignupFailure:      auditEventSignupFailure,
		LoginSuccess:       auditEventLoginSuccess,
		LoginFailure:       auditEventLoginFailure,
		LoginOTPRequired:   auditEventLoginOTPRequired,
		OTPLoginSuccess:    auditEventOTPLoginSuccess,
		OTPLoginFailure:    auditEventOTPLoginFailure,
		OTPGenerated:       auditEventOTPGenerated,
		OTPVerified:        auditEventOTPVerified,
		OTPVerifyFailure:   auditEventOTPVerifyFailure,
		OTPDisabled:        auditEventOTPDisabled,
		RefreshSuccess:     auditEventRefreshSuccess,
		RefreshInvalid:     auditEventRefreshInvalid,
		RefreshExpired:     auditEventRefreshExpired,
		LogoutSession:      auditEventLogoutSession,
		LogoutAll:          auditEventLogoutAll,
		RecoverySuccess:    auditEventRecoverySuccess,
		RecoveryFailure:    auditEventRecoveryFailure,
		PasswordSet:        auditEventPasswordSet,
		PasswordUpdate:     auditEventPasswordUpdate,
		PasswordFailure:    auditEventPasswordFailure,
		PasswordRehashFail: auditEventPasswordRehashFailed,
	}
}

// emitAudit builds and dispatches one event. Raw session ids are replaced
// by their hash before leaving the engine.
func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	sessionID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: e.clock.Now().UTC(),
		EventType: eventType,
		UserID:    userID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if sessionID != "" {
		event.SessionHash = jwt.HashSessionID(sessionID)
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

// auditErrorCode is the engine error code, or internal_error for anything
// unclassified.
func auditErrorCode(err error) Code {
	if err == nil {
		return ""
	}
	var engineErr *Error
	if errors.As(err, &engineErr) {
		return engineErr.Code
	}
	return CodeInternal
}

// internalError logs cause and returns the opaque ErrInternal. The cause
// never reaches the caller.
func (e *Engine) internalError(op string, cause error) error {
	if e != nil {
		e.metricInc(MetricInternalError)
		e.logger.LogAttrs(context.Background(), slog.LevelError, "internal error",
			slog.String("op", op),
			slog.Any("err", cause),
		)
	}
	return ErrInternal
}
