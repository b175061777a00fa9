package internaldefs

import (
	"github.com/MrEthical07/authcore"
)

// CounterDef names one engine counter for export.
type CounterDef struct {
	ID   authcore.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for export.
type HistogramDef struct {
	ID   authcore.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: authcore.MetricSignupSuccess, Name: "authcore_signup_success_total", Help: "Accounts created."},
	{ID: authcore.MetricSignupFailure, Name: "authcore_signup_failure_total", Help: "Rejected signups."},
	{ID: authcore.MetricLoginSuccess, Name: "authcore_login_success_total", Help: "Password logins that issued a session."},
	{ID: authcore.MetricLoginFailure, Name: "authcore_login_failure_total", Help: "Failed password logins."},
	{ID: authcore.MetricLoginOTPRequired, Name: "authcore_login_otp_required_total", Help: "Password logins that asked for a second factor."},
	{ID: authcore.MetricOTPValidateSuccess, Name: "authcore_otp_login_success_total", Help: "Second-factor logins that issued a session."},
	{ID: authcore.MetricOTPValidateFailure, Name: "authcore_otp_login_failure_total", Help: "Failed second-factor logins."},
	{ID: authcore.MetricOTPGenerated, Name: "authcore_otp_generated_total", Help: "TOTP secrets generated."},
	{ID: authcore.MetricOTPVerified, Name: "authcore_otp_verified_total", Help: "TOTP enrollments confirmed."},
	{ID: authcore.MetricOTPVerifyFailure, Name: "authcore_otp_verify_failure_total", Help: "Failed TOTP enrollment confirmations."},
	{ID: authcore.MetricOTPDisabled, Name: "authcore_otp_disabled_total", Help: "TOTP enrollments removed."},
	{ID: authcore.MetricRefreshSuccess, Name: "authcore_refresh_success_total", Help: "Refresh token rotations."},
	{ID: authcore.MetricRefreshFailure, Name: "authcore_refresh_failure_total", Help: "Rejected refresh tokens."},
	{ID: authcore.MetricRefreshExpired, Name: "authcore_refresh_expired_total", Help: "Refresh attempts on expired sessions."},
	{ID: authcore.MetricLogout, Name: "authcore_logout_total", Help: "Single-session logouts."},
	{ID: authcore.MetricLogoutAll, Name: "authcore_logout_all_total", Help: "Logout-all operations."},
	{ID: authcore.MetricRecoverySuccess, Name: "authcore_recovery_success_total", Help: "Successful account recoveries."},
	{ID: authcore.MetricRecoveryFailure, Name: "authcore_recovery_failure_total", Help: "Failed account recoveries."},
	{ID: authcore.MetricRecoveryCodeConsumed, Name: "authcore_recovery_code_consumed_total", Help: "Recovery codes spent."},
	{ID: authcore.MetricPasswordSet, Name: "authcore_password_set_total", Help: "Expired passwords replaced."},
	{ID: authcore.MetricPasswordUpdate, Name: "authcore_password_update_total", Help: "Voluntary password changes."},
	{ID: authcore.MetricPasswordChangeFailure, Name: "authcore_password_change_failure_total", Help: "Rejected password changes."},
	{ID: authcore.MetricPasswordRehash, Name: "authcore_password_rehash_total", Help: "Password hashes upgraded at login."},
	{ID: authcore.MetricSessionCreated, Name: "authcore_session_created_total", Help: "Sessions created."},
	{ID: authcore.MetricSessionInvalidated, Name: "authcore_session_invalidated_total", Help: "Sessions revoked or expired."},
	{ID: authcore.MetricAuthenticateSuccess, Name: "authcore_authenticate_success_total", Help: "Accepted access tokens."},
	{ID: authcore.MetricAuthenticateFailure, Name: "authcore_authenticate_failure_total", Help: "Rejected access tokens."},
	{ID: authcore.MetricInternalError, Name: "authcore_internal_error_total", Help: "Storage or crypto failures surfaced as internal errors."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: authcore.MetricAuthenticateLatency, Name: "authcore_authenticate_latency_seconds", Help: "Access token check latency."},
}

// HistogramBounds are the upper bounds, in seconds, of the engine's
// latency buckets.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix names each bound for instrument names that cannot
// carry labels.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates raw to the fixed bucket count.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
