package flows

import (
	"context"

	"github.com/MrEthical07/authcore/session"
)

// RunValidateLoginOTP completes a login that returned OTPRequired.
func RunValidateLoginOTP(ctx context.Context, userID, code string, device *session.Device, deps Deps) (*TokenPair, error) {
	normalizeDeps(&deps)
	const op = "validate_login_otp"

	fail := func(err error) (*TokenPair, error) {
		deps.MetricInc(deps.Metrics.OTPValidateFailure)
		deps.EmitAudit(ctx, deps.Events.OTPLoginFailure, false, userID, "", err, nil)
		return nil, err
	}

	u, err := loadUser(ctx, op, userID, deps.Errors.UserNotFound, &deps)
	if err != nil {
		return fail(err)
	}
	if !u.OTPEnrolled() {
		return fail(deps.Errors.OtpNotEnabled)
	}
	if u.PasswordExpired {
		return fail(deps.Errors.PasswordExpired)
	}
	if !deps.OTP.Check(u.OTPSecret, code) {
		return fail(deps.Errors.InvalidOtp)
	}

	tokens, err := issueSession(ctx, op, u, device, &deps)
	if err != nil {
		return fail(err)
	}

	deps.MetricInc(deps.Metrics.OTPValidateSuccess)
	deps.EmitAudit(ctx, deps.Events.OTPLoginSuccess, true, u.ID, tokens.SessionID, nil, nil)
	return tokens, nil
}

// RunGenerateOTP installs a new pending secret, replacing any previous
// enrollment. The user stays on single factor until RunVerifyOTP succeeds.
func RunGenerateOTP(ctx context.Context, userID string, deps Deps) (*OTPEnrollment, error) {
	normalizeDeps(&deps)
	const op = "generate_otp"

	var out *OTPEnrollment
	err := retryOnConflict(op, &deps, func() error {
		u, err := loadUser(ctx, op, userID, deps.Errors.UserNotFound, &deps)
		if err != nil {
			return err
		}
		secret, uri, err := deps.OTP.GenerateSecret(u.Username)
		if err != nil {
			return err
		}
		u.SetOTP(secret, uri)
		u.UpdatedAt = deps.Clock.Now()
		if err := deps.Users.Update(ctx, u); err != nil {
			return err
		}
		out = &OTPEnrollment{Secret: secret, URI: uri}
		return nil
	})
	if err != nil {
		return nil, err
	}

	deps.MetricInc(deps.Metrics.OTPGenerated)
	deps.EmitAudit(ctx, deps.Events.OTPGenerated, true, userID, "", nil, nil)
	return out, nil
}

// RunVerifyOTP proves possession of the pending secret. It issues no tokens.
// Verifying an already enrolled secret again is accepted.
func RunVerifyOTP(ctx context.Context, userID, code string, deps Deps) error {
	normalizeDeps(&deps)
	const op = "verify_otp"

	err := retryOnConflict(op, &deps, func() error {
		u, err := loadUser(ctx, op, userID, deps.Errors.UserNotFound, &deps)
		if err != nil {
			return err
		}
		if u.OTPSecret == "" {
			return deps.Errors.OtpNotEnabled
		}
		if !deps.OTP.Check(u.OTPSecret, code) {
			return deps.Errors.InvalidOtp
		}
		if u.OTPVerified {
			return nil
		}
		u.OTPVerified = true
		u.UpdatedAt = deps.Clock.Now()
		return deps.Users.Update(ctx, u)
	})
	if err != nil {
		deps.MetricInc(deps.Metrics.OTPVerifyFailure)
		deps.EmitAudit(ctx, deps.Events.OTPVerifyFailure, false, userID, "", err, nil)
		return err
	}

	deps.MetricInc(deps.Metrics.OTPVerified)
	deps.EmitAudit(ctx, deps.Events.OTPVerified, true, userID, "", nil, nil)
	return nil
}

// RunDisableOTP clears the secret and enrollment. It is a no-op for users
// without a secret.
func RunDisableOTP(ctx context.Context, userID string, deps Deps) error {
	normalizeDeps(&deps)
	const op = "disable_otp"

	err := retryOnConflict(op, &deps, func() error {
		u, err := loadUser(ctx, op, userID, deps.Errors.UserNotFound, &deps)
		if err != nil {
			return err
		}
		if u.OTPSecret == "" {
			return nil
		}
		u.ClearOTP()
		u.UpdatedAt = deps.Clock.Now()
		return deps.Users.Update(ctx, u)
	})
	if err != nil {
		return err
	}

	deps.MetricInc(deps.Metrics.OTPDisabled)
	deps.EmitAudit(ctx, deps.Events.OTPDisabled, true, userID, "", nil, nil)
	return nil
}
