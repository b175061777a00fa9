package flows

import (
	"context"

	"github.com/MrEthical07/authcore/internal"
	"github.com/MrEthical07/authcore/policy"
	"github.com/MrEthical07/authcore/session"
	"github.com/MrEthical07/authcore/user"
)

// RecoveryRequest is the input of the three recovery flows. Password is
// read only by RunRecoverUsingPassword and OTP only by RunRecoverUsingOTP.
type RecoveryRequest struct {
	Username     string
	Password     string
	OTP          string
	RecoveryCode string
	Device       *session.Device
}

type recoveryMethod struct {
	name           string
	failure        error
	requireOTP     bool
	expirePassword bool
	disableOTP     bool
	secondFactor   func(u *user.User) bool
}

// RunRecoverWithoutOTP trades a recovery code for a session whose user
// must set a new password before the next login.
func RunRecoverWithoutOTP(ctx context.Context, req RecoveryRequest, deps Deps) (*TokenPair, error) {
	normalizeDeps(&deps)
	return runRecovery(ctx, req, recoveryMethod{
		name:           "basic",
		failure:        deps.Errors.InvalidUsernameOrRecoveryCode,
		expirePassword: true,
	}, &deps)
}

// RunRecoverUsingPassword is for users who lost their authenticator: the
// password and a recovery code turn OTP off. Sessions are revoked before
// the enrollment is cleared.
func RunRecoverUsingPassword(ctx context.Context, req RecoveryRequest, deps Deps) (*TokenPair, error) {
	normalizeDeps(&deps)
	return runRecovery(ctx, req, recoveryMethod{
		name:       "password",
		failure:    deps.Errors.InvalidUsernameOrPasswordOrRecoveryCode,
		requireOTP: true,
		disableOTP: true,
		secondFactor: func(u *user.User) bool {
			return deps.Hasher.Verify(req.Password, u.PasswordHash)
		},
	}, &deps)
}

// RunRecoverUsingOTP is for users who forgot their password: an OTP code
// and a recovery code grant a session with the password marked expired.
func RunRecoverUsingOTP(ctx context.Context, req RecoveryRequest, deps Deps) (*TokenPair, error) {
	normalizeDeps(&deps)
	return runRecovery(ctx, req, recoveryMethod{
		name:           "otp",
		failure:        deps.Errors.InvalidUsernameOrCodeOrRecoveryCode,
		requireOTP:     true,
		expirePassword: true,
		secondFactor: func(u *user.User) bool {
			return deps.OTP.Check(u.OTPSecret, req.OTP)
		},
	}, &deps)
}

// runRecovery consumes the code, revokes every session and saves the new
// one in a single transaction. Losing the version race to another
// consumer reloads the user, so a code can only ever be spent once.
func runRecovery(ctx context.Context, req RecoveryRequest, method recoveryMethod, deps *Deps) (*TokenPair, error) {
	const op = "recover"
	username := policy.NormalizeUsername(req.Username)

	var (
		userID  string
		issued  *minted
		revoked []string
	)
	err := retryOnConflict(op, deps, func() error {
		u, err := loadUserByName(ctx, op, username, method.failure, deps)
		if err != nil {
			return err
		}
		userID = u.ID

		if method.requireOTP && !u.OTPEnrolled() {
			return deps.Errors.TwoFactorAuthenticationNotEnabled
		}
		if method.secondFactor != nil && !method.secondFactor(u) {
			return method.failure
		}
		idx := matchRecoveryCode(req.RecoveryCode, u.RecoveryCodes, deps.Hasher)
		if idx < 0 {
			return method.failure
		}

		m, err := mintSession(u.ID, u.IsAdmin, req.Device, deps)
		if err != nil {
			return err
		}

		return deps.Tx.WithinTx(ctx, func(ctx context.Context) error {
			u.RemoveRecoveryCode(idx)
			if method.expirePassword {
				u.PasswordExpired = true
			}
			u.UpdatedAt = deps.Clock.Now()
			if err := deps.Users.Update(ctx, u); err != nil {
				return err
			}

			ids, err := deps.Sessions.DeleteAllByUser(ctx, u.ID)
			if err != nil {
				return err
			}

			if method.disableOTP {
				u.ClearOTP()
				if err := deps.Users.Update(ctx, u); err != nil {
					return err
				}
			}

			if err := deps.Sessions.Save(ctx, m.session); err != nil {
				return err
			}
			issued, revoked = m, ids
			return nil
		})
	})
	if err != nil {
		deps.MetricInc(deps.Metrics.RecoveryFailure)
		deps.EmitAudit(ctx, deps.Events.RecoveryFailure, false, userID, "", err, func() map[string]string {
			return map[string]string{"method": method.name}
		})
		return nil, err
	}

	sessionsInvalidated(revoked, deps)
	sessionCreated(issued.session, deps)
	deps.MetricInc(deps.Metrics.RecoveryCodeConsumed)
	deps.MetricInc(deps.Metrics.RecoverySuccess)
	deps.EmitAudit(ctx, deps.Events.RecoverySuccess, true, userID, issued.tokens.SessionID, nil, func() map[string]string {
		return map[string]string{"method": method.name}
	})
	return &issued.tokens, nil
}

// matchRecoveryCode returns the index of the stored hash that code
// verifies against, or -1.
func matchRecoveryCode(code string, hashes []string, h Hasher) int {
	canonical := internal.CanonicalizeRecoveryCode(code)
	if canonical == "" {
		return -1
	}
	for i, encoded := range hashes {
		if h.Verify(canonical, encoded) {
			return i
		}
	}
	return -1
}
