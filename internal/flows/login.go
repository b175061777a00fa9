package flows

import (
	"context"

	"github.com/MrEthical07/authcore/policy"
	"github.com/MrEthical07/authcore/session"
	"github.com/MrEthical07/authcore/user"
)

// LoginRequest is the input of RunLogin.
type LoginRequest struct {
	Username string
	Password string
	Device   *session.Device
}

// RunLogin checks the password and either issues a session or, for an
// OTP-enrolled user, asks for the second factor without creating one.
// Existing sessions are left alone.
func RunLogin(ctx context.Context, req LoginRequest, deps Deps) (*LoginResult, error) {
	normalizeDeps(&deps)
	const op = "login"

	username := policy.NormalizeUsername(req.Username)
	fail := func(userID string, err error) (*LoginResult, error) {
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, userID, "", err, func() map[string]string {
			return map[string]string{"username": username}
		})
		return nil, err
	}

	u, err := loadUserByName(ctx, op, username, deps.Errors.InvalidCredentials, &deps)
	if err != nil {
		return fail("", err)
	}
	if !deps.Hasher.Verify(req.Password, u.PasswordHash) {
		return fail(u.ID, deps.Errors.InvalidCredentials)
	}
	if u.PasswordExpired {
		return fail(u.ID, deps.Errors.PasswordExpired)
	}

	if u.OTPEnrolled() {
		deps.MetricInc(deps.Metrics.LoginOTPRequired)
		deps.EmitAudit(ctx, deps.Events.LoginOTPRequired, true, u.ID, "", nil, nil)
		return &LoginResult{OTPRequired: true, UserID: u.ID}, nil
	}

	if deps.UpgradeOnLogin && deps.Hasher.NeedsUpgrade(u.PasswordHash) {
		upgradeHash(ctx, u, req.Password, &deps)
	}

	tokens, err := issueSession(ctx, op, u, req.Device, &deps)
	if err != nil {
		return fail(u.ID, err)
	}

	deps.MetricInc(deps.Metrics.LoginSuccess)
	deps.EmitAudit(ctx, deps.Events.LoginSuccess, true, u.ID, tokens.SessionID, nil, nil)
	return &LoginResult{UserID: u.ID, Tokens: tokens}, nil
}

// upgradeHash re-hashes the password with the current parameters. Failure
// is logged and otherwise ignored.
func upgradeHash(ctx context.Context, u *user.User, password string, deps *Deps) {
	next, err := deps.Hasher.Hash(password)
	if err == nil {
		updated := u.Clone()
		updated.PasswordHash = next
		updated.UpdatedAt = deps.Clock.Now()
		if err = deps.Users.Update(ctx, updated); err == nil {
			*u = *updated
			deps.MetricInc(deps.Metrics.PasswordRehash)
			return
		}
	}
	deps.Logger.WarnContext(ctx, "password rehash skipped", "user_id", u.ID, "err", err)
	deps.EmitAudit(ctx, deps.Events.PasswordRehashFail, false, u.ID, "", err, nil)
}
