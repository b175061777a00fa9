package flows

import (
	"context"

	"github.com/MrEthical07/authcore/policy"
)

// RunSetPassword replaces an expired password. It refuses when the
// password is still current so it cannot be used to skip UpdatePassword.
func RunSetPassword(ctx context.Context, userID, newPassword string, deps Deps) error {
	normalizeDeps(&deps)
	const op = "set_password"

	fail := func(err error) error {
		deps.MetricInc(deps.Metrics.PasswordChangeFailure)
		deps.EmitAudit(ctx, deps.Events.PasswordFailure, false, userID, "", err, func() map[string]string {
			return map[string]string{"method": "set"}
		})
		return err
	}

	u, err := loadUser(ctx, op, userID, deps.Errors.UserNotFound, &deps)
	if err != nil {
		return fail(err)
	}
	if !u.PasswordExpired {
		return fail(deps.Errors.PasswordNotExpired)
	}
	if err := policy.Password(newPassword, deps.MinPasswordLength); err != nil {
		return fail(deps.Errors.InvalidPassword)
	}
	hash, err := deps.Hasher.Hash(newPassword)
	if err != nil {
		return fail(deps.Errors.Internal(op, err))
	}

	err = retryOnConflict(op, &deps, func() error {
		if u == nil {
			if u, err = loadUser(ctx, op, userID, deps.Errors.UserNotFound, &deps); err != nil {
				return err
			}
			if !u.PasswordExpired {
				return deps.Errors.PasswordNotExpired
			}
		}
		next := u.Clone()
		u = nil
		next.PasswordHash = hash
		next.PasswordExpired = false
		next.UpdatedAt = deps.Clock.Now()
		return deps.Users.Update(ctx, next)
	})
	if err != nil {
		return fail(err)
	}

	deps.MetricInc(deps.Metrics.PasswordSet)
	deps.EmitAudit(ctx, deps.Events.PasswordSet, true, userID, "", nil, nil)
	return nil
}

// RunUpdatePassword changes the password after re-checking the current one.
// Other sessions stay valid.
func RunUpdatePassword(ctx context.Context, userID, currentPassword, newPassword string, deps Deps) error {
	normalizeDeps(&deps)
	const op = "update_password"

	fail := func(err error) error {
		deps.MetricInc(deps.Metrics.PasswordChangeFailure)
		deps.EmitAudit(ctx, deps.Events.PasswordFailure, false, userID, "", err, func() map[string]string {
			return map[string]string{"method": "update"}
		})
		return err
	}

	u, err := loadUser(ctx, op, userID, deps.Errors.UserNotFound, &deps)
	if err != nil {
		return fail(err)
	}
	if !deps.Hasher.Verify(currentPassword, u.PasswordHash) {
		return fail(deps.Errors.InvalidPassword)
	}
	if err := policy.Password(newPassword, deps.MinPasswordLength); err != nil {
		return fail(deps.Errors.InvalidPassword)
	}
	hash, err := deps.Hasher.Hash(newPassword)
	if err != nil {
		return fail(deps.Errors.Internal(op, err))
	}

	verifiedHash := u.PasswordHash
	err = retryOnConflict(op, &deps, func() error {
		if u == nil {
			if u, err = loadUser(ctx, op, userID, deps.Errors.UserNotFound, &deps); err != nil {
				return err
			}
			// someone changed the password since it was checked
			if u.PasswordHash != verifiedHash && !deps.Hasher.Verify(currentPassword, u.PasswordHash) {
				return deps.Errors.InvalidPassword
			}
		}
		next := u.Clone()
		u = nil
		next.PasswordHash = hash
		next.PasswordExpired = false
		next.UpdatedAt = deps.Clock.Now()
		return deps.Users.Update(ctx, next)
	})
	if err != nil {
		return fail(err)
	}

	deps.MetricInc(deps.Metrics.PasswordUpdate)
	deps.EmitAudit(ctx, deps.Events.PasswordUpdate, true, userID, "", nil, nil)
	return nil
}
