package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/authcore/internal"
	"github.com/MrEthical07/authcore/policy"
	"github.com/MrEthical07/authcore/session"
	"github.com/MrEthical07/authcore/user"
)

// SignupRequest is the input of RunSignup.
type SignupRequest struct {
	Username string
	Password string
	Device   *session.Device
}

// RunSignup creates the user with a fresh set of recovery codes and the
// first session in one transaction.
func RunSignup(ctx context.Context, req SignupRequest, deps Deps) (*SignupResult, error) {
	normalizeDeps(&deps)
	const op = "signup"

	username := policy.NormalizeUsername(req.Username)
	fail := func(err error) (*SignupResult, error) {
		deps.MetricInc(deps.Metrics.SignupFailure)
		deps.EmitAudit(ctx, deps.Events.SignupFailure, false, "", "", err, func() map[string]string {
			return map[string]string{"username": username}
		})
		return nil, err
	}

	if err := policy.Username(username); err != nil {
		return fail(deps.Errors.UsernameInvalid)
	}
	_, err := deps.Users.GetByUsername(ctx, username)
	switch {
	case err == nil:
		return fail(deps.Errors.UserAlreadyExists)
	case !errors.Is(err, user.ErrNotFound):
		return fail(deps.Errors.Internal(op, err))
	}
	if err := policy.Password(req.Password, deps.MinPasswordLength); err != nil {
		return fail(deps.Errors.InvalidPassword)
	}

	passwordHash, err := deps.Hasher.Hash(req.Password)
	if err != nil {
		return fail(deps.Errors.Internal(op, err))
	}

	codes, err := deps.NewRecoveryCodes(deps.RecoveryCodeCount)
	if err != nil {
		return fail(deps.Errors.Internal(op, err))
	}
	hashes := make([]string, len(codes))
	display := make([]string, len(codes))
	for i, code := range codes {
		h, err := deps.Hasher.Hash(internal.CanonicalizeRecoveryCode(code))
		if err != nil {
			return fail(deps.Errors.Internal(op, err))
		}
		hashes[i] = h
		display[i] = internal.FormatRecoveryCode(code)
	}

	now := deps.Clock.Now()
	u := &user.User{
		ID:            deps.NewID(),
		Username:      username,
		PasswordHash:  passwordHash,
		RecoveryCodes: hashes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	m, err := mintSession(u.ID, u.IsAdmin, req.Device, &deps)
	if err != nil {
		return fail(deps.Errors.Internal(op, err))
	}

	err = deps.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := deps.Users.Create(ctx, u); err != nil {
			return err
		}
		return deps.Sessions.Save(ctx, m.session)
	})
	if errors.Is(err, user.ErrAlreadyExists) {
		return fail(deps.Errors.UserAlreadyExists)
	}
	if err != nil {
		return fail(deps.Errors.Internal(op, err))
	}

	sessionCreated(m.session, &deps)
	deps.MetricInc(deps.Metrics.SignupSuccess)
	deps.EmitAudit(ctx, deps.Events.SignupSuccess, true, u.ID, m.session.SessionID, nil, nil)

	return &SignupResult{
		UserID:        u.ID,
		Tokens:        m.tokens,
		RecoveryCodes: display,
	}, nil
}
