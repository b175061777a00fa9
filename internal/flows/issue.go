package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/authcore/jwt"
	"github.com/MrEthical07/authcore/session"
	"github.com/MrEthical07/authcore/user"
)

// minted is a signed pair and the row that backs it, not yet persisted.
type minted struct {
	tokens  TokenPair
	session *session.Session
}

func mintSession(userID string, isAdmin bool, device *session.Device, deps *Deps) (*minted, error) {
	sid, err := deps.NewSessionID()
	if err != nil {
		return nil, err
	}

	claims := jwt.Claims{UserID: userID, IsAdmin: isAdmin}
	claims.ID = sid

	access, err := deps.Tokens.Issue(claims, jwt.KindAccess)
	if err != nil {
		return nil, err
	}
	refresh, err := deps.Tokens.Issue(claims, jwt.KindRefresh)
	if err != nil {
		return nil, err
	}

	now := deps.Clock.Now()
	sess := &session.Session{
		ID:        deps.NewID(),
		UserID:    userID,
		SessionID: sid,
		ExpiresAt: now.Add(deps.Tokens.TTL(jwt.KindRefresh)),
		CreatedAt: now,
		Device:    cloneDevice(device),
	}

	return &minted{
		tokens: TokenPair{
			AccessToken:  access,
			RefreshToken: refresh,
			SessionID:    sid,
			ExpiresAt:    sess.ExpiresAt,
		},
		session: sess,
	}, nil
}

// issueSession mints and saves a session outside any transaction.
func issueSession(ctx context.Context, op string, u *user.User, device *session.Device, deps *Deps) (*TokenPair, error) {
	m, err := mintSession(u.ID, u.IsAdmin, device, deps)
	if err != nil {
		return nil, deps.Errors.Internal(op, err)
	}
	if err := deps.Sessions.Save(ctx, m.session); err != nil {
		return nil, deps.Errors.Internal(op, err)
	}
	sessionCreated(m.session, deps)
	return &m.tokens, nil
}

func sessionCreated(sess *session.Session, deps *Deps) {
	deps.Activity.Touch(sess.SessionID, sess.CreatedAt, sess.ExpiresAt)
	deps.MetricInc(deps.Metrics.SessionCreated)
}

func sessionsInvalidated(ids []string, deps *Deps) {
	if len(ids) == 0 {
		return
	}
	deps.Activity.Remove(ids...)
	for range ids {
		deps.MetricInc(deps.Metrics.SessionInvalidated)
	}
}

func cloneDevice(d *session.Device) *session.Device {
	if d == nil {
		return nil
	}
	out := *d
	return &out
}

// retryOnConflict re-runs attempt while a concurrent writer wins the
// optimistic version check. Each attempt must reload what it reads.
// Caller-facing errors pass through; anything else becomes internal.
func retryOnConflict(op string, deps *Deps, attempt func() error) error {
	var err error
	for i := 0; i < deps.MaxConflictRetries; i++ {
		err = attempt()
		if !errors.Is(err, user.ErrConflict) {
			break
		}
		deps.Logger.Debug("user version conflict, retrying", "op", op, "attempt", i+1)
	}
	return classify(op, err, deps)
}

func classify(op string, err error, deps *Deps) error {
	if err == nil || deps.Errors.Known(err) {
		return err
	}
	return deps.Errors.Internal(op, err)
}

// loadUser maps a missing user onto notFound and any other failure onto
// the internal error.
func loadUser(ctx context.Context, op, userID string, notFound error, deps *Deps) (*user.User, error) {
	if userID == "" {
		return nil, notFound
	}
	u, err := deps.Users.GetByID(ctx, userID)
	if errors.Is(err, user.ErrNotFound) {
		return nil, notFound
	}
	if err != nil {
		return nil, deps.Errors.Internal(op, err)
	}
	return u, nil
}

func loadUserByName(ctx context.Context, op, username string, notFound error, deps *Deps) (*user.User, error) {
	u, err := deps.Users.GetByUsername(ctx, username)
	if errors.Is(err, user.ErrNotFound) {
		return nil, notFound
	}
	if err != nil {
		return nil, deps.Errors.Internal(op, err)
	}
	return u, nil
}
