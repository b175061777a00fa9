package flows

import (
	"context"
	"errors"
	"strconv"

	"github.com/MrEthical07/authcore/jwt"
	"github.com/MrEthical07/authcore/session"
)

// RunLogout deletes one session. Unknown ids succeed.
func RunLogout(ctx context.Context, sessionID string, deps Deps) error {
	normalizeDeps(&deps)

	if err := deps.Sessions.DeleteBySession(ctx, sessionID); err != nil {
		return deps.Errors.Internal("logout", err)
	}
	sessionsInvalidated([]string{sessionID}, &deps)
	deps.MetricInc(deps.Metrics.Logout)
	deps.EmitAudit(ctx, deps.Events.LogoutSession, true, "", sessionID, nil, nil)
	return nil
}

// RunLogoutAll deletes every session of userID and returns how many were
// removed.
func RunLogoutAll(ctx context.Context, userID string, deps Deps) (int, error) {
	normalizeDeps(&deps)

	ids, err := deps.Sessions.DeleteAllByUser(ctx, userID)
	if err != nil {
		return 0, deps.Errors.Internal("logout_all", err)
	}
	sessionsInvalidated(ids, &deps)
	deps.MetricInc(deps.Metrics.LogoutAll)
	deps.EmitAudit(ctx, deps.Events.LogoutAll, true, userID, "", nil, func() map[string]string {
		return map[string]string{"sessions": strconv.Itoa(len(ids))}
	})
	return len(ids), nil
}

// RunListSessions returns the user's unexpired sessions, oldest first.
func RunListSessions(ctx context.Context, userID string, deps Deps) ([]SessionInfo, error) {
	normalizeDeps(&deps)

	rows, err := deps.Sessions.FindAllByUser(ctx, userID)
	if err != nil {
		return nil, deps.Errors.Internal("list_sessions", err)
	}

	now := deps.Clock.Now()
	out := make([]SessionInfo, 0, len(rows))
	for _, s := range rows {
		if s.Expired(now) {
			continue
		}
		info := SessionInfo{
			SessionID: s.SessionID,
			Device:    cloneDevice(s.Device),
			CreatedAt: s.CreatedAt,
			ExpiresAt: s.ExpiresAt,
		}
		if seen, ok := deps.Activity.Get(s.SessionID); ok {
			info.LastSeen = seen
		}
		out = append(out, info)
	}
	return out, nil
}

// RunAuthenticate checks an access token's signature and expiry against the
// clock. It does not consult the session store, so a logged-out session's
// access token stays usable until it expires. Activity is only recorded for
// sessions the cache already tracks; logout and rotation remove entries and
// a stateless check must not bring them back.
func RunAuthenticate(ctx context.Context, accessToken string, deps Deps) (*jwt.Claims, error) {
	normalizeDeps(&deps)

	claims, err := decodeAccess(accessToken, &deps)
	if err != nil {
		return nil, err
	}

	deps.Activity.TouchIfPresent(claims.SessionID(), deps.Clock.Now())
	deps.MetricInc(deps.Metrics.AuthenticateSuccess)
	return claims, nil
}

// RunAuthenticateSession is RunAuthenticate plus a session store lookup, so
// a logged-out or revoked session is rejected immediately.
func RunAuthenticateSession(ctx context.Context, accessToken string, deps Deps) (*jwt.Claims, error) {
	normalizeDeps(&deps)

	claims, err := decodeAccess(accessToken, &deps)
	if err != nil {
		return nil, err
	}

	sess, err := deps.Sessions.FindByUserAndSession(ctx, claims.UserID, claims.SessionID())
	if errors.Is(err, session.ErrNotFound) {
		deps.MetricInc(deps.Metrics.AuthenticateFailure)
		return nil, deps.Errors.InvalidToken
	}
	if err != nil {
		deps.MetricInc(deps.Metrics.AuthenticateFailure)
		return nil, deps.Errors.Internal("authenticate", err)
	}
	now := deps.Clock.Now()
	if sess.Expired(now) {
		deps.MetricInc(deps.Metrics.AuthenticateFailure)
		return nil, deps.Errors.TokenExpired
	}

	deps.Activity.Touch(sess.SessionID, now, sess.ExpiresAt)
	deps.MetricInc(deps.Metrics.AuthenticateSuccess)
	return claims, nil
}

func decodeAccess(accessToken string, deps *Deps) (*jwt.Claims, error) {
	claims, err := deps.Tokens.Decode(accessToken, jwt.KindAccess)
	if err != nil {
		deps.MetricInc(deps.Metrics.AuthenticateFailure)
		return nil, deps.Errors.InvalidToken
	}
	if claims.Expired(deps.Clock.Now()) {
		deps.MetricInc(deps.Metrics.AuthenticateFailure)
		return nil, deps.Errors.TokenExpired
	}
	return claims, nil
}
