package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/authcore/jwt"
	"github.com/MrEthical07/authcore/session"
)

// RunRefresh exchanges a refresh token for a new pair under a new session
// id. The stored row, not the token's exp, decides eligibility: a token
// whose row is gone is invalid, and a row past its deadline is deleted and
// reported as expired.
func RunRefresh(ctx context.Context, refreshToken string, deps Deps) (*TokenPair, error) {
	normalizeDeps(&deps)
	const op = "refresh"

	claims, err := deps.Tokens.Decode(refreshToken, jwt.KindRefresh)
	if err != nil {
		return nil, refreshFailed(ctx, "", "", "decode", deps.Errors.InvalidToken, &deps)
	}
	sid := claims.SessionID()

	old, err := deps.Sessions.FindByUserAndSession(ctx, claims.UserID, sid)
	if errors.Is(err, session.ErrNotFound) {
		return nil, refreshFailed(ctx, claims.UserID, sid, "missing", deps.Errors.InvalidToken, &deps)
	}
	if err != nil {
		return nil, refreshFailed(ctx, claims.UserID, sid, "lookup", deps.Errors.Internal(op, err), &deps)
	}

	now := deps.Clock.Now()
	if old.Expired(now) {
		if err := deps.Sessions.DeleteBySession(ctx, sid); err != nil {
			return nil, refreshFailed(ctx, claims.UserID, sid, "cleanup", deps.Errors.Internal(op, err), &deps)
		}
		sessionsInvalidated([]string{sid}, &deps)
		deps.MetricInc(deps.Metrics.RefreshExpired)
		deps.EmitAudit(ctx, deps.Events.RefreshExpired, false, claims.UserID, sid, deps.Errors.TokenExpired, nil)
		return nil, deps.Errors.TokenExpired
	}

	next, err := mintSession(claims.UserID, claims.IsAdmin, old.Device, &deps)
	if err != nil {
		return nil, refreshFailed(ctx, claims.UserID, sid, "mint", deps.Errors.Internal(op, err), &deps)
	}

	err = deps.Sessions.Rotate(ctx, sid, next.session)
	if errors.Is(err, session.ErrNotFound) {
		// a concurrent refresh or logout removed the row first
		return nil, refreshFailed(ctx, claims.UserID, sid, "rotated", deps.Errors.InvalidToken, &deps)
	}
	if err != nil {
		return nil, refreshFailed(ctx, claims.UserID, sid, "rotate", deps.Errors.Internal(op, err), &deps)
	}

	deps.Activity.Remove(sid)
	deps.Activity.Touch(next.session.SessionID, now, next.session.ExpiresAt)
	deps.MetricInc(deps.Metrics.RefreshSuccess)
	deps.EmitAudit(ctx, deps.Events.RefreshSuccess, true, claims.UserID, next.session.SessionID, nil, func() map[string]string {
		return map[string]string{"previous_sid_hash": jwt.HashSessionID(sid)}
	})
	return &next.tokens, nil
}

func refreshFailed(ctx context.Context, userID, sid, reason string, err error, deps *Deps) error {
	deps.MetricInc(deps.Metrics.RefreshFailure)
	deps.EmitAudit(ctx, deps.Events.RefreshInvalid, false, userID, sid, err, func() map[string]string {
		return map[string]string{"reason": reason}
	})
	return err
}
