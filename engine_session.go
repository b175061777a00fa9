package authcore

import (
	"context"
	"time"

	"github.com/MrEthical07/authcore/jwt"
)

// Refresh rotates the session behind refreshToken. The old session id stops
// working immediately, even if its tokens have not expired.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	return e.flows.Refresh(ctx, refreshToken)
}

// Logout ends one session. Unknown session ids are not an error.
func (e *Engine) Logout(ctx context.Context, sessionID string) error {
	return e.flows.Logout(ctx, sessionID)
}

// LogoutAll ends every session of userID and reports how many there were.
func (e *Engine) LogoutAll(ctx context.Context, userID string) (int, error) {
	return e.flows.LogoutAll(ctx, userID)
}

// ListSessions returns the user's unexpired sessions, oldest first.
func (e *Engine) ListSessions(ctx context.Context, userID string) ([]SessionInfo, error) {
	return e.flows.ListSessions(ctx, userID)
}

// Authenticate validates an access token without touching the session
// store and records activity for its session.
func (e *Engine) Authenticate(ctx context.Context, accessToken string) (*jwt.Claims, error) {
	if !e.metrics.LatencyEnabled() {
		return e.flows.Authenticate(ctx, accessToken)
	}
	start := time.Now()
	claims, err := e.flows.Authenticate(ctx, accessToken)
	e.metrics.Observe(MetricAuthenticateLatency, time.Since(start))
	return claims, err
}

// AuthenticateSession validates an access token and also requires its
// session to still exist, so logout takes effect immediately.
func (e *Engine) AuthenticateSession(ctx context.Context, accessToken string) (*jwt.Claims, error) {
	if !e.metrics.LatencyEnabled() {
		return e.flows.AuthenticateSession(ctx, accessToken)
	}
	start := time.Now()
	claims, err := e.flows.AuthenticateSession(ctx, accessToken)
	e.metrics.Observe(MetricAuthenticateLatency, time.Since(start))
	return claims, err
}
