package authcore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestRefreshRotatesSessionID(t *testing.T) {
	e, env := newTestEngine(t)
	ctx := context.Background()
	res := mustSignup(t, e, "alice")

	env.clock.Advance(time.Minute)
	next, err := e.Refresh(ctx, res.Tokens.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if next.SessionID == res.Tokens.SessionID {
		t.Fatal("refresh must issue a new session id")
	}
	if env.store.SessionCount() != 1 {
		t.Fatalf("rotation must replace the row, got %d rows", env.store.SessionCount())
	}

	// the old handle is dead even though its token has not expired
	_, err = e.Refresh(ctx, res.Tokens.RefreshToken)
	requireCode(t, err, ErrInvalidToken)

	again, err := e.Refresh(ctx, next.RefreshToken)
	if err != nil {
		t.Fatalf("refresh with rotated token: %v", err)
	}
	if _, err := e.Authenticate(ctx, again.AccessToken); err != nil {
		t.Fatalf("authenticate rotated access token: %v", err)
	}
}

func TestRefreshRejectsMalformedAndWrongKind(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	res := mustSignup(t, e, "alice")

	for _, token := range []string{"", "garbage", res.Tokens.AccessToken, res.Tokens.RefreshToken + "x"} {
		_, err := e.Refresh(ctx, token)
		requireCode(t, err, ErrInvalidToken)
	}

	_, err := e.Authenticate(ctx, res.Tokens.RefreshToken)
	requireCode(t, err, ErrInvalidToken)
}

func TestRefreshExpiredRowIsDeleted(t *testing.T) {
	e, env := newTestEngine(t)
	ctx := context.Background()
	res := mustSignup(t, e, "alice")

	env.clock.Advance(e.config.JWT.RefreshTTL + time.Second)

	_, err := e.Refresh(ctx, res.Tokens.RefreshToken)
	requireCode(t, err, ErrTokenExpired)
	if env.store.SessionCount() != 0 {
		t.Fatal("expired row must be deleted")
	}
	if _, ok := e.activity.Get(res.Tokens.SessionID); ok {
		t.Fatal("expired session must leave the activity cache")
	}

	_, err = e.Refresh(ctx, res.Tokens.RefreshToken)
	requireCode(t, err, ErrInvalidToken)
}

func TestRefreshCarriesAdminFlagAndDevice(t *testing.T) {
	e, env := newTestEngine(t)
	ctx := context.Background()
	res := mustSignup(t, e, "root")

	u, _ := env.store.GetByID(ctx, res.UserID)
	u.IsAdmin = true
	if err := env.store.Update(ctx, u); err != nil {
		t.Fatalf("promote: %v", err)
	}

	login, err := e.Login(ctx, LoginRequest{
		Username: "root",
		Password: testPassword,
		Device:   &Device{Browser: "Firefox", OS: "Linux"},
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	next, err := e.Refresh(ctx, login.Tokens.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	claims, err := e.Authenticate(ctx, next.AccessToken)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if !claims.IsAdmin {
		t.Fatal("admin flag lost across refresh")
	}

	sessions, _ := e.ListSessions(ctx, res.UserID)
	var found bool
	for _, s := range sessions {
		if s.SessionID == next.SessionID {
			found = s.Device != nil && s.Device.Browser == "Firefox"
		}
	}
	if !found {
		t.Fatalf("rotated session lost its device: %+v", sessions)
	}
}

func TestRefreshConcurrencySingleWinner(t *testing.T) {
	e, env := newTestEngine(t)
	res := mustSignup(t, e, "alice")

	const n = 16
	var wg sync.WaitGroup
	wg.Add(n)

	results := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_, err := e.Refresh(context.Background(), res.Tokens.RefreshToken)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	success := 0
	for err := range results {
		if err == nil {
			success++
			continue
		}
		if !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("unexpected refresh error: %v", err)
		}
	}
	if success != 1 {
		t.Fatalf("expected exactly one refresh success, got %d", success)
	}
	if env.store.SessionCount() != 1 {
		t.Fatalf("expected one surviving row, got %d", env.store.SessionCount())
	}
}

func TestLogoutIsIdempotent(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	res := mustSignup(t, e, "alice")

	if err := e.Logout(ctx, res.Tokens.SessionID); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if err := e.Logout(ctx, res.Tokens.SessionID); err != nil {
		t.Fatalf("second logout: %v", err)
	}
	if err := e.Logout(ctx, "never-existed"); err != nil {
		t.Fatalf("unknown logout: %v", err)
	}

	_, err := e.Refresh(ctx, res.Tokens.RefreshToken)
	requireCode(t, err, ErrInvalidToken)
	if _, ok := e.activity.Get(res.Tokens.SessionID); ok {
		t.Fatal("logout must clear activity")
	}
}

func TestLogoutAllRevokesEverySession(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	res := mustSignup(t, e, "alice")
	other := mustSignup(t, e, "bob")

	login, err := e.Login(ctx, LoginRequest{Username: "alice", Password: testPassword})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	n, err := e.LogoutAll(ctx, res.UserID)
	if err != nil {
		t.Fatalf("logout all: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 revoked sessions, got %d", n)
	}
	for _, token := range []string{res.Tokens.RefreshToken, login.Tokens.RefreshToken} {
		_, err := e.Refresh(ctx, token)
		requireCode(t, err, ErrInvalidToken)
	}
	if _, err := e.Refresh(ctx, other.Tokens.RefreshToken); err != nil {
		t.Fatalf("other user's session must survive: %v", err)
	}
}

func TestListSessionsReportsActivityAndSkipsExpired(t *testing.T) {
	e, env := newTestEngine(t)
	ctx := context.Background()
	res := mustSignup(t, e, "alice")

	env.clock.Advance(2 * time.Minute)
	if _, err := e.Authenticate(ctx, res.Tokens.AccessToken); err != nil {
		t.Fatalf("authenticate: %v", err)
	}

	sessions, err := e.ListSessions(ctx, res.UserID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("expected 1 session, got %d", len(sessions))
	}
	if want := testStart.Add(2 * time.Minute); !sessions[0].LastSeen.Equal(want) {
		t.Fatalf("expected last seen %v, got %v", want, sessions[0].LastSeen)
	}
	if !sessions[0].CreatedAt.Equal(testStart) {
		t.Fatalf("unexpected created at %v", sessions[0].CreatedAt)
	}

	env.clock.Advance(e.config.JWT.RefreshTTL)
	sessions, err = e.ListSessions(ctx, res.UserID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sessions) != 0 {
		t.Fatalf("expired sessions must be hidden, got %d", len(sessions))
	}
}

func TestAuthenticateExpiry(t *testing.T) {
	e, env := newTestEngine(t)
	ctx := context.Background()
	res := mustSignup(t, e, "alice")

	env.clock.Advance(e.config.JWT.AccessTTL - time.Second)
	if _, err := e.Authenticate(ctx, res.Tokens.AccessToken); err != nil {
		t.Fatalf("authenticate before expiry: %v", err)
	}

	env.clock.Advance(time.Second)
	_, err := e.Authenticate(ctx, res.Tokens.AccessToken)
	requireCode(t, err, ErrTokenExpired)

	// the refresh token still works after the access token lapses
	if _, err := e.Refresh(ctx, res.Tokens.RefreshToken); err != nil {
		t.Fatalf("refresh after access expiry: %v", err)
	}
}

func TestSweepActivityDropsDeadSessions(t *testing.T) {
	e, env := newTestEngine(t)
	mustSignup(t, e, "alice")
	mustSignup(t, e, "bob")

	if got := e.SweepActivity(); got != 0 {
		t.Fatalf("nothing should be swept yet, got %d", got)
	}
	env.clock.Advance(e.config.JWT.RefreshTTL)
	if got := e.SweepActivity(); got != 2 {
		t.Fatalf("expected 2 swept entries, got %d", got)
	}
	if e.activity.Len() != 0 {
		t.Fatalf("cache not empty: %d", e.activity.Len())
	}
}

func TestActivityJanitorRuns(t *testing.T) {
	e, env := newTestEngine(t, func(b *Builder) {
		cfg := testConfig()
		cfg.Activity.SweepInterval = 5 * time.Millisecond
		b.WithConfig(cfg)
	})
	mustSignup(t, e, "alice")
	env.clock.Advance(e.config.JWT.RefreshTTL)

	deadline := time.Now().Add(2 * time.Second)
	for e.activity.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("janitor did not sweep")
		}
		time.Sleep(5 * time.Millisecond)
	}
	e.Close()
	e.Close()
}

func TestAuthenticateSessionHonoursLogout(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	signup := mustSignup(t, e, "alice")

	claims, err := e.AuthenticateSession(ctx, signup.Tokens.AccessToken)
	if err != nil {
		t.Fatalf("authenticate session: %v", err)
	}
	if claims.UserID != signup.UserID || claims.SessionID() != signup.Tokens.SessionID {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	if err := e.Logout(ctx, signup.Tokens.SessionID); err != nil {
		t.Fatalf("logout: %v", err)
	}
	// the stateless check still passes until the token expires
	if _, err := e.Authenticate(ctx, signup.Tokens.AccessToken); err != nil {
		t.Fatalf("stateless authenticate after logout: %v", err)
	}
	_, err = e.AuthenticateSession(ctx, signup.Tokens.AccessToken)
	requireCode(t, err, ErrInvalidToken)
}

func TestAuthenticateDoesNotRecreateRevokedActivity(t *testing.T) {
	e, env := newTestEngine(t)
	ctx := context.Background()
	signup := mustSignup(t, e, "alice")

	if err := e.Logout(ctx, signup.Tokens.SessionID); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if got := e.ActivityEntries(); got != 0 {
		t.Fatalf("logout must drop the entry, got %d", got)
	}

	env.clock.Advance(time.Minute)
	if _, err := e.Authenticate(ctx, signup.Tokens.AccessToken); err != nil {
		t.Fatalf("stateless authenticate after logout: %v", err)
	}
	if got := e.ActivityEntries(); got != 0 {
		t.Fatalf("authenticate revived a logged-out session: %d entries", got)
	}

	// rotated-away sessions stay gone as well
	login, err := e.Login(ctx, LoginRequest{Username: "alice", Password: testPassword})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := e.Refresh(ctx, login.Tokens.RefreshToken); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if _, err := e.Authenticate(ctx, login.Tokens.AccessToken); err != nil {
		t.Fatalf("authenticate old access token: %v", err)
	}
	if got := e.ActivityEntries(); got != 1 {
		t.Fatalf("expected only the rotated session, got %d", got)
	}
}
