package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/clock"
	"github.com/MrEthical07/authcore/jwt"
	"github.com/MrEthical07/authcore/memstore"
	"github.com/MrEthical07/authcore/middleware"
)

func newEngine(t *testing.T) (*authcore.Engine, *clock.Fake) {
	t.Helper()
	cfg := authcore.DefaultConfig()
	cfg.JWT.AccessSecret = []byte("middleware-access-secret-0123456")
	cfg.JWT.RefreshSecret = []byte("middleware-refresh-secret-012345")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1

	clk := clock.NewFake(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	store := memstore.New()
	e, err := authcore.New().
		WithConfig(cfg).
		WithUserStore(store).
		WithSessionStore(store).
		WithClock(clk).
		Build()
	require.NoError(t, err)
	t.Cleanup(e.Close)
	return e, clk
}

func echoUser(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "no claims", http.StatusTeapot)
		return
	}
	_, _ = w.Write([]byte(claims.UserID))
}

func do(h http.Handler, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestGuard(t *testing.T) {
	e, clk := newEngine(t)
	res, err := e.Signup(context.Background(), authcore.SignupRequest{Username: "alice", Password: "P4ss!word"})
	require.NoError(t, err)

	h := middleware.Guard(e)(http.HandlerFunc(echoUser))

	rec := do(h, "Bearer "+res.Tokens.AccessToken)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, res.UserID, rec.Body.String())

	rec = do(h, "bearer "+res.Tokens.AccessToken)
	assert.Equal(t, http.StatusOK, rec.Code, "scheme is case-insensitive")

	for _, header := range []string{"", "Bearer ", "Basic abc", "Bearer not-a-jwt", "Bearer " + res.Tokens.RefreshToken} {
		rec := do(h, header)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "header %q", header)
		assert.Contains(t, rec.Header().Get("WWW-Authenticate"), string(authcore.CodeInvalidToken))
	}

	clk.Advance(16 * time.Minute)
	rec = do(h, "Bearer "+res.Tokens.AccessToken)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Header().Get("WWW-Authenticate"), string(authcore.CodeTokenExpired))
}

func TestRequireStrictRejectsLoggedOutSession(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()
	res, err := e.Signup(ctx, authcore.SignupRequest{Username: "alice", Password: "P4ss!word"})
	require.NoError(t, err)

	loose := middleware.Guard(e)(http.HandlerFunc(echoUser))
	strict := middleware.RequireStrict(e)(http.HandlerFunc(echoUser))

	assert.Equal(t, http.StatusOK, do(strict, "Bearer "+res.Tokens.AccessToken).Code)

	require.NoError(t, e.Logout(ctx, res.Tokens.SessionID))

	assert.Equal(t, http.StatusOK, do(loose, "Bearer "+res.Tokens.AccessToken).Code)
	assert.Equal(t, http.StatusUnauthorized, do(strict, "Bearer "+res.Tokens.AccessToken).Code)
}

func TestRequireAdmin(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := middleware.RequireAdmin(ok)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = req.WithContext(middleware.WithClaims(req.Context(), &jwt.Claims{UserID: "u1"}))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = req.WithContext(middleware.WithClaims(req.Context(), &jwt.Claims{UserID: "u1", IsAdmin: true}))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
