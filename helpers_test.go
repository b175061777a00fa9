package authcore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/authcore/clock"
	"github.com/MrEthical07/authcore/memstore"
)

var testStart = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

const testPassword = "P4ss!word"

type testEnv struct {
	clock *clock.Fake
	store *memstore.Store
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.AccessSecret = []byte("access-secret-access-secret-0123")
	cfg.JWT.RefreshSecret = []byte("refresh-secret-refresh-secret-01")
	cfg.JWT.Issuer = "authcore-test"
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Password.UpgradeOnLogin = false
	return cfg
}

// newTestEngine builds an engine over a fresh memstore and a fake clock.
// opts run after the defaults, so they can override any of them.
func newTestEngine(t *testing.T, opts ...func(*Builder)) (*Engine, *testEnv) {
	t.Helper()

	env := &testEnv{
		clock: clock.NewFake(testStart),
		store: memstore.New(),
	}
	b := New().
		WithConfig(testConfig()).
		WithUserStore(env.store).
		WithSessionStore(env.store).
		WithClock(env.clock)
	for _, opt := range opts {
		opt(b)
	}

	e, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	t.Cleanup(e.Close)
	return e, env
}

func mustSignup(t *testing.T, e *Engine, username string) *SignupResult {
	t.Helper()
	res, err := e.Signup(context.Background(), SignupRequest{Username: username, Password: testPassword})
	if err != nil {
		t.Fatalf("signup %s: %v", username, err)
	}
	return res
}

// enrollOTP runs generate + verify and returns the secret.
func enrollOTP(t *testing.T, e *Engine, userID string) string {
	t.Helper()
	ctx := context.Background()

	enrollment, err := e.GenerateOTP(ctx, userID)
	if err != nil {
		t.Fatalf("generate otp: %v", err)
	}
	if err := e.VerifyOTP(ctx, userID, currentCode(t, e, enrollment.Secret)); err != nil {
		t.Fatalf("verify otp: %v", err)
	}
	return enrollment.Secret
}

func currentCode(t *testing.T, e *Engine, secret string) string {
	t.Helper()
	code, err := e.totp.code(secret)
	if err != nil {
		t.Fatalf("otp code: %v", err)
	}
	return code
}

// wrongCode returns a well-formed code that is not valid in the current
// window.
func wrongCode(t *testing.T, e *Engine, secret string) string {
	t.Helper()
	good := currentCode(t, e, secret)
	for _, candidate := range []string{"000000", "111111", "222222", "333333"} {
		if candidate != good && !e.totp.Check(secret, candidate) {
			return candidate
		}
	}
	t.Fatal("could not find an invalid code")
	return ""
}

func requireCode(t *testing.T, err error, want *Error) {
	t.Helper()
	if !errors.Is(err, want) {
		t.Fatalf("expected %s, got %v", want.Code, err)
	}
}
