package jwt

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/authcore/clock"
	gjwt "github.com/golang-jwt/jwt/v5"
)

var (
	testAccessSecret  = []byte(strings.Repeat("a", 32))
	testRefreshSecret = []byte(strings.Repeat("r", 32))
)

func newTestManager(tb testing.TB, clk clock.Clock) *Manager {
	tb.Helper()
	m, err := NewManager(Config{
		AccessSecret:  testAccessSecret,
		RefreshSecret: testRefreshSecret,
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
		Issuer:        "authcore-test",
		Clock:         clk,
	})
	if err != nil {
		tb.Fatalf("new manager: %v", err)
	}
	return m
}

func registered(sid string) gjwt.RegisteredClaims {
	return gjwt.RegisteredClaims{ID: sid}
}

func TestIssueStampsExpiryFromClock(t *testing.T) {
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	clk := clock.NewFake(start)
	m := newTestManager(t, clk)

	base := Claims{UserID: "u1", IsAdmin: true, RegisteredClaims: registered("s1")}
	access, err := m.Issue(base, KindAccess)
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}
	refresh, err := m.Issue(base, KindRefresh)
	if err != nil {
		t.Fatalf("issue refresh: %v", err)
	}

	ac, err := m.Decode(access, KindAccess)
	if err != nil {
		t.Fatalf("decode access: %v", err)
	}
	rc, err := m.Decode(refresh, KindRefresh)
	if err != nil {
		t.Fatalf("decode refresh: %v", err)
	}

	if ac.SessionID() != "s1" || rc.SessionID() != "s1" {
		t.Fatalf("expected shared jti, got %q and %q", ac.SessionID(), rc.SessionID())
	}
	if !ac.IsAdmin || !rc.IsAdmin || ac.UserID != "u1" {
		t.Fatalf("unexpected claims %+v", ac)
	}
	if got := ac.ExpiresAt.Time; !got.Equal(start.Add(15 * time.Minute)) {
		t.Fatalf("unexpected access exp %v", got)
	}
	if got := rc.ExpiresAt.Time; !got.Equal(start.Add(7 * 24 * time.Hour)) {
		t.Fatalf("unexpected refresh exp %v", got)
	}
}

func TestDecodeIgnoresExpiry(t *testing.T) {
	clk := clock.NewFake(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC))
	m := newTestManager(t, clk)

	token, err := m.Issue(Claims{UserID: "u1", RegisteredClaims: registered("s1")}, KindAccess)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	// The real wall clock is years past exp; Decode must still succeed.
	claims, err := m.Decode(token, KindAccess)
	if err != nil {
		t.Fatalf("decode expired token: %v", err)
	}
	if !claims.Expired(time.Now()) {
		t.Fatal("expected claims to report expired against wall clock")
	}
	if claims.Expired(clk.Now()) {
		t.Fatal("expected claims to be live against the fake clock")
	}
}

func TestDecodeRejectsCrossKind(t *testing.T) {
	m := newTestManager(t, nil)

	access, err := m.Issue(Claims{UserID: "u1", RegisteredClaims: registered("s1")}, KindAccess)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := m.Decode(access, KindRefresh); err == nil {
		t.Fatal("access token must not decode as refresh")
	}
}

func TestDecodeRejectsKindClaimForgery(t *testing.T) {
	m := newTestManager(t, nil)

	claims := Claims{UserID: "u1", Kind: KindRefresh, RegisteredClaims: gjwt.RegisteredClaims{
		ID:        "s1",
		Issuer:    "authcore-test",
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	// Signed with the access secret but claiming to be a refresh token.
	tok, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString(testAccessSecret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := m.Decode(tok, KindRefresh); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
	if _, err := m.Decode(tok, KindAccess); !errors.Is(err, ErrWrongKind) {
		t.Fatalf("expected ErrWrongKind, got %v", err)
	}
}

func TestDecodeRejectsWrongAlgorithm(t *testing.T) {
	m := newTestManager(t, nil)

	claims := Claims{UserID: "u1", Kind: KindAccess, RegisteredClaims: registered("s1")}
	tok, err := gjwt.NewWithClaims(gjwt.SigningMethodHS512, claims).SignedString(testAccessSecret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := m.Decode(tok, KindAccess); err == nil {
		t.Fatal("expected HS512 token to be rejected")
	}

	none, err := gjwt.NewWithClaims(gjwt.SigningMethodNone, claims).SignedString(gjwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := m.Decode(none, KindAccess); err == nil {
		t.Fatal("expected alg=none token to be rejected")
	}
}

func TestDecodeRejectsTamperedPayload(t *testing.T) {
	m := newTestManager(t, nil)

	tok, err := m.Issue(Claims{UserID: "u1", RegisteredClaims: registered("s1")}, KindAccess)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	parts := strings.Split(tok, ".")
	parts[2] = strings.Repeat("A", len(parts[2]))
	if _, err := m.Decode(strings.Join(parts, "."), KindAccess); err == nil {
		t.Fatal("expected tampered signature to be rejected")
	}
}

func TestNewManagerValidation(t *testing.T) {
	short := []byte("short")
	cases := []Config{
		{AccessSecret: testAccessSecret, RefreshSecret: testRefreshSecret, RefreshTTL: time.Hour},
		{AccessSecret: testAccessSecret, RefreshSecret: testRefreshSecret, AccessTTL: time.Hour, RefreshTTL: time.Minute},
		{AccessSecret: short, RefreshSecret: testRefreshSecret, AccessTTL: time.Minute, RefreshTTL: time.Hour},
	}
	for i, cfg := range cases {
		if _, err := NewManager(cfg); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}

func TestHashSessionID(t *testing.T) {
	a := HashSessionID("sid-1")
	if len(a) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(a))
	}
	if a == HashSessionID("sid-2") || a != HashSessionID("sid-1") {
		t.Fatal("hash must be deterministic and distinguish inputs")
	}
}
