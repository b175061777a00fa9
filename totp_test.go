package authcore

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/authcore/clock"
)

// base32 of "12345678901234567890", the RFC 6238 SHA1 seed
const rfcSecret = "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"

func TestTOTPCheckRFCVectors(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	m := newTOTPManager(TOTPConfig{Issuer: "authcore", Skew: 0}, clk)

	cases := []struct {
		ts   int64
		code string
	}{
		{59, "287082"},
		{1111111109, "081804"},
		{1111111111, "050471"},
		{1234567890, "005924"},
		{2000000000, "279037"},
	}
	for _, tc := range cases {
		clk.Set(time.Unix(tc.ts, 0))
		if !m.Check(rfcSecret, tc.code) {
			t.Fatalf("vector failed at t=%d", tc.ts)
		}
	}
}

func TestTOTPCheckSkewWindow(t *testing.T) {
	clk := clock.NewFake(time.Unix(1111111109, 0))
	m := newTOTPManager(TOTPConfig{Issuer: "authcore", Skew: 1}, clk)

	code, err := m.code(rfcSecret)
	if err != nil {
		t.Fatalf("code: %v", err)
	}

	clk.Advance(30 * time.Second)
	if !m.Check(rfcSecret, code) {
		t.Fatal("previous step should be accepted with skew 1")
	}
	clk.Advance(30 * time.Second)
	if m.Check(rfcSecret, code) {
		t.Fatal("code two steps old must be rejected")
	}
}

func TestTOTPCheckRejectsMalformed(t *testing.T) {
	m := newTOTPManager(TOTPConfig{Issuer: "authcore", Skew: 1}, clock.NewFake(time.Unix(59, 0)))

	for _, code := range []string{"", "28708", "2870820", "28708a", "abcdef"} {
		if m.Check(rfcSecret, code) {
			t.Fatalf("malformed code %q accepted", code)
		}
	}
	if m.Check("", "287082") {
		t.Fatal("empty secret accepted")
	}
	if m.Check("not base32!!", "287082") {
		t.Fatal("invalid secret accepted")
	}
	if !m.Check(rfcSecret, " 287082 ") {
		t.Fatal("surrounding whitespace should be ignored")
	}
}

func TestTOTPGenerateSecret(t *testing.T) {
	clk := clock.NewFake(time.Unix(1700000000, 0))
	m := newTOTPManager(TOTPConfig{Issuer: "Example Co", Skew: 1}, clk)

	secret, uri, err := m.GenerateSecret("alice")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	// 20 bytes encode to 32 base32 characters
	if len(secret) != 32 {
		t.Fatalf("unexpected secret length %d", len(secret))
	}

	u, err := url.Parse(uri)
	if err != nil {
		t.Fatalf("parse uri: %v", err)
	}
	if u.Scheme != "otpauth" || u.Host != "totp" {
		t.Fatalf("unexpected uri %q", uri)
	}
	if !strings.Contains(u.Path, "alice") || u.Query().Get("issuer") != "Example Co" {
		t.Fatalf("uri missing account or issuer: %q", uri)
	}
	if u.Query().Get("secret") != secret {
		t.Fatal("uri secret mismatch")
	}

	code, err := m.code(secret)
	if err != nil {
		t.Fatalf("code: %v", err)
	}
	if !m.Check(secret, code) {
		t.Fatal("freshly generated secret rejected its own code")
	}

	other, _, err := m.GenerateSecret("alice")
	if err != nil || other == secret {
		t.Fatal("secrets must be fresh per call")
	}
}
