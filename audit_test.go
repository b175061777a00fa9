package authcore

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/authcore/jwt"
)

func newAuditedEngine(t *testing.T) (*Engine, *ChannelAuditSink) {
	t.Helper()
	sink := NewChannelAuditSink(64)
	e, _ := newTestEngine(t, func(b *Builder) {
		cfg := testConfig()
		cfg.Audit.Enabled = true
		cfg.Audit.DropIfFull = false
		b.WithConfig(cfg).WithAuditSink(sink)
	})
	return e, sink
}

func nextEvent(t *testing.T, sink *ChannelAuditSink, eventType string) AuditEvent {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev := <-sink.Events():
			if ev.EventType == eventType {
				return ev
			}
		case <-timeout:
			t.Fatalf("no %s event", eventType)
			return AuditEvent{}
		}
	}
}

func TestAuditLoginEvents(t *testing.T) {
	e, sink := newAuditedEngine(t)
	ctx := WithClientIP(context.Background(), "203.0.113.9")

	signup := mustSignup(t, e, "alice")
	ev := nextEvent(t, sink, auditEventSignupSuccess)
	if ev.UserID != signup.UserID || !ev.Success {
		t.Fatalf("unexpected signup event: %+v", ev)
	}

	res, err := e.Login(ctx, LoginRequest{Username: "alice", Password: testPassword})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	ev = nextEvent(t, sink, auditEventLoginSuccess)
	if ev.IP != "203.0.113.9" {
		t.Fatalf("expected client ip, got %q", ev.IP)
	}
	if ev.SessionHash != jwt.HashSessionID(res.Tokens.SessionID) {
		t.Fatalf("expected hashed session id, got %q", ev.SessionHash)
	}
	if ev.SessionHash == res.Tokens.SessionID {
		t.Fatal("raw session id leaked into audit")
	}

	_, _ = e.Login(ctx, LoginRequest{Username: "alice", Password: "Wr0ng!pass"})
	ev = nextEvent(t, sink, auditEventLoginFailure)
	if ev.Success || ev.Error != string(CodeInvalidCredentials) {
		t.Fatalf("unexpected failure event: %+v", ev)
	}
	if strings.Contains(ev.Metadata["username"], "Wr0ng") {
		t.Fatal("password leaked into audit")
	}
}

func TestAuditRecoveryAndRefresh(t *testing.T) {
	e, sink := newAuditedEngine(t)
	ctx := context.Background()
	signup := mustSignup(t, e, "alice")

	tokens, err := e.Refresh(ctx, signup.Tokens.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	ev := nextEvent(t, sink, auditEventRefreshSuccess)
	if ev.SessionHash != jwt.HashSessionID(tokens.SessionID) ||
		ev.Metadata["previous_sid_hash"] != jwt.HashSessionID(signup.Tokens.SessionID) {
		t.Fatalf("unexpected refresh event: %+v", ev)
	}

	_, _ = e.RecoverWithoutOTP(ctx, RecoveryRequest{Username: "alice", RecoveryCode: "AAAAA-AAAAA"})
	ev = nextEvent(t, sink, auditEventRecoveryFailure)
	if ev.Error != string(CodeInvalidUsernameOrRecoveryCode) || ev.Metadata["method"] != "basic" {
		t.Fatalf("unexpected recovery failure: %+v", ev)
	}

	_, err = e.RecoverWithoutOTP(ctx, RecoveryRequest{Username: "alice", RecoveryCode: signup.RecoveryCodes[0]})
	if err != nil {
		t.Fatalf("recover: %v", err)
	}
	ev = nextEvent(t, sink, auditEventRecoverySuccess)
	if ev.UserID != signup.UserID || !ev.Success {
		t.Fatalf("unexpected recovery event: %+v", ev)
	}
	for _, v := range ev.Metadata {
		if strings.Contains(v, signup.RecoveryCodes[0]) {
			t.Fatal("recovery code leaked into audit")
		}
	}
}

func TestAuditErrorCode(t *testing.T) {
	if got := auditErrorCode(nil); got != "" {
		t.Fatalf("expected empty code, got %q", got)
	}
	if got := auditErrorCode(ErrInvalidOtp); got != CodeInvalidOtp {
		t.Fatalf("expected %s, got %s", CodeInvalidOtp, got)
	}
	if got := auditErrorCode(errDiskOnFire); got != CodeInternal {
		t.Fatalf("expected internal code, got %s", got)
	}
}
