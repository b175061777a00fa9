package session

import (
	"errors"
	"testing"
	"time"
)

func TestEncodeDecodeKeepsDevice(t *testing.T) {
	now := time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC)
	in := &Session{
		ID:        "rec-1",
		UserID:    "user-1",
		SessionID: "sid-1",
		CreatedAt: now,
		ExpiresAt: now.Add(7 * 24 * time.Hour),
		Device:    &Device{OS: "iOS", IsMobile: true, Browser: "Safari", AppVersion: "2.3.1", Model: "iPhone"},
	}

	data, err := Encode(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if out.SessionID != "" {
		t.Fatalf("session id is the key and must not be encoded, got %q", out.SessionID)
	}
	if out.ID != in.ID || out.UserID != in.UserID {
		t.Fatalf("identity mismatch: %+v", out)
	}
	if !out.CreatedAt.Equal(in.CreatedAt) || !out.ExpiresAt.Equal(in.ExpiresAt) {
		t.Fatalf("time mismatch: %v %v", out.CreatedAt, out.ExpiresAt)
	}
	if out.Device == nil || *out.Device != *in.Device {
		t.Fatalf("device mismatch: %+v", out.Device)
	}
}

func TestDecodeWithoutDevice(t *testing.T) {
	in := &Session{ID: "r", UserID: "u", ExpiresAt: time.UnixMilli(1000).UTC()}
	data, err := Encode(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Device != nil {
		t.Fatalf("expected nil device, got %+v", out.Device)
	}
}

func TestDecodeRejectsCorruptRecords(t *testing.T) {
	valid, err := Encode(&Session{ID: "r", UserID: "u", Device: &Device{OS: "linux"}})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	cases := map[string][]byte{
		"empty":     nil,
		"version":   append([]byte{9}, valid[1:]...),
		"truncated": valid[:len(valid)-2],
		"trailing":  append(append([]byte{}, valid...), 0),
	}
	for name, data := range cases {
		if _, err := Decode(data); !errors.Is(err, ErrCorrupt) {
			t.Fatalf("%s: expected ErrCorrupt, got %v", name, err)
		}
	}
}

func TestEncodeRejectsOversizedFields(t *testing.T) {
	long := make([]byte, 256)
	for i := range long {
		long[i] = 'x'
	}
	if _, err := Encode(&Session{UserID: string(long)}); err == nil {
		t.Fatal("expected oversized user id to be rejected")
	}
}

func FuzzDecode(f *testing.F) {
	seed, _ := Encode(&Session{ID: "r", UserID: "u", Device: &Device{OS: "android", IsMobile: true}})
	f.Add(seed)
	f.Add([]byte{})
	f.Add([]byte{1, 255})

	f.Fuzz(func(t *testing.T, data []byte) {
		sess, err := Decode(data)
		if err != nil {
			return
		}
		again, err := Encode(sess)
		if err != nil {
			t.Fatalf("re-encode of decoded record failed: %v", err)
		}
		if _, err := Decode(again); err != nil {
			t.Fatalf("decode of re-encoded record failed: %v", err)
		}
	})
}
