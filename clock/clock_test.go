package clock

import (
	"testing"
	"time"
)

func TestFakeAdvanceAndSet(t *testing.T) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	f := NewFake(start)

	if got := f.Now(); !got.Equal(start) {
		t.Fatalf("expected %v, got %v", start, got)
	}

	next := f.Advance(90 * time.Second)
	if !next.Equal(start.Add(90 * time.Second)) {
		t.Fatalf("unexpected advanced time %v", next)
	}
	if !f.Now().Equal(next) {
		t.Fatal("Now must reflect Advance")
	}

	later := start.Add(24 * time.Hour)
	f.Set(later)
	if !f.Now().Equal(later) {
		t.Fatalf("expected %v after Set, got %v", later, f.Now())
	}
}

func TestRealIsUTC(t *testing.T) {
	if loc := (Real{}).Now().Location(); loc != time.UTC {
		t.Fatalf("expected UTC, got %v", loc)
	}
}
