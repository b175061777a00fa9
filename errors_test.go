package authcore

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	copyErr := &Error{Code: CodeInvalidToken, Message: "something else"}
	if !errors.Is(copyErr, ErrInvalidToken) {
		t.Fatal("errors with equal codes must match")
	}
	if errors.Is(copyErr, ErrTokenExpired) {
		t.Fatal("errors with different codes must not match")
	}

	wrapped := fmt.Errorf("refresh: %w", ErrTokenExpired)
	if !errors.Is(wrapped, ErrTokenExpired) {
		t.Fatal("wrapped engine errors must match")
	}
	if !isEngineError(wrapped) || isEngineError(errors.New("raw")) {
		t.Fatal("classification must follow the wrap chain and reject raw errors")
	}
}

func TestInternalErrorHidesCause(t *testing.T) {
	e, _ := newTestEngine(t)
	err := e.internalError("test", errors.New("pq: connection refused on 10.0.0.7"))
	if !errors.Is(err, ErrInternal) {
		t.Fatalf("expected ErrInternal, got %v", err)
	}
	if err.Error() != ErrInternal.Message {
		t.Fatalf("internal error leaked cause: %q", err.Error())
	}
}
