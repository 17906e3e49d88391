// internal/core/errors_test.go
package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_Error(t *testing.T) {
	err := &Error{Code: "TEST_ERROR", Message: "test message"}
	if err.Error() != "[TEST_ERROR] test message" {
		t.Errorf("unexpected error string: %s", err.Error())
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{Code: "WRAP", Message: "wrapped", Cause: cause}
	if !errors.Is(err, cause) {
		t.Error("Unwrap should return cause")
	}
}

func TestError_Is(t *testing.T) {
	if !errors.Is(ErrNoData, ErrNoData) {
		t.Error("same error should match")
	}
	wrapped := fmt.Errorf("running: %w", WrapError(ErrCollectorFailed, errors.New("timeout")))
	if !errors.Is(wrapped, ErrCollectorFailed) {
		t.Error("wrapped error should match by code")
	}
	if errors.Is(wrapped, ErrNoData) {
		t.Error("different codes should not match")
	}
}

func TestWrapError(t *testing.T) {
	cause := errors.New("original")
	wrapped := WrapError(ErrCollectorFailed, cause)
	if wrapped.Cause != cause {
		t.Error("cause not set")
	}
	if wrapped.Code != ErrCollectorFailed.Code {
		t.Error("code not preserved")
	}
}

func TestError_Detail(t *testing.T) {
	err := WrapError(ErrInvalidParams, errors.New("delta out of range"))
	if got := err.Detail(); got != "invalid backtest parameters: delta out of range" {
		t.Errorf("unexpected detail: %s", got)
	}
}
