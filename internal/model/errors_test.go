package model

import (
	"errors"
	"testing"
)

// TestTransportError_Unwrap は元のエラーを取り出せることを検証する。
func TestTransportError_Unwrap(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := &TransportError{Cause: cause}

	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to match the cause")
	}
	if err.Error() == "" {
		t.Error("expected non-empty error message")
	}
}

// TestHTTPError_Error はステータスと詳細を含むメッセージを検証する。
func TestHTTPError_Error(t *testing.T) {
	err := &HTTPError{Status: 500, Detail: "db down"}

	msg := err.Error()
	if msg == "" {
		t.Fatal("expected non-empty error message")
	}
	if err.Status != 500 {
		t.Errorf("Status = %d, want %d", err.Status, 500)
	}
	if err.Detail != "db down" {
		t.Errorf("Detail = %q, want %q", err.Detail, "db down")
	}
}

// TestSubscriptionError_Unwrap はラップされた原因を取り出せることを検証する。
func TestSubscriptionError_Unwrap(t *testing.T) {
	cause := errors.New("sdk load failed")
	err := &SubscriptionError{Op: "load", Cause: cause}

	var subErr *SubscriptionError
	if !errors.As(err, &subErr) {
		t.Fatal("expected errors.As to match *SubscriptionError")
	}
	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to match the cause")
	}
}

// TestAPIError_Error はコードとメッセージを含むフォーマットを検証する。
func TestAPIError_Error(t *testing.T) {
	err := NewEmptyGoalError()

	if err.Code != ErrCodeEmptyGoal {
		t.Errorf("Code = %q, want %q", err.Code, ErrCodeEmptyGoal)
	}
	if err.Category != "validation" {
		t.Errorf("Category = %q, want %q", err.Category, "validation")
	}
}
