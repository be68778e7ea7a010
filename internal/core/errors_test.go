package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestDomainErrorFormatting(t *testing.T) {
	t.Parallel()
	err := ErrProtocol(CodeGateNotArmed, "no outline pending")
	want := "[protocol] GATE_NOT_ARMED: no outline pending"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	wrapped := ErrTransport(CodeStreamFailed, "stream read").WithCause(fmt.Errorf("connection reset"))
	if wrapped.Error() != "[transport] STREAM_FAILED: stream read (connection reset)" {
		t.Errorf("unexpected wrapped format: %q", wrapped.Error())
	}
}

func TestDomainErrorUnwrap(t *testing.T) {
	t.Parallel()
	cause := errors.New("boom")
	err := ErrTransport(CodeRequestFailed, "posting request").WithCause(cause)
	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the cause")
	}
}

func TestDomainErrorIs(t *testing.T) {
	t.Parallel()
	a := ErrProtocol(CodeSessionTerminal, "session finished")
	b := ErrProtocol(CodeSessionTerminal, "different message")
	if !errors.Is(a, b) {
		t.Error("same category+code should match")
	}
	c := ErrProtocol(CodeGateNotArmed, "x")
	if errors.Is(a, c) {
		t.Error("different codes must not match")
	}
}

func TestRetryableByCategory(t *testing.T) {
	t.Parallel()
	if !IsRetryable(ErrTransport(CodeStreamFailed, "drop")) {
		t.Error("transport errors should be retryable")
	}
	if IsRetryable(ErrProtocol(CodeInvalidDecision, "late decision")) {
		t.Error("protocol errors must not be retryable")
	}
	if IsRetryable(errors.New("plain")) {
		t.Error("plain errors default to non-retryable")
	}
}

func TestGetCategory(t *testing.T) {
	t.Parallel()
	if GetCategory(ErrPipeline("writer crashed")) != ErrCatPipeline {
		t.Error("expected pipeline category")
	}
	if GetCategory(errors.New("plain")) != ErrCatInternal {
		t.Error("plain errors should default to internal")
	}
	wrapped := fmt.Errorf("context: %w", ErrNotFound("record", "blog-1"))
	if !IsCategory(wrapped, ErrCatNotFound) {
		t.Error("category should survive wrapping")
	}
}

func TestWithDetail(t *testing.T) {
	t.Parallel()
	err := ErrState(CodeInvalidState, "bad transition").
		WithDetail("from", "completed").
		WithDetail("to", "generating")
	if err.Details["from"] != "completed" || err.Details["to"] != "generating" {
		t.Errorf("unexpected details: %#v", err.Details)
	}
}
