package errs

import (
	"errors"
	"strings"
	"testing"
)

func TestErrorFormattingIncludesOpCodeAndMessage(t *testing.T) {
	err := New(
		"reactive/create",
		CodeCancelled,
		WithMessage("votes to cancel exceeded votes to proceed"),
		WithCause(errors.New("listener vetoed creation")),
	)

	out := err.Error()
	if !strings.Contains(out, "op=reactive/create") {
		t.Fatalf("expected op marker in error string: %s", out)
	}
	if !strings.Contains(out, "code=cancelled") {
		t.Fatalf("expected code marker in error string: %s", out)
	}
	if !strings.Contains(out, `message="votes to cancel exceeded votes to proceed"`) {
		t.Fatalf("expected message in error string: %s", out)
	}
	if !strings.Contains(out, `cause="listener vetoed creation"`) {
		t.Fatalf("expected wrapped cause in error string: %s", out)
	}
}

func TestNilErrorString(t *testing.T) {
	var e *E
	if got := e.Error(); got != "<nil>" {
		t.Fatalf("expected <nil> string for nil error, got %q", got)
	}
}

func TestIsCancelledAndIsAborted(t *testing.T) {
	cancelled := New("reactive/create", CodeCancelled)
	aborted := New("reactive/emit", CodeAborted)

	if !IsCancelled(cancelled) {
		t.Fatalf("expected IsCancelled to match CodeCancelled envelope")
	}
	if IsCancelled(aborted) {
		t.Fatalf("expected IsCancelled to reject CodeAborted envelope")
	}
	if !IsAborted(aborted) {
		t.Fatalf("expected IsAborted to match CodeAborted envelope")
	}
	if IsAborted(errors.New("plain error")) {
		t.Fatalf("expected IsAborted to reject non-*E errors")
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := New("reactive/delete", CodeInvariant, WithCause(cause))
	if !errors.Is(err, cause) {
		t.Fatalf("expected errors.Is to find wrapped cause")
	}
}
