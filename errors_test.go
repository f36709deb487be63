package optionz

import (
	"errors"
	"testing"
)

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{Type: "optionz.testOptions", Name: "db", Failures: []string{"a", "b"}}
	want := `validation failed for optionz.testOptions (name "db"): a; b`
	if err.Error() != want {
		t.Errorf("expected %q, got %q", want, err.Error())
	}
}

func TestValidationError_Is(t *testing.T) {
	var err error = &ValidationError{Failures: []string{"x"}}
	if !errors.Is(err, ErrValidation) {
		t.Error("expected ValidationError to match ErrValidation")
	}
	if errors.Is(err, ErrMonitorClosed) {
		t.Error("ValidationError matched an unrelated sentinel")
	}
}

func TestRebuildError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := &RebuildError{Name: "db", Err: cause}
	if !errors.Is(err, cause) {
		t.Error("expected RebuildError to unwrap to its cause")
	}
	if err.Error() != `rebuild of "db" after change failed: boom` {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestTypeName(t *testing.T) {
	if got := typeName[testOptions](); got != "optionz.testOptions" {
		t.Errorf("expected optionz.testOptions, got %q", got)
	}
}
