package optionz

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultName identifies the unnamed instance of an options type.
const DefaultName = ""

// DefaultValidationMessage is the failure message used when a validation
// function is registered without one.
const DefaultValidationMessage = "a validation error has occurred"

var (
	// ErrValidation matches every *ValidationError via errors.Is.
	ErrValidation = errors.New("options validation failed")

	// ErrMonitorStarted is returned by Monitor.Start when called twice.
	ErrMonitorStarted = errors.New("monitor already started")

	// ErrMonitorClosed is returned by Monitor.Start after Close.
	ErrMonitorClosed = errors.New("monitor closed")

	// ErrNoCapability is returned by Registry.Register when the value
	// implements none of Configurer, PostConfigurer or Validator.
	ErrNoCapability = errors.New("value implements no options capability")

	// ErrBindingStarted is returned by Binding.Start when called twice.
	ErrBindingStarted = errors.New("binding already started")

	// ErrWatcherClosed is returned when a watcher closes before emitting
	// its initial value.
	ErrWatcherClosed = errors.New("watcher closed before emitting initial value")
)

// ValidationError aggregates the failure messages of every validator that
// failed for one build.
type ValidationError struct {
	Type     string
	Name     string
	Failures []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s (name %q): %s", e.Type, e.Name, strings.Join(e.Failures, "; "))
}

// Is reports whether target is ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// RebuildError records a change-driven rebuild that failed. It is never
// returned to a caller; the Monitor keeps it as a diagnostic.
type RebuildError struct {
	Name string
	Err  error
}

func (e *RebuildError) Error() string {
	return fmt.Sprintf("rebuild of %q after change failed: %v", e.Name, e.Err)
}

func (e *RebuildError) Unwrap() error {
	return e.Err
}

// typeName returns a printable name for T.
func typeName[T any]() string {
	return fmt.Sprintf("%T", *new(T))
}
