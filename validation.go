package optionz

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

// validate is the shared struct validator instance.
var validate = validator.New()

// Outcome is the kind of a ValidationResult.
type Outcome int

const (
	// Succeeded means the validator accepted the instance.
	Succeeded Outcome = iota

	// Skipped means the validator does not apply to the requested name.
	Skipped

	// Failed means the validator rejected the instance.
	Failed
)

// String returns the string representation of the outcome.
func (o Outcome) String() string {
	switch o {
	case Succeeded:
		return "succeeded"
	case Skipped:
		return "skipped"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// ValidationResult is the outcome of one validator for one build.
type ValidationResult struct {
	Outcome  Outcome
	Failures []string
}

// Success returns a Succeeded result.
func Success() ValidationResult {
	return ValidationResult{Outcome: Succeeded}
}

// Skip returns a Skipped result.
func Skip() ValidationResult {
	return ValidationResult{Outcome: Skipped}
}

// Fail returns a Failed result carrying the given messages.
func Fail(messages ...string) ValidationResult {
	return ValidationResult{Outcome: Failed, Failures: messages}
}

// Validator checks a built instance. It must not mutate opts.
type Validator[T any] interface {
	Validate(name string, opts *T) ValidationResult
}

// ValidatorFunc adapts a function to Validator.
type ValidatorFunc[T any] func(name string, opts *T) ValidationResult

// Validate calls f.
func (f ValidatorFunc[T]) Validate(name string, opts *T) ValidationResult {
	return f(name, opts)
}

// validateFunc is a boolean check bound to one name or to every name.
type validateFunc[T any] struct {
	name    string
	all     bool
	fn      func(*T) bool
	message string
}

func (v *validateFunc[T]) Validate(name string, opts *T) ValidationResult {
	if !v.all && v.name != name {
		return Skip()
	}
	if v.fn(opts) {
		return Success()
	}
	if v.message == "" {
		return Fail(DefaultValidationMessage)
	}
	return Fail(v.message)
}

// structValidator applies `validate` struct tags.
type structValidator[T any] struct{}

func (structValidator[T]) Validate(_ string, opts *T) ValidationResult {
	err := validate.Struct(opts)
	if err == nil {
		return Success()
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return Fail(err.Error())
	}
	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		messages = append(messages, fe.Error())
	}
	return Fail(messages...)
}

// ValidationPipeline runs every registered validator against a built
// instance.
type ValidationPipeline[T any] struct {
	validators []Validator[T]
}

// Evaluate returns one result per validator, in registration order.
func (p *ValidationPipeline[T]) Evaluate(name string, opts *T) []ValidationResult {
	results := make([]ValidationResult, len(p.validators))
	for i, v := range p.validators {
		results[i] = v.Validate(name, opts)
	}
	return results
}

// Run validates opts and returns a *ValidationError listing every failure
// message, or nil when nothing failed.
func (p *ValidationPipeline[T]) Run(name string, opts *T) error {
	var failures []string
	failed := false
	for _, r := range p.Evaluate(name, opts) {
		if r.Outcome != Failed {
			continue
		}
		failed = true
		failures = append(failures, r.Failures...)
	}
	if !failed {
		return nil
	}
	return &ValidationError{Type: typeName[T](), Name: name, Failures: failures}
}
