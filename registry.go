package optionz

import (
	"fmt"
	"sync"
)

// Action mutates an options instance being built for name.
type Action[T any] func(name string, opts *T) error

// Configurer configures options for any name it chooses to handle.
type Configurer[T any] interface {
	Configure(name string, opts *T) error
}

// PostConfigurer runs after every Configurer for the same build.
type PostConfigurer[T any] interface {
	PostConfigure(name string, opts *T) error
}

type stage int

const (
	stageConfigure stage = iota
	stagePostConfigure
)

// setupAction is one registered configure or post-configure action.
type setupAction[T any] struct {
	stage stage
	name  string
	all   bool
	fn    Action[T]
}

// appliesTo reports whether the action targets name.
func (a setupAction[T]) appliesTo(name string) bool {
	return a.all || a.name == name
}

// Registry collects the actions, validators and change sources for one
// options type in registration order. It is safe for concurrent use;
// factories read a snapshot on every build.
type Registry[T any] struct {
	mu         sync.RWMutex
	newFn      func() *T
	actions    []setupAction[T]
	validators []Validator[T]
	sources    []ChangeTokenSource
}

// NewRegistry creates an empty registry for T.
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{}
}

// New sets the constructor used for fresh instances. Defaults to new(T).
func (r *Registry[T]) New(fn func() *T) *Registry[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.newFn = fn
	return r
}

// Configure registers fn for the named instance.
func (r *Registry[T]) Configure(name string, fn func(*T) error) *Registry[T] {
	return r.add(stageConfigure, name, false, adapt(fn))
}

// ConfigureAll registers fn for every name.
func (r *Registry[T]) ConfigureAll(fn func(*T) error) *Registry[T] {
	return r.add(stageConfigure, "", true, adapt(fn))
}

// PostConfigure registers fn for the named instance, to run after all
// configure actions.
func (r *Registry[T]) PostConfigure(name string, fn func(*T) error) *Registry[T] {
	return r.add(stagePostConfigure, name, false, adapt(fn))
}

// PostConfigureAll registers fn for every name, to run after all configure
// actions.
func (r *Registry[T]) PostConfigureAll(fn func(*T) error) *Registry[T] {
	return r.add(stagePostConfigure, "", true, adapt(fn))
}

// ConfigureWith registers c for every name. c receives the name being built.
func (r *Registry[T]) ConfigureWith(c Configurer[T]) *Registry[T] {
	return r.add(stageConfigure, "", true, c.Configure)
}

// PostConfigureWith registers p for every name. p receives the name being
// built.
func (r *Registry[T]) PostConfigureWith(p PostConfigurer[T]) *Registry[T] {
	return r.add(stagePostConfigure, "", true, p.PostConfigure)
}

// Validate registers a validation function for the named instance. An empty
// message falls back to DefaultValidationMessage.
func (r *Registry[T]) Validate(name string, fn func(*T) bool, message string) *Registry[T] {
	return r.ValidateWith(&validateFunc[T]{name: name, fn: fn, message: message})
}

// ValidateAll registers a validation function that runs for every name.
func (r *Registry[T]) ValidateAll(fn func(*T) bool, message string) *Registry[T] {
	return r.ValidateWith(&validateFunc[T]{all: true, fn: fn, message: message})
}

// ValidateWith registers a validator. It runs for every build and decides
// itself whether to skip.
func (r *Registry[T]) ValidateWith(v Validator[T]) *Registry[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.validators = append(r.validators, v)
	return r
}

// ValidateStruct registers struct tag validation (go-playground/validator)
// for every name.
func (r *Registry[T]) ValidateStruct() *Registry[T] {
	return r.ValidateWith(structValidator[T]{})
}

// AddChangeTokenSource registers a change source. Monitors created after this
// call watch it.
func (r *Registry[T]) AddChangeTokenSource(src ChangeTokenSource) *Registry[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources = append(r.sources, src)
	return r
}

// Bind registers b as both a change source and a configure action for
// b.Name().
func (r *Registry[T]) Bind(b *Binding) *Registry[T] {
	r.add(stageConfigure, b.Name(), false, func(_ string, opts *T) error {
		return b.Decode(opts)
	})
	return r.AddChangeTokenSource(b)
}

// Register registers every capability v implements: Configurer,
// PostConfigurer and Validator. It returns ErrNoCapability if v implements
// none of them.
func (r *Registry[T]) Register(v any) error {
	found := false
	if c, ok := v.(Configurer[T]); ok {
		r.ConfigureWith(c)
		found = true
	}
	if p, ok := v.(PostConfigurer[T]); ok {
		r.PostConfigureWith(p)
		found = true
	}
	if val, ok := v.(Validator[T]); ok {
		r.ValidateWith(val)
		found = true
	}
	if !found {
		return fmt.Errorf("%w: %T for %s", ErrNoCapability, v, typeName[T]())
	}
	return nil
}

// Sources returns the registered change sources in registration order.
func (r *Registry[T]) Sources() []ChangeTokenSource {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]ChangeTokenSource(nil), r.sources...)
}

// Setup returns the setup pipeline over the current registrations.
func (r *Registry[T]) Setup() *SetupPipeline[T] {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return &SetupPipeline[T]{actions: append([]setupAction[T](nil), r.actions...)}
}

// Validation returns the validation pipeline over the current registrations.
func (r *Registry[T]) Validation() *ValidationPipeline[T] {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return &ValidationPipeline[T]{validators: append([]Validator[T](nil), r.validators...)}
}

// Factory returns a Factory that builds from this registry.
func (r *Registry[T]) Factory() *Factory[T] {
	return NewFactory(r)
}

// Snapshot returns a Snapshot building from this registry.
func (r *Registry[T]) Snapshot() *Snapshot[T] {
	return NewSnapshot[T](NewFactory(r))
}

// Monitor returns a Monitor over a new cache, watching every source
// registered so far.
func (r *Registry[T]) Monitor() *Monitor[T] {
	return NewMonitor[T](NewFactory(r), NewCache[T](), r.Sources()...)
}

// construct returns a fresh instance.
func (r *Registry[T]) construct() *T {
	r.mu.RLock()
	fn := r.newFn
	r.mu.RUnlock()
	if fn != nil {
		return fn()
	}
	return new(T)
}

func (r *Registry[T]) add(s stage, name string, all bool, fn Action[T]) *Registry[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, setupAction[T]{stage: s, name: name, all: all, fn: fn})
	return r
}

// adapt drops the name argument.
func adapt[T any](fn func(*T) error) Action[T] {
	return func(_ string, opts *T) error {
		return fn(opts)
	}
}
