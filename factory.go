package optionz

// OptionsFactory builds a fresh instance for a name on every call.
type OptionsFactory[T any] interface {
	Create(name string) (*T, error)
}

// Factory builds instances from a Registry: construct, setup, validate.
type Factory[T any] struct {
	registry *Registry[T]
}

// NewFactory creates a Factory reading registrations from r.
func NewFactory[T any](r *Registry[T]) *Factory[T] {
	return &Factory[T]{registry: r}
}

// Create builds the instance for name. A setup action's error is returned
// unchanged; validation failures return a *ValidationError. Nothing is
// cached.
func (f *Factory[T]) Create(name string) (*T, error) {
	opts := f.registry.construct()
	if err := f.registry.Setup().Run(name, opts); err != nil {
		return nil, err
	}
	if err := f.registry.Validation().Run(name, opts); err != nil {
		return nil, err
	}
	return opts, nil
}

var _ OptionsFactory[struct{}] = (*Factory[struct{}])(nil)
