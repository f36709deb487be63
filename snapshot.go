package optionz

// Snapshot serves instances built once for its lifetime. Changes after the
// first Get are not observed; create a new Snapshot per unit of work (a
// request, a job run) to pick them up.
type Snapshot[T any] struct {
	factory OptionsFactory[T]
	cache   *Cache[T]
}

// NewSnapshot creates a Snapshot building through factory.
func NewSnapshot[T any](factory OptionsFactory[T]) *Snapshot[T] {
	return &Snapshot[T]{factory: factory, cache: NewCache[T]()}
}

// Get returns the instance for name, building it on first access.
func (s *Snapshot[T]) Get(name string) (*T, error) {
	return s.cache.GetOrAdd(name, s.factory.Create)
}

// Value returns the default instance.
func (s *Snapshot[T]) Value() (*T, error) {
	return s.Get(DefaultName)
}

// FactoryFunc adapts a function to OptionsFactory.
type FactoryFunc[T any] func(name string) (*T, error)

// Create calls f.
func (f FactoryFunc[T]) Create(name string) (*T, error) {
	return f(name)
}
