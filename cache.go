package optionz

import (
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Cache memoizes options instances per name. Concurrent GetOrAdd calls for a
// missing name share a single build. A build that started before a
// TryRemove or Clear for its name is returned to its callers but never
// stored.
type Cache[T any] struct {
	mu       sync.Mutex
	entries  map[string]*T
	versions map[string]uint64
	epoch    uint64
	flight   singleflight.Group
}

// NewCache creates an empty cache.
func NewCache[T any]() *Cache[T] {
	return &Cache[T]{
		entries:  make(map[string]*T),
		versions: make(map[string]uint64),
	}
}

// GetOrAdd returns the cached instance for name, building it with build if
// absent. A failed build leaves no entry behind; every caller waiting on it
// receives the same error.
func (c *Cache[T]) GetOrAdd(name string, build func(name string) (*T, error)) (*T, error) {
	c.mu.Lock()
	if opts, ok := c.entries[name]; ok {
		c.mu.Unlock()
		return opts, nil
	}
	epoch, version := c.epoch, c.versions[name]
	c.mu.Unlock()

	v, err, _ := c.flight.Do(flightKey(name, epoch, version), func() (any, error) {
		c.mu.Lock()
		if opts, ok := c.entries[name]; ok {
			c.mu.Unlock()
			return opts, nil
		}
		c.mu.Unlock()

		opts, err := build(name)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.epoch != epoch || c.versions[name] != version {
			return opts, nil
		}
		if existing, ok := c.entries[name]; ok {
			return existing, nil
		}
		c.entries[name] = opts
		return opts, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*T), nil
}

// Get returns the cached instance for name without building.
func (c *Cache[T]) Get(name string) (*T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	opts, ok := c.entries[name]
	return opts, ok
}

// TryAdd stores opts under name if no entry exists and reports whether it
// did.
func (c *Cache[T]) TryAdd(name string, opts *T) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[name]; ok {
		return false
	}
	c.entries[name] = opts
	return true
}

// TryRemove evicts name and reports whether an entry was present. Builds for
// name already in flight will not be stored.
func (c *Cache[T]) TryRemove(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[name]
	delete(c.entries, name)
	c.versions[name]++
	return ok
}

// Clear evicts every entry. Builds already in flight will not be stored.
func (c *Cache[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*T)
	c.versions = make(map[string]uint64)
	c.epoch++
}

// Len returns the number of cached entries.
func (c *Cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// flightKey identifies one build generation of name.
func flightKey(name string, epoch, version uint64) string {
	return strconv.FormatUint(epoch, 10) + ":" + strconv.FormatUint(version, 10) + ":" + name
}
