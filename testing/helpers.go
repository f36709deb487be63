// Package testing provides test utilities for code built on optionz.
package testing

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zoobzio/optionz"
)

// TestConfig is a standard options type for tests. Its struct tags drive
// decoding and Registry.ValidateStruct.
type TestConfig struct {
	Port    int    `yaml:"port" json:"port" validate:"min=1,max=65535"`
	Host    string `yaml:"host" json:"host" validate:"required"`
	Timeout int    `yaml:"timeout" json:"timeout" validate:"min=0"`
}

// NewTestRegistry returns a registry for TestConfig that defaults every
// instance to localhost:8080 and validates struct tags.
func NewTestRegistry() *optionz.Registry[TestConfig] {
	return optionz.NewRegistry[TestConfig]().
		New(func() *TestConfig {
			return &TestConfig{Port: 8080, Host: "localhost", Timeout: 30}
		}).
		ValidateStruct()
}

// WaitFor polls a condition until it returns true or timeout is reached.
// Returns true if the condition was met, false if timeout occurred.
func WaitFor(t *testing.T, timeout time.Duration, condition func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return condition()
}

// CountingSource is a ReloadSource that counts how often a token was
// requested, which tells how often a monitor re-armed.
type CountingSource struct {
	*optionz.ReloadSource
	fetches atomic.Int64
}

// NewCountingSource creates a CountingSource for name.
func NewCountingSource(name string) *CountingSource {
	return &CountingSource{ReloadSource: optionz.NewReloadSource(name)}
}

// ChangeToken returns the current token and counts the request.
func (s *CountingSource) ChangeToken() optionz.ChangeToken {
	s.fetches.Add(1)
	return s.ReloadSource.ChangeToken()
}

// Fetches returns how many tokens were requested.
func (s *CountingSource) Fetches() int64 {
	return s.fetches.Load()
}

// Notification is one OnChange call seen by a Recorder.
type Notification[T any] struct {
	Name    string
	Options *T
}

// Recorder collects OnChange notifications from a monitor.
type Recorder[T any] struct {
	mu     sync.Mutex
	events []Notification[T]
	reg    optionz.Registration
}

// Record subscribes a new Recorder to m.
func Record[T any](m *optionz.Monitor[T]) *Recorder[T] {
	r := &Recorder[T]{}
	r.reg = m.OnChange(func(opts *T, name string) {
		r.mu.Lock()
		r.events = append(r.events, Notification[T]{Name: name, Options: opts})
		r.mu.Unlock()
	})
	return r
}

// Events returns the notifications received so far.
func (r *Recorder[T]) Events() []Notification[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification[T](nil), r.events...)
}

// Count returns the number of notifications received so far.
func (r *Recorder[T]) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// Stop unsubscribes the Recorder.
func (r *Recorder[T]) Stop() {
	r.reg.Unregister()
}

// NewTestBinding creates and starts a sync mode Binding for name fed by the
// returned channel. initial is applied before it returns; send further
// payloads and call Process to apply them.
func NewTestBinding(t *testing.T, name string, initial []byte) (*optionz.Binding, chan<- []byte) {
	t.Helper()
	ch := make(chan []byte, 10)
	ch <- initial
	b := optionz.NewBinding(name, optionz.NewSyncChannelWatcher(ch)).SyncMode()
	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	return b, ch
}
