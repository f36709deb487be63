package optionz

import "sync"

// ChangeToken signals a single change. Once HasChanged reports true it stays
// true; callers fetch a fresh token from the source to observe the next one.
type ChangeToken interface {
	// HasChanged reports whether the change has already happened.
	HasChanged() bool

	// RegisterChangeCallback registers fn to run when the change happens.
	// Unregistering the returned handle before the change removes only
	// this callback.
	RegisterChangeCallback(fn func()) Registration
}

// ChangeTokenSource hands out change tokens for one options name.
type ChangeTokenSource interface {
	// Name is the options name whose cached value the changes invalidate.
	Name() string

	// ChangeToken returns a token for the next change.
	ChangeToken() ChangeToken
}

// Registration is a handle to a callback registration. Unregister is safe
// to call more than once.
type Registration interface {
	Unregister()
}

// RegistrationFunc adapts a function to Registration. The function must
// tolerate repeated calls.
type RegistrationFunc func()

// Unregister calls f.
func (f RegistrationFunc) Unregister() {
	if f != nil {
		f()
	}
}

type noopRegistration struct{}

func (noopRegistration) Unregister() {}

// ReloadToken is a ChangeToken fired explicitly with Fire.
type ReloadToken struct {
	mu        sync.Mutex
	changed   bool
	next      uint64
	callbacks map[uint64]func()
}

// NewReloadToken creates an unfired token.
func NewReloadToken() *ReloadToken {
	return &ReloadToken{callbacks: make(map[uint64]func())}
}

// HasChanged reports whether Fire has been called.
func (t *ReloadToken) HasChanged() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.changed
}

// RegisterChangeCallback registers fn. If the token already fired, fn runs
// immediately on the calling goroutine.
func (t *ReloadToken) RegisterChangeCallback(fn func()) Registration {
	t.mu.Lock()
	if t.changed {
		t.mu.Unlock()
		fn()
		return noopRegistration{}
	}
	id := t.next
	t.next++
	t.callbacks[id] = fn
	t.mu.Unlock()

	var once sync.Once
	return RegistrationFunc(func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.callbacks, id)
			t.mu.Unlock()
		})
	})
}

// Fire marks the token changed and runs every registered callback on the
// calling goroutine. Only the first call has an effect.
func (t *ReloadToken) Fire() {
	t.mu.Lock()
	if t.changed {
		t.mu.Unlock()
		return
	}
	t.changed = true
	callbacks := make([]func(), 0, len(t.callbacks))
	for id := uint64(0); id < t.next; id++ {
		if fn, ok := t.callbacks[id]; ok {
			callbacks = append(callbacks, fn)
		}
	}
	t.callbacks = nil
	t.mu.Unlock()

	for _, fn := range callbacks {
		fn()
	}
}

// ReloadSource is a ChangeTokenSource backed by successive ReloadTokens.
// Reload fires the current token and installs a fresh one.
type ReloadSource struct {
	name  string
	mu    sync.Mutex
	token *ReloadToken
}

// NewReloadSource creates a source for the given options name.
func NewReloadSource(name string) *ReloadSource {
	return &ReloadSource{name: name, token: NewReloadToken()}
}

// Name returns the options name this source invalidates.
func (s *ReloadSource) Name() string {
	return s.name
}

// ChangeToken returns the current, unfired token.
func (s *ReloadSource) ChangeToken() ChangeToken {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Reload signals a change.
func (s *ReloadSource) Reload() {
	s.mu.Lock()
	previous := s.token
	s.token = NewReloadToken()
	s.mu.Unlock()
	previous.Fire()
}

var (
	_ ChangeToken       = (*ReloadToken)(nil)
	_ ChangeTokenSource = (*ReloadSource)(nil)
)
