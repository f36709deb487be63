package optionz

import "sync"

// errorRing keeps the most recent rebuild errors, oldest first.
// A nil ring records nothing.
type errorRing struct {
	mu    sync.RWMutex
	slots []*RebuildError
	next  int
	full  bool
}

// newErrorRing creates a ring holding up to size errors. A size of 0 or less
// disables history.
func newErrorRing(size int) *errorRing {
	if size <= 0 {
		return nil
	}
	return &errorRing{slots: make([]*RebuildError, size)}
}

func (r *errorRing) push(err *RebuildError) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.slots[r.next] = err
	r.next++
	if r.next == len(r.slots) {
		r.next = 0
		r.full = true
	}
}

// forget drops the errors recorded for name once it rebuilds successfully.
func (r *errorRing) forget(name string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := make([]*RebuildError, 0, len(r.slots))
	for _, e := range r.ordered() {
		if e.Name != name {
			kept = append(kept, e)
		}
	}
	for i := range r.slots {
		r.slots[i] = nil
	}
	copy(r.slots, kept)
	r.next = len(kept) % len(r.slots)
	r.full = len(kept) == len(r.slots)
}

func (r *errorRing) all() []error {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	ordered := r.ordered()
	if len(ordered) == 0 {
		return nil
	}
	out := make([]error, len(ordered))
	for i, e := range ordered {
		out[i] = e
	}
	return out
}

// ordered returns the recorded errors oldest first. Callers hold mu.
func (r *errorRing) ordered() []*RebuildError {
	if !r.full {
		return append([]*RebuildError(nil), r.slots[:r.next]...)
	}
	out := make([]*RebuildError, 0, len(r.slots))
	out = append(out, r.slots[r.next:]...)
	return append(out, r.slots[:r.next]...)
}
