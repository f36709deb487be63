// Package nats provides an optionz.Watcher for a NATS JetStream key-value
// entry.
package nats

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/zoobzio/optionz"
)

// Watcher streams the value of one key in a JetStream KV bucket.
type Watcher struct {
	kv         jetstream.KeyValue
	key        string
	watchOpts  []jetstream.WatchOpt
	emitPurges bool
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithWatchOptions passes extra options to the KV watch.
func WithWatchOptions(opts ...jetstream.WatchOpt) Option {
	return func(w *Watcher) {
		w.watchOpts = append(w.watchOpts, opts...)
	}
}

// WithEmptyOnDelete emits an empty payload when the key is deleted or
// purged, so bound options fall back to their configured defaults.
// By default deletions are ignored and the last value stays in effect.
func WithEmptyOnDelete() Option {
	return func(w *Watcher) {
		w.emitPurges = true
	}
}

// New creates a Watcher for key in kv.
func New(kv jetstream.KeyValue, key string, opts ...Option) *Watcher {
	w := &Watcher{
		kv:  kv,
		key: key,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Binding returns an unstarted optionz.Binding of name to this watcher.
func (w *Watcher) Binding(name string) *optionz.Binding {
	return optionz.NewBinding(name, w)
}

// Watch emits the current value (if any) and every later revision of the
// key.
func (w *Watcher) Watch(ctx context.Context) (<-chan []byte, error) {
	kw, err := w.kv.Watch(ctx, w.key, w.watchOpts...)
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", w.key, err)
	}

	out := make(chan []byte)
	go func() {
		defer close(out)
		defer kw.Stop() //nolint:errcheck // nothing to report once watching ends

		for {
			select {
			case <-ctx.Done():
				return
			case entry, ok := <-kw.Updates():
				if !ok {
					return
				}
				// A nil entry marks the end of the initial values.
				if entry == nil {
					continue
				}
				value, emit := w.payload(entry)
				if !emit {
					continue
				}
				select {
				case out <- value:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// payload maps an entry to the bytes to emit.
func (w *Watcher) payload(entry jetstream.KeyValueEntry) ([]byte, bool) {
	switch entry.Operation() {
	case jetstream.KeyValueDelete, jetstream.KeyValuePurge:
		if w.emitPurges {
			return []byte{}, true
		}
		return nil, false
	default:
		return entry.Value(), true
	}
}

var _ optionz.Watcher = (*Watcher)(nil)
