// Package etcd provides an optionz.Watcher for an etcd key using the native
// Watch API.
package etcd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
	"github.com/zoobzio/optionz"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// DefaultRetryDelay is how long the watcher waits before re-establishing a
// failed watch.
const DefaultRetryDelay = time.Second

// Client is the part of *clientv3.Client the watcher uses.
type Client interface {
	clientv3.KV
	clientv3.Watcher
}

// Watcher streams the value of one etcd key.
type Watcher struct {
	client     Client
	key        string
	retryDelay time.Duration
	clock      clockz.Clock
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithRetryDelay sets the pause before a failed watch is re-established.
func WithRetryDelay(d time.Duration) Option {
	return func(w *Watcher) {
		w.retryDelay = d
	}
}

// WithClock sets a custom clock for retry delays.
func WithClock(clock clockz.Clock) Option {
	return func(w *Watcher) {
		w.clock = clock
	}
}

// New creates a Watcher for key.
func New(client Client, key string, opts ...Option) *Watcher {
	w := &Watcher{
		client:     client,
		key:        key,
		retryDelay: DefaultRetryDelay,
		clock:      clockz.RealClock,
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

// Watch emits the current value (if the key exists), then the value of
// every later put. Deletes are ignored. A watch cancelled by the server,
// for example after compaction, is re-established from a fresh read.
func (w *Watcher) Watch(ctx context.Context) (<-chan []byte, error) {
	value, rev, err := w.read(ctx)
	if err != nil {
		return nil, err
	}

	out := make(chan []byte)
	go func() {
		defer close(out)

		for {
			if value != nil {
				select {
				case out <- value:
				case <-ctx.Done():
					return
				}
			}

			err := w.follow(ctx, rev+1, out)
			for {
				if ctx.Err() != nil {
					return
				}
				capitan.Emit(ctx, optionz.WatcherFailed,
					optionz.KeyWatcherType.Field("etcd"),
					optionz.KeyError.Field(err.Error()),
				)
				if !w.pause(ctx) {
					return
				}
				if value, rev, err = w.read(ctx); err == nil {
					break
				}
			}
		}
	}()

	return out, nil
}

// pause waits out the retry delay. It returns false if ctx ends first.
func (w *Watcher) pause(ctx context.Context) bool {
	timer := w.clock.NewTimer(w.retryDelay)
	defer timer.Stop()
	select {
	case <-timer.C():
		return true
	case <-ctx.Done():
		return false
	}
}

// follow streams puts from startRev until the watch ends and returns why.
func (w *Watcher) follow(ctx context.Context, startRev int64, out chan<- []byte) error {
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for resp := range w.client.Watch(wctx, w.key, clientv3.WithRev(startRev)) {
		if err := resp.Err(); err != nil {
			return err
		}
		for _, event := range resp.Events {
			if event.Type != clientv3.EventTypePut {
				continue
			}
			select {
			case out <- event.Kv.Value:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return errors.New("watch channel closed")
}

// read returns the current value, or nil when the key is absent, and the
// store revision it was read at.
func (w *Watcher) read(ctx context.Context) ([]byte, int64, error) {
	resp, err := w.client.Get(ctx, w.key)
	if err != nil {
		return nil, 0, fmt.Errorf("get %s: %w", w.key, err)
	}
	if len(resp.Kvs) == 0 {
		return nil, resp.Header.Revision, nil
	}
	return resp.Kvs[0].Value, resp.Header.Revision, nil
}

var _ optionz.Watcher = (*Watcher)(nil)
