// Package redis provides an optionz.Watcher for a Redis string key.
//
// Changes are picked up from keyspace notifications, which must be enabled
// on the server:
//
//	CONFIG SET notify-keyspace-events K$
//
// Deployments that cannot enable notifications can have writers publish to
// an extra channel after every update and pass it with WithChannel.
package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/zoobzio/capitan"
	"github.com/zoobzio/optionz"
)

// Watcher streams the value of one Redis key.
type Watcher struct {
	client   redis.UniversalClient
	key      string
	db       int
	channels []string
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDB sets the database index used for the keyspace channel. Defaults
// to 0.
func WithDB(db int) Option {
	return func(w *Watcher) {
		w.db = db
	}
}

// WithChannel adds a pub/sub channel whose messages trigger a re-read of
// the key, whatever their payload.
func WithChannel(channel string) Option {
	return func(w *Watcher) {
		w.channels = append(w.channels, channel)
	}
}

// New creates a Watcher for key.
func New(client redis.UniversalClient, key string, opts ...Option) *Watcher {
	w := &Watcher{
		client: client,
		key:    key,
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

// keyspaceChannel is the notification channel for the watched key.
func (w *Watcher) keyspaceChannel() string {
	return fmt.Sprintf("__keyspace@%d__:%s", w.db, w.key)
}

// Watch subscribes for changes, then emits the current value (if the key
// exists) followed by the value after every write. Deletions are ignored.
func (w *Watcher) Watch(ctx context.Context) (<-chan []byte, error) {
	keyspace := w.keyspaceChannel()
	pubsub := w.client.Subscribe(ctx, append([]string{keyspace}, w.channels...)...)

	// Wait for the subscription before reading, so no write slips between.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("subscribe to %s: %w", keyspace, err)
	}

	initial, found, err := w.read(ctx)
	if err != nil {
		pubsub.Close()
		return nil, err
	}

	out := make(chan []byte)
	go func() {
		defer close(out)
		defer pubsub.Close()

		if found {
			select {
			case out <- initial:
			case <-ctx.Done():
				return
			}
		}

		messages := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				if msg.Channel == keyspace && !isWrite(msg.Payload) {
					continue
				}
				val, found, err := w.read(ctx)
				if err != nil {
					capitan.Emit(ctx, optionz.WatcherFailed,
						optionz.KeyWatcherType.Field("redis"),
						optionz.KeyError.Field(err.Error()),
					)
					continue
				}
				if !found {
					continue
				}
				select {
				case out <- val:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// read returns the key's value and whether it exists.
func (w *Watcher) read(ctx context.Context) ([]byte, bool, error) {
	val, err := w.client.Get(ctx, w.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", w.key, err)
	}
	return val, true, nil
}

// isWrite reports whether a keyspace event replaced the key's value.
func isWrite(event string) bool {
	switch event {
	case "set", "setrange", "append", "incrby", "incrbyfloat", "decrby", "rename_to", "restore", "copy_to":
		return true
	}
	return false
}

var _ optionz.Watcher = (*Watcher)(nil)
