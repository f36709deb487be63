package optionz

import "context"

// Watcher streams raw configuration payloads from a backend. The first value
// on the channel is the current payload; later values are changes. The
// channel closes when ctx is cancelled or the backend goes away for good.
type Watcher interface {
	Watch(ctx context.Context) (<-chan []byte, error)
}

// WatcherFunc adapts a function to Watcher.
type WatcherFunc func(ctx context.Context) (<-chan []byte, error)

// Watch calls f.
func (f WatcherFunc) Watch(ctx context.Context) (<-chan []byte, error) {
	return f(ctx)
}
