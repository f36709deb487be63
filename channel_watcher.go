package optionz

import (
	"bytes"
	"context"
)

// ChannelWatcher serves payloads that the caller sends on a channel. It backs
// tests and sources that already produce bytes.
type ChannelWatcher struct {
	src    <-chan []byte
	direct bool
}

// NewChannelWatcher creates a ChannelWatcher that copies each payload from
// src onto its own channel, so senders may reuse their buffers.
func NewChannelWatcher(src <-chan []byte) *ChannelWatcher {
	return &ChannelWatcher{src: src}
}

// NewSyncChannelWatcher creates a ChannelWatcher that hands src out
// unchanged. Pair it with Binding.SyncMode for step-by-step tests.
func NewSyncChannelWatcher(src <-chan []byte) *ChannelWatcher {
	return &ChannelWatcher{src: src, direct: true}
}

// Watch returns the payload channel.
func (w *ChannelWatcher) Watch(ctx context.Context) (<-chan []byte, error) {
	if w.direct {
		return w.src, nil
	}
	out := make(chan []byte)
	go relay(ctx, w.src, out)
	return out, nil
}

// relay copies payloads from in to out until either side is done, then
// closes out.
func relay(ctx context.Context, in <-chan []byte, out chan<- []byte) {
	defer close(out)
	for {
		var data []byte
		select {
		case <-ctx.Done():
			return
		case v, ok := <-in:
			if !ok {
				return
			}
			data = bytes.Clone(v)
		}
		select {
		case out <- data:
		case <-ctx.Done():
			return
		}
	}
}

var _ Watcher = (*ChannelWatcher)(nil)
