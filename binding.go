package optionz

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
)

// DefaultDebounce is the default debounce duration for binding payloads.
const DefaultDebounce = 100 * time.Millisecond

// Binding ties an options name to a Watcher. It keeps the latest payload the
// watcher emitted, decodes it onto instances as a configure action and acts
// as the change source for the name: every new payload fires the current
// token. Register both halves at once with Registry.Bind.
//
//	b := optionz.NewBinding("db", optionz.NewFileWatcher("db.yaml")).
//	    Codec(optionz.YAMLCodec{})
//	if err := b.Start(ctx); err != nil {
//	    return err
//	}
//	reg.Bind(b)
type Binding struct {
	name     string
	watcher  Watcher
	codec    Codec
	debounce time.Duration
	syncMode bool
	clock    clockz.Clock

	source  *ReloadSource
	payload atomic.Pointer[[]byte]

	mu      sync.Mutex
	started bool
	ctx     context.Context

	// For sync mode: channel read by Process
	changes <-chan []byte
}

// NewBinding creates a Binding of name to w, decoding with AutoCodec and a
// DefaultDebounce window.
func NewBinding(name string, w Watcher) *Binding {
	return &Binding{
		name:     name,
		watcher:  w,
		codec:    AutoCodec{},
		debounce: DefaultDebounce,
		clock:    clockz.RealClock,
		source:   NewReloadSource(name),
		ctx:      context.Background(),
	}
}

// Codec sets the payload codec. Must be called before Start().
func (b *Binding) Codec(c Codec) *Binding {
	b.codec = c
	return b
}

// Debounce sets how long payloads must settle before the latest one is
// applied. Zero applies every payload immediately. Must be called before Start().
func (b *Binding) Debounce(d time.Duration) *Binding {
	b.debounce = d
	return b
}

// Clock sets a custom clock for debouncing. Must be called before Start().
func (b *Binding) Clock(clock clockz.Clock) *Binding {
	b.clock = clock
	return b
}

// SyncMode disables the background goroutine; payloads after the first are
// applied one at a time by Process. Must be called before Start().
func (b *Binding) SyncMode() *Binding {
	b.syncMode = true
	return b
}

// Name returns the options name the binding configures.
func (b *Binding) Name() string {
	return b.name
}

// ChangeToken returns a token that fires on the next applied payload.
func (b *Binding) ChangeToken() ChangeToken {
	return b.source.ChangeToken()
}

// Payload returns a copy of the latest applied payload, or nil before the
// first one.
func (b *Binding) Payload() []byte {
	p := b.payload.Load()
	if p == nil {
		return nil
	}
	return bytes.Clone(*p)
}

// Decode overlays the latest payload onto v. Before the first payload it
// leaves v untouched.
func (b *Binding) Decode(v any) error {
	p := b.payload.Load()
	if p == nil {
		return nil
	}
	if err := b.codec.Unmarshal(*p, v); err != nil {
		capitan.Emit(b.context(), BindingDecodeFailed,
			KeyName.Field(b.name),
			KeyContentType.Field(b.codec.ContentType()),
			KeyError.Field(err.Error()),
		)
		return fmt.Errorf("decode %s payload for %q: %w", b.codec.ContentType(), b.name, err)
	}
	return nil
}

// Start begins watching. It blocks until the watcher emits its initial
// payload, applies it, then keeps applying changes in the background until
// ctx is cancelled.
//
// In sync mode Start only applies the initial payload; call Process for
// each subsequent one.
//
// Start can only be called once.
func (b *Binding) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return ErrBindingStarted
	}
	b.started = true
	b.ctx = context.WithoutCancel(ctx)
	b.mu.Unlock()

	changes, err := b.watcher.Watch(ctx)
	if err != nil {
		return fmt.Errorf("start watcher for %q: %w", b.name, err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case raw, ok := <-changes:
		if !ok {
			return ErrWatcherClosed
		}
		b.apply(ctx, raw)
	}

	if b.syncMode {
		b.changes = changes
		return nil
	}

	go b.watch(ctx, changes)
	return nil
}

// Process applies the next pending payload in sync mode. It returns false
// when nothing is pending, the watcher closed, or the binding is not in
// sync mode.
func (b *Binding) Process(ctx context.Context) bool {
	if !b.syncMode || b.changes == nil {
		return false
	}
	select {
	case raw, ok := <-b.changes:
		if !ok {
			return false
		}
		b.apply(ctx, raw)
		return true
	default:
		return false
	}
}

// apply stores raw as the latest payload and fires the change token. A
// payload identical to the current one is dropped.
func (b *Binding) apply(ctx context.Context, raw []byte) bool {
	if prev := b.payload.Load(); prev != nil && bytes.Equal(*prev, raw) {
		return false
	}
	p := bytes.Clone(raw)
	b.payload.Store(&p)

	capitan.Emit(ctx, BindingChanged,
		KeyName.Field(b.name),
		KeyContentType.Field(b.codec.ContentType()),
		KeySize.Field(len(p)),
	)
	b.source.Reload()
	return true
}

// watch applies payloads from changes, debounced so a burst results in a
// single change for its last payload.
func (b *Binding) watch(ctx context.Context, changes <-chan []byte) {
	defer func() {
		capitan.Emit(b.context(), BindingStopped,
			KeyName.Field(b.name),
			KeyDebounce.Field(b.debounce),
		)
	}()

	var (
		timer      clockz.Timer
		pending    []byte
		hasPending bool
	)

	for {
		var timerC <-chan time.Time
		if timer != nil {
			timerC = timer.C()
		}

		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case raw, ok := <-changes:
			if !ok {
				if hasPending {
					b.apply(ctx, pending)
				}
				return
			}
			if b.debounce <= 0 {
				b.apply(ctx, raw)
				continue
			}

			pending = raw
			hasPending = true
			if timer == nil {
				timer = b.clock.NewTimer(b.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C():
					default:
					}
				}
				timer.Reset(b.debounce)
			}

		case <-timerC:
			if hasPending {
				b.apply(ctx, pending)
				pending = nil
				hasPending = false
			}
		}
	}
}

func (b *Binding) context() context.Context {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ctx
}

var _ ChangeTokenSource = (*Binding)(nil)
