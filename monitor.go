package optionz

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
)

// maxImmediateChanges bounds how many changes are processed back to back
// for one name without waiting on a callback: tokens that have already
// fired when fetched, or changes arriving while a rebuild is running.
const maxImmediateChanges = 16

// stormBackoff is how long change handling for a name pauses after
// maxImmediateChanges back to back changes before it resumes.
const stormBackoff = 100 * time.Millisecond

// Monitor serves cached options instances and keeps them fresh against
// change sources. When a source's token fires, the cached value for the
// source's name is evicted, rebuilt and handed to every subscriber.
type Monitor[T any] struct {
	factory      OptionsFactory[T]
	cache        *Cache[T]
	sources      []ChangeTokenSource
	clock        clockz.Clock
	metrics      MetricsProvider
	errorHistory *errorRing

	state     atomic.Int32
	lastError atomic.Pointer[RebuildError]
	subs      atomic.Pointer[[]*subscriber[T]]

	mu      sync.Mutex
	done    chan struct{}
	ctx     context.Context
	stop    func() bool
	watches []*watch[T]
	gates   map[string]*gate
}

// subscriber is one OnChange callback.
type subscriber[T any] struct {
	fn     func(opts *T, name string)
	active atomic.Bool
}

// gate serializes change handling for one name and coalesces changes that
// arrive while a rebuild is running.
type gate struct {
	mu      sync.Mutex
	running bool
	pending bool
}

// NewMonitor creates a Monitor building through factory and memoizing in
// cache. A nil cache gets a fresh one. Sources are armed by Start.
func NewMonitor[T any](factory OptionsFactory[T], cache *Cache[T], sources ...ChangeTokenSource) *Monitor[T] {
	if cache == nil {
		cache = NewCache[T]()
	}
	m := &Monitor[T]{
		factory: factory,
		cache:   cache,
		sources: sources,
		clock:   clockz.RealClock,
		ctx:     context.Background(),
		done:    make(chan struct{}),
	}
	m.subs.Store(&[]*subscriber[T]{})
	m.state.Store(int32(StateIdle))
	return m
}

// Clock sets a custom clock for rebuild timing. Must be called before Start().
func (m *Monitor[T]) Clock(clock clockz.Clock) *Monitor[T] {
	m.clock = clock
	return m
}

// Metrics sets a metrics provider for observability integration.
// Must be called before Start().
func (m *Monitor[T]) Metrics(provider MetricsProvider) *Monitor[T] {
	m.metrics = provider
	return m
}

// ErrorHistorySize sets the number of recent rebuild errors to retain.
// Use 0 (default) to only retain the most recent error via LastError().
// Must be called before Start().
func (m *Monitor[T]) ErrorHistorySize(n int) *Monitor[T] {
	m.errorHistory = newErrorRing(n)
	return m
}

// State returns the lifecycle state of the Monitor.
func (m *Monitor[T]) State() State {
	return State(m.state.Load())
}

// Cache returns the cache the Monitor serves from.
func (m *Monitor[T]) Cache() *Cache[T] {
	return m.cache
}

// LastError returns the most recent rebuild failure that has not been
// superseded by a successful rebuild of the same name, or nil.
func (m *Monitor[T]) LastError() error {
	if e := m.lastError.Load(); e != nil {
		return e
	}
	return nil
}

// ErrorHistory returns the retained rebuild errors, oldest first.
// Returns nil if error history is not enabled (see ErrorHistorySize).
func (m *Monitor[T]) ErrorHistory() []error {
	return m.errorHistory.all()
}

// Start arms every change source. Cancelling ctx closes the Monitor.
// Start can only be called once.
func (m *Monitor[T]) Start(ctx context.Context) error {
	m.mu.Lock()
	switch m.State() {
	case StateWatching:
		m.mu.Unlock()
		return ErrMonitorStarted
	case StateClosed:
		m.mu.Unlock()
		return ErrMonitorClosed
	}

	m.ctx = context.WithoutCancel(ctx)
	m.gates = make(map[string]*gate, len(m.sources))
	m.watches = make([]*watch[T], 0, len(m.sources))
	for _, src := range m.sources {
		name := src.Name()
		if _, ok := m.gates[name]; !ok {
			m.gates[name] = &gate{}
		}
		m.watches = append(m.watches, &watch[T]{monitor: m, source: src, name: name, ctx: m.ctx})
	}
	watches := m.watches
	m.state.Store(int32(StateWatching))
	m.stop = context.AfterFunc(ctx, m.Close)
	m.mu.Unlock()

	m.transitioned(StateIdle, StateWatching)
	capitan.Emit(m.ctx, MonitorStarted,
		KeyType.Field(typeName[T]()),
		KeySources.Field(len(watches)),
	)

	for _, w := range watches {
		w.arm(nil)
	}
	return nil
}

// Get returns the instance for name, building it on first access.
func (m *Monitor[T]) Get(name string) (*T, error) {
	return m.cache.GetOrAdd(name, m.factory.Create)
}

// CurrentValue returns the default instance.
func (m *Monitor[T]) CurrentValue() (*T, error) {
	return m.Get(DefaultName)
}

// OnChange registers fn to be called with every instance rebuilt after a
// change, together with its name. Unregistering the returned handle stops
// further calls; it is safe to do so from inside fn.
func (m *Monitor[T]) OnChange(fn func(opts *T, name string)) Registration {
	s := &subscriber[T]{fn: fn}
	s.active.Store(true)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.State() == StateClosed {
		return noopRegistration{}
	}
	current := *m.subs.Load()
	next := make([]*subscriber[T], len(current), len(current)+1)
	copy(next, current)
	next = append(next, s)
	m.subs.Store(&next)

	return RegistrationFunc(func() { m.unsubscribe(s) })
}

// Close releases every token registration and drops all subscribers. The
// cache keeps serving Get without change tracking. Close is idempotent.
func (m *Monitor[T]) Close() {
	m.mu.Lock()
	old := m.State()
	if old == StateClosed {
		m.mu.Unlock()
		return
	}
	m.state.Store(int32(StateClosed))
	close(m.done)
	watches := m.watches
	m.watches = nil
	stop := m.stop
	for _, s := range *m.subs.Load() {
		s.active.Store(false)
	}
	m.subs.Store(&[]*subscriber[T]{})
	m.mu.Unlock()

	if stop != nil {
		stop()
	}
	for _, w := range watches {
		w.close()
	}

	m.transitioned(old, StateClosed)
	capitan.Emit(m.ctx, MonitorStopped,
		KeyType.Field(typeName[T]()),
		KeyState.Field(StateClosed.String()),
	)
}

func (m *Monitor[T]) unsubscribe(s *subscriber[T]) {
	if !s.active.CompareAndSwap(true, false) {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	current := *m.subs.Load()
	next := make([]*subscriber[T], 0, len(current))
	for _, other := range current {
		if other != s {
			next = append(next, other)
		}
	}
	m.subs.Store(&next)
}

// refresh handles a change for name. Changes for the same name never
// overlap: one arriving mid-rebuild evicts the entry and queues another
// rebuild for the goroutine already running.
func (m *Monitor[T]) refresh(ctx context.Context, name string) {
	g := m.gates[name]
	g.mu.Lock()
	if g.running {
		g.pending = true
		g.mu.Unlock()
		m.cache.TryRemove(name)
		return
	}
	g.running = true
	g.mu.Unlock()

	m.drain(ctx, name, g)
}

// drain rebuilds name until no change is pending. After maxImmediateChanges
// rebuilds in a row it emits MonitorChangeStorm and leaves the rest to
// resume, which keeps the gate held so later changes keep queueing.
func (m *Monitor[T]) drain(ctx context.Context, name string, g *gate) {
	for i := 0; m.State() != StateClosed; i++ {
		if i == maxImmediateChanges {
			capitan.Emit(ctx, MonitorChangeStorm,
				KeyName.Field(name),
				KeyType.Field(typeName[T]()),
			)
			timer := m.clock.NewTimer(stormBackoff)
			go m.resume(ctx, name, g, timer)
			return
		}

		m.rebuild(ctx, name)

		g.mu.Lock()
		if !g.pending {
			g.running = false
			g.mu.Unlock()
			return
		}
		g.pending = false
		g.mu.Unlock()
	}

	g.mu.Lock()
	g.running = false
	g.pending = false
	g.mu.Unlock()
}

// resume continues a stormed drain once timer fires. The change that was
// pending when the storm began is rebuilt then.
func (m *Monitor[T]) resume(ctx context.Context, name string, g *gate, timer clockz.Timer) {
	defer timer.Stop()
	select {
	case <-timer.C():
		m.drain(ctx, name, g)
	case <-m.done:
		g.mu.Lock()
		g.running = false
		g.pending = false
		g.mu.Unlock()
	}
}

// rebuild evicts name, builds it again and notifies subscribers.
func (m *Monitor[T]) rebuild(ctx context.Context, name string) {
	capitan.Emit(ctx, MonitorChangeReceived, KeyName.Field(name))
	if m.metrics != nil {
		m.metrics.OnChangeReceived(name)
	}

	start := m.clock.Now()
	m.cache.TryRemove(name)
	opts, err := m.cache.GetOrAdd(name, m.factory.Create)
	elapsed := m.clock.Since(start)
	if err != nil {
		m.recordFailure(ctx, name, err, elapsed)
		return
	}

	if last := m.lastError.Load(); last != nil && last.Name == name {
		m.lastError.CompareAndSwap(last, nil)
	}
	m.errorHistory.forget(name)

	notified := m.notify(opts, name)
	capitan.Emit(ctx, MonitorRebuilt,
		KeyName.Field(name),
		KeySubscribers.Field(notified),
		KeyDuration.Field(elapsed),
	)
	if m.metrics != nil {
		m.metrics.OnRebuildSuccess(name, elapsed)
	}
}

func (m *Monitor[T]) recordFailure(ctx context.Context, name string, err error, elapsed time.Duration) {
	rerr := &RebuildError{Name: name, Err: err}
	m.lastError.Store(rerr)
	m.errorHistory.push(rerr)
	capitan.Emit(ctx, MonitorRebuildFailed,
		KeyName.Field(name),
		KeyType.Field(typeName[T]()),
		KeyError.Field(err.Error()),
	)
	if m.metrics != nil {
		m.metrics.OnRebuildFailure(name, elapsed)
	}
}

// notify calls every active subscriber from the snapshot taken on entry and
// returns how many were called.
func (m *Monitor[T]) notify(opts *T, name string) int {
	notified := 0
	for _, s := range *m.subs.Load() {
		if !s.active.Load() {
			continue
		}
		s.fn(opts, name)
		notified++
	}
	return notified
}

// transitioned emits a state change event.
func (m *Monitor[T]) transitioned(from, to State) {
	capitan.Emit(m.ctx, MonitorStateChanged,
		KeyOldState.Field(from.String()),
		KeyNewState.Field(to.String()),
	)
	if m.metrics != nil {
		m.metrics.OnStateChange(from, to)
	}
}

// watch keeps one callback registered on the current token of one source.
type watch[T any] struct {
	monitor *Monitor[T]
	source  ChangeTokenSource
	name    string
	ctx     context.Context

	mu     sync.Mutex
	reg    Registration
	seq    uint64
	closed bool
}

// arm registers fire on token, or on a freshly fetched token when nil.
// Tokens that have already fired are handled inline; after
// maxImmediateChanges of them in a row the source is armed again once
// stormBackoff has passed.
func (w *watch[T]) arm(token ChangeToken) {
	for i := 0; i < maxImmediateChanges; i++ {
		if token == nil {
			token = w.source.ChangeToken()
			if token == nil {
				return
			}
		}
		if token.HasChanged() {
			if w.isClosed() {
				return
			}
			w.monitor.refresh(w.ctx, w.name)
			token = nil
			continue
		}

		w.mu.Lock()
		if w.closed {
			w.mu.Unlock()
			return
		}
		w.seq++
		seq := w.seq
		w.mu.Unlock()

		reg := token.RegisterChangeCallback(func() { w.fire(seq) })

		w.mu.Lock()
		if w.closed || w.seq != seq {
			// Closed, or fire already ran for this registration.
			w.mu.Unlock()
			reg.Unregister()
			return
		}
		w.reg = reg
		w.mu.Unlock()
		return
	}

	capitan.Emit(w.ctx, MonitorChangeStorm,
		KeyName.Field(w.name),
		KeyType.Field(typeName[T]()),
	)
	timer := w.monitor.clock.NewTimer(stormBackoff)
	go w.rearm(timer)
}

// rearm arms the source again once timer fires, unless the watch closed.
func (w *watch[T]) rearm(timer clockz.Timer) {
	defer timer.Stop()
	select {
	case <-timer.C():
		if !w.isClosed() {
			w.arm(nil)
		}
	case <-w.monitor.done:
	}
}

// fire consumes the registration identified by seq, rebuilds and re-arms.
// The next token is fetched before rebuilding so changes raised while
// subscribers run are not missed. Callbacks from replaced registrations are
// ignored.
func (w *watch[T]) fire(seq uint64) {
	w.mu.Lock()
	if w.closed || w.seq != seq {
		w.mu.Unlock()
		return
	}
	w.seq++
	reg := w.reg
	w.reg = nil
	w.mu.Unlock()

	if reg != nil {
		reg.Unregister()
	}
	next := w.source.ChangeToken()
	w.monitor.refresh(w.ctx, w.name)
	w.arm(next)
}

func (w *watch[T]) isClosed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

func (w *watch[T]) close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	reg := w.reg
	w.reg = nil
	w.mu.Unlock()

	if reg != nil {
		reg.Unregister()
	}
}
