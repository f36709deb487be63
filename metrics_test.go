package optionz

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestNoOpMetricsProvider_DoesNotPanic(_ *testing.T) {
	var m NoOpMetricsProvider

	// These should not panic
	m.OnStateChange(StateIdle, StateWatching)
	m.OnChangeReceived("db")
	m.OnRebuildSuccess("db", 100*time.Millisecond)
	m.OnRebuildFailure("db", 50*time.Millisecond)
}

func TestNoOpMetricsProvider_ImplementsInterface(_ *testing.T) {
	var _ MetricsProvider = NoOpMetricsProvider{}
}

// recordingMetrics overrides every callback and records what it saw.
type recordingMetrics struct {
	NoOpMetricsProvider
	mu          sync.Mutex
	transitions []string
	received    []string
	successes   []string
	failures    []string
}

func (r *recordingMetrics) OnStateChange(from, to State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, from.String()+"->"+to.String())
}

func (r *recordingMetrics) OnChangeReceived(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.received = append(r.received, name)
}

func (r *recordingMetrics) OnRebuildSuccess(name string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.successes = append(r.successes, name)
}

func (r *recordingMetrics) OnRebuildFailure(name string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, name)
}

func TestMonitor_MetricsCallbacks(t *testing.T) {
	src := NewReloadSource("db")
	fail := false
	reg := NewRegistry[testOptions]().Configure("db", func(*testOptions) error {
		if fail {
			return errors.New("boom")
		}
		return nil
	})

	metrics := &recordingMetrics{}
	m := NewMonitor[testOptions](reg.Factory(), nil, src).Metrics(metrics)
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	src.Reload()
	fail = true
	src.Reload()
	m.Close()

	metrics.mu.Lock()
	defer metrics.mu.Unlock()
	if len(metrics.received) != 2 {
		t.Errorf("expected 2 changes received, got %d", len(metrics.received))
	}
	if len(metrics.successes) != 1 || metrics.successes[0] != "db" {
		t.Errorf("expected one success for db, got %v", metrics.successes)
	}
	if len(metrics.failures) != 1 || metrics.failures[0] != "db" {
		t.Errorf("expected one failure for db, got %v", metrics.failures)
	}
	want := []string{"idle->watching", "watching->closed"}
	if len(metrics.transitions) != len(want) {
		t.Fatalf("expected transitions %v, got %v", want, metrics.transitions)
	}
	for i := range want {
		if metrics.transitions[i] != want[i] {
			t.Errorf("transition %d: expected %s, got %s", i, want[i], metrics.transitions[i])
		}
	}
}
