package optionz

import "time"

// MetricsProvider allows integration with metrics systems like Prometheus, StatsD, etc.
// Implement this interface to receive callbacks on key monitor events.
type MetricsProvider interface {
	// OnStateChange is called when the monitor transitions between states.
	OnStateChange(from, to State)

	// OnChangeReceived is called when a change token fires for name.
	OnChangeReceived(name string)

	// OnRebuildSuccess is called after a change-driven rebuild of name.
	OnRebuildSuccess(name string, duration time.Duration)

	// OnRebuildFailure is called when a change-driven rebuild of name fails.
	OnRebuildFailure(name string, duration time.Duration)
}

// NoOpMetricsProvider is a no-op implementation of MetricsProvider.
// Use this as an embedded type to implement only the methods you need.
type NoOpMetricsProvider struct{}

func (NoOpMetricsProvider) OnStateChange(_, _ State)                   {}
func (NoOpMetricsProvider) OnChangeReceived(_ string)                  {}
func (NoOpMetricsProvider) OnRebuildSuccess(_ string, _ time.Duration) {}
func (NoOpMetricsProvider) OnRebuildFailure(_ string, _ time.Duration) {}
