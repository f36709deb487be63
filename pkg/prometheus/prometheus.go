// Package prometheus exports optionz monitor metrics to Prometheus.
//
//	metrics, err := prometheus.New(prom.DefaultRegisterer, "app")
//	if err != nil {
//	    return err
//	}
//	monitor := reg.Monitor().Metrics(metrics)
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/zoobzio/optionz"
)

// Result label values.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Metrics is an optionz.MetricsProvider backed by Prometheus collectors.
type Metrics struct {
	changes     *prometheus.CounterVec
	rebuilds    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	transitions *prometheus.CounterVec
}

// New creates the collectors under namespace and registers them with reg.
func New(reg prometheus.Registerer, namespace string) (*Metrics, error) {
	m := &Metrics{
		changes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "options",
				Name:      "changes_total",
				Help:      "Total number of change notifications received per options name",
			},
			[]string{"name"},
		),
		rebuilds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "options",
				Name:      "rebuilds_total",
				Help:      "Total number of change-driven rebuilds per options name",
			},
			[]string{"name", "result"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "options",
				Name:      "rebuild_duration_seconds",
				Help:      "Change-driven rebuild duration in seconds",
				Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"name"},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "options",
				Name:      "monitor_transitions_total",
				Help:      "Total number of monitor state transitions",
			},
			[]string{"from", "to"},
		),
	}

	for _, c := range []prometheus.Collector{m.changes, m.rebuilds, m.duration, m.transitions} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// OnStateChange counts the transition.
func (m *Metrics) OnStateChange(from, to optionz.State) {
	m.transitions.WithLabelValues(from.String(), to.String()).Inc()
}

// OnChangeReceived counts a change for name.
func (m *Metrics) OnChangeReceived(name string) {
	m.changes.WithLabelValues(name).Inc()
}

// OnRebuildSuccess records a successful rebuild of name.
func (m *Metrics) OnRebuildSuccess(name string, d time.Duration) {
	m.rebuilds.WithLabelValues(name, ResultSuccess).Inc()
	m.duration.WithLabelValues(name).Observe(d.Seconds())
}

// OnRebuildFailure records a failed rebuild of name.
func (m *Metrics) OnRebuildFailure(name string, d time.Duration) {
	m.rebuilds.WithLabelValues(name, ResultFailure).Inc()
	m.duration.WithLabelValues(name).Observe(d.Seconds())
}

var _ optionz.MetricsProvider = (*Metrics)(nil)
