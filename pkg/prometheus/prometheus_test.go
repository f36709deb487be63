package prometheus

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zoobzio/optionz"
)

type poolOptions struct {
	Size int
}

func TestNew_RegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg, "app")
	require.NoError(t, err)

	m.OnChangeReceived("db")
	m.OnRebuildSuccess("db", 2*time.Millisecond)
	m.OnRebuildFailure("db", time.Millisecond)
	m.OnStateChange(optionz.StateIdle, optionz.StateWatching)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.changes.WithLabelValues("db")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rebuilds.WithLabelValues("db", ResultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rebuilds.WithLabelValues("db", ResultFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("idle", "watching")))

	count, err := testutil.GatherAndCount(reg, "app_options_rebuild_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNew_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg, "app")
	require.NoError(t, err)

	_, err = New(reg, "app")
	var already prometheus.AlreadyRegisteredError
	assert.True(t, errors.As(err, &already))
}

func TestMetrics_MonitorRebuilds(t *testing.T) {
	m, err := New(prometheus.NewRegistry(), "app")
	require.NoError(t, err)

	src := optionz.NewReloadSource("pool")
	var size atomic.Int32
	size.Store(4)
	reg := optionz.NewRegistry[poolOptions]().
		Configure("pool", func(o *poolOptions) error {
			o.Size = int(size.Load())
			return nil
		}).
		Validate("pool", func(o *poolOptions) bool { return o.Size > 0 }, "size must be positive").
		AddChangeTokenSource(src)

	monitor := reg.Monitor().Metrics(m)
	require.NoError(t, monitor.Start(context.Background()))
	defer monitor.Close()

	src.Reload()
	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(m.rebuilds.WithLabelValues("pool", ResultSuccess)) == 1
	}, 2*time.Second, 10*time.Millisecond)

	size.Store(0)
	src.Reload()
	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(m.rebuilds.WithLabelValues("pool", ResultFailure)) == 1
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.changes.WithLabelValues("pool")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("idle", "watching")))
}
