package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zoobzio/optionz"
)

type appConfig struct {
	Port int    `json:"port"`
	Host string `json:"host"`
}

func setupRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
	})
	return client, mr
}

func receive(t *testing.T, ch <-chan []byte) string {
	t.Helper()
	select {
	case data, ok := <-ch:
		require.True(t, ok, "channel closed")
		return string(data)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for value")
		return ""
	}
}

func TestWatcher_EmitsInitialValue(t *testing.T) {
	client, mr := setupRedis(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, mr.Set("config:test", `{"port": 8080}`))

	ch, err := New(client, "config:test").Watch(ctx)
	require.NoError(t, err)

	assert.Equal(t, `{"port": 8080}`, receive(t, ch))
}

func TestWatcher_KeyspaceNotification(t *testing.T) {
	client, mr := setupRedis(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, mr.Set("config:test", `{"port": 8080}`))

	ch, err := New(client, "config:test").Watch(ctx)
	require.NoError(t, err)
	receive(t, ch)

	// miniredis does not emit keyspace events; publish the one Redis would.
	require.NoError(t, mr.Set("config:test", `{"port": 9090}`))
	mr.Publish("__keyspace@0__:config:test", "set")

	assert.Equal(t, `{"port": 9090}`, receive(t, ch))
}

func TestWatcher_IgnoresNonWriteEvents(t *testing.T) {
	client, mr := setupRedis(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, mr.Set("config:test", "v1"))

	ch, err := New(client, "config:test").Watch(ctx)
	require.NoError(t, err)
	receive(t, ch)

	mr.Publish("__keyspace@0__:config:test", "expire")
	require.NoError(t, mr.Set("config:test", "v2"))
	mr.Publish("__keyspace@0__:config:test", "set")

	assert.Equal(t, "v2", receive(t, ch))
}

func TestWatcher_CustomDB(t *testing.T) {
	w := New(nil, "k", WithDB(3))
	assert.Equal(t, "__keyspace@3__:k", w.keyspaceChannel())
}

func TestWatcher_ExtraChannel(t *testing.T) {
	client, mr := setupRedis(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ch, err := New(client, "config:test", WithChannel("config-updates")).Watch(ctx)
	require.NoError(t, err)

	// Missing key: nothing emitted until it is written.
	require.NoError(t, mr.Set("config:test", "created"))
	mr.Publish("config-updates", "anything")

	assert.Equal(t, "created", receive(t, ch))
}

func TestWatcher_ClosesOnContextCancel(t *testing.T) {
	client, mr := setupRedis(t)
	require.NoError(t, mr.Set("config:test", "v1"))

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := New(client, "config:test").Watch(ctx)
	require.NoError(t, err)
	receive(t, ch)

	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok, "expected channel to close")
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for channel close")
	}
}

func TestWatcher_SubscribeFailure(t *testing.T) {
	client, mr := setupRedis(t)
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := New(client, "config:test").Watch(ctx)
	assert.Error(t, err)
}

func TestWatcher_BindingDrivesMonitor(t *testing.T) {
	client, mr := setupRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, mr.Set("config:app", `{"port": 8080, "host": "a"}`))

	b := New(client, "config:app", WithChannel("config-updates")).Binding("app").Debounce(0)
	require.NoError(t, b.Start(ctx))

	m := optionz.NewRegistry[appConfig]().Bind(b).Monitor()
	require.NoError(t, m.Start(ctx))
	defer m.Close()

	cfg, err := m.Get("app")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)

	require.NoError(t, mr.Set("config:app", `{"port": 9090, "host": "a"}`))
	mr.Publish("config-updates", "1")

	assert.Eventually(t, func() bool {
		cfg, err := m.Get("app")
		return err == nil && cfg.Port == 9090
	}, 2*time.Second, 10*time.Millisecond)
}
