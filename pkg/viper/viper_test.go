package viper

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zoobzio/optionz"
)

type serverOptions struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

func readYAML(t *testing.T, v *viper.Viper, content string) {
	t.Helper()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewBufferString(content)))
}

func TestSource_UnmarshalKey(t *testing.T) {
	v := viper.New()
	readYAML(t, v, "server:\n  host: example.com\n  port: 9090\n")

	var opts serverOptions
	require.NoError(t, New(v, "", "server").Unmarshal(&opts))
	assert.Equal(t, serverOptions{Host: "example.com", Port: 9090}, opts)
}

func TestSource_UnmarshalWhole(t *testing.T) {
	v := viper.New()
	readYAML(t, v, "host: example.com\nport: 9090\n")

	var opts serverOptions
	require.NoError(t, New(v, "", "").Unmarshal(&opts))
	assert.Equal(t, serverOptions{Host: "example.com", Port: 9090}, opts)
}

func TestSource_UnmarshalKeepsAbsentFields(t *testing.T) {
	v := viper.New()
	readYAML(t, v, "server:\n  port: 9090\n")

	opts := serverOptions{Host: "localhost"}
	require.NoError(t, New(v, "", "server").Unmarshal(&opts))
	assert.Equal(t, "localhost", opts.Host)
	assert.Equal(t, 9090, opts.Port)
}

func TestSource_UnmarshalError(t *testing.T) {
	v := viper.New()
	readYAML(t, v, "server:\n  port: not-a-number\n")

	var opts serverOptions
	err := New(v, "", "server").Unmarshal(&opts)
	assert.Error(t, err)
}

func TestSource_NotifyFiresToken(t *testing.T) {
	src := New(viper.New(), "api", "server")
	assert.Equal(t, "api", src.Name())

	token := src.ChangeToken()
	assert.False(t, token.HasChanged())

	src.Notify()
	assert.True(t, token.HasChanged())
	assert.False(t, src.ChangeToken().HasChanged())
}

func TestBind_ConfiguresNamedOptions(t *testing.T) {
	v := viper.New()
	readYAML(t, v, "server:\n  host: example.com\n  port: 9090\n")

	reg := optionz.NewRegistry[serverOptions]().
		ConfigureAll(func(o *serverOptions) error {
			o.Host = "localhost"
			o.Port = 8080
			return nil
		})
	Bind(reg, New(v, "api", "server"))

	opts, err := reg.Factory().Create("api")
	require.NoError(t, err)
	assert.Equal(t, serverOptions{Host: "example.com", Port: 9090}, *opts)

	other, err := reg.Factory().Create("admin")
	require.NoError(t, err)
	assert.Equal(t, serverOptions{Host: "localhost", Port: 8080}, *other)
}

func TestBind_MonitorRebuildsOnNotify(t *testing.T) {
	v := viper.New()
	readYAML(t, v, "server:\n  port: 9090\n")

	src := New(v, optionz.DefaultName, "server")
	reg := optionz.NewRegistry[serverOptions]()
	Bind(reg, src)

	m := reg.Monitor()
	require.NoError(t, m.Start(context.Background()))
	defer m.Close()

	opts, err := m.CurrentValue()
	require.NoError(t, err)
	assert.Equal(t, 9090, opts.Port)

	readYAML(t, v, "server:\n  port: 7070\n")
	src.Notify()

	assert.Eventually(t, func() bool {
		opts, err := m.CurrentValue()
		return err == nil && opts.Port == 7070
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSource_WatchReloadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9090\n"), 0o600))

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	src := New(v, optionz.DefaultName, "server")
	reg := optionz.NewRegistry[serverOptions]()
	Bind(reg, src)

	m := reg.Monitor()
	require.NoError(t, m.Start(context.Background()))
	defer m.Close()

	src.Watch()
	src.Watch()

	opts, err := m.CurrentValue()
	require.NoError(t, err)
	assert.Equal(t, 9090, opts.Port)

	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 7070\n"), 0o600))

	assert.Eventually(t, func() bool {
		opts, err := m.CurrentValue()
		return err == nil && opts.Port == 7070
	}, 5*time.Second, 20*time.Millisecond)
}
