// Package zaplog logs optionz events with a zap logger.
//
//	detach := zaplog.Attach(logger)
//	defer detach()
package zaplog

import (
	"context"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/optionz"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// route maps a signal to its log message and level.
type route struct {
	signal  capitan.Signal
	message string
	level   zapcore.Level
}

var routes = []route{
	{optionz.MonitorStarted, "options monitor started", zapcore.InfoLevel},
	{optionz.MonitorStopped, "options monitor stopped", zapcore.InfoLevel},
	{optionz.MonitorStateChanged, "options monitor state changed", zapcore.DebugLevel},
	{optionz.MonitorChangeReceived, "options change received", zapcore.DebugLevel},
	{optionz.MonitorRebuilt, "options rebuilt", zapcore.InfoLevel},
	{optionz.MonitorRebuildFailed, "options rebuild failed", zapcore.WarnLevel},
	{optionz.MonitorChangeStorm, "options change storm", zapcore.WarnLevel},
	{optionz.BindingChanged, "binding payload changed", zapcore.DebugLevel},
	{optionz.BindingDecodeFailed, "binding decode failed", zapcore.WarnLevel},
	{optionz.BindingStopped, "binding stopped", zapcore.InfoLevel},
	{optionz.WatcherFailed, "watcher failed", zapcore.WarnLevel},
}

// extractor reads one field from an event.
type extractor func(e *capitan.Event) (zap.Field, bool)

func stringField(name string, from func(*capitan.Event) (string, bool)) extractor {
	return func(e *capitan.Event) (zap.Field, bool) {
		v, ok := from(e)
		return zap.String(name, v), ok
	}
}

func intField(name string, from func(*capitan.Event) (int, bool)) extractor {
	return func(e *capitan.Event) (zap.Field, bool) {
		v, ok := from(e)
		return zap.Int(name, v), ok
	}
}

func durationField(name string, from func(*capitan.Event) (time.Duration, bool)) extractor {
	return func(e *capitan.Event) (zap.Field, bool) {
		v, ok := from(e)
		return zap.Duration(name, v), ok
	}
}

var extractors = []extractor{
	stringField("name", optionz.KeyName.From),
	stringField("type", optionz.KeyType.From),
	stringField("state", optionz.KeyState.From),
	stringField("old_state", optionz.KeyOldState.From),
	stringField("new_state", optionz.KeyNewState.From),
	stringField("content_type", optionz.KeyContentType.From),
	stringField("watcher_type", optionz.KeyWatcherType.From),
	intField("subscribers", optionz.KeySubscribers.From),
	intField("sources", optionz.KeySources.From),
	intField("size", optionz.KeySize.From),
	durationField("duration", optionz.KeyDuration.From),
	durationField("debounce", optionz.KeyDebounce.From),
	stringField("error", optionz.KeyError.From),
}

// Attach hooks every optionz signal and logs it on logger. The returned
// function removes the hooks.
func Attach(logger *zap.Logger) func() {
	listeners := make([]interface{ Close() }, 0, len(routes))
	for _, r := range routes {
		listeners = append(listeners, capitan.Hook(r.signal, func(_ context.Context, e *capitan.Event) {
			logger.Log(r.level, r.message, Fields(e)...)
		}))
	}
	return func() {
		for _, l := range listeners {
			l.Close()
		}
	}
}

// Fields converts the optionz fields carried by e to zap fields.
func Fields(e *capitan.Event) []zap.Field {
	var fields []zap.Field
	for _, extract := range extractors {
		if f, ok := extract(e); ok {
			fields = append(fields, f)
		}
	}
	return fields
}
