package optionz

import "github.com/zoobzio/capitan"

// Monitor lifecycle signals.
var (
	// MonitorStarted is emitted when a Monitor arms its change sources.
	MonitorStarted = capitan.NewSignal(
		"optionz.monitor.started",
		"Monitor watching started",
	)

	// MonitorStopped is emitted when a Monitor is closed.
	MonitorStopped = capitan.NewSignal(
		"optionz.monitor.stopped",
		"Monitor watching stopped",
	)

	// MonitorStateChanged is emitted when a Monitor transitions between states.
	MonitorStateChanged = capitan.NewSignal(
		"optionz.monitor.state.changed",
		"Monitor state transition",
	)
)

// Change processing signals.
var (
	// MonitorChangeReceived is emitted when a change token fires for a name.
	MonitorChangeReceived = capitan.NewSignal(
		"optionz.monitor.change.received",
		"Change token fired",
	)

	// MonitorRebuilt is emitted after a change-driven rebuild succeeded and
	// subscribers were notified.
	MonitorRebuilt = capitan.NewSignal(
		"optionz.monitor.rebuilt",
		"Options rebuilt after change",
	)

	// MonitorRebuildFailed is emitted when a change-driven rebuild fails.
	// The name stays evicted until the next Get.
	MonitorRebuildFailed = capitan.NewSignal(
		"optionz.monitor.rebuild.failed",
		"Options rebuild after change failed",
	)

	// MonitorChangeStorm is emitted when changes for a name keep arriving
	// without pause, either as tokens that fired before a callback could be
	// registered or as changes queued behind a running rebuild.
	MonitorChangeStorm = capitan.NewSignal(
		"optionz.monitor.change.storm",
		"Change storm detected",
	)
)

// Binding signals.
var (
	// BindingChanged is emitted when a binding accepts a new payload.
	BindingChanged = capitan.NewSignal(
		"optionz.binding.changed",
		"Binding received new payload",
	)

	// BindingDecodeFailed is emitted when a payload cannot be decoded onto an
	// options instance.
	BindingDecodeFailed = capitan.NewSignal(
		"optionz.binding.decode.failed",
		"Binding payload decode failed",
	)

	// BindingStopped is emitted when a binding's watcher closes.
	BindingStopped = capitan.NewSignal(
		"optionz.binding.stopped",
		"Binding watching stopped",
	)

	// WatcherFailed is emitted by watchers when the backend reports an error
	// they recover from.
	WatcherFailed = capitan.NewSignal(
		"optionz.watcher.failed",
		"Watcher backend error",
	)
)
