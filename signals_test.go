package optionz

import "testing"

func TestMonitorStarted(t *testing.T) {
	if MonitorStarted.Name() != "optionz.monitor.started" {
		t.Errorf("expected name 'optionz.monitor.started', got %q", MonitorStarted.Name())
	}
}

func TestMonitorStopped(t *testing.T) {
	if MonitorStopped.Name() != "optionz.monitor.stopped" {
		t.Errorf("expected name 'optionz.monitor.stopped', got %q", MonitorStopped.Name())
	}
}

func TestMonitorStateChanged(t *testing.T) {
	if MonitorStateChanged.Name() != "optionz.monitor.state.changed" {
		t.Errorf("expected name 'optionz.monitor.state.changed', got %q", MonitorStateChanged.Name())
	}
}

func TestMonitorChangeReceived(t *testing.T) {
	if MonitorChangeReceived.Name() != "optionz.monitor.change.received" {
		t.Errorf("expected name 'optionz.monitor.change.received', got %q", MonitorChangeReceived.Name())
	}
}

func TestMonitorRebuilt(t *testing.T) {
	if MonitorRebuilt.Name() != "optionz.monitor.rebuilt" {
		t.Errorf("expected name 'optionz.monitor.rebuilt', got %q", MonitorRebuilt.Name())
	}
}

func TestMonitorRebuildFailed(t *testing.T) {
	if MonitorRebuildFailed.Name() != "optionz.monitor.rebuild.failed" {
		t.Errorf("expected name 'optionz.monitor.rebuild.failed', got %q", MonitorRebuildFailed.Name())
	}
}

func TestMonitorChangeStorm(t *testing.T) {
	if MonitorChangeStorm.Name() != "optionz.monitor.change.storm" {
		t.Errorf("expected name 'optionz.monitor.change.storm', got %q", MonitorChangeStorm.Name())
	}
}

func TestBindingChanged(t *testing.T) {
	if BindingChanged.Name() != "optionz.binding.changed" {
		t.Errorf("expected name 'optionz.binding.changed', got %q", BindingChanged.Name())
	}
}

func TestBindingDecodeFailed(t *testing.T) {
	if BindingDecodeFailed.Name() != "optionz.binding.decode.failed" {
		t.Errorf("expected name 'optionz.binding.decode.failed', got %q", BindingDecodeFailed.Name())
	}
}

func TestBindingStopped(t *testing.T) {
	if BindingStopped.Name() != "optionz.binding.stopped" {
		t.Errorf("expected name 'optionz.binding.stopped', got %q", BindingStopped.Name())
	}
}

func TestWatcherFailed(t *testing.T) {
	if WatcherFailed.Name() != "optionz.watcher.failed" {
		t.Errorf("expected name 'optionz.watcher.failed', got %q", WatcherFailed.Name())
	}
}
