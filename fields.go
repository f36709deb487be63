package optionz

import "github.com/zoobzio/capitan"

// Field keys for optionz events.
var (
	// KeyName is the options name an event concerns.
	KeyName = capitan.NewStringKey("name")

	// KeyType is the options type name.
	KeyType = capitan.NewStringKey("type")

	// KeyState is the current state of the Monitor.
	KeyState = capitan.NewStringKey("state")

	// KeyOldState is the previous state before a transition.
	KeyOldState = capitan.NewStringKey("old_state")

	// KeyNewState is the new state after a transition.
	KeyNewState = capitan.NewStringKey("new_state")

	// KeyError is the error message when an operation fails.
	KeyError = capitan.NewStringKey("error")

	// KeyDuration is how long a rebuild took.
	KeyDuration = capitan.NewDurationKey("duration")

	// KeyDebounce is the configured debounce duration of a binding.
	KeyDebounce = capitan.NewDurationKey("debounce")

	// KeySubscribers is the number of subscribers notified.
	KeySubscribers = capitan.NewIntKey("subscribers")

	// KeySources is the number of change sources a monitor watches.
	KeySources = capitan.NewIntKey("sources")

	// KeyContentType is the payload format of a binding's codec.
	KeyContentType = capitan.NewStringKey("content_type")

	// KeySize is the payload size in bytes.
	KeySize = capitan.NewIntKey("size")

	// KeyWatcherType is the type name of the watcher implementation.
	KeyWatcherType = capitan.NewStringKey("watcher_type")
)
