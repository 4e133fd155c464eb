package hotreload

import "time"

// WatcherOption is a functional option for configuring a Watcher.
type WatcherOption func(*Watcher)

// WithPollInterval sets how often modification times are checked. Non-positive values are ignored.
//
// Parameters:
//   - interval: the poll period
//
// Returns:
//   - WatcherOption: functional option to set the poll interval
func WithPollInterval(interval time.Duration) WatcherOption {
	return func(w *Watcher) {
		if interval > 0 {
			w.pollInterval = interval
		}
	}
}

// WithAckInterval sets how often the watcher re-checks the load flag while a reload is pending.
// Non-positive values are ignored.
//
// Parameters:
//   - interval: the acknowledge poll period
//
// Returns:
//   - WatcherOption: functional option to set the acknowledge interval
func WithAckInterval(interval time.Duration) WatcherOption {
	return func(w *Watcher) {
		if interval > 0 {
			w.ackInterval = interval
		}
	}
}

// WithNotify toggles fsnotify subscriptions. When disabled the watcher relies on polling.
//
// Parameters:
//   - enabled: true to subscribe to file events
//
// Returns:
//   - WatcherOption: functional option to toggle notification
func WithNotify(enabled bool) WatcherOption {
	return func(w *Watcher) {
		w.notify = enabled
	}
}
