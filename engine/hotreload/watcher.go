package hotreload

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-trace/log"
	"github.com/fsnotify/fsnotify"
)

var logger = log.New("hotreload")

// Default watcher timings.
const (
	DefaultPollInterval = 100 * time.Millisecond
	DefaultAckInterval  = 700 * time.Millisecond
)

// Watcher polls the modification time of a fixed set of files and raises the load flag
// when any of them changes. fsnotify events trigger an immediate check between polls.
type Watcher struct {
	handshake    *Handshake
	files        []string
	pollInterval time.Duration
	ackInterval  time.Duration
	notify       bool
	started      atomic.Bool
}

// NewWatcher creates a Watcher over the given files.
//
// Parameters:
//   - handshake: the handshake shared with the render loop
//   - files: the files to track
//   - options: functional options for intervals and notification
//
// Returns:
//   - *Watcher: the new watcher
func NewWatcher(handshake *Handshake, files []string, options ...WatcherOption) *Watcher {
	if handshake == nil {
		panic("hotreload: NewWatcher requires a handshake")
	}
	w := &Watcher{
		handshake:    handshake,
		pollInterval: DefaultPollInterval,
		ackInterval:  DefaultAckInterval,
		notify:       true,
	}
	for _, f := range files {
		if abs, err := filepath.Abs(f); err == nil {
			f = abs
		}
		w.files = append(w.files, filepath.Clean(f))
	}
	for _, opt := range options {
		opt(w)
	}
	return w
}

// Files returns the tracked paths.
func (w *Watcher) Files() []string {
	return append([]string(nil), w.files...)
}

// Run watches until exit is requested or ctx is cancelled. It returns nil on a requested exit,
// the context error on cancellation and ErrWatcherStopped if the watcher was already run.
//
// Parameters:
//   - ctx: cancels the loop
//
// Returns:
//   - error: the reason the loop ended
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return ErrWatcherStopped
	}

	baseline := time.Now()

	events, errs, closeNotify := w.subscribe()
	defer closeNotify()

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		if w.handshake.ExitRequested() {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.handshake.Done():
			return nil
		case <-ticker.C:
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if !w.relevant(ev) {
				continue
			}
			logger.Debugf("%s %s", ev.Op, ev.Name)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			logger.Warningf("file notification error: %v", err)
			continue
		}

		changed, ok := w.changedSince(baseline)
		if !ok {
			continue
		}
		detected := time.Now()

		logger.Noticef("%s changed, loading shader", filepath.Base(changed))
		w.handshake.RequestLoad()
		if err := w.awaitAck(ctx); err != nil {
			return err
		}
		if w.handshake.ExitRequested() {
			return nil
		}
		baseline = detected
	}
}

// subscribe registers fsnotify watches on the directories of the tracked files.
// On failure it logs a warning and returns nil channels so the loop runs on polling alone.
func (w *Watcher) subscribe() (<-chan fsnotify.Event, <-chan error, func()) {
	noop := func() {}
	if !w.notify {
		return nil, nil, noop
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Warningf("file notification unavailable, polling only: %v", err)
		return nil, nil, noop
	}

	dirs := make(map[string]struct{})
	for _, f := range w.files {
		dirs[filepath.Dir(f)] = struct{}{}
	}
	for dir := range dirs {
		if err := fw.Add(dir); err != nil {
			logger.Warningf("cannot watch %s, polling only: %v", dir, err)
			_ = fw.Close()
			return nil, nil, noop
		}
	}
	return fw.Events, fw.Errors, func() { _ = fw.Close() }
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
		return false
	}
	name := filepath.Clean(ev.Name)
	for _, f := range w.files {
		if f == name {
			return true
		}
	}
	return false
}

// changedSince returns the first tracked file modified after baseline.
// Files that cannot be stat'ed, for example mid-save, are skipped until the next check.
func (w *Watcher) changedSince(baseline time.Time) (string, bool) {
	for _, f := range w.files {
		info, err := os.Stat(f)
		if err != nil {
			logger.Debugf("stat %s: %v", f, err)
			continue
		}
		if info.ModTime().After(baseline) {
			return f, true
		}
	}
	return "", false
}

// awaitAck blocks until the render loop clears the load flag, exit is requested or ctx ends.
func (w *Watcher) awaitAck(ctx context.Context) error {
	ticker := time.NewTicker(w.ackInterval)
	defer ticker.Stop()

	for w.handshake.LoadRequested() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.handshake.Done():
			return nil
		case <-w.handshake.Acked():
		case <-ticker.C:
			logger.Debug("waiting for shader load...")
		}
	}
	return nil
}
