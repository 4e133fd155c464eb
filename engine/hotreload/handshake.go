// Package hotreload coordinates live shader reloads between a background file watcher and
// the render goroutine that owns the GPU program.
package hotreload

import (
	"errors"
	"sync"
	"sync/atomic"
)

// ErrWatcherStopped is returned by Watcher.Run when the watcher has already been run.
var ErrWatcherStopped = errors.New("hotreload: watcher already stopped")

// Handshake is the shared state between exactly one watcher and one render loop.
// Load goes true only in the watcher and false only in the render loop after a reload attempt.
// Exit goes true once on shutdown and never resets.
type Handshake struct {
	load     atomic.Bool
	exit     atomic.Bool
	ack      chan struct{}
	done     chan struct{}
	exitOnce sync.Once
}

// NewHandshake creates a Handshake with both flags false.
//
// Returns:
//   - *Handshake: the new handshake
func NewHandshake() *Handshake {
	return &Handshake{
		ack:  make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// RequestLoad sets the load flag. Called by the watcher.
func (h *Handshake) RequestLoad() {
	// drop an acknowledgement left over from a previous cycle
	select {
	case <-h.ack:
	default:
	}
	h.load.Store(true)
}

// LoadRequested reports whether a reload is pending.
func (h *Handshake) LoadRequested() bool {
	return h.load.Load()
}

// Acknowledge clears the load flag and wakes a waiting watcher. Called by the render loop
// after every reload attempt, successful or not.
func (h *Handshake) Acknowledge() {
	h.load.Store(false)
	select {
	case h.ack <- struct{}{}:
	default:
	}
}

// Acked is signalled after each Acknowledge.
func (h *Handshake) Acked() <-chan struct{} {
	return h.ack
}

// RequestExit sets the exit flag. Safe to call multiple times.
func (h *Handshake) RequestExit() {
	h.exitOnce.Do(func() {
		h.exit.Store(true)
		close(h.done)
	})
}

// ExitRequested reports whether shutdown has begun.
func (h *Handshake) ExitRequested() bool {
	return h.exit.Load()
}

// Done is closed when exit is requested.
func (h *Handshake) Done() <-chan struct{} {
	return h.done
}
