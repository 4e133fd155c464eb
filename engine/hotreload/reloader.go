package hotreload

import (
	"time"

	"github.com/Carmen-Shannon/oxy-trace/engine/accumulation"
)

// Target rebuilds the GPU program. On error the previously bound program must stay in use.
type Target interface {
	// Reload recompiles every stage, re-resolves parameter bindings and re-queries the
	// workgroup size, then swaps the new program in.
	//
	// Returns:
	//   - error: the build failure, if any
	Reload() error
}

// TargetFunc adapts a function to Target.
type TargetFunc func() error

func (f TargetFunc) Reload() error {
	return f()
}

// Reloader is the render-loop half of the handshake.
type Reloader struct {
	handshake   *Handshake
	target      Target
	accumulator accumulation.Accumulator
	onResult    func(ok bool, elapsed time.Duration)
}

// NewReloader creates a Reloader. It panics without a handshake or target.
//
// Parameters:
//   - handshake: the handshake shared with the watcher
//   - target: the program rebuilt on each request
//   - options: functional options for the accumulator and result callback
//
// Returns:
//   - *Reloader: the new reloader
func NewReloader(handshake *Handshake, target Target, options ...ReloaderOption) *Reloader {
	if handshake == nil || target == nil {
		panic("hotreload: NewReloader requires a handshake and a target")
	}
	r := &Reloader{
		handshake: handshake,
		target:    target,
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// Poll performs at most one reload attempt if the load flag is set. The flag is cleared
// after the attempt whatever its outcome. The accumulator is reset only on success.
//
// Returns:
//   - bool: true if a reload was attempted
//   - error: the build failure of the attempt, if any
func (r *Reloader) Poll() (bool, error) {
	if !r.handshake.LoadRequested() {
		return false, nil
	}

	start := time.Now()
	err := r.target.Reload()
	elapsed := time.Since(start)

	if err != nil {
		logger.Errorf("shader reload failed, keeping previous program: %v", err)
	} else {
		if r.accumulator != nil {
			r.accumulator.Invalidate()
		}
		logger.Noticef("shader loaded in %d ms", elapsed.Milliseconds())
	}
	if r.onResult != nil {
		r.onResult(err == nil, elapsed)
	}

	r.handshake.Acknowledge()
	return true, err
}

// ReloaderOption is a functional option for configuring a Reloader.
type ReloaderOption func(*Reloader)

// WithAccumulator sets the accumulator reset after a successful reload.
//
// Parameters:
//   - acc: the accumulator
//
// Returns:
//   - ReloaderOption: functional option to set the accumulator
func WithAccumulator(acc accumulation.Accumulator) ReloaderOption {
	return func(r *Reloader) {
		r.accumulator = acc
	}
}

// WithResultHandler sets a callback invoked after every attempt.
//
// Parameters:
//   - fn: receives whether the attempt succeeded and how long it took
//
// Returns:
//   - ReloaderOption: functional option to set the result callback
func WithResultHandler(fn func(ok bool, elapsed time.Duration)) ReloaderOption {
	return func(r *Reloader) {
		r.onResult = fn
	}
}
