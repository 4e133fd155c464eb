// Package accumulation owns the progressive sample counter that drives sample-weighted
// blending in the kernel and doubles as its virtual clock.
package accumulation

// DefaultSampleDuration is the virtual time in seconds that one accumulated frame represents.
const DefaultSampleDuration float32 = 0.001

// accumulator is the implementation of the Accumulator interface.
type accumulator struct {
	count          uint32
	maxSamples     uint32
	sampleDuration float32
	invalidations  uint64
}

// Accumulator counts the frames blended into the current image since the last reset.
// It is owned by the render loop and is not safe for concurrent use.
type Accumulator interface {
	// Tick records one more rendered frame. It is a no-op once a non-zero sample cap is reached.
	Tick()

	// Invalidate resets the counter to zero. Any change that alters the image must call it
	// before the next dispatch reads the counter.
	Invalidate()

	// Count returns the number of frames accumulated since the last reset.
	//
	// Returns:
	//   - uint32: the counter, also reported as samples per pixel
	Count() uint32

	// ExposureTime returns the virtual elapsed time fed to the kernel.
	//
	// Returns:
	//   - float32: Count() multiplied by the sample duration
	ExposureTime() float32

	// Converged reports whether a sample cap is configured and has been reached.
	//
	// Returns:
	//   - bool: true if no further dispatches are needed until the next invalidation
	Converged() bool

	// Invalidations returns how many times the counter has been reset.
	//
	// Returns:
	//   - uint64: the reset count since construction
	Invalidations() uint64
}

var _ Accumulator = &accumulator{}

// NewAccumulator creates an Accumulator starting at zero.
//
// Parameters:
//   - options: functional options for the sample duration and cap
//
// Returns:
//   - Accumulator: the new accumulator
func NewAccumulator(options ...AccumulatorBuilderOption) Accumulator {
	a := &accumulator{
		sampleDuration: DefaultSampleDuration,
	}
	for _, opt := range options {
		opt(a)
	}
	return a
}

func (a *accumulator) Tick() {
	if a.Converged() {
		return
	}
	a.count++
}

func (a *accumulator) Invalidate() {
	a.count = 0
	a.invalidations++
}

func (a *accumulator) Count() uint32 {
	return a.count
}

func (a *accumulator) ExposureTime() float32 {
	return a.sampleDuration * float32(a.count)
}

func (a *accumulator) Converged() bool {
	return a.maxSamples > 0 && a.count >= a.maxSamples
}

func (a *accumulator) Invalidations() uint64 {
	return a.invalidations
}
