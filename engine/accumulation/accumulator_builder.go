package accumulation

// AccumulatorBuilderOption is a functional option for configuring an accumulator.
type AccumulatorBuilderOption func(*accumulator)

// WithSampleDuration sets the virtual seconds represented by one accumulated frame.
// Non-positive values are ignored.
//
// Parameters:
//   - seconds: the per-frame duration
//
// Returns:
//   - AccumulatorBuilderOption: option function to apply
func WithSampleDuration(seconds float32) AccumulatorBuilderOption {
	return func(a *accumulator) {
		if seconds > 0 {
			a.sampleDuration = seconds
		}
	}
}

// WithMaxSamples caps the counter. Zero leaves it unbounded.
//
// Parameters:
//   - n: the number of frames after which the image counts as converged
//
// Returns:
//   - AccumulatorBuilderOption: option function to apply
func WithMaxSamples(n uint32) AccumulatorBuilderOption {
	return func(a *accumulator) {
		a.maxSamples = n
	}
}
