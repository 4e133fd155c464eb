package telemetry

import "time"

// TelemetryOption is a functional option for configuring a Telemetry.
type TelemetryOption func(*Telemetry)

// WithRayCounter sets the counter read at each report.
//
// Parameters:
//   - counter: the ray counter
//
// Returns:
//   - TelemetryOption: functional option to set the counter
func WithRayCounter(counter RayCounter) TelemetryOption {
	return func(t *Telemetry) {
		t.counter = counter
	}
}

// WithInterval sets the reporting period. Non-positive values are ignored.
//
// Parameters:
//   - interval: the reporting period
//
// Returns:
//   - TelemetryOption: functional option to set the interval
func WithInterval(interval time.Duration) TelemetryOption {
	return func(t *Telemetry) {
		if interval > 0 {
			t.interval = interval
		}
	}
}

// WithMemStats toggles heap and GC statistics in each report.
//
// Parameters:
//   - enabled: true to include memory statistics
//
// Returns:
//   - TelemetryOption: functional option to toggle memory statistics
func WithMemStats(enabled bool) TelemetryOption {
	return func(t *Telemetry) {
		t.withMemStats = enabled
	}
}
