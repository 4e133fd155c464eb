// Package telemetry reports rays traced, frame rate and memory statistics at a fixed interval
// and keeps session totals for the summary printed at shutdown.
package telemetry

import (
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/Carmen-Shannon/oxy-trace/log"
	"github.com/olekukonko/tablewriter"
)

var logger = log.New("telemetry")

// DefaultInterval is the reporting period.
const DefaultInterval = time.Second

// RayCounter reads the kernel's ray counter without blocking.
type RayCounter interface {
	// ReadRayCount returns the rays traced since the counter was last zeroed.
	//
	// Returns:
	//   - uint32: the counter value
	//   - bool: false if the readback is not available yet
	ReadRayCount() (uint32, bool)
}

// Totals are the session-wide counters.
type Totals struct {
	Frames         uint64
	Reports        uint64
	Skipped        uint64
	PeakRays       uint32
	PeakFPS        float64
	LastSamples    uint32
	ReloadAttempts uint64
	ReloadFailures uint64
	Elapsed        time.Duration
}

// Telemetry accumulates per-frame timings and reports once per interval.
// It is owned by the render loop and is not safe for concurrent use.
type Telemetry struct {
	counter        RayCounter
	interval       time.Duration
	elapsed        time.Duration
	frameCount     int
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
	withMemStats   bool
	totals         Totals
}

// NewTelemetry creates a Telemetry reporting every DefaultInterval.
//
// Parameters:
//   - options: functional options for the counter, interval and memory statistics
//
// Returns:
//   - *Telemetry: the newly created telemetry instance
func NewTelemetry(options ...TelemetryOption) *Telemetry {
	t := &Telemetry{
		interval:     DefaultInterval,
		withMemStats: true,
	}
	for _, opt := range options {
		opt(t)
	}
	return t
}

// SetRayCounter replaces the counter read at each report. A nil counter skips every report.
//
// Parameters:
//   - counter: the ray counter
func (t *Telemetry) SetRayCounter(counter RayCounter) {
	t.counter = counter
}

// Frame should be called once per rendered frame.
// When the accumulated time reaches the interval it reads the ray counter and logs frames,
// frame rate, rays and samples per pixel at Notice level. If the readback is unavailable the
// line is logged without rays and the interval counts as skipped. Either way the interval
// accumulators are reset.
//
// Parameters:
//   - dt: the wall-clock duration of the frame
//   - samples: the accumulation counter, reported as samples per pixel
//
// Returns:
//   - bool: true if a report carrying a ray count was logged this frame
func (t *Telemetry) Frame(dt time.Duration, samples uint32) bool {
	t.frameCount++
	t.elapsed += dt
	t.totals.Frames++
	t.totals.Elapsed += dt
	t.totals.LastSamples = samples

	if t.elapsed < t.interval {
		return false
	}

	elapsed := t.elapsed
	frames := t.frameCount
	t.elapsed = 0
	t.frameCount = 0

	fps := float64(frames) / elapsed.Seconds()
	if fps > t.totals.PeakFPS {
		t.totals.PeakFPS = fps
	}

	var (
		rays uint32
		ok   bool
	)
	if t.counter != nil {
		rays, ok = t.counter.ReadRayCount()
	}
	if !ok {
		t.totals.Skipped++
		logger.Noticef("Frames: %d | FPS: %.2f | Rays: n/a | Samples/px: %d%s",
			frames, fps, samples, t.memReport(elapsed))
		return false
	}

	t.totals.Reports++
	if rays > t.totals.PeakRays {
		t.totals.PeakRays = rays
	}

	logger.Noticef("Frames: %d | FPS: %.2f | Rays: %d | Samples/px: %d%s",
		frames, fps, rays, samples, t.memReport(elapsed))
	return true
}

// memReport returns heap and GC statistics for the interval, or an empty string when disabled.
func (t *Telemetry) memReport(elapsed time.Duration) string {
	if !t.withMemStats {
		return ""
	}

	runtime.ReadMemStats(&t.memStats)
	allocMB := float64(t.memStats.Alloc) / 1024 / 1024
	allocRateMB := float64(t.memStats.TotalAlloc-t.lastTotalAlloc) / 1024 / 1024 / elapsed.Seconds()
	gcCount := t.memStats.NumGC

	var lastPauseUs uint64
	if gcCount > 0 {
		// PauseNs is a circular buffer of the last 256 pauses
		lastPauseUs = t.memStats.PauseNs[(gcCount-1)%256] / 1000
	}
	gcDelta := gcCount - t.lastGCCount

	t.lastGCCount = gcCount
	t.lastTotalAlloc = t.memStats.TotalAlloc
	return fmt.Sprintf(" | Heap: %.2f MB | Alloc Rate: %.2f MB/s | GC: +%d (last: %d µs)",
		allocMB, allocRateMB, gcDelta, lastPauseUs)
}

// RecordReload counts a shader reload attempt.
//
// Parameters:
//   - ok: whether the reload succeeded
func (t *Telemetry) RecordReload(ok bool) {
	t.totals.ReloadAttempts++
	if !ok {
		t.totals.ReloadFailures++
	}
}

// Totals returns a copy of the session counters.
//
// Returns:
//   - Totals: the session counters
func (t *Telemetry) Totals() Totals {
	return t.totals
}

// WriteSummary renders the session counters as a table.
//
// Parameters:
//   - w: the destination writer
func (t *Telemetry) WriteSummary(w io.Writer) {
	tot := t.totals

	avgFPS := 0.0
	if tot.Elapsed > 0 {
		avgFPS = float64(tot.Frames) / tot.Elapsed.Seconds()
	}

	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeader([]string{"Metric", "Value"})
	table.Append([]string{"Frames", fmt.Sprintf("%d", tot.Frames)})
	table.Append([]string{"Session time", tot.Elapsed.Round(time.Millisecond).String()})
	table.Append([]string{"Average FPS", fmt.Sprintf("%.2f", avgFPS)})
	table.Append([]string{"Peak FPS", fmt.Sprintf("%.2f", tot.PeakFPS)})
	table.Append([]string{"Peak rays / interval", fmt.Sprintf("%d", tot.PeakRays)})
	table.Append([]string{"Reports", fmt.Sprintf("%d", tot.Reports)})
	table.Append([]string{"Reports without rays", fmt.Sprintf("%d", tot.Skipped)})
	table.Append([]string{"Samples/px at exit", fmt.Sprintf("%d", tot.LastSamples)})
	table.Append([]string{"Shader reloads", fmt.Sprintf("%d", tot.ReloadAttempts)})
	table.Append([]string{"Failed reloads", fmt.Sprintf("%d", tot.ReloadFailures)})
	table.Render()
}
