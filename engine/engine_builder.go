package engine

import (
	"io"
	"time"

	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/Carmen-Shannon/oxy-trace/engine/accumulation"
	"github.com/Carmen-Shannon/oxy-trace/engine/camera"
	"github.com/Carmen-Shannon/oxy-trace/engine/hotreload"
	"github.com/Carmen-Shannon/oxy-trace/engine/input"
	"github.com/Carmen-Shannon/oxy-trace/engine/telemetry"
	"github.com/Carmen-Shannon/oxy-trace/engine/window"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithWindow sets the window whose message loop Run pumps and whose events feed the controller.
// The initial viewport is taken from the window unless WithViewport is given.
//
// Parameters:
//   - w: a pre-configured Window instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithGPU sets the GPU collaborator the frame loop drives. Required.
//
// Parameters:
//   - gpu: the GPU, usually a renderer.Renderer
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithGPU(gpu GPU) EngineBuilderOption {
	return func(e *engine) {
		e.gpu = gpu
	}
}

// WithCamera sets the camera. Defaults to camera.NewCamera().
//
// Parameters:
//   - cam: the camera
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithCamera(cam camera.Camera) EngineBuilderOption {
	return func(e *engine) {
		e.camera = cam
	}
}

// WithAccumulator sets the accumulation state. Defaults to accumulation.NewAccumulator().
//
// Parameters:
//   - acc: the accumulator
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithAccumulator(acc accumulation.Accumulator) EngineBuilderOption {
	return func(e *engine) {
		e.accumulator = acc
	}
}

// WithTelemetry sets the telemetry. Its ray counter is replaced by the GPU.
//
// Parameters:
//   - t: the telemetry
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTelemetry(t *telemetry.Telemetry) EngineBuilderOption {
	return func(e *engine) {
		e.telemetry = t
	}
}

// WithEventQueue sets the input event queue. Defaults to a queue of input.DefaultQueueCapacity.
//
// Parameters:
//   - q: the queue
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithEventQueue(q input.Queue) EngineBuilderOption {
	return func(e *engine) {
		e.events = q
	}
}

// WithHandshake sets the reload handshake. Defaults to a fresh handshake.
//
// Parameters:
//   - h: the handshake
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithHandshake(h *hotreload.Handshake) EngineBuilderOption {
	return func(e *engine) {
		e.handshake = h
	}
}

// WithWatcher watches files for changes and requests a reload when any of them is modified.
// Without it the engine never reloads on its own.
//
// Parameters:
//   - files: the shader stage files
//   - options: watcher options such as the poll interval
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWatcher(files []string, options ...hotreload.WatcherOption) EngineBuilderOption {
	return func(e *engine) {
		e.watchFiles = files
		e.watchOpts = options
	}
}

// WithInputOptions passes control constants through to the input controller.
// The camera, accumulator, viewport and handlers are always supplied by the engine.
//
// Parameters:
//   - options: input controller options
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithInputOptions(options ...input.ControllerOption) EngineBuilderOption {
	return func(e *engine) {
		e.inputOpts = append(e.inputOpts, options...)
	}
}

// WithViewport sets the initial viewport for a headless engine or overrides the window size.
//
// Parameters:
//   - vp: the viewport
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithViewport(vp common.Viewport) EngineBuilderOption {
	return func(e *engine) {
		e.viewport = vp
	}
}

// WithRenderFrameLimit sets an optional render frame rate cap in frames per second.
// Pass 0 to uncap the render loop (default).
//
// Parameters:
//   - fps: maximum render frames per second (0 = uncapped)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		e.renderFrameLimit = frameBudget(fps)
	}
}

// WithFrameCallback registers a function called on the render goroutine after every frame.
//
// Parameters:
//   - callback: receives the frame's delta time
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithFrameCallback(callback func(dt time.Duration)) EngineBuilderOption {
	return func(e *engine) {
		e.frameCallback = callback
	}
}

// WithSummaryWriter sets where the session summary is written at exit. Defaults to stderr;
// nil disables it.
//
// Parameters:
//   - w: the destination writer
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithSummaryWriter(w io.Writer) EngineBuilderOption {
	return func(e *engine) {
		e.summary = w
	}
}
