package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/Carmen-Shannon/oxy-trace/engine/accumulation"
	"github.com/Carmen-Shannon/oxy-trace/engine/camera"
	"github.com/Carmen-Shannon/oxy-trace/engine/dispatch"
	"github.com/Carmen-Shannon/oxy-trace/engine/hotreload"
	"github.com/Carmen-Shannon/oxy-trace/engine/input"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer"
	"github.com/Carmen-Shannon/oxy-trace/engine/telemetry"
	"github.com/Carmen-Shannon/oxy-trace/engine/window"
	"github.com/Carmen-Shannon/oxy-trace/log"
)

var logger = log.New("engine")

// ErrNoGPU is returned by NewEngine when no GPU collaborator was supplied.
var ErrNoGPU = errors.New("engine: no gpu configured")

// GPU is the slice of the renderer the frame loop drives. renderer.Renderer satisfies it.
type GPU interface {
	hotreload.Target
	telemetry.RayCounter

	Resize(vp common.Viewport) error
	WorkgroupSize() [3]uint32
	WriteParams(params *camera.KernelParams)
	ZeroRayCounter()
	Dispatch(grid [3]uint32) error
	Composite() error
}

// diagnosticsSource is implemented by GPUs that collect graphics errors.
type diagnosticsSource interface {
	Diagnostics() *renderer.Diagnostics
}

// engine implements the Engine interface.
// It is the application context: it owns the camera, accumulator, program reloads and telemetry
// and hands them to the components that need them.
type engine struct {
	running bool
	mu      sync.Mutex
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	window      window.Window
	gpu         GPU
	camera      camera.Camera
	accumulator accumulation.Accumulator
	telemetry   *telemetry.Telemetry
	events      input.Queue
	controller  input.Controller
	handshake   *hotreload.Handshake
	reloader    *hotreload.Reloader
	watcher     *hotreload.Watcher
	watchFiles  []string
	watchOpts   []hotreload.WatcherOption
	inputOpts   []input.ControllerOption
	viewport    common.Viewport
	converged   bool

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
	frameCallback    func(dt time.Duration)
	summary          io.Writer
	watchErr         error
}

// Engine drives the progressive path tracer.
// It runs the frame loop on a dedicated render goroutine, the shader watcher on another
// and the window message pump on the calling goroutine.
type Engine interface {
	// Window returns the underlying window, or nil for a headless engine.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Camera returns the camera the frame loop renders from.
	//
	// Returns:
	//   - camera.Camera: the camera
	Camera() camera.Camera

	// Accumulator returns the progressive accumulation state.
	//
	// Returns:
	//   - accumulation.Accumulator: the accumulator
	Accumulator() accumulation.Accumulator

	// Telemetry returns the ray and frame telemetry.
	//
	// Returns:
	//   - *telemetry.Telemetry: the telemetry
	Telemetry() *telemetry.Telemetry

	// Events returns the queue the window pushes input events into.
	//
	// Returns:
	//   - input.Queue: the event queue
	Events() input.Queue

	// Controller returns the input state machine.
	//
	// Returns:
	//   - input.Controller: the controller
	Controller() input.Controller

	// Handshake returns the reload handshake shared with the watcher.
	//
	// Returns:
	//   - *hotreload.Handshake: the handshake
	Handshake() *hotreload.Handshake

	// Viewport returns the size the last frame rendered at.
	//
	// Returns:
	//   - common.Viewport: the viewport
	Viewport() common.Viewport

	// Frame renders one frame: it applies pending input, services a pending reload,
	// writes the kernel parameters, dispatches, composites and advances accumulation.
	// Once the accumulator reaches its sample cap the dispatch is skipped and the converged
	// image is only composited.
	//
	// Parameters:
	//   - dt: the wall-clock duration of the previous frame
	Frame(dt time.Duration)

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// Run starts the render and watcher goroutines and pumps window messages until the window
	// closes or Quit is called. It blocks until every goroutine has stopped, then writes the
	// session summary.
	//
	// Returns:
	//   - error: the watcher's failure, if it stopped abnormally
	Run() error

	// Quit signals all engine goroutines to stop.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

var _ Engine = &engine{}

// NewEngine creates an Engine and performs the initial program load.
// Missing collaborators other than the GPU get defaults.
//
// Parameters:
//   - options: functional options for the collaborators and loop settings
//
// Returns:
//   - Engine: the newly created engine
//   - error: ErrNoGPU, or the initial load failure; there is no previous program to fall back to
func NewEngine(options ...EngineBuilderOption) (Engine, error) {
	e := &engine{
		quitChannel: make(chan struct{}),
		summary:     os.Stderr,
	}

	for _, opt := range options {
		opt(e)
	}

	if e.gpu == nil {
		return nil, ErrNoGPU
	}
	if e.camera == nil {
		e.camera = camera.NewCamera()
	}
	if e.accumulator == nil {
		e.accumulator = accumulation.NewAccumulator()
	}
	if e.telemetry == nil {
		e.telemetry = telemetry.NewTelemetry()
	}
	e.telemetry.SetRayCounter(e.gpu)
	if e.events == nil {
		e.events = input.NewQueue(input.DefaultQueueCapacity)
	}
	if e.handshake == nil {
		e.handshake = hotreload.NewHandshake()
	}
	if !e.viewport.Valid() && e.window != nil {
		e.viewport = e.window.Viewport()
	}
	if !e.viewport.Valid() {
		return nil, fmt.Errorf("engine: invalid viewport %dx%d", e.viewport.Width, e.viewport.Height)
	}

	controllerOpts := []input.ControllerOption{
		input.WithCamera(e.camera),
		input.WithAccumulator(e.accumulator),
		input.WithViewport(e.viewport),
		input.WithResizeHandler(e.resize),
		input.WithCloseHandler(e.Quit),
	}
	e.controller = input.NewController(append(controllerOpts, e.inputOpts...)...)

	e.reloader = hotreload.NewReloader(e.handshake, e.gpu,
		hotreload.WithAccumulator(e.accumulator),
		hotreload.WithResultHandler(func(ok bool, _ time.Duration) {
			e.telemetry.RecordReload(ok)
		}),
	)

	if len(e.watchFiles) > 0 {
		e.watcher = hotreload.NewWatcher(e.handshake, e.watchFiles, e.watchOpts...)
	}
	if e.window != nil {
		e.window.SetEventQueue(e.events)
	}

	start := time.Now()
	if err := e.gpu.Reload(); err != nil {
		return nil, fmt.Errorf("engine: initial shader load: %w", err)
	}
	logger.Noticef("shader loaded in %d ms", time.Since(start).Milliseconds())

	return e, nil
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Camera() camera.Camera {
	return e.camera
}

func (e *engine) Accumulator() accumulation.Accumulator {
	return e.accumulator
}

func (e *engine) Telemetry() *telemetry.Telemetry {
	return e.telemetry
}

func (e *engine) Events() input.Queue {
	return e.events
}

func (e *engine) Controller() input.Controller {
	return e.controller
}

func (e *engine) Handshake() *hotreload.Handshake {
	return e.handshake
}

func (e *engine) Viewport() common.Viewport {
	return e.viewport
}

// resize reallocates the GPU image. On failure the old image and viewport stay in use and the
// controller keeps its size, so a later event for the same size retries.
func (e *engine) resize(vp common.Viewport) error {
	if err := e.gpu.Resize(vp); err != nil {
		return err
	}
	e.viewport = vp
	logger.Debugf("viewport resized to %dx%d", vp.Width, vp.Height)
	return nil
}

func (e *engine) Frame(dt time.Duration) {
	e.events.Drain(e.controller.Handle)

	// a failed reload has already been logged and the previous program stays bound
	_, _ = e.reloader.Poll()

	e.controller.Step()

	params := e.camera.KernelParams(e.viewport.Aspect(), e.accumulator.ExposureTime(), e.accumulator.Count())
	e.gpu.WriteParams(&params)

	if e.accumulator.Converged() {
		if !e.converged {
			e.converged = true
			logger.Noticef("image converged at %d samples per pixel", e.accumulator.Count())
		}
	} else {
		e.converged = false
		e.gpu.ZeroRayCounter()
		if err := e.gpu.Dispatch(dispatch.Grid(e.viewport, e.gpu.WorkgroupSize())); err != nil {
			logger.Debugf("dispatch: %v", err)
		}
	}
	if err := e.gpu.Composite(); err != nil {
		logger.Debugf("composite: %v", err)
	}

	e.accumulator.Tick()
	e.telemetry.Frame(dt, e.accumulator.Count())
}

func (e *engine) SetRenderFrameLimit(fps float64) {
	e.renderFrameLimit = frameBudget(fps)
}

// frameBudget converts a frame rate cap to a minimum frame duration.
func frameBudget(fps float64) time.Duration {
	if fps <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / fps)
}

func (e *engine) Run() error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return errors.New("engine: already running")
	}
	e.running = true
	e.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	e.wg.Add(2)
	go e.handleRender()
	go e.handleWatcher(ctx)

	if e.window != nil {
		e.window.ProcessMessages()
		e.signalQuit()
	} else {
		<-e.quitChannel
	}

	e.handshake.RequestExit()
	cancel()
	e.wg.Wait()

	e.writeSummary()
	return e.watchErr
}

// Quit signals all engine goroutines to stop and shuts down the engine.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel and asks the window to close.
// Uses sync.Once to ensure the channel is only closed once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
		e.handshake.RequestExit()
		if e.window != nil {
			e.window.RequestClose()
		}
	})
}

// handleRender runs the uncapped (or frame-limited) render loop in its own goroutine,
// pinned to its OS thread.
// Recovers from panics to avoid crashing the process and signals quit on recovery.
func (e *engine) handleRender() {
	defer e.wg.Done()
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	// Recover from panics inside the render goroutine to avoid crashing the whole process.
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("render goroutine recovered from panic: %v", r)
			e.signalQuit()
		}
	}()

	lastRender := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		default:
			frameStart := time.Now()
			dt := frameStart.Sub(lastRender)
			lastRender = frameStart

			e.Frame(dt)

			if e.frameCallback != nil {
				e.frameCallback(dt)
			}

			// Frame rate limiting
			if e.renderFrameLimit > 0 {
				elapsed := time.Since(frameStart)
				if remaining := e.renderFrameLimit - elapsed; remaining > 0 {
					time.Sleep(remaining)
				}
			}
		}
	}
}

// handleWatcher runs the shader watcher until exit or cancellation.
func (e *engine) handleWatcher(ctx context.Context) {
	defer e.wg.Done()
	if e.watcher == nil {
		return
	}
	err := e.watcher.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Errorf("shader watcher stopped: %v", err)
		e.watchErr = err
	}
}

// writeSummary prints the session telemetry and graphics error tables.
func (e *engine) writeSummary() {
	if e.summary == nil {
		return
	}
	if dropped := e.events.Dropped(); dropped > 0 {
		logger.Warningf("%d input events dropped", dropped)
	}
	e.telemetry.WriteSummary(e.summary)
	if d, ok := e.gpu.(diagnosticsSource); ok {
		d.Diagnostics().WriteSummary(e.summary)
	}
}
