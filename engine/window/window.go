package window

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/Carmen-Shannon/oxy-trace/engine/input"
	"github.com/cogentcore/webgpu/wgpu"
)

// Window owns the platform window. Its callbacks never touch tracer state: they translate
// platform input into input.Event values and push them onto the event queue, which the
// render loop drains once per frame.
type Window interface {
	// SetEventQueue sets the queue that receives every key, cursor, scroll and resize event.
	// A full queue drops the event rather than blocking the message loop.
	//
	// Parameters:
	//   - queue: the destination queue, or nil to discard events
	SetEventQueue(queue input.Queue)

	// SurfaceDescriptor returns the platform surface descriptor for the WebGPU surface.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the descriptor, or nil once the window is closed
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// Viewport returns the current framebuffer size in pixels.
	Viewport() common.Viewport

	// ProcessMessages polls platform events until the window is closed or RequestClose is called.
	// It must run on the main thread.
	ProcessMessages()

	// RequestClose asks ProcessMessages to return. Safe to call from any goroutine.
	RequestClose()

	// Close destroys the platform window.
	//
	// Returns:
	//   - error: error if the window was already closed
	Close() error
}

type engineWindow struct {
	title  string
	width  int
	height int

	// mu guards the framebuffer size, written by the resize callback on the main thread.
	mu     sync.Mutex
	events input.Queue

	handle *glfwHandle
}

var _ Window = &engineWindow{}

// NewWindow opens a window with the given options applied over the defaults.
//
// Parameters:
//   - options: functional options to configure the window
//
// Returns:
//   - Window: the opened window
//   - error: an error if the platform window could not be created
func NewWindow(options ...WindowBuilderOption) (Window, error) {
	w := &engineWindow{
		title:  DefaultTitle,
		width:  DefaultWidth,
		height: DefaultHeight,
	}
	for _, opt := range options {
		opt(w)
	}

	h, err := openGLFW(w)
	if err != nil {
		return nil, fmt.Errorf("failed to create platform window: %w", err)
	}
	w.handle = h
	return w, nil
}

func (w *engineWindow) SetEventQueue(queue input.Queue) {
	w.events = queue
}

func (w *engineWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	if w.handle == nil {
		return nil
	}
	return w.handle.surfaceDescriptor()
}

func (w *engineWindow) Viewport() common.Viewport {
	w.mu.Lock()
	defer w.mu.Unlock()
	return common.Viewport{Width: w.width, Height: w.height}
}

func (w *engineWindow) ProcessMessages() {
	if w.handle == nil {
		return
	}
	for w.handle.poll() {
	}
}

func (w *engineWindow) RequestClose() {
	if w.handle != nil {
		w.handle.stop()
	}
}

func (w *engineWindow) Close() error {
	if w.handle == nil {
		return fmt.Errorf("window is not open")
	}
	w.handle.destroy()
	w.handle = nil
	return nil
}

// setFramebuffer records a new framebuffer size.
func (w *engineWindow) setFramebuffer(width, height int) {
	w.mu.Lock()
	w.width, w.height = width, height
	w.mu.Unlock()
}

// push forwards an event to the queue if one is set.
func (w *engineWindow) push(ev input.Event) {
	if w.events != nil {
		w.events.Push(ev)
	}
}
