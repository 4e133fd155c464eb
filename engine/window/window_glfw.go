package window

import (
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-trace/engine/input"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// pollTimeout bounds how long poll blocks waiting for platform events, in seconds.
const pollTimeout = 0.01

// glfwHandle is the GLFW side of an engineWindow. Every method except stop must be called
// from the main thread.
type glfwHandle struct {
	owner   *engineWindow
	win     *glfw.Window
	running atomic.Bool
}

// openGLFW initializes GLFW without a client API and opens the window with its callbacks
// installed. The owner's size is replaced by the actual framebuffer size.
func openGLFW(owner *engineWindow) (*glfwHandle, error) {
	runtime.LockOSThread()

	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize GLFW: %v", err)
	}
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)

	win, err := glfw.CreateWindow(owner.width, owner.height, owner.title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("failed to create GLFW window: %v", err)
	}
	win.SetSizeLimits(MinSize, MinSize, glfw.DontCare, glfw.DontCare)

	h := &glfwHandle{owner: owner, win: win}
	h.running.Store(true)

	win.SetKeyCallback(h.onKey)
	win.SetScrollCallback(h.onScroll)
	win.SetCursorPosCallback(h.onCursor)
	win.SetFramebufferSizeCallback(h.onFramebufferSize)

	owner.setFramebuffer(win.GetFramebufferSize())
	return h, nil
}

func (h *glfwHandle) onKey(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
	h.owner.push(input.KeyEvent(int(key), keyAction(action)))
}

func (h *glfwHandle) onScroll(_ *glfw.Window, _, yoff float64) {
	h.owner.push(input.ScrollEvent(yoff, h.pressed(glfw.KeyLeftControl) || h.pressed(glfw.KeyRightControl)))
}

func (h *glfwHandle) onCursor(_ *glfw.Window, x, y float64) {
	var buttons input.Buttons
	if h.win.GetMouseButton(glfw.MouseButtonLeft) == glfw.Press {
		buttons |= input.ButtonLeft
	}
	if h.win.GetMouseButton(glfw.MouseButtonRight) == glfw.Press {
		buttons |= input.ButtonRight
	}
	h.owner.push(input.CursorEvent(x, y, buttons))
}

// onFramebufferSize reports pixel sizes, which differ from window sizes on high-DPI displays.
func (h *glfwHandle) onFramebufferSize(_ *glfw.Window, width, height int) {
	h.owner.setFramebuffer(width, height)
	h.owner.push(input.ResizeEvent(width, height))
}

func (h *glfwHandle) pressed(key glfw.Key) bool {
	return h.win.GetKey(key) == glfw.Press
}

// poll dispatches pending events and reports whether the window should stay open.
func (h *glfwHandle) poll() bool {
	glfw.WaitEventsTimeout(pollTimeout)
	return h.running.Load() && !h.win.ShouldClose()
}

// stop clears the running flag and wakes a blocked poll. Safe from any goroutine.
func (h *glfwHandle) stop() {
	if h.running.CompareAndSwap(true, false) {
		glfw.PostEmptyEvent()
	}
}

func (h *glfwHandle) surfaceDescriptor() *wgpu.SurfaceDescriptor {
	return wgpuglfw.GetSurfaceDescriptor(h.win)
}

func (h *glfwHandle) destroy() {
	h.running.Store(false)
	h.win.Destroy()
	glfw.Terminate()
}

// keyAction maps a GLFW key action onto an input.Action.
func keyAction(action glfw.Action) input.Action {
	switch action {
	case glfw.Press:
		return input.ActionPress
	case glfw.Repeat:
		return input.ActionRepeat
	default:
		return input.ActionRelease
	}
}
