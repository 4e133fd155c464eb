package input

import (
	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/Carmen-Shannon/oxy-trace/engine/accumulation"
	"github.com/Carmen-Shannon/oxy-trace/engine/camera"
)

// ControllerOption is a functional option for configuring a Controller.
type ControllerOption func(*controllerImpl)

// WithCamera sets the camera the controller mutates. Required.
//
// Parameters:
//   - cam: the camera
//
// Returns:
//   - ControllerOption: functional option to set the camera
func WithCamera(cam camera.Camera) ControllerOption {
	return func(c *controllerImpl) {
		c.camera = cam
	}
}

// WithAccumulator sets the accumulator invalidated by image-changing events. Required.
//
// Parameters:
//   - acc: the accumulator
//
// Returns:
//   - ControllerOption: functional option to set the accumulator
func WithAccumulator(acc accumulation.Accumulator) ControllerOption {
	return func(c *controllerImpl) {
		c.accumulator = acc
	}
}

// WithViewport sets the starting framebuffer size.
//
// Parameters:
//   - viewport: the initial viewport
//
// Returns:
//   - ControllerOption: functional option to set the viewport
func WithViewport(viewport common.Viewport) ControllerOption {
	return func(c *controllerImpl) {
		c.viewport = viewport
	}
}

// WithResizeHandler sets the callback invoked when the viewport actually changes size.
// The handler reallocates size-dependent GPU resources. The controller adopts the new size
// and invalidates accumulation only when the handler returns nil.
//
// Parameters:
//   - fn: the resize callback
//
// Returns:
//   - ControllerOption: functional option to set the resize handler
func WithResizeHandler(fn func(common.Viewport) error) ControllerOption {
	return func(c *controllerImpl) {
		c.onResize = fn
	}
}

// WithCloseHandler sets the callback invoked when the close key is pressed.
//
// Parameters:
//   - fn: the close callback
//
// Returns:
//   - ControllerOption: functional option to set the close handler
func WithCloseHandler(fn func()) ControllerOption {
	return func(c *controllerImpl) {
		c.onClose = fn
	}
}

// WithRotateStep sets the eye rotation applied per arrow key event, in radians.
//
// Parameters:
//   - step: radians per key event
//
// Returns:
//   - ControllerOption: functional option to set the key rotation step
func WithRotateStep(step float32) ControllerOption {
	return func(c *controllerImpl) {
		c.rotateStep = step
	}
}

// WithDragSensitivity sets the radians applied per pixel of drag.
//
// Parameters:
//   - sensitivity: radians per pixel
//
// Returns:
//   - ControllerOption: functional option to set the drag sensitivity
func WithDragSensitivity(sensitivity float32) ControllerOption {
	return func(c *controllerImpl) {
		c.dragSensitivity = sensitivity
	}
}

// WithScrollStep sets the dolly and field of view change per scroll unit.
//
// Parameters:
//   - step: relative change per scroll unit
//
// Returns:
//   - ControllerOption: functional option to set the scroll step
func WithScrollStep(step float32) ControllerOption {
	return func(c *controllerImpl) {
		c.scrollStep = step
	}
}

// WithSpinStep sets the auto-rotation applied per frame, in radians about Y.
//
// Parameters:
//   - step: radians per frame
//
// Returns:
//   - ControllerOption: functional option to set the spin step
func WithSpinStep(step float32) ControllerOption {
	return func(c *controllerImpl) {
		c.spinStep = step
	}
}

// WithSnapLookAt controls whether a change in the right button state restores the default look-at.
//
// Parameters:
//   - snap: true to snap the look-at back
//
// Returns:
//   - ControllerOption: functional option to set look-at snapping
func WithSnapLookAt(snap bool) ControllerOption {
	return func(c *controllerImpl) {
		c.snapLookAt = snap
	}
}

// WithSpinning sets the initial auto-rotation flag.
//
// Parameters:
//   - spinning: true to start rotating
//
// Returns:
//   - ControllerOption: functional option to set the spin flag
func WithSpinning(spinning bool) ControllerOption {
	return func(c *controllerImpl) {
		c.spinning = spinning
	}
}
