package input

import (
	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/Carmen-Shannon/oxy-trace/engine/accumulation"
	"github.com/Carmen-Shannon/oxy-trace/engine/camera"
	"github.com/Carmen-Shannon/oxy-trace/log"
)

var logger = log.New("input")

// Default control constants.
const (
	DefaultRotateStep      float32 = 0.003
	DefaultDragSensitivity float32 = 0.003
	DefaultScrollStep      float32 = 0.01
	DefaultSpinStep        float32 = 0.001
)

// dragMode is the button combination driving the current drag.
type dragMode int

const (
	dragNone dragMode = iota
	dragOrbit
	dragPan
	dragBoth
)

func modeOf(b Buttons) dragMode {
	left, right := b.Held(ButtonLeft), b.Held(ButtonRight)
	switch {
	case left && right:
		return dragBoth
	case left:
		return dragOrbit
	case right:
		return dragPan
	}
	return dragNone
}

// controllerImpl is the single implementation of Controller.
// It is driven from the render goroutine only and holds no lock.
type controllerImpl struct {
	camera      camera.Camera
	accumulator accumulation.Accumulator
	viewport    common.Viewport
	onResize    func(common.Viewport) error
	onClose     func()

	rotateStep      float32
	dragSensitivity float32
	scrollStep      float32
	spinStep        float32
	snapLookAt      bool

	spinning  bool
	lastX     float64
	lastY     float64
	lastRight bool
	lastMode  dragMode
}

var _ Controller = &controllerImpl{}

// NewController creates a Controller. It panics if no camera or accumulator is supplied.
//
// Parameters:
//   - options: functional options carrying the collaborators and control constants
//
// Returns:
//   - Controller: the new controller
func NewController(options ...ControllerOption) Controller {
	c := &controllerImpl{
		rotateStep:      DefaultRotateStep,
		dragSensitivity: DefaultDragSensitivity,
		scrollStep:      DefaultScrollStep,
		spinStep:        DefaultSpinStep,
		snapLookAt:      true,
	}
	for _, opt := range options {
		opt(c)
	}
	if c.camera == nil {
		panic("input: NewController requires a camera")
	}
	if c.accumulator == nil {
		panic("input: NewController requires an accumulator")
	}
	return c
}

func (c *controllerImpl) Handle(ev Event) {
	switch ev.Kind {
	case EventKey:
		c.handleKey(ev)
	case EventCursor:
		c.handleCursor(ev)
	case EventScroll:
		c.handleScroll(ev)
	case EventResize:
		c.handleResize(ev)
	default:
		logger.Debugf("ignoring event of kind %v", ev.Kind)
	}
}

func (c *controllerImpl) Step() bool {
	if !c.spinning {
		return false
	}
	c.camera.RotateEyeY(c.spinStep)
	c.accumulator.Invalidate()
	return true
}

func (c *controllerImpl) Spinning() bool {
	return c.spinning
}

func (c *controllerImpl) SetSpinning(spinning bool) {
	c.spinning = spinning
}

func (c *controllerImpl) Viewport() common.Viewport {
	return c.viewport
}

func (c *controllerImpl) handleKey(ev Event) {
	if ev.Action == ActionRelease {
		return
	}

	switch ev.Key {
	case common.KeyEsc:
		if c.onClose != nil {
			c.onClose()
		}
		return
	case common.KeyLeft:
		c.camera.RotateEyeY(-c.rotateStep)
	case common.KeyRight:
		c.camera.RotateEyeY(c.rotateStep)
	case common.KeyUp:
		c.camera.RotateEyeX(-c.rotateStep)
	case common.KeyDown:
		c.camera.RotateEyeX(c.rotateStep)
	case common.KeyR:
		c.spinning = !c.spinning
		logger.Debugf("spinning=%t", c.spinning)
		return
	default:
		return
	}

	c.spinning = false
	c.accumulator.Invalidate()
}

func (c *controllerImpl) handleCursor(ev Event) {
	right := ev.Buttons.Held(ButtonRight)
	if c.snapLookAt && right != c.lastRight {
		c.camera.ResetLookAt()
		c.accumulator.Invalidate()
	}

	mode := modeOf(ev.Buttons)
	if mode == dragNone || mode == dragBoth || mode != c.lastMode {
		c.rebaseline(ev, mode)
		return
	}

	c.spinning = false

	// pixel deltas are truncated toward zero before scaling
	dx := float32(int(c.lastX - ev.X))
	dy := float32(int(c.lastY - ev.Y))
	ax, ay := c.dragSensitivity*dx, c.dragSensitivity*dy

	if mode == dragPan {
		c.camera.Pan(ax, ay)
	} else {
		c.camera.Orbit(ax, ay)
	}

	c.rebaseline(ev, mode)
	c.accumulator.Invalidate()
}

func (c *controllerImpl) rebaseline(ev Event, mode dragMode) {
	c.lastX = ev.X
	c.lastY = ev.Y
	c.lastRight = ev.Buttons.Held(ButtonRight)
	c.lastMode = mode
}

func (c *controllerImpl) handleScroll(ev Event) {
	if ev.Ctrl {
		c.camera.AddFov(float32(ev.ScrollY) * c.scrollStep)
	} else {
		c.camera.Dolly(float32(ev.ScrollY) * c.scrollStep)
	}
	c.accumulator.Invalidate()
}

func (c *controllerImpl) handleResize(ev Event) {
	next := common.Viewport{Width: ev.Width, Height: ev.Height}
	if next == c.viewport {
		return
	}
	if !next.Valid() {
		// minimized windows report a zero framebuffer; keep the last usable size
		logger.Debugf("ignoring resize to %dx%d", ev.Width, ev.Height)
		return
	}
	if c.onResize != nil {
		if err := c.onResize(next); err != nil {
			logger.Warningf("resize to %dx%d failed, keeping %dx%d: %v",
				next.Width, next.Height, c.viewport.Width, c.viewport.Height, err)
			return
		}
	}
	c.viewport = next
	c.accumulator.Invalidate()
}
