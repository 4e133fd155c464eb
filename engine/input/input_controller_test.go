package input

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/Carmen-Shannon/oxy-trace/engine/accumulation"
	"github.com/Carmen-Shannon/oxy-trace/engine/camera"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	cam     camera.Camera
	acc     accumulation.Accumulator
	ctrl    Controller
	resized   []common.Viewport
	resizeErr error
	closed    int
}

func newFixture(t *testing.T, options ...ControllerOption) *fixture {
	t.Helper()
	f := &fixture{
		cam: camera.NewCamera(),
		acc: accumulation.NewAccumulator(),
	}
	opts := append([]ControllerOption{
		WithCamera(f.cam),
		WithAccumulator(f.acc),
		WithViewport(common.Viewport{Width: 400, Height: 300}),
		WithResizeHandler(func(v common.Viewport) error {
			if f.resizeErr != nil {
				return f.resizeErr
			}
			f.resized = append(f.resized, v)
			return nil
		}),
		WithCloseHandler(func() { f.closed++ }),
	}, options...)
	f.ctrl = NewController(opts...)
	return f
}

// warm renders a few frames so an invalidation is observable.
func (f *fixture) warm(n int) {
	for range n {
		f.acc.Tick()
	}
}

func TestNewControllerRequiresCollaborators(t *testing.T) {
	assert.Panics(t, func() { NewController(WithAccumulator(accumulation.NewAccumulator())) })
	assert.Panics(t, func() { NewController(WithCamera(camera.NewCamera())) })
}

func TestCtrlScrollAdjustsFovAndInvalidates(t *testing.T) {
	f := newFixture(t)
	fov := f.cam.Fov()

	f.warm(10)
	f.ctrl.Handle(ScrollEvent(1, true))
	assert.InDelta(t, fov+0.01, f.cam.Fov(), 1e-6)
	assert.Equal(t, uint32(0), f.acc.Count())

	f.warm(3)
	f.ctrl.Handle(ScrollEvent(1, true))
	assert.InDelta(t, fov+0.02, f.cam.Fov(), 1e-6)
	assert.Equal(t, uint32(0), f.acc.Count())
	assert.Equal(t, uint64(2), f.acc.Invalidations())

	f.acc.Tick()
	assert.Equal(t, uint32(1), f.acc.Count())
}

func TestScrollDollies(t *testing.T) {
	f := newFixture(t)
	f.warm(5)
	f.ctrl.Handle(ScrollEvent(2, false))
	assert.True(t, f.cam.Eye().ApproxEqualThreshold(mgl32.Vec3{4.08, 5.1, 5.1}, 1e-5))
	assert.Equal(t, uint32(0), f.acc.Count())
}

func TestKeyReleaseIgnored(t *testing.T) {
	f := newFixture(t)
	eye := f.cam.Eye()
	f.warm(5)

	f.ctrl.Handle(KeyEvent(common.KeyLeft, ActionRelease))
	f.ctrl.Handle(KeyEvent(common.KeyEsc, ActionRelease))
	assert.Equal(t, eye, f.cam.Eye())
	assert.Equal(t, uint32(5), f.acc.Count())
	assert.Zero(t, f.closed)
}

func TestArrowKeysRotateAndStopSpin(t *testing.T) {
	f := newFixture(t, WithSpinning(true))
	eye := f.cam.Eye()

	f.warm(5)
	f.ctrl.Handle(KeyEvent(common.KeyLeft, ActionPress))
	assert.False(t, f.ctrl.Spinning())
	assert.Equal(t, uint32(0), f.acc.Count())
	assert.InDelta(t, eye.Len(), f.cam.Eye().Len(), 1e-4)
	assert.InDelta(t, eye.Y(), f.cam.Eye().Y(), 1e-5)

	for _, key := range []int{common.KeyRight, common.KeyUp, common.KeyDown} {
		f.warm(2)
		f.ctrl.Handle(KeyEvent(key, ActionRepeat))
		assert.Equal(t, uint32(0), f.acc.Count())
	}
}

func TestSpinToggleDoesNotInvalidate(t *testing.T) {
	f := newFixture(t)
	f.warm(4)

	f.ctrl.Handle(KeyEvent(common.KeyR, ActionPress))
	assert.True(t, f.ctrl.Spinning())
	assert.Equal(t, uint32(4), f.acc.Count())

	eye := f.cam.Eye()
	assert.True(t, f.ctrl.Step())
	assert.Equal(t, uint32(0), f.acc.Count())
	assert.NotEqual(t, eye, f.cam.Eye())

	f.ctrl.Handle(KeyEvent(common.KeyR, ActionPress))
	assert.False(t, f.ctrl.Step())
}

func TestUnboundKeyIsNoop(t *testing.T) {
	f := newFixture(t)
	f.warm(2)
	f.ctrl.Handle(KeyEvent(' ', ActionPress))
	assert.Equal(t, uint32(2), f.acc.Count())
}

func TestEscapeRequestsClose(t *testing.T) {
	f := newFixture(t)
	f.ctrl.Handle(KeyEvent(common.KeyEsc, ActionPress))
	assert.Equal(t, 1, f.closed)
}

func TestLeftDragOrbits(t *testing.T) {
	f := newFixture(t, WithSpinning(true))
	eye := f.cam.Eye()

	// first sample with the button down only establishes the baseline
	f.ctrl.Handle(CursorEvent(100, 100, ButtonLeft))
	assert.Equal(t, eye, f.cam.Eye())

	f.warm(5)
	f.ctrl.Handle(CursorEvent(90, 100, ButtonLeft))
	assert.False(t, f.ctrl.Spinning())
	assert.Equal(t, uint32(0), f.acc.Count())

	want := camera.NewCamera()
	want.Orbit(0.003*10, 0)
	assert.True(t, want.Eye().ApproxEqualThreshold(f.cam.Eye(), 1e-5))
}

func TestDragSwitchRebaselines(t *testing.T) {
	f := newFixture(t)

	f.ctrl.Handle(CursorEvent(100, 100, ButtonLeft))
	f.ctrl.Handle(CursorEvent(110, 100, ButtonLeft))
	eye := f.cam.Eye()
	lookAt := f.cam.LookAt()

	// far jump while switching buttons must not rotate anything
	f.ctrl.Handle(CursorEvent(600, 500, ButtonRight))
	assert.Equal(t, eye, f.cam.Eye())
	assert.True(t, lookAt.ApproxEqual(f.cam.LookAt()))

	f.ctrl.Handle(CursorEvent(600, 500, ButtonRight))
	assert.True(t, lookAt.ApproxEqualThreshold(f.cam.LookAt(), 1e-5))

	f.ctrl.Handle(CursorEvent(590, 500, ButtonRight))
	assert.Equal(t, eye, f.cam.Eye())
	assert.False(t, lookAt.ApproxEqual(f.cam.LookAt()))
}

func TestNoButtonOrBothButtonsOnlyRebaseline(t *testing.T) {
	f := newFixture(t, WithSnapLookAt(false))
	eye := f.cam.Eye()
	f.warm(3)

	f.ctrl.Handle(CursorEvent(0, 0, 0))
	f.ctrl.Handle(CursorEvent(300, 300, 0))
	f.ctrl.Handle(CursorEvent(10, 10, ButtonLeft|ButtonRight))
	f.ctrl.Handle(CursorEvent(200, 40, ButtonLeft|ButtonRight))

	assert.Equal(t, eye, f.cam.Eye())
	assert.Equal(t, uint32(3), f.acc.Count())
}

func TestRightButtonSnapsLookAtBack(t *testing.T) {
	f := newFixture(t)
	def := f.cam.LookAt()

	f.ctrl.Handle(CursorEvent(100, 100, ButtonRight))
	f.ctrl.Handle(CursorEvent(80, 90, ButtonRight))
	require.False(t, def.ApproxEqual(f.cam.LookAt()))

	f.warm(4)
	f.ctrl.Handle(CursorEvent(80, 90, 0))
	assert.Equal(t, def, f.cam.LookAt())
	assert.Equal(t, uint32(0), f.acc.Count())
}

func TestSnapLookAtDisabled(t *testing.T) {
	f := newFixture(t, WithSnapLookAt(false))

	f.ctrl.Handle(CursorEvent(100, 100, ButtonRight))
	f.ctrl.Handle(CursorEvent(80, 90, ButtonRight))
	panned := f.cam.LookAt()

	f.ctrl.Handle(CursorEvent(80, 90, 0))
	assert.Equal(t, panned, f.cam.LookAt())
}

func TestResize(t *testing.T) {
	f := newFixture(t)
	f.warm(7)

	f.ctrl.Handle(ResizeEvent(400, 300))
	assert.Empty(t, f.resized)
	assert.Equal(t, uint32(7), f.acc.Count())

	f.ctrl.Handle(ResizeEvent(800, 600))
	require.Len(t, f.resized, 1)
	assert.Equal(t, common.Viewport{Width: 800, Height: 600}, f.resized[0])
	assert.Equal(t, common.Viewport{Width: 800, Height: 600}, f.ctrl.Viewport())
	assert.Equal(t, uint32(0), f.acc.Count())

	f.ctrl.Handle(ResizeEvent(0, 0))
	assert.Len(t, f.resized, 1)
	assert.Equal(t, common.Viewport{Width: 800, Height: 600}, f.ctrl.Viewport())
}

func TestFailedResizeKeepsSizeAndRetries(t *testing.T) {
	f := newFixture(t)
	f.warm(4)
	f.resizeErr = errors.New("out of memory")

	f.ctrl.Handle(ResizeEvent(800, 600))
	assert.Empty(t, f.resized)
	assert.Equal(t, common.Viewport{Width: 400, Height: 300}, f.ctrl.Viewport())
	assert.Equal(t, uint32(4), f.acc.Count(), "a failed resize keeps the image")

	f.resizeErr = nil
	f.ctrl.Handle(ResizeEvent(800, 600))
	assert.Equal(t, []common.Viewport{{Width: 800, Height: 600}}, f.resized)
	assert.Equal(t, common.Viewport{Width: 800, Height: 600}, f.ctrl.Viewport())
	assert.Equal(t, uint32(0), f.acc.Count())
}

func TestQueue(t *testing.T) {
	q := NewQueue(2)
	assert.True(t, q.Push(KeyEvent(common.KeyR, ActionPress)))
	assert.True(t, q.Push(ScrollEvent(1, false)))
	assert.False(t, q.Push(ResizeEvent(1, 1)))
	assert.Equal(t, uint64(1), q.Dropped())

	var kinds []EventKind
	n := q.Drain(func(ev Event) { kinds = append(kinds, ev.Kind) })
	assert.Equal(t, 2, n)
	assert.Equal(t, []EventKind{EventKey, EventScroll}, kinds)
	assert.Zero(t, q.Drain(func(Event) { t.Fatal("queue should be empty") }))
}

func TestQueueDefaultCapacity(t *testing.T) {
	q := NewQueue(0)
	for range DefaultQueueCapacity {
		require.True(t, q.Push(CursorEvent(0, 0, 0)))
	}
	assert.False(t, q.Push(CursorEvent(0, 0, 0)))
}
