package engine

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/Carmen-Shannon/oxy-trace/engine/accumulation"
	"github.com/Carmen-Shannon/oxy-trace/engine/camera"
	"github.com/Carmen-Shannon/oxy-trace/engine/dispatch"
	"github.com/Carmen-Shannon/oxy-trace/engine/hotreload"
	"github.com/Carmen-Shannon/oxy-trace/engine/input"
	"github.com/Carmen-Shannon/oxy-trace/engine/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGPU records what the frame loop asks of it.
type fakeGPU struct {
	reloads    int
	reloadErr  error
	program    int
	resized    []common.Viewport
	resizeErr  error
	params     []camera.KernelParams
	zeroed     int
	grids      [][3]uint32
	composites int
	workgroup  [3]uint32
	rays       uint32
	raysReady  bool
}

var _ GPU = &fakeGPU{}

func (f *fakeGPU) Reload() error {
	f.reloads++
	if f.reloadErr != nil {
		return f.reloadErr
	}
	f.program++
	return nil
}

func (f *fakeGPU) ReadRayCount() (uint32, bool) {
	return f.rays, f.raysReady
}

func (f *fakeGPU) Resize(vp common.Viewport) error {
	if f.resizeErr != nil {
		return f.resizeErr
	}
	f.resized = append(f.resized, vp)
	return nil
}

func (f *fakeGPU) WorkgroupSize() [3]uint32 {
	return f.workgroup
}

func (f *fakeGPU) WriteParams(params *camera.KernelParams) {
	f.params = append(f.params, *params)
}

func (f *fakeGPU) ZeroRayCounter() {
	f.zeroed++
}

func (f *fakeGPU) Dispatch(grid [3]uint32) error {
	f.grids = append(f.grids, grid)
	return nil
}

func (f *fakeGPU) Composite() error {
	f.composites++
	return nil
}

func (f *fakeGPU) lastFrameCount() int32 {
	return f.params[len(f.params)-1].FrameCount
}

func newTestEngine(t *testing.T, options ...EngineBuilderOption) (*engine, *fakeGPU) {
	t.Helper()
	gpu := &fakeGPU{workgroup: [3]uint32{8, 8, 1}}
	opts := append([]EngineBuilderOption{
		WithGPU(gpu),
		WithViewport(common.Viewport{Width: 400, Height: 300}),
		WithTelemetry(telemetry.NewTelemetry(telemetry.WithMemStats(false))),
		WithSummaryWriter(nil),
	}, options...)

	e, err := NewEngine(opts...)
	require.NoError(t, err)
	return e.(*engine), gpu
}

func TestNewEngineRequiresGPU(t *testing.T) {
	_, err := NewEngine(WithViewport(common.Viewport{Width: 4, Height: 4}))
	assert.ErrorIs(t, err, ErrNoGPU)
}

func TestNewEngineFailsOnInitialLoad(t *testing.T) {
	readErr := errors.New("shader: read failed")
	gpu := &fakeGPU{reloadErr: readErr}

	_, err := NewEngine(WithGPU(gpu), WithViewport(common.Viewport{Width: 4, Height: 4}))
	assert.ErrorIs(t, err, readErr)
	assert.Equal(t, 1, gpu.reloads)
}

func TestNewEngineRejectsInvalidViewport(t *testing.T) {
	_, err := NewEngine(WithGPU(&fakeGPU{}))
	assert.Error(t, err)
}

func TestFrameSequence(t *testing.T) {
	e, gpu := newTestEngine(t)
	assert.Equal(t, 1, gpu.reloads)

	e.Frame(time.Millisecond)

	require.Len(t, gpu.params, 1)
	assert.Equal(t, int32(0), gpu.lastFrameCount())
	assert.Equal(t, float32(0), gpu.params[0].GlobalTime)
	assert.Equal(t, 1, gpu.zeroed)
	assert.Equal(t, 1, gpu.composites)

	vp := common.Viewport{Width: 400, Height: 300}
	require.Len(t, gpu.grids, 1)
	assert.Equal(t, dispatch.Grid(vp, gpu.workgroup), gpu.grids[0])
	assert.True(t, dispatch.Covers(gpu.grids[0], gpu.workgroup, vp))

	want := e.camera.KernelParams(vp.Aspect(), 0, 0)
	assert.Equal(t, want, gpu.params[0])
}

func TestCounterIncrementsOncePerFrame(t *testing.T) {
	e, gpu := newTestEngine(t)

	for i := 0; i < 5; i++ {
		e.Frame(time.Millisecond)
		assert.Equal(t, int32(i), gpu.lastFrameCount())
	}
	assert.Equal(t, uint32(5), e.Accumulator().Count())
	assert.InDelta(t, 0.004, gpu.params[4].GlobalTime, 1e-6)
}

func TestMaxSamplesStopsDispatching(t *testing.T) {
	e, gpu := newTestEngine(t, WithAccumulator(accumulation.NewAccumulator(accumulation.WithMaxSamples(2))))

	for i := 0; i < 6; i++ {
		e.Frame(time.Millisecond)
	}
	assert.True(t, e.Accumulator().Converged())
	assert.Len(t, gpu.grids, 2, "no dispatch once converged")
	assert.Equal(t, 2, gpu.zeroed)
	assert.Equal(t, 6, gpu.composites, "the converged image is still presented")

	// any camera change resumes tracing
	require.True(t, e.Events().Push(input.KeyEvent(common.KeyLeft, input.ActionPress)))
	e.Frame(time.Millisecond)
	assert.Len(t, gpu.grids, 3)
	assert.Equal(t, int32(0), gpu.lastFrameCount())
	assert.False(t, e.Accumulator().Converged())
}

func TestResizeReallocatesAndResetsCounter(t *testing.T) {
	e, gpu := newTestEngine(t)
	for i := 0; i < 3; i++ {
		e.Frame(time.Millisecond)
	}
	require.Equal(t, uint32(3), e.Accumulator().Count())

	require.True(t, e.Events().Push(input.ResizeEvent(800, 600)))
	e.Frame(time.Millisecond)

	assert.Equal(t, []common.Viewport{{Width: 800, Height: 600}}, gpu.resized)
	assert.Equal(t, common.Viewport{Width: 800, Height: 600}, e.Viewport())
	assert.Equal(t, int32(0), gpu.lastFrameCount())
	assert.Equal(t, dispatch.Grid(common.Viewport{Width: 800, Height: 600}, gpu.workgroup), gpu.grids[len(gpu.grids)-1])

	e.Frame(time.Millisecond)
	assert.Equal(t, int32(1), gpu.lastFrameCount())
}

func TestFailedResizeKeepsViewport(t *testing.T) {
	e, gpu := newTestEngine(t)
	gpu.resizeErr = errors.New("renderer: accumulation buffer exceeds device limit")

	e.Events().Push(input.ResizeEvent(100000, 100000))
	e.Frame(time.Millisecond)

	assert.Equal(t, common.Viewport{Width: 400, Height: 300}, e.Viewport())
	assert.Equal(t, common.Viewport{Width: 400, Height: 300}, e.Controller().Viewport())
	assert.Equal(t, dispatch.Grid(common.Viewport{Width: 400, Height: 300}, gpu.workgroup), gpu.grids[0])

	// the same size is retried once the device can take it
	gpu.resizeErr = nil
	e.Events().Push(input.ResizeEvent(800, 600))
	e.Frame(time.Millisecond)
	gpu.resizeErr = errors.New("renderer: surface lost")
	e.Events().Push(input.ResizeEvent(1024, 768))
	e.Frame(time.Millisecond)
	gpu.resizeErr = nil
	e.Events().Push(input.ResizeEvent(1024, 768))
	e.Frame(time.Millisecond)

	assert.Equal(t, []common.Viewport{{Width: 800, Height: 600}, {Width: 1024, Height: 768}}, gpu.resized)
	assert.Equal(t, common.Viewport{Width: 1024, Height: 768}, e.Viewport())
	assert.Equal(t, e.Viewport(), e.Controller().Viewport())
}

func TestCtrlScrollWidensFovAndResets(t *testing.T) {
	cam := camera.NewCamera(camera.WithFov(1.0))
	e, gpu := newTestEngine(t, WithCamera(cam))
	e.Frame(time.Millisecond)
	e.Frame(time.Millisecond)

	e.Events().Push(input.ScrollEvent(1, true))
	e.Frame(time.Millisecond)
	assert.Equal(t, int32(0), gpu.lastFrameCount())

	e.Frame(time.Millisecond)
	e.Events().Push(input.ScrollEvent(1, true))
	e.Frame(time.Millisecond)
	assert.Equal(t, int32(0), gpu.lastFrameCount())
	assert.InDelta(t, 1.02, cam.Fov(), 1e-5)
}

func TestSpinInvalidatesEveryFrame(t *testing.T) {
	e, gpu := newTestEngine(t, WithInputOptions(input.WithSpinning(true)))

	for i := 0; i < 3; i++ {
		e.Frame(time.Millisecond)
		assert.Equal(t, int32(0), gpu.lastFrameCount())
	}

	e.Events().Push(input.KeyEvent(common.KeyR, input.ActionPress))
	e.Frame(time.Millisecond)
	assert.Equal(t, int32(1), gpu.lastFrameCount(), "toggling spin off does not invalidate")
	e.Frame(time.Millisecond)
	assert.Equal(t, int32(2), gpu.lastFrameCount())
}

func TestReloadRequestIsServicedOnce(t *testing.T) {
	acc := accumulation.NewAccumulator()
	e, gpu := newTestEngine(t, WithAccumulator(acc))
	for i := 0; i < 4; i++ {
		e.Frame(time.Millisecond)
	}

	e.Handshake().RequestLoad()
	e.Frame(time.Millisecond)

	assert.Equal(t, 2, gpu.reloads)
	assert.False(t, e.Handshake().LoadRequested())
	assert.Equal(t, int32(0), gpu.lastFrameCount(), "a successful reload restarts accumulation")

	e.Frame(time.Millisecond)
	assert.Equal(t, 2, gpu.reloads)

	select {
	case <-e.Handshake().Acked():
	default:
		t.Fatal("reload was not acknowledged")
	}
}

func TestFailedReloadKeepsProgramAndCounter(t *testing.T) {
	e, gpu := newTestEngine(t)
	for i := 0; i < 4; i++ {
		e.Frame(time.Millisecond)
	}

	gpu.reloadErr = errors.New("shader: compile failed")
	e.Handshake().RequestLoad()
	e.Frame(time.Millisecond)

	assert.Equal(t, 2, gpu.reloads)
	assert.Equal(t, 1, gpu.program)
	assert.False(t, e.Handshake().LoadRequested())
	assert.Equal(t, int32(4), gpu.lastFrameCount())
	assert.Equal(t, 5, gpu.composites, "rendering continues with the previous program")

	totals := e.Telemetry().Totals()
	assert.Equal(t, uint64(1), totals.ReloadAttempts)
	assert.Equal(t, uint64(1), totals.ReloadFailures)
}

func TestEscapeQuits(t *testing.T) {
	e, _ := newTestEngine(t)

	e.Events().Push(input.KeyEvent(common.KeyEsc, input.ActionPress))
	e.Frame(time.Millisecond)

	select {
	case <-e.quitChannel:
	default:
		t.Fatal("escape did not signal quit")
	}
	assert.True(t, e.Handshake().ExitRequested())
	e.Quit()
}

func TestRunHeadlessStopsOnQuit(t *testing.T) {
	dir := t.TempDir()
	var files []string
	for _, name := range []string{"compute.wgsl", "vertex.wgsl", "fragment.wgsl"} {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte("// "+name), 0o644))
		files = append(files, p)
	}

	var (
		frames  int
		e       Engine
		summary bytes.Buffer
	)
	e, gpu := newTestEngine(t,
		WithWatcher(files, hotreload.WithPollInterval(5*time.Millisecond), hotreload.WithNotify(false)),
		WithSummaryWriter(&summary),
		WithRenderFrameLimit(1000),
		WithFrameCallback(func(time.Duration) {
			frames++
			if frames == 10 {
				e.Quit()
			}
		}),
	)

	done := make(chan error, 1)
	go func() { done <- e.Run() }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after Quit")
	}

	assert.GreaterOrEqual(t, frames, 10)
	assert.Equal(t, frames, gpu.composites)
	assert.Contains(t, summary.String(), "Frames")
}

func TestFrameBudget(t *testing.T) {
	assert.Zero(t, frameBudget(0))
	assert.Zero(t, frameBudget(-5))
	assert.Equal(t, 10*time.Millisecond, frameBudget(100))
}
