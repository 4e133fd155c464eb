package renderer

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/Carmen-Shannon/oxy-trace/engine/camera"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-trace/engine/window"
	"github.com/Carmen-Shannon/oxy-trace/log"
	"github.com/cogentcore/webgpu/wgpu"
)

var logger = log.New("renderer")

// CompositeVertexCount is the number of vertices drawn by the composite pass: two triangles
// covering the viewport.
const CompositeVertexCount = 6

var zeroCounter = make([]byte, bind_group_provider.RayCounterSize)

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	backendType RendererBackendType
	backend     RendererBackend
	diagnostics *Diagnostics

	loader     *shader.Loader
	ownsLoader bool
	paths      shader.StagePaths
	validate   bool

	program        *pipeline.Program
	kernelGroup    bind_group_provider.BindGroupProvider
	compositeGroup bind_group_provider.BindGroupProvider
	paramBindings  map[string]int

	resources *bind_group_provider.Resources
	readback  *rayReadback
	viewport  common.Viewport
	released  bool

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	pendingPresentMode   *PresentMode
}

// Renderer owns the GPU side of the tracer: the output image, the program handle and the
// frame's compute and composite passes. Every method must be called from the render goroutine.
type Renderer interface {
	// Viewport returns the size the output image is allocated for.
	//
	// Returns:
	//   - common.Viewport: the current image size
	Viewport() common.Viewport

	// Resize reconfigures the surface and reallocates the output image and accumulation buffer.
	// It is a no-op when the size is unchanged. The new image is bound and the surface
	// configured before the previous image is released; on any failure the previous image,
	// bind groups and viewport stay in use.
	//
	// Parameters:
	//   - vp: the new framebuffer size
	//
	// Returns:
	//   - error: an error if the surface or image could not be reallocated
	Resize(vp common.Viewport) error

	// LoadProgram builds a complete program from loaded stages and swaps it in. The previous
	// program is released only after the new one is fully built and bound.
	//
	// Parameters:
	//   - stages: the loaded shader stages
	//
	// Returns:
	//   - error: an error wrapping shader.ErrCompile if any GPU build step fails
	LoadProgram(stages *shader.Stages) error

	// Reload reads the stage files again and loads them with LoadProgram.
	//
	// Returns:
	//   - error: the read, compile or bind failure; the previous program stays in use
	Reload() error

	// Program returns the bound program handle, or nil before the first load.
	//
	// Returns:
	//   - *pipeline.Program: the program
	Program() *pipeline.Program

	// StagePaths returns the files Reload reads.
	//
	// Returns:
	//   - shader.StagePaths: the stage file paths
	StagePaths() shader.StagePaths

	// WorkgroupSize returns the bound kernel's workgroup size, or {1,1,1} before the first load.
	//
	// Returns:
	//   - [3]uint32: the workgroup dimensions
	WorkgroupSize() [3]uint32

	// WriteParams uploads the frame's kernel parameters. Parameters the kernel does not
	// declare are skipped.
	//
	// Parameters:
	//   - params: the kernel parameters
	WriteParams(params *camera.KernelParams)

	// ZeroRayCounter resets the kernel's ray counter before the next dispatch.
	ZeroRayCounter()

	// Dispatch runs the kernel over the given grid. When no read is in flight it copies the ray
	// counter to the readback buffer and starts mapping it once the copy is submitted.
	//
	// Parameters:
	//   - grid: the workgroup counts
	//
	// Returns:
	//   - error: ErrNoProgram before the first load, or the recorded GPU error
	Dispatch(grid [3]uint32) error

	// Composite draws the output image to the surface and presents it.
	//
	// Returns:
	//   - error: ErrNoProgram before the first load, or the recorded GPU error
	Composite() error

	// ReadRayCount returns the rays counted by the newest dispatch whose readback completed,
	// without blocking.
	//
	// Returns:
	//   - uint32: the counter value
	//   - bool: false while the readback is not available
	ReadRayCount() (uint32, bool)

	// Diagnostics returns the graphics error collector.
	//
	// Returns:
	//   - *Diagnostics: the collector
	Diagnostics() *Diagnostics

	// AdapterInfo describes the GPU adapter in use.
	//
	// Returns:
	//   - AdapterInfo: the adapter description
	AdapterInfo() AdapterInfo

	// SetPresentMode sets the surface present mode. It takes effect on the next Resize.
	//
	// Parameters:
	//   - mode: the PresentMode to use
	SetPresentMode(mode PresentMode)

	// Release frees the program, every GPU resource and the device.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a Renderer for the window's surface and allocates the output image for
// the window's current size. No program is loaded; call Reload before the first frame.
//
// Parameters:
//   - backendType: the type of rendering backend to use (e.g., WGPU)
//   - win: the window providing the surface descriptor and the initial size
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: the renderer
//   - error: an error if the device or the initial image could not be created
func NewRenderer(backendType RendererBackendType, win window.Window, options ...RendererBuilderOption) (Renderer, error) {
	r := newRenderer(backendType, options...)

	var err error
	switch backendType {
	case BackendTypeWGPU:
		fallthrough
	default:
		r.backend, err = newWGPURendererBackend(win.SurfaceDescriptor(), r.forceFallbackAdapter)
	}
	if err != nil {
		r.closeLoader()
		return nil, err
	}

	if err := r.init(win.Viewport()); err != nil {
		r.Release()
		return nil, err
	}
	return r, nil
}

// newRenderer applies options to a renderer with no backend.
func newRenderer(backendType RendererBackendType, options ...RendererBuilderOption) *renderer {
	r := &renderer{
		mu:          &sync.Mutex{},
		backendType: backendType,
		diagnostics: NewDiagnostics(),
		resources:   bind_group_provider.NewResources(),
		paths:       shader.StagePathsIn(shader.DefaultDir),
		validate:    true,
	}
	// Options first so config flags (e.g. forceFallbackAdapter) are
	// available before the backend requests a GPU adapter.
	for _, opt := range options {
		opt(r)
	}
	if r.loader == nil {
		r.loader = shader.NewLoader(shader.WithLoaderValidation(r.validate))
		r.ownsLoader = true
	}
	return r
}

// init allocates the session resources on a fresh backend.
func (r *renderer) init(vp common.Viewport) error {
	if r.pendingPresentMode != nil {
		r.backend.SetPresentMode(*r.pendingPresentMode)
	}
	if err := r.backend.AllocateCounters(r.resources); err != nil {
		return r.diagnostics.Record("allocate counters", err)
	}
	r.readback = newRayReadback(r.backend, r.resources.Readback, bind_group_provider.RayCounterSize)
	return r.Resize(vp)
}

func (r *renderer) Viewport() common.Viewport {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.viewport
}

func (r *renderer) Resize(vp common.Viewport) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.released {
		return ErrReleased
	}
	if !vp.Valid() {
		return fmt.Errorf("renderer: invalid viewport %dx%d", vp.Width, vp.Height)
	}
	if vp == r.viewport && r.resources.HasImage(vp) {
		return nil
	}

	img, err := r.backend.AllocateImage(vp)
	if err != nil {
		return r.diagnostics.Record("allocate image", err)
	}
	prev := r.resources.SetImage(img)

	var kernel, composite bind_group_provider.BindGroupProvider
	if r.program != nil {
		kernel, composite, err = r.bindProgram(r.program)
		if err != nil {
			r.resources.SetImage(prev)
			r.backend.ReleaseImage(img)
			return r.diagnostics.Record("rebind image", err)
		}
	}
	if err := r.backend.ConfigureSurface(vp); err != nil {
		if kernel != nil {
			kernel.Release()
			composite.Release()
		}
		r.resources.SetImage(prev)
		r.backend.ReleaseImage(img)
		return r.diagnostics.Record("configure surface", err)
	}

	if kernel != nil {
		r.swapGroups(kernel, composite)
	}
	r.backend.ReleaseImage(prev)
	r.viewport = vp
	logger.Debugf("output image allocated at %dx%d", vp.Width, vp.Height)
	return nil
}

func (r *renderer) LoadProgram(stages *shader.Stages) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.released {
		return ErrReleased
	}

	prog, err := pipeline.NewProgram(stages)
	if err != nil {
		return err
	}
	if err := r.build(prog); err != nil {
		prog.Release()
		return err
	}
	kernel, composite, err := r.bindProgram(prog)
	if err != nil {
		prog.Release()
		return err
	}

	old := r.program
	r.program = prog
	r.paramBindings = groupZeroParams(prog)
	r.swapGroups(kernel, composite)
	if old != nil {
		old.Release()
	}

	if missing := prog.MissingParams(); len(missing) > 0 {
		logger.Infof("kernel does not declare %s, writes to them are skipped", strings.Join(missing, ", "))
	}
	logger.Debugf("bound %s", prog)
	return nil
}

// build registers both pipelines and makes sure every resolved parameter has a buffer.
func (r *renderer) build(prog *pipeline.Program) error {
	if err := r.backend.RegisterComputePipeline(prog.Trace()); err != nil {
		return err
	}
	if err := r.backend.RegisterRenderPipeline(prog.Composite()); err != nil {
		return err
	}
	return r.backend.AllocateParams(r.resources, prog.Params())
}

// bindProgram creates the kernel and composite bind groups of prog over the current resources.
func (r *renderer) bindProgram(prog *pipeline.Program) (bind_group_provider.BindGroupProvider, bind_group_provider.BindGroupProvider, error) {
	cs := prog.Trace().Shader(shader.ShaderTypeCompute)
	vs := prog.Composite().Shader(shader.ShaderTypeVertex)
	fs := prog.Composite().Shader(shader.ShaderTypeFragment)

	if g := extraGroups(cs.Layouts()); len(g) > 0 {
		return nil, nil, fmt.Errorf("%w: kernel declares bind groups %v, only group 0 is bound", shader.ErrCompile, g)
	}
	merged := mergeBindGroupLayouts(vs.Layouts(), fs.Layouts())
	if g := extraGroups(merged); len(g) > 0 {
		return nil, nil, fmt.Errorf("%w: composite declares bind groups %v, only group 0 is bound", shader.ErrCompile, g)
	}

	kernel := bind_group_provider.NewBindGroupProvider(pipeline.KeyTrace, prog.Trace().BindGroupLayout(0))
	if err := kernel.Bind(cs, 0, r.resources); err != nil {
		return nil, nil, err
	}
	if err := r.backend.InitBindGroup(kernel, cs.Layout(0)); err != nil {
		return nil, nil, err
	}

	composite := bind_group_provider.NewBindGroupProvider(pipeline.KeyComposite, prog.Composite().BindGroupLayout(0))
	if err := composite.Bind(fs, 0, r.resources); err != nil {
		kernel.Release()
		return nil, nil, err
	}
	if err := r.backend.InitBindGroup(composite, merged[0]); err != nil {
		kernel.Release()
		return nil, nil, err
	}
	return kernel, composite, nil
}

func (r *renderer) swapGroups(kernel, composite bind_group_provider.BindGroupProvider) {
	if r.kernelGroup != nil {
		r.kernelGroup.Release()
	}
	if r.compositeGroup != nil {
		r.compositeGroup.Release()
	}
	r.kernelGroup = kernel
	r.compositeGroup = composite
}

// extraGroups returns the sorted group indices other than 0.
func extraGroups(descriptors map[int]wgpu.BindGroupLayoutDescriptor) []int {
	var out []int
	for g := range descriptors {
		if g != 0 {
			out = append(out, g)
		}
	}
	sort.Ints(out)
	return out
}

// groupZeroParams maps each parameter bound in group 0 to its binding.
func groupZeroParams(prog *pipeline.Program) map[string]int {
	out := make(map[string]int)
	for _, name := range prog.Params() {
		b, _ := prog.Param(name)
		if b.Group != 0 {
			logger.Warningf("parameter %s is bound in group %d and will not be written", name, b.Group)
			continue
		}
		out[name] = b.Binding
	}
	return out
}

func (r *renderer) Reload() error {
	stages, err := r.loader.Load(r.paths)
	if err != nil {
		return err
	}
	return r.LoadProgram(stages)
}

func (r *renderer) Program() *pipeline.Program {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.program
}

func (r *renderer) StagePaths() shader.StagePaths {
	return r.paths
}

func (r *renderer) WorkgroupSize() [3]uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.program == nil {
		return [3]uint32{1, 1, 1}
	}
	return r.program.WorkgroupSize()
}

func (r *renderer) WriteParams(params *camera.KernelParams) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.program == nil || params == nil {
		return
	}
	r.backend.WriteBuffers(bind_group_provider.ParamWrites(r.kernelGroup, r.paramBindings, params))
}

func (r *renderer) ZeroRayCounter() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.released {
		return
	}
	r.backend.WriteBuffer(r.resources.RayCounter, zeroCounter)
}

func (r *renderer) Dispatch(grid [3]uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.program == nil {
		return r.diagnostics.Record("dispatch", ErrNoProgram)
	}
	// the staging buffer must be unmapped before a new copy is encoded into it
	r.readback.collect()
	if err := r.backend.BeginComputeFrame(); err != nil {
		return r.diagnostics.Record("dispatch", err)
	}
	r.backend.DispatchCompute(r.program.Trace(), r.kernelGroup, grid)
	copied := false
	if r.readback.CanCopy() {
		r.backend.CopyBuffer(r.resources.RayCounter, r.resources.Readback, bind_group_provider.RayCounterSize)
		copied = true
	}
	if err := r.backend.EndComputeFrame(); err != nil {
		return r.diagnostics.Record("dispatch", err)
	}
	if copied {
		r.readback.Start()
	}
	return nil
}

func (r *renderer) Composite() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.program == nil {
		return r.diagnostics.Record("composite", ErrNoProgram)
	}
	if err := r.backend.BeginFrame(); err != nil {
		return r.diagnostics.Record("composite", err)
	}
	r.backend.DrawCall(r.program.Composite(), CompositeVertexCount, []bind_group_provider.BindGroupProvider{r.compositeGroup})
	if err := r.backend.EndFrame(); err != nil {
		return r.diagnostics.Record("composite", err)
	}
	r.backend.Present()
	return nil
}

func (r *renderer) ReadRayCount() (uint32, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.readback == nil || r.released {
		return 0, false
	}
	return r.readback.Read()
}

func (r *renderer) Diagnostics() *Diagnostics {
	return r.diagnostics
}

func (r *renderer) AdapterInfo() AdapterInfo {
	return r.backend.AdapterInfo()
}

func (r *renderer) SetPresentMode(mode PresentMode) {
	r.backend.SetPresentMode(mode)
}

func (r *renderer) closeLoader() {
	if r.ownsLoader && r.loader != nil {
		r.loader.Close()
		r.loader = nil
	}
}

func (r *renderer) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.released {
		return
	}
	r.released = true

	r.swapGroups(nil, nil)
	if r.program != nil {
		r.program.Release()
		r.program = nil
	}
	r.resources.Release()
	r.closeLoader()
	if r.backend != nil {
		r.backend.Release()
	}
}
