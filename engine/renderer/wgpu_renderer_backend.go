package renderer

import (
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"

	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/Carmen-Shannon/oxy-trace/engine/camera"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// OutputFormat is the texel format of the output image the kernel writes.
const OutputFormat = wgpu.TextureFormatRGBA16Float

type wgpuRendererBackendImpl struct {
	mu     *sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface

	surfaceFormat        *wgpu.TextureFormat
	renderPassDescriptor *wgpu.RenderPassDescriptor

	presentMode wgpu.PresentMode // defaults to PresentModeImmediate (Uncapped)

	// maxStorageBinding caps the accumulation buffer size.
	maxStorageBinding uint64

	// Frame state for the composite pass
	frameEncoder *wgpu.CommandEncoder
	framePass    *wgpu.RenderPassEncoder
	frameSurface *wgpu.Texture
	frameView    *wgpu.TextureView

	// Compute frame state for the kernel dispatch and the ray counter copy
	computeFrameEncoder *wgpu.CommandEncoder
}

type wgpuRendererBackend interface {
	// ConfigureSurface configures the swapchain for the given size.
	//
	// Parameters:
	//   - vp: the framebuffer size
	//
	// Returns:
	//   - error: an error if the surface reports no usable format
	ConfigureSurface(vp common.Viewport) error

	// SetPresentMode sets the present mode used by the next ConfigureSurface.
	//
	// Parameters:
	//   - mode: the PresentMode to use
	SetPresentMode(mode PresentMode)

	// AllocateImage creates the output texture, its view and the accumulation buffer for a
	// viewport. The caller installs the set on its resources and owns its release.
	//
	// Parameters:
	//   - vp: the viewport
	//
	// Returns:
	//   - bind_group_provider.ImageSet: the new image set
	//   - error: an error if the image exceeds device limits or creation fails
	AllocateImage(vp common.Viewport) (bind_group_provider.ImageSet, error)

	// ReleaseImage releases an image set returned by AllocateImage. An empty set is ignored.
	//
	// Parameters:
	//   - img: the image set
	ReleaseImage(img bind_group_provider.ImageSet)

	// AllocateCounters creates the ray counter and its readback buffer if they do not exist.
	//
	// Parameters:
	//   - res: the resource set
	//
	// Returns:
	//   - error: an error if buffer creation fails
	AllocateCounters(res *bind_group_provider.Resources) error

	// AllocateParams creates a uniform buffer for every named parameter not yet allocated.
	//
	// Parameters:
	//   - res: the resource set
	//   - names: the parameter names
	//
	// Returns:
	//   - error: an error if buffer creation fails
	AllocateParams(res *bind_group_provider.Resources, names []string) error

	// RegisterRenderPipeline creates the shader modules, layouts and render pipeline.
	// Every object created is handed to the pipeline, which releases them.
	//
	// Parameters:
	//   - p: a render pipeline with vertex and fragment shaders
	//
	// Returns:
	//   - error: an error if any creation step fails
	RegisterRenderPipeline(p pipeline.Pipeline) error

	// RegisterComputePipeline creates the shader module, layouts and compute pipeline.
	//
	// Parameters:
	//   - p: a compute pipeline with a compute shader
	//
	// Returns:
	//   - error: an error if any creation step fails
	RegisterComputePipeline(p pipeline.Pipeline) error

	// InitBindGroup creates a bind group from a layout descriptor and the provider's binding table.
	//
	// Parameters:
	//   - provider: the provider holding the layout and bound resources
	//   - descriptor: the layout descriptor defining the bind group entries
	//
	// Returns:
	//   - error: an error if a binding has no resource or creation fails
	InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor) error

	// WriteBuffers writes all staged buffer writes to the GPU queue.
	//
	// Parameters:
	//   - writes: the writes to apply
	WriteBuffers(writes []bind_group_provider.BufferWrite)

	// WriteBuffer writes bytes at the start of a buffer.
	//
	// Parameters:
	//   - buf: the destination buffer
	//   - data: the bytes to write
	WriteBuffer(buf *wgpu.Buffer, data []byte)

	// BeginComputeFrame creates the command encoder for the frame's compute work.
	//
	// Returns:
	//   - error: an error if the command encoder could not be created
	BeginComputeFrame() error

	// DispatchCompute encodes a compute pass on the current compute frame.
	//
	// Parameters:
	//   - p: the registered compute pipeline
	//   - computeProvider: the provider whose bind group is set at group 0
	//   - workGroupCount: the number of workgroups to dispatch in x, y and z
	DispatchCompute(p pipeline.Pipeline, computeProvider bind_group_provider.BindGroupProvider, workGroupCount [3]uint32)

	// CopyBuffer encodes a buffer copy on the current compute frame.
	//
	// Parameters:
	//   - src: the source buffer
	//   - dst: the destination buffer
	//   - size: the number of bytes to copy
	CopyBuffer(src, dst *wgpu.Buffer, size uint64)

	// EndComputeFrame finishes and submits the compute frame.
	//
	// Returns:
	//   - error: an error if the command buffer could not be finished
	EndComputeFrame() error

	// BeginFrame acquires the swapchain texture and begins the composite render pass.
	//
	// Returns:
	//   - error: an error if the swapchain texture could not be acquired
	BeginFrame() error

	// DrawCall sets the pipeline and bind groups, then draws non-indexed vertices.
	//
	// Parameters:
	//   - p: the registered render pipeline
	//   - vertexCount: the number of vertices to draw
	//   - bindGroups: providers set at group indices 0..n-1
	DrawCall(p pipeline.Pipeline, vertexCount uint32, bindGroups []bind_group_provider.BindGroupProvider)

	// EndFrame ends the render pass and submits it.
	//
	// Returns:
	//   - error: an error if the command buffer could not be finished
	EndFrame() error

	// Present presents the surface and releases the swapchain texture.
	Present()

	bufferMapper

	// AdapterInfo describes the selected adapter.
	//
	// Returns:
	//   - AdapterInfo: the adapter description
	AdapterInfo() AdapterInfo

	// Release releases the surface, device, adapter and instance.
	Release()
}

var _ RendererBackend = &wgpuRendererBackendImpl{}

func newWGPURendererBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, forceFallbackAdapter bool) (wgpuRendererBackend, error) {
	runtime.LockOSThread()
	w := &wgpuRendererBackendImpl{
		mu:          &sync.Mutex{},
		instance:    wgpu.CreateInstance(nil),
		presentMode: wgpu.PresentModeImmediate,
	}
	if surfaceDescriptor == nil {
		w.instance.Release()
		return nil, errors.New("renderer: window has no surface descriptor")
	}
	w.surface = w.instance.CreateSurface(surfaceDescriptor)

	a, err := w.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
		CompatibleSurface:    w.surface,
	})
	if err != nil {
		w.Release()
		return nil, fmt.Errorf("renderer: request adapter: %w", err)
	}
	w.adapter = a

	// The accumulation buffer grows with the viewport, so take the adapter's storage limits
	// instead of the WebGPU defaults.
	supported := a.GetLimits()
	limits := wgpu.DefaultLimits()
	limits.MaxStorageBufferBindingSize = supported.Limits.MaxStorageBufferBindingSize
	limits.MaxBufferSize = supported.Limits.MaxBufferSize
	w.maxStorageBinding = limits.MaxStorageBufferBindingSize

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Tracer Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: limits,
		},
	})
	if err != nil {
		w.Release()
		return nil, fmt.Errorf("renderer: request device: %w", err)
	}
	w.device = d
	w.queue = d.GetQueue()

	return w, nil
}

// chooseSurfaceFormat prefers a linear 8-bit format since the kernel tonemaps and gamma
// encodes itself. Falls back to the first reported format.
func chooseSurfaceFormat(formats []wgpu.TextureFormat) (wgpu.TextureFormat, bool) {
	if len(formats) == 0 {
		return wgpu.TextureFormatUndefined, false
	}
	for _, f := range formats {
		if f == wgpu.TextureFormatBGRA8Unorm || f == wgpu.TextureFormatRGBA8Unorm {
			return f, true
		}
	}
	return formats[0], true
}

func (b *wgpuRendererBackendImpl) ConfigureSurface(vp common.Viewport) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	capabilities := b.surface.GetCapabilities(b.adapter)
	format, ok := chooseSurfaceFormat(capabilities.Formats)
	if !ok {
		return errors.New("renderer: surface reports no formats")
	}
	if b.surfaceFormat != nil && *b.surfaceFormat != format {
		logger.Warningf("surface format changed from %v to %v", *b.surfaceFormat, format)
	}
	b.surfaceFormat = &format

	alphaMode := wgpu.CompositeAlphaModeAuto
	if len(capabilities.AlphaModes) > 0 {
		alphaMode = capabilities.AlphaModes[0]
	}

	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      format,
		Width:       uint32(vp.Width),
		Height:      uint32(vp.Height),
		PresentMode: b.presentMode,
		AlphaMode:   alphaMode,
	})

	// The composite pass overwrites every pixel, so no depth attachment is needed.
	b.renderPassDescriptor = &wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				LoadOp:  wgpu.LoadOpClear,
				StoreOp: wgpu.StoreOpStore,
				ClearValue: wgpu.Color{
					R: 0.0, G: 0.0, B: 0.0, A: 1.0,
				},
			},
		},
	}
	return nil
}

func (b *wgpuRendererBackendImpl) SetPresentMode(mode PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch mode {
	case PresentModeVSync:
		b.presentMode = wgpu.PresentModeFifo
	case PresentModeUncapped:
		fallthrough
	default:
		b.presentMode = wgpu.PresentModeImmediate
	}
}

func (b *wgpuRendererBackendImpl) AllocateImage(vp common.Viewport) (bind_group_provider.ImageSet, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !vp.Valid() {
		return bind_group_provider.ImageSet{}, fmt.Errorf("renderer: invalid viewport %dx%d", vp.Width, vp.Height)
	}
	accSize := bind_group_provider.AccumulationSize(vp)
	if b.maxStorageBinding > 0 && accSize > b.maxStorageBinding {
		return bind_group_provider.ImageSet{}, fmt.Errorf("renderer: accumulation buffer for %dx%d needs %d bytes, device allows %d",
			vp.Width, vp.Height, accSize, b.maxStorageBinding)
	}

	texture, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "Output Image",
		Size: wgpu.Extent3D{
			Width:              uint32(vp.Width),
			Height:             uint32(vp.Height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        OutputFormat,
		Usage:         wgpu.TextureUsageStorageBinding | wgpu.TextureUsageTextureBinding,
	})
	if err != nil {
		return bind_group_provider.ImageSet{}, err
	}
	view, err := texture.CreateView(nil)
	if err != nil {
		texture.Release()
		return bind_group_provider.ImageSet{}, err
	}
	acc, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Accumulation Buffer",
		Size:  accSize,
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		view.Release()
		texture.Release()
		return bind_group_provider.ImageSet{}, err
	}

	return bind_group_provider.ImageSet{
		Viewport:      vp,
		OutputTexture: texture,
		OutputView:    view,
		Accumulation:  acc,
	}, nil
}

func (b *wgpuRendererBackendImpl) ReleaseImage(img bind_group_provider.ImageSet) {
	b.mu.Lock()
	defer b.mu.Unlock()
	img.Release()
}

func (b *wgpuRendererBackendImpl) AllocateCounters(res *bind_group_provider.Resources) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if res.RayCounter == nil {
		buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: "Ray Counter",
			Size:  bind_group_provider.RayCounterSize,
			Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return err
		}
		res.RayCounter = buf
	}
	if res.Readback == nil {
		buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: "Ray Counter Readback",
			Size:  bind_group_provider.RayCounterSize,
			Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return err
		}
		res.Readback = buf
	}
	return nil
}

func (b *wgpuRendererBackendImpl) AllocateParams(res *bind_group_provider.Resources, names []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, name := range names {
		if res.Params[name] != nil {
			continue
		}
		size := camera.ParamSize(name)
		if size == 0 {
			return fmt.Errorf("renderer: unknown kernel parameter %q", name)
		}
		buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: name + " Uniform",
			Size:  uint64(size),
			Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return err
		}
		res.Params[name] = buf
	}
	return nil
}

func (b *wgpuRendererBackendImpl) BeginComputeFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}
	b.computeFrameEncoder = encoder
	return nil
}

func (b *wgpuRendererBackendImpl) EndComputeFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.computeFrameEncoder == nil {
		return nil
	}

	commandBuffer, err := b.computeFrameEncoder.Finish(nil)
	if err != nil {
		b.computeFrameEncoder.Release()
		b.computeFrameEncoder = nil
		return err
	}

	b.queue.Submit(commandBuffer)
	commandBuffer.Release()
	b.computeFrameEncoder.Release()
	b.computeFrameEncoder = nil
	return nil
}

func (b *wgpuRendererBackendImpl) DispatchCompute(
	p pipeline.Pipeline,
	computeProvider bind_group_provider.BindGroupProvider,
	workGroupCount [3]uint32,
) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.computeFrameEncoder == nil {
		return
	}

	computePipeline := p.Pipeline().(*wgpu.ComputePipeline)
	bindGroup := computeProvider.BindGroup()

	pass := b.computeFrameEncoder.BeginComputePass(nil)
	pass.SetPipeline(computePipeline)
	pass.SetBindGroup(0, bindGroup, nil)
	pass.DispatchWorkgroups(workGroupCount[0], workGroupCount[1], workGroupCount[2])
	pass.End()
}

func (b *wgpuRendererBackendImpl) CopyBuffer(src, dst *wgpu.Buffer, size uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.computeFrameEncoder == nil {
		return
	}
	b.computeFrameEncoder.CopyBufferToBuffer(src, 0, dst, 0, size)
}

// createPipelineLayout creates one bind group layout per group and the pipeline layout over them.
// On failure everything created so far is released.
func (b *wgpuRendererBackendImpl) createPipelineLayout(
	label string,
	descriptors map[int]wgpu.BindGroupLayoutDescriptor,
) (map[int]*wgpu.BindGroupLayout, *wgpu.PipelineLayout, error) {
	maxGroup := -1
	for g := range descriptors {
		if g > maxGroup {
			maxGroup = g
		}
	}

	groups := make(map[int]*wgpu.BindGroupLayout, len(descriptors))
	release := func() {
		for _, l := range groups {
			l.Release()
		}
	}

	ordered := make([]*wgpu.BindGroupLayout, maxGroup+1)
	for g := 0; g <= maxGroup; g++ {
		desc, ok := descriptors[g]
		if !ok {
			desc = wgpu.BindGroupLayoutDescriptor{Label: fmt.Sprintf("%s empty group %d", label, g)}
		}
		layout, err := b.device.CreateBindGroupLayout(&desc)
		if err != nil {
			release()
			return nil, nil, fmt.Errorf("failed to create bind group layout for group %d: %w", g, err)
		}
		groups[g] = layout
		ordered[g] = layout
	}

	pipelineLayout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            label,
		BindGroupLayouts: ordered,
	})
	if err != nil {
		release()
		return nil, nil, err
	}
	return groups, pipelineLayout, nil
}

func (b *wgpuRendererBackendImpl) createShaderModule(s shader.Shader) (*wgpu.ShaderModule, error) {
	module, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: s.Key(),
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: s.Source(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", shader.ErrCompile, s.Key(), err)
	}
	return module, nil
}

func (b *wgpuRendererBackendImpl) RegisterRenderPipeline(p pipeline.Pipeline) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	vertexShader := p.Shader(shader.ShaderTypeVertex)
	fragmentShader := p.Shader(shader.ShaderTypeFragment)
	if vertexShader == nil || fragmentShader == nil {
		return errors.New("both vertex and fragment shaders must be set to create a render pipeline")
	}

	vs, err := b.createShaderModule(vertexShader)
	if err != nil {
		return err
	}
	fs, err := b.createShaderModule(fragmentShader)
	if err != nil {
		vs.Release()
		return err
	}

	merged := mergeBindGroupLayouts(vertexShader.Layouts(), fragmentShader.Layouts())
	groups, pipelineLayout, err := b.createPipelineLayout(p.PipelineKey(), merged)
	if err != nil {
		vs.Release()
		fs.Release()
		return err
	}
	p.SetLayouts(groups, pipelineLayout, vs, fs)

	raster := p.Raster()
	target := wgpu.ColorTargetState{
		Format:    *b.surfaceFormat,
		WriteMask: raster.WriteMask,
		Blend:     raster.Blend,
	}

	created, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  p.PipelineKey() + " Render Pipeline",
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     vs,
			EntryPoint: vertexShader.EntryPoint(),
		},
		Fragment: &wgpu.FragmentState{
			Module:     fs,
			EntryPoint: fragmentShader.EntryPoint(),
			Targets:    []wgpu.ColorTargetState{target},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  raster.Topology,
			FrontFace: raster.FrontFace,
			CullMode:  raster.CullMode,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %v", shader.ErrCompile, p.PipelineKey(), err)
	}

	p.SetRenderPipeline(created)
	return nil
}

func (b *wgpuRendererBackendImpl) RegisterComputePipeline(p pipeline.Pipeline) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	computeShader := p.Shader(shader.ShaderTypeCompute)
	if computeShader == nil {
		return errors.New("compute shader must be set to create a compute pipeline")
	}

	s, err := b.createShaderModule(computeShader)
	if err != nil {
		return err
	}

	groups, layout, err := b.createPipelineLayout(p.PipelineKey(), computeShader.Layouts())
	if err != nil {
		s.Release()
		return err
	}
	p.SetLayouts(groups, layout, s)

	created, err := b.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  p.PipelineKey() + " Compute Pipeline",
		Layout: layout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     s,
			EntryPoint: computeShader.EntryPoint(),
		},
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %v", shader.ErrCompile, p.PipelineKey(), err)
	}

	p.SetComputePipeline(created)
	return nil
}

func (b *wgpuRendererBackendImpl) InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(descriptor.Entries) == 0 {
		return nil
	}

	layout := provider.BindGroupLayout()
	if layout == nil {
		return fmt.Errorf("%s: no bind group layout, register the pipeline first", provider.Label())
	}

	bindGroupEntries := make([]wgpu.BindGroupEntry, len(descriptor.Entries))
	for i, entry := range descriptor.Entries {
		binding := int(entry.Binding)

		isTexture := entry.Texture.SampleType != wgpu.TextureSampleTypeUndefined ||
			entry.StorageTexture.Format != wgpu.TextureFormatUndefined

		if isTexture {
			tv := provider.TextureView(binding)
			if tv == nil {
				return fmt.Errorf("%s: texture binding %d has no texture view", provider.Label(), binding)
			}
			bindGroupEntries[i] = wgpu.BindGroupEntry{
				Binding:     entry.Binding,
				TextureView: tv,
			}
			continue
		}

		buf := provider.Buffer(binding)
		if buf == nil {
			return fmt.Errorf("%s: buffer binding %d has no buffer", provider.Label(), binding)
		}
		bindGroupEntries[i] = wgpu.BindGroupEntry{
			Binding: entry.Binding,
			Buffer:  buf,
			Offset:  0,
			Size:    wgpu.WholeSize,
		}
	}

	bindGroup, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   provider.Label() + " Bind Group",
		Layout:  layout,
		Entries: bindGroupEntries,
	})
	if err != nil {
		return err
	}
	provider.SetBindGroup(bindGroup)

	return nil
}

func (b *wgpuRendererBackendImpl) WriteBuffers(writes []bind_group_provider.BufferWrite) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, w := range writes {
		buf := w.Provider.Buffer(w.Binding)
		if buf == nil {
			continue
		}
		b.queue.WriteBuffer(buf, w.Offset, w.Data)
	}
}

func (b *wgpuRendererBackendImpl) WriteBuffer(buf *wgpu.Buffer, data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if buf == nil {
		return
	}
	b.queue.WriteBuffer(buf, 0, data)
}

func (b *wgpuRendererBackendImpl) BeginFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	// A surface texture still held from the previous frame must be presented first.
	if b.frameSurface != nil {
		return fmt.Errorf("previous frame surface not yet presented")
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return err
	}

	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return err
	}

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		view.Release()
		surfaceTexture.Release()
		return err
	}

	b.renderPassDescriptor.ColorAttachments[0].View = view
	pass := encoder.BeginRenderPass(b.renderPassDescriptor)

	b.frameEncoder = encoder
	b.framePass = pass
	b.frameSurface = surfaceTexture
	b.frameView = view

	return nil
}

func (b *wgpuRendererBackendImpl) DrawCall(
	p pipeline.Pipeline,
	vertexCount uint32,
	bindGroups []bind_group_provider.BindGroupProvider,
) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.framePass == nil {
		return
	}

	renderPipeline := p.Pipeline().(*wgpu.RenderPipeline)
	b.framePass.SetPipeline(renderPipeline)

	for i, bg := range bindGroups {
		b.framePass.SetBindGroup(uint32(i), bg.BindGroup(), nil)
	}

	b.framePass.Draw(vertexCount, 1, 0, 0)
}

func (b *wgpuRendererBackendImpl) EndFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.framePass == nil {
		return nil
	}
	b.framePass.End()

	commandBuffer, err := b.frameEncoder.Finish(nil)
	if err != nil {
		b.frameEncoder.Release()
		b.frameView.Release()
		b.frameSurface.Release()
		b.frameEncoder = nil
		b.framePass = nil
		b.frameSurface = nil
		b.frameView = nil
		return err
	}

	b.queue.Submit(commandBuffer)

	commandBuffer.Release()
	b.frameEncoder.Release()
	b.frameEncoder = nil
	b.framePass = nil
	return nil
}

func (b *wgpuRendererBackendImpl) Present() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameSurface == nil {
		return
	}

	b.surface.Present()

	if b.frameView != nil {
		b.frameView.Release()
		b.frameView = nil
	}
	if b.frameSurface != nil {
		b.frameSurface.Release()
		b.frameSurface = nil
	}
}

func (b *wgpuRendererBackendImpl) MapRead(buf *wgpu.Buffer, size uint64, done func(ok bool)) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	return buf.MapAsync(wgpu.MapModeRead, 0, size, func(status wgpu.BufferMapAsyncStatus) {
		done(status == wgpu.BufferMapAsyncStatusSuccess)
	})
}

func (b *wgpuRendererBackendImpl) Poll() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.device.Poll(false, nil)
}

func (b *wgpuRendererBackendImpl) ReadMapped(buf *wgpu.Buffer, size uint64) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	mapped := buf.GetMappedRange(0, uint(size))
	out := make([]byte, len(mapped))
	copy(out, mapped)
	buf.Unmap()
	return out
}

func (b *wgpuRendererBackendImpl) AdapterInfo() AdapterInfo {
	b.mu.Lock()
	defer b.mu.Unlock()
	return describeAdapter(b.adapter)
}

// describeAdapter reads the adapter's identity and storage limit.
func describeAdapter(a *wgpu.Adapter) AdapterInfo {
	info := a.GetInfo()
	return AdapterInfo{
		Name:              info.Name,
		Vendor:            info.VendorName,
		Driver:            info.DriverDescription,
		AdapterType:       fmt.Sprintf("%v", info.AdapterType),
		Backend:           fmt.Sprintf("%v", info.BackendType),
		MaxStorageBinding: a.GetLimits().Limits.MaxStorageBufferBindingSize,
	}
}

// QueryAdapter requests an adapter without a surface and describes it.
//
// Parameters:
//   - forceFallbackAdapter: request the software adapter
//
// Returns:
//   - AdapterInfo: the adapter description
//   - error: an error if no adapter is available
func QueryAdapter(forceFallbackAdapter bool) (AdapterInfo, error) {
	instance := wgpu.CreateInstance(nil)
	defer instance.Release()

	a, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
	})
	if err != nil {
		return AdapterInfo{}, fmt.Errorf("renderer: request adapter: %w", err)
	}
	defer a.Release()
	return describeAdapter(a), nil
}

func (b *wgpuRendererBackendImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameView != nil {
		b.frameView.Release()
		b.frameView = nil
	}
	if b.frameSurface != nil {
		b.frameSurface.Release()
		b.frameSurface = nil
	}
	if b.queue != nil {
		b.queue.Release()
		b.queue = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.surface != nil {
		b.surface.Release()
		b.surface = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}

// mergeBindGroupLayouts merges the bind group layout descriptors from a vertex and fragment shader
// into a unified set of descriptors suitable for a render pipeline layout.
//
// For each group index present in either shader:
//   - Entries with the same binding number have their Visibility flags ORed together
//   - Entries unique to one shader are included with their original visibility
//
// Parameters:
//   - vertexLayouts: bind group layout descriptors from the vertex shader
//   - fragmentLayouts: bind group layout descriptors from the fragment shader
//
// Returns:
//   - map[int]wgpu.BindGroupLayoutDescriptor: the merged descriptors keyed by group index
func mergeBindGroupLayouts(
	vertexLayouts, fragmentLayouts map[int]wgpu.BindGroupLayoutDescriptor,
) map[int]wgpu.BindGroupLayoutDescriptor {
	merged := make(map[int]wgpu.BindGroupLayoutDescriptor)

	groupIndices := make(map[int]bool)
	for g := range vertexLayouts {
		groupIndices[g] = true
	}
	for g := range fragmentLayouts {
		groupIndices[g] = true
	}

	for g := range groupIndices {
		vDesc, hasV := vertexLayouts[g]
		fDesc, hasF := fragmentLayouts[g]

		switch {
		case hasV && !hasF:
			merged[g] = vDesc
		case hasF && !hasV:
			merged[g] = fDesc
		default:
			entryMap := make(map[uint32]wgpu.BindGroupLayoutEntry)
			for _, e := range vDesc.Entries {
				entryMap[e.Binding] = e
			}
			for _, e := range fDesc.Entries {
				if existing, ok := entryMap[e.Binding]; ok {
					existing.Visibility |= e.Visibility
					entryMap[e.Binding] = existing
				} else {
					entryMap[e.Binding] = e
				}
			}

			entries := make([]wgpu.BindGroupLayoutEntry, 0, len(entryMap))
			for _, e := range entryMap {
				entries = append(entries, e)
			}
			sort.Slice(entries, func(i, j int) bool {
				return entries[i].Binding < entries[j].Binding
			})

			merged[g] = wgpu.BindGroupLayoutDescriptor{
				Label:   vDesc.Label,
				Entries: entries,
			}
		}
	}

	return merged
}
