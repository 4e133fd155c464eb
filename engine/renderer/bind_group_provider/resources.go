package bind_group_provider

import (
	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// AccumulationTexelSize is the byte size of one accumulation buffer element (vec4<f32>).
const AccumulationTexelSize = 16

// RayCounterSize is the byte size of the atomic ray counter.
const RayCounterSize = 4

// AccumulationSize returns the accumulation buffer size for a viewport.
//
// Parameters:
//   - vp: the viewport
//
// Returns:
//   - uint64: width * height * AccumulationTexelSize
func AccumulationSize(vp common.Viewport) uint64 {
	return uint64(vp.Width) * uint64(vp.Height) * AccumulationTexelSize
}

// Resources owns every GPU object the tracer binds. The image set (output texture, its view
// and the accumulation buffer) follows the viewport and is replaced on resize. The ray
// counter, its readback buffer and the parameter buffers live for the whole session.
type Resources struct {
	Viewport      common.Viewport
	OutputTexture *wgpu.Texture
	OutputView    *wgpu.TextureView
	Accumulation  *wgpu.Buffer
	RayCounter    *wgpu.Buffer
	Readback      *wgpu.Buffer

	// Params holds one uniform buffer per kernel parameter, keyed by parameter name.
	Params map[string]*wgpu.Buffer
}

// NewResources creates an empty resource set.
//
// Returns:
//   - *Resources: the resource set
func NewResources() *Resources {
	return &Resources{Params: make(map[string]*wgpu.Buffer)}
}

// TextureView returns the view bound to a shader variable, or nil.
//
// Parameters:
//   - varName: the WGSL variable name
//
// Returns:
//   - *wgpu.TextureView: the view or nil
func (r *Resources) TextureView(varName string) *wgpu.TextureView {
	if varName == shader.VarOutputImage {
		return r.OutputView
	}
	return nil
}

// Buffer returns the buffer bound to a shader variable, or nil.
//
// Parameters:
//   - varName: the WGSL variable name
//
// Returns:
//   - *wgpu.Buffer: the buffer or nil
func (r *Resources) Buffer(varName string) *wgpu.Buffer {
	switch varName {
	case shader.VarAccumulation:
		return r.Accumulation
	case shader.VarRayCount:
		return r.RayCounter
	default:
		return r.Params[varName]
	}
}

// HasImage reports whether the image set is allocated for the given viewport.
//
// Parameters:
//   - vp: the viewport
//
// Returns:
//   - bool: true if the image set exists and matches vp
func (r *Resources) HasImage(vp common.Viewport) bool {
	return r.OutputTexture != nil && r.Accumulation != nil && r.Viewport == vp
}

// ImageSet is the viewport-sized part of Resources.
type ImageSet struct {
	Viewport      common.Viewport
	OutputTexture *wgpu.Texture
	OutputView    *wgpu.TextureView
	Accumulation  *wgpu.Buffer
}

// Release releases every object in the image set.
func (s ImageSet) Release() {
	if s.OutputView != nil {
		s.OutputView.Release()
	}
	if s.OutputTexture != nil {
		s.OutputTexture.Release()
	}
	if s.Accumulation != nil {
		s.Accumulation.Release()
	}
}

// SetImage installs an image set and returns the one it replaced without releasing it, so a
// caller can restore it if rebinding the new set fails.
//
// Parameters:
//   - img: the new image set
//
// Returns:
//   - ImageSet: the previous image set
func (r *Resources) SetImage(img ImageSet) ImageSet {
	prev := ImageSet{
		Viewport:      r.Viewport,
		OutputTexture: r.OutputTexture,
		OutputView:    r.OutputView,
		Accumulation:  r.Accumulation,
	}
	r.Viewport = img.Viewport
	r.OutputTexture = img.OutputTexture
	r.OutputView = img.OutputView
	r.Accumulation = img.Accumulation
	return prev
}

// ReleaseImage releases the image set.
func (r *Resources) ReleaseImage() {
	r.SetImage(ImageSet{}).Release()
}

// Release releases every object in the set.
func (r *Resources) Release() {
	r.ReleaseImage()
	if r.RayCounter != nil {
		r.RayCounter.Release()
		r.RayCounter = nil
	}
	if r.Readback != nil {
		r.Readback.Release()
		r.Readback = nil
	}
	for name, buf := range r.Params {
		if buf != nil {
			buf.Release()
		}
		delete(r.Params, name)
	}
}
