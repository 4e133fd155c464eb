package renderer

import "github.com/cogentcore/webgpu/wgpu"

// RendererBackendType identifies the GPU backend implementation used by the Renderer.
type RendererBackendType int

const (
	// BackendTypeWGPU selects the WebGPU-based rendering backend.
	BackendTypeWGPU RendererBackendType = iota
)

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

// AdapterInfo describes the GPU adapter selected at startup.
type AdapterInfo struct {
	Name              string
	Vendor            string
	Driver            string
	AdapterType       string
	Backend           string
	MaxStorageBinding uint64
}

// bufferMapper reads back mappable buffers without blocking.
type bufferMapper interface {
	// MapRead starts an asynchronous read map. done runs from a later Poll.
	MapRead(buf *wgpu.Buffer, size uint64, done func(ok bool)) error

	// Poll processes completed GPU callbacks without waiting.
	Poll()

	// ReadMapped copies the mapped range out and unmaps the buffer.
	ReadMapped(buf *wgpu.Buffer, size uint64) []byte
}

// RendererBackend is the top-level backend interface for the Renderer.
// It embeds the concrete backend interface for the selected GPU API.
type RendererBackend interface {
	wgpuRendererBackend
}
