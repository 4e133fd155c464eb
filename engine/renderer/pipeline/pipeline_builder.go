package pipeline

import (
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// PipelineBuilderOption is a functional option used to configure a Pipeline during construction.
type PipelineBuilderOption func(*pipeline)

// RasterState is the fixed-function state of a render pipeline. The composite pass draws a
// single opaque quad, so the zero Blend disables blending.
type RasterState struct {
	Topology  wgpu.PrimitiveTopology
	FrontFace wgpu.FrontFace
	CullMode  wgpu.CullMode
	WriteMask wgpu.ColorWriteMask
	Blend     *wgpu.BlendState
}

// DefaultRasterState draws a triangle list without culling and writes every channel.
var DefaultRasterState = RasterState{
	Topology:  wgpu.PrimitiveTopologyTriangleList,
	FrontFace: wgpu.FrontFaceCCW,
	CullMode:  wgpu.CullModeNone,
	WriteMask: wgpu.ColorWriteMaskAll,
}

// WithStage slots s into the pipeline by its shader type. A nil shader is ignored.
//
// Parameters:
//   - s: a vertex, fragment or compute shader
//
// Returns:
//   - PipelineBuilderOption: a function that assigns the stage
func WithStage(s shader.Shader) PipelineBuilderOption {
	return func(p *pipeline) {
		if s == nil {
			return
		}
		switch s.ShaderType() {
		case shader.ShaderTypeVertex:
			p.vertexShader = s
		case shader.ShaderTypeFragment:
			p.fragmentShader = s
		case shader.ShaderTypeCompute:
			p.computeShader = s
		}
	}
}

// WithRasterState replaces the render state. Compute pipelines ignore it.
//
// Parameters:
//   - rs: the raster state to use
//
// Returns:
//   - PipelineBuilderOption: a function that sets the raster state
func WithRasterState(rs RasterState) PipelineBuilderOption {
	return func(p *pipeline) {
		p.raster = rs
	}
}
