package pipeline

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Carmen-Shannon/oxy-trace/engine/camera"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/shader"
)

// Pipeline keys used for labels and logs.
const (
	KeyTrace     = "trace"
	KeyComposite = "composite"
)

// ErrIncompleteProgram is returned when a stage set is missing one of its three shaders.
var ErrIncompleteProgram = errors.New("pipeline: program needs compute, vertex and fragment stages")

// ParamBinding locates a kernel parameter's uniform buffer.
type ParamBinding struct {
	Group   int
	Binding int
}

// Program is the tracer's program handle: the compute kernel, the composite raster pair
// and the parameter bindings resolved from the kernel's reflection. A Program is built in
// full before it replaces the previous one, so callers never observe a partial swap.
type Program struct {
	trace     Pipeline
	composite Pipeline
	params    map[string]ParamBinding
	missing   []string
}

// NewProgram resolves the parameter bindings of the kernel and wraps the three stages into
// a compute pipeline and a render pipeline. The pipelines are not yet registered with a backend.
//
// Parameters:
//   - stages: the loaded shader stages
//   - opts: options applied to the composite render pipeline
//
// Returns:
//   - *Program: the unregistered program
//   - error: ErrIncompleteProgram if a stage is missing
func NewProgram(stages *shader.Stages, opts ...PipelineBuilderOption) (*Program, error) {
	if stages == nil || stages.Compute == nil || stages.Vertex == nil || stages.Fragment == nil {
		return nil, ErrIncompleteProgram
	}

	params, missing := ResolveParams(stages.Compute)
	renderOpts := append([]PipelineBuilderOption{WithStage(stages.Vertex), WithStage(stages.Fragment)}, opts...)

	return &Program{
		trace:     NewPipeline(KeyTrace, PipelineTypeCompute, WithStage(stages.Compute)),
		composite: NewPipeline(KeyComposite, PipelineTypeRender, renderOpts...),
		params:    params,
		missing:   missing,
	}, nil
}

// ResolveParams looks up every kernel parameter by variable name in the shader's bind groups.
//
// Parameters:
//   - s: the compute shader
//
// Returns:
//   - map[string]ParamBinding: the bindings found, keyed by parameter name
//   - []string: the names not declared by the shader, in parameter order
func ResolveParams(s shader.Shader) (map[string]ParamBinding, []string) {
	found := make(map[string]ParamBinding, len(camera.ParamNames))
	var missing []string

	groups := make([]int, 0)
	for g := range s.VarNames() {
		groups = append(groups, g)
	}
	sort.Ints(groups)

	for _, name := range camera.ParamNames {
		resolved := false
		for _, g := range groups {
			if b, ok := s.Binding(g, name); ok {
				found[name] = ParamBinding{Group: g, Binding: b}
				resolved = true
				break
			}
		}
		if !resolved {
			missing = append(missing, name)
		}
	}
	return found, missing
}

// Trace returns the compute pipeline.
func (p *Program) Trace() Pipeline {
	return p.trace
}

// Composite returns the render pipeline that draws the output image to the surface.
func (p *Program) Composite() Pipeline {
	return p.composite
}

// Param returns the binding of a kernel parameter.
//
// Parameters:
//   - name: the parameter name
//
// Returns:
//   - ParamBinding: the binding location
//   - bool: false if the kernel does not declare the parameter
func (p *Program) Param(name string) (ParamBinding, bool) {
	b, ok := p.params[name]
	return b, ok
}

// Params returns the resolved parameter names in parameter order.
func (p *Program) Params() []string {
	out := make([]string, 0, len(p.params))
	for _, name := range camera.ParamNames {
		if _, ok := p.params[name]; ok {
			out = append(out, name)
		}
	}
	return out
}

// MissingParams returns the parameter names the kernel does not declare.
func (p *Program) MissingParams() []string {
	return p.missing
}

// WorkgroupSize returns the kernel's workgroup dimensions.
func (p *Program) WorkgroupSize() [3]uint32 {
	return p.trace.Shader(shader.ShaderTypeCompute).WorkgroupSize()
}

// String summarizes the program for logs.
func (p *Program) String() string {
	wg := p.WorkgroupSize()
	return fmt.Sprintf("program{workgroup=%dx%dx%d params=%d missing=%v}", wg[0], wg[1], wg[2], len(p.params), p.missing)
}

// Release frees both pipelines.
func (p *Program) Release() {
	p.trace.Release()
	p.composite.Release()
}
