package pipeline

import (
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-trace/engine/camera"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/shader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const partialKernel = `//@oxy:resource 0 0 output_image
//@oxy:param 0 3 eye
//@oxy:param 1 0 frameCount

@compute @workgroup_size(4, 4, 1)
fn main(@builtin(global_invocation_id) gid: vec3<u32>) {
}
`

func bundledStages(t *testing.T) *shader.Stages {
	t.Helper()
	l := shader.NewLoader(shader.WithLoaderValidation(false))
	defer l.Close()

	stages, err := l.Load(shader.StagePathsIn(filepath.Join("..", "..", "..", "assets", "shaders")))
	require.NoError(t, err)
	return stages
}

func TestProgramResolvesBundledParams(t *testing.T) {
	p, err := NewProgram(bundledStages(t))
	require.NoError(t, err)

	assert.Empty(t, p.MissingParams())
	assert.Equal(t, camera.ParamNames, p.Params())
	assert.Equal(t, [3]uint32{8, 8, 1}, p.WorkgroupSize())

	b, ok := p.Param(camera.ParamEye)
	require.True(t, ok)
	assert.Equal(t, ParamBinding{Group: 0, Binding: 3}, b)

	assert.Equal(t, PipelineTypeCompute, p.Trace().Type())
	assert.Equal(t, PipelineTypeRender, p.Composite().Type())
	assert.NotNil(t, p.Composite().Shader(shader.ShaderTypeVertex))
	assert.NotNil(t, p.Composite().Shader(shader.ShaderTypeFragment))
	assert.Nil(t, p.Composite().Shader(shader.ShaderTypeCompute))
	assert.False(t, p.Trace().Registered())
}

func TestResolveParamsReportsAbsentNames(t *testing.T) {
	s, err := shader.NewShaderFromSource("partial", shader.ShaderTypeCompute, partialKernel, shader.WithValidation(false))
	require.NoError(t, err)

	found, missing := ResolveParams(s)
	assert.Equal(t, ParamBinding{Group: 0, Binding: 3}, found[camera.ParamEye])
	assert.Equal(t, ParamBinding{Group: 1, Binding: 0}, found[camera.ParamFrameCount])
	assert.Len(t, found, 2)
	assert.Len(t, missing, len(camera.ParamNames)-2)
	assert.NotContains(t, missing, camera.ParamEye)
	assert.Contains(t, missing, camera.ParamRay00)
}

func TestNewProgramRequiresAllStages(t *testing.T) {
	stages := bundledStages(t)
	stages.Fragment = nil

	_, err := NewProgram(stages)
	assert.ErrorIs(t, err, ErrIncompleteProgram)

	_, err = NewProgram(nil)
	assert.ErrorIs(t, err, ErrIncompleteProgram)
}

func TestNewPipelineDefaults(t *testing.T) {
	p := NewPipeline("composite", PipelineTypeRender)

	assert.Equal(t, "composite", p.PipelineKey())
	assert.Equal(t, DefaultRasterState, p.Raster())
	assert.Nil(t, p.Raster().Blend)
	assert.Nil(t, p.BindGroupLayout(0))
	assert.Equal(t, "render", p.Type().String())

	// Releasing an unregistered pipeline is a no-op.
	p.Release()
	p.Release()
}

func TestWithStageSlotsByType(t *testing.T) {
	stages := bundledStages(t)
	p := NewPipeline("mixed", PipelineTypeRender, WithStage(stages.Fragment), WithStage(stages.Vertex), WithStage(nil))

	assert.Same(t, stages.Vertex, p.Shader(shader.ShaderTypeVertex))
	assert.Same(t, stages.Fragment, p.Shader(shader.ShaderTypeFragment))
	assert.Nil(t, p.Shader(shader.ShaderTypeCompute))
}
