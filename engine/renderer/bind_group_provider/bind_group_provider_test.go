package bind_group_provider

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/Carmen-Shannon/oxy-trace/engine/camera"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const kernel = `//@oxy:resource 0 0 output_image
//@oxy:resource 0 1 accumulation
//@oxy:resource 0 2 ray_count
//@oxy:param 0 3 eye
//@oxy:param 0 9 frameCount

@compute @workgroup_size(8, 8, 1)
fn main(@builtin(global_invocation_id) gid: vec3<u32>) {
}
`

func testResources() *Resources {
	res := NewResources()
	res.OutputView = &wgpu.TextureView{}
	res.Accumulation = &wgpu.Buffer{}
	res.RayCounter = &wgpu.Buffer{}
	res.Params[camera.ParamEye] = &wgpu.Buffer{}
	res.Params[camera.ParamFrameCount] = &wgpu.Buffer{}
	return res
}

func TestBindFillsTableByVariableName(t *testing.T) {
	s, err := shader.NewShaderFromSource("kernel", shader.ShaderTypeCompute, kernel, shader.WithValidation(false))
	require.NoError(t, err)
	res := testResources()

	p := NewBindGroupProvider("kernel", nil)
	require.NoError(t, p.Bind(s, 0, res))

	assert.Equal(t, "kernel", p.Label())
	assert.Same(t, res.OutputView, p.TextureView(0))
	assert.Same(t, res.Accumulation, p.Buffer(1))
	assert.Same(t, res.RayCounter, p.Buffer(2))
	assert.Same(t, res.Params[camera.ParamEye], p.Buffer(3))
	assert.Same(t, res.Params[camera.ParamFrameCount], p.Buffer(9))
	assert.Nil(t, p.Buffer(0))
	assert.Nil(t, p.TextureView(1))
	assert.Equal(t, []int{0, 1, 2, 3, 9}, p.Bindings())
}

func TestBindReportsUnboundVariables(t *testing.T) {
	s, err := shader.NewShaderFromSource("kernel", shader.ShaderTypeCompute, kernel, shader.WithValidation(false))
	require.NoError(t, err)
	res := testResources()
	delete(res.Params, camera.ParamFrameCount)
	res.Accumulation = nil

	err = NewBindGroupProvider("kernel", nil).Bind(s, 0, res)
	require.ErrorIs(t, err, ErrUnboundVariable)
	assert.Contains(t, err.Error(), "accumulation@1")
	assert.Contains(t, err.Error(), "frameCount@9")
}

func TestParamWritesSkipsUnboundParams(t *testing.T) {
	p := NewBindGroupProvider("kernel", nil)
	params := &camera.KernelParams{Eye: mgl32.Vec3{4, 5, 5}, FrameCount: 7}

	writes := ParamWrites(p, map[string]int{camera.ParamEye: 3, camera.ParamFrameCount: 9}, params)
	require.Len(t, writes, 2)
	assert.Equal(t, 3, writes[0].Binding)
	assert.Equal(t, params.Marshal(camera.ParamEye), writes[0].Data)
	assert.Equal(t, 9, writes[1].Binding)
	assert.Equal(t, []byte{7, 0, 0, 0}, writes[1].Data[:4])
	for _, w := range writes {
		assert.Same(t, p, w.Provider)
		assert.Zero(t, w.Offset)
	}
}

func TestResourcesImageState(t *testing.T) {
	vp := common.Viewport{Width: 400, Height: 300}
	assert.Equal(t, uint64(400*300*16), AccumulationSize(vp))

	res := NewResources()
	assert.False(t, res.HasImage(vp))
	assert.Nil(t, res.TextureView(shader.VarAccumulation))
	assert.Nil(t, res.Buffer("unknown"))
}

func TestResourcesSetImageReturnsPrevious(t *testing.T) {
	res := NewResources()
	small := ImageSet{Viewport: common.Viewport{Width: 4, Height: 4}, Accumulation: &wgpu.Buffer{}}
	assert.Equal(t, ImageSet{}, res.SetImage(small))
	assert.Same(t, small.Accumulation, res.Buffer(shader.VarAccumulation))

	large := ImageSet{Viewport: common.Viewport{Width: 8, Height: 8}, Accumulation: &wgpu.Buffer{}}
	prev := res.SetImage(large)
	assert.Same(t, small.Accumulation, prev.Accumulation)
	assert.Equal(t, large.Viewport, res.Viewport)
	assert.Same(t, large.Accumulation, res.Buffer(shader.VarAccumulation))
}
