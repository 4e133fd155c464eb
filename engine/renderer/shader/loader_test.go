package shader

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-trace/engine/camera"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoaderLoadsBundledShaders(t *testing.T) {
	l := NewLoader(WithLoaderValidation(false))
	defer l.Close()

	stages, err := l.Load(StagePathsIn(filepath.Join("..", "..", "..", "assets", "shaders")))
	require.NoError(t, err)

	assert.Equal(t, [3]uint32{8, 8, 1}, stages.Compute.WorkgroupSize())
	for _, name := range camera.ParamNames {
		_, ok := stages.Compute.Binding(0, name)
		assert.True(t, ok, "kernel binds %s", name)
	}
	for _, name := range []string{VarOutputImage, VarAccumulation, VarRayCount} {
		_, ok := stages.Compute.Binding(0, name)
		assert.True(t, ok, "kernel binds %s", name)
	}
	_, ok := stages.Fragment.Binding(0, VarOutputImage)
	assert.True(t, ok)
	assert.Equal(t, "main", stages.Vertex.EntryPoint())
	assert.Empty(t, stages.Vertex.Layouts())
}

func TestLoaderJoinsStageFailures(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ComputeFile), []byte("fn nothing() {}\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, VertexFile), []byte("@vertex\nfn vs() -> @builtin(position) vec4<f32> {\n    return vec4<f32>(0.0, 0.0, 0.0, 1.0);\n}\n"), 0o644))

	l := NewLoader(WithLoaderValidation(false))
	defer l.Close()

	stages, err := l.Load(StagePathsIn(dir))
	require.Error(t, err)
	assert.Nil(t, stages)
	assert.True(t, errors.Is(err, ErrCompile), "compute has no entry point")
	assert.True(t, errors.Is(err, ErrSourceRead), "fragment file is missing")
}

func TestLoaderIsReusable(t *testing.T) {
	l := NewLoader(WithLoaderValidation(false))
	defer l.Close()

	paths := StagePathsIn(filepath.Join("..", "..", "..", "assets", "shaders"))
	for range 3 {
		_, err := l.Load(paths)
		require.NoError(t, err)
	}
}

func TestStagePathsFiles(t *testing.T) {
	p := StagePathsIn("shaders")
	assert.Equal(t, []string{
		filepath.Join("shaders", "compute.wgsl"),
		filepath.Join("shaders", "vertex.wgsl"),
		filepath.Join("shaders", "fragment.wgsl"),
	}, p.Files())
}
