package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/Carmen-Shannon/oxy-trace/config"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer"
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/shader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeKeepsFileValuesForZeroOverrides(t *testing.T) {
	cfg := config.Default()
	cfg.Window.Width = 1024
	cfg.Shaders.Dir = "kernels"

	merged, err := merge(cfg, overrides{})
	require.NoError(t, err)
	assert.Equal(t, cfg, merged)
}

func TestMergeAppliesOverrides(t *testing.T) {
	off := false
	merged, err := merge(config.Default(), overrides{
		Width:      800,
		Height:     600,
		Shaders:    "custom",
		VSync:      &off,
		FrameLimit: 144,
		MaxSamples: 4096,
		NoWatch:    true,
		Software:   true,
	})
	require.NoError(t, err)

	assert.Equal(t, 800, merged.Window.Width)
	assert.Equal(t, 600, merged.Window.Height)
	assert.Equal(t, "custom", merged.Shaders.Dir)
	assert.False(t, merged.Window.VSync)
	assert.Equal(t, 144.0, merged.Window.FrameLimit)
	assert.Equal(t, uint32(4096), merged.Camera.MaxSamples)
	assert.False(t, merged.Watcher.Enabled)
	assert.True(t, merged.Window.ForceSoftware)
}

func TestMergeValidates(t *testing.T) {
	_, err := merge(config.Default(), overrides{Width: -1})
	assert.ErrorIs(t, err, config.ErrConfig)
}

func TestValidateShadersReportsBindings(t *testing.T) {
	var out bytes.Buffer
	err := validateShaders(&out, shader.StagePathsIn(filepath.Join("..", "..", "assets", "shaders")), common.Viewport{Width: 400, Height: 300})
	require.NoError(t, err)

	report := out.String()
	assert.Contains(t, report, "transposeInverseViewMatrix")
	assert.Contains(t, report, "mat3x3<f32>")
	assert.Contains(t, report, "Workgroup size: 8x8x1")
	assert.NotContains(t, report, "absent")
}

func TestValidateShadersFailsOnMissingStage(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, shader.ComputeFile), []byte("fn main() {}"), 0o644))

	var out bytes.Buffer
	err := validateShaders(&out, shader.StagePathsIn(dir), common.Viewport{Width: 4, Height: 4})
	assert.ErrorIs(t, err, shader.ErrSourceRead)
	assert.Empty(t, out.String())
}

func TestDisplayAdapter(t *testing.T) {
	var out bytes.Buffer
	displayAdapter(&out, renderer.AdapterInfo{Name: "llvmpipe", Backend: "Vulkan", MaxStorageBinding: 128 << 20})

	assert.Contains(t, out.String(), "llvmpipe")
	assert.Contains(t, out.String(), "128 MiB")
}
