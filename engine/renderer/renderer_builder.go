package renderer

import (
	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/shader"
)

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithStagePaths sets the WGSL files read by Reload.
//
// Parameters:
//   - paths: the compute, vertex and fragment file paths
//
// Returns:
//   - RendererBuilderOption: a function that applies the paths option to a renderer
func WithStagePaths(paths shader.StagePaths) RendererBuilderOption {
	return func(r *renderer) {
		r.paths = paths
	}
}

// WithLoader sets the loader used by Reload. The caller keeps ownership and closes it.
// When not specified the renderer creates and closes its own loader.
//
// Parameters:
//   - l: the shader loader
//
// Returns:
//   - RendererBuilderOption: a function that applies the loader option to a renderer
func WithLoader(l *shader.Loader) RendererBuilderOption {
	return func(r *renderer) {
		r.loader = l
		r.ownsLoader = false
	}
}

// WithValidation toggles the WGSL front-end validation of the renderer's own loader.
// Ignored when WithLoader supplies a loader.
//
// Parameters:
//   - enabled: true to parse and validate stages before GPU compilation (default)
//
// Returns:
//   - RendererBuilderOption: a function that applies the validation option to a renderer
func WithValidation(enabled bool) RendererBuilderOption {
	return func(r *renderer) {
		r.validate = enabled
	}
}

// WithPresentMode sets the surface present mode which controls how frames are delivered to the display.
//
// Parameters:
//   - mode: the PresentMode to use (VSync or Uncapped)
//
// Returns:
//   - RendererBuilderOption: a function that applies the present mode option to a renderer
func WithPresentMode(mode PresentMode) RendererBuilderOption {
	return func(r *renderer) {
		r.pendingPresentMode = &mode
	}
}

// WithForceSoftwareRenderer forces WGPU to use a CPU/software fallback adapter instead of
// hardware GPU acceleration. This requires a software Vulkan ICD to be installed on the system
// (e.g. SwiftShader or lavapipe).
//
// Parameters:
//   - force: true to force the software fallback adapter, false to use hardware (default)
//
// Returns:
//   - RendererBuilderOption: a function that applies the force software renderer option to a renderer
func WithForceSoftwareRenderer(force bool) RendererBuilderOption {
	return func(r *renderer) {
		r.forceFallbackAdapter = force
	}
}
