package shader

// ShaderOption configures optional behavior of NewShader and NewShaderFromSource.
type ShaderOption func(*shader)

// WithValidation toggles the naga parse and validation pass that runs before the source
// is handed to the GPU driver. Enabled by default.
//
// Parameters:
//   - enabled: false skips front-end validation and relies on the driver alone
//
// Returns:
//   - ShaderOption: a function that applies the setting to a shader
func WithValidation(enabled bool) ShaderOption {
	return func(s *shader) {
		s.validate = enabled
	}
}
