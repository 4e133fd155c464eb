package common

// Key codes the input controller reacts to. The values are GLFW's, which use ASCII for
// printable keys, so the window layer passes glfw.Key through unchanged.
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Key
const (
	KeyR     = 82
	KeyEsc   = 256
	KeyRight = 262
	KeyLeft  = 263
	KeyDown  = 264
	KeyUp    = 265
)
