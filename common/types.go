// package common contains plain helper types and functions shared by the engine packages.
package common

// Viewport is the pixel size of the output image and the window framebuffer.
type Viewport struct {
	Width  int
	Height int
}

// Valid reports whether both dimensions are positive.
func (v Viewport) Valid() bool {
	return v.Width > 0 && v.Height > 0
}

// Aspect returns width divided by height, or 1 for an invalid viewport.
func (v Viewport) Aspect() float32 {
	if !v.Valid() {
		return 1
	}
	return float32(v.Width) / float32(v.Height)
}
