package window

const (
	DefaultTitle  = "oxy-trace"
	DefaultWidth  = 400
	DefaultHeight = 300

	// MinSize is the smallest width and height the window can be resized to.
	MinSize = 64
)

// WindowBuilderOption is a functional option for configuring an engineWindow.
type WindowBuilderOption func(w *engineWindow)

// WithTitle sets the window title displayed in the title bar.
//
// Parameters:
//   - title: the window title text
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithTitle(title string) WindowBuilderOption {
	return func(w *engineWindow) {
		w.title = title
	}
}

// WithSize sets the requested client size. Non-positive values keep the default, and the
// framebuffer may end up larger on high-DPI displays.
//
// Parameters:
//   - width: initial width in pixels
//   - height: initial height in pixels
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithSize(width, height int) WindowBuilderOption {
	return func(w *engineWindow) {
		if width > 0 {
			w.width = max(width, MinSize)
		}
		if height > 0 {
			w.height = max(height, MinSize)
		}
	}
}
