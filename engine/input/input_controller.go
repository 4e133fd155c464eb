package input

import "github.com/Carmen-Shannon/oxy-trace/common"

// Controller applies input events to the camera, viewport and accumulator.
// Every handler that changes the image invalidates the accumulator before returning,
// so the next dispatch always sees a zero counter.
type Controller interface {
	// Handle applies a single event.
	//
	// Parameters:
	//   - ev: the event to apply
	Handle(ev Event)

	// Step applies the per-frame auto-rotation when spinning. It invalidates when it rotates.
	//
	// Returns:
	//   - bool: true if the camera moved
	Step() bool

	// Spinning reports whether auto-rotation is on.
	//
	// Returns:
	//   - bool: the auto-rotate flag
	Spinning() bool

	// SetSpinning turns auto-rotation on or off without invalidating.
	//
	// Parameters:
	//   - spinning: the new flag value
	SetSpinning(spinning bool)

	// Viewport returns the current framebuffer size.
	//
	// Returns:
	//   - common.Viewport: the viewport last applied by a resize event
	Viewport() common.Viewport
}
