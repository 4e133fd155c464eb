package renderer

import "errors"

var (
	// ErrNoProgram is returned by frame operations before a program was loaded.
	ErrNoProgram = errors.New("renderer: no program loaded")

	// ErrReleased is returned by operations on a released renderer.
	ErrReleased = errors.New("renderer: released")
)
