package shader

import "errors"

var (
	// ErrCompile is returned when a shader fails pre-processing, parsing or validation.
	ErrCompile = errors.New("shader: compile failed")

	// ErrSourceRead is returned when a shader file cannot be read from disk.
	ErrSourceRead = errors.New("shader: source unreadable")
)
