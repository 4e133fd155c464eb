// pre_processor.go implements the Oxy WGSL shader pre-processor. It scans shader
// source code for @oxy: annotations, replaces them with generated WGSL declarations,
// and collects a declarations list the renderer can inspect after loading.
package shader

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-trace/engine/camera"
)

// preProcessor is the implementation of the PreProcessor interface.
type preProcessor struct {
	// paramTypes maps kernel parameter names to their WGSL uniform types.
	paramTypes map[string]string

	// declarations accumulates the annotations expanded during a Process call.
	// Reset at the start of each Process invocation.
	declarations []Annotation
}

// PreProcessor expands @oxy: annotations in WGSL source into concrete declarations.
type PreProcessor interface {
	// Process replaces every @oxy:param and @oxy:resource annotation with its
	// @group/@binding declaration. Lines without annotations are kept unchanged, so
	// line numbers in later compile errors still match the file.
	//
	// Parameters:
	//   - source: the raw WGSL shader source code containing annotations to be processed
	//
	// Returns:
	//   - string: the processed WGSL shader source code with annotations replaced
	//   - error: an error if any annotation is malformed or binds the same slot twice
	Process(source string) (string, error)

	// Declarations returns the annotations expanded by the most recent call to Process,
	// in source order.
	//
	// Returns:
	//   - []Annotation: the declarations collected during the last Process call
	Declarations() []Annotation
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a PreProcessor that knows every kernel parameter type.
//
// Returns:
//   - PreProcessor: a ready-to-use pre-processor instance
func NewPreProcessor() PreProcessor {
	return &preProcessor{
		paramTypes: camera.ParamWGSLTypes,
	}
}

func (p *preProcessor) Process(source string) (string, error) {
	p.declarations = p.declarations[:0]

	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))
	slots := make(map[[2]int]int)

	for i, line := range lines {
		a, err := parseAnnotation(line, i+1)
		if err != nil {
			return "", err
		}
		if a == nil {
			out = append(out, line)
			continue
		}

		slot := [2]int{*a.Group, *a.Binding}
		if prev, dup := slots[slot]; dup {
			return "", fmt.Errorf("line %d: @group(%d) @binding(%d) already declared on line %d", i+1, slot[0], slot[1], prev)
		}
		slots[slot] = i + 1

		var decl string
		switch a.Type {
		case AnnotationTypeParam:
			name := string(a.Args[0])
			decl = fmt.Sprintf("var<uniform> %s: %s", name, p.paramTypes[name])
		case AnnotationTypeResource:
			decl = resourceDeclarations[a.Args[0]].decl
		default:
			return "", fmt.Errorf("line %d: unknown annotation type %q", i+1, a.Type)
		}

		out = append(out, fmt.Sprintf("@group(%d) @binding(%d) %s;", *a.Group, *a.Binding, decl))
		p.declarations = append(p.declarations, *a)
	}
	return strings.Join(out, "\n"), nil
}

func (p *preProcessor) Declarations() []Annotation {
	return p.declarations
}
