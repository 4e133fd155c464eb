// annotations.go defines the annotation types, argument constants, and parser for the
// Oxy WGSL shader pre-processor. Annotations are single-line WGSL comments prefixed
// with @oxy: that expand into the canonical declarations of the kernel parameters and
// tracer resources, so shader authors only pick the group and binding.
package shader

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/Carmen-Shannon/oxy-trace/engine/camera"
)

// annotationPrefix is the marker that identifies an Oxy annotation within a WGSL comment line.
// Every annotation must appear on a line beginning with "//" followed by this prefix.
const annotationPrefix = "@oxy:"

// AnnotationType identifies the kind of annotation parsed from a WGSL comment line.
type AnnotationType string

const (
	// AnnotationTypeParam generates a var<uniform> declaration for a kernel parameter,
	// typed from the parameter's registered WGSL type.
	//
	// Syntax: //@oxy:param <group> <binding> <param_name>
	//
	// Example: //@oxy:param 0 3 eye
	AnnotationTypeParam AnnotationType = "param"

	// AnnotationTypeResource generates the declaration of one of the tracer's GPU resources
	// (output image, accumulation buffer, ray counter or the composited image).
	//
	// Syntax: //@oxy:resource <group> <binding> <resource_role>
	//
	// Example: //@oxy:resource 0 0 output_image
	AnnotationTypeResource AnnotationType = "resource"
)

// Annotation represents a single parsed @oxy: annotation from a WGSL shader source line.
type Annotation struct {
	// Type identifies which annotation was parsed.
	Type AnnotationType

	// Args holds the annotation's arguments:
	//   - param:    [0] = parameter name (e.g. "ray00")
	//   - resource: [0] = resource role (e.g. "output_image")
	Args []AnnotationArg

	// Line is the 1-based line number in the original WGSL source.
	Line int

	// Group is the @group index.
	Group *int

	// Binding is the @binding index.
	Binding *int
}

// AnnotationArg is a typed string used as an argument in annotations.
type AnnotationArg string

// Resource role arguments accepted by @oxy:resource.
const (
	// AnnotationArgOutputImage is the storage texture the kernel writes each frame.
	AnnotationArgOutputImage AnnotationArg = "output_image"

	// AnnotationArgAccumulation is the running per-pixel sum the kernel blends into.
	AnnotationArgAccumulation AnnotationArg = "accumulation"

	// AnnotationArgRayCount is the atomic ray counter zeroed before each dispatch.
	AnnotationArgRayCount AnnotationArg = "ray_count"

	// AnnotationArgCompositeImage is the output image as read by the fragment shader.
	AnnotationArgCompositeImage AnnotationArg = "composite_image"
)

// Variable names bound by the renderer. Resource annotations expand to these names.
const (
	VarOutputImage  = "outputImage"
	VarAccumulation = "accumulation"
	VarRayCount     = "rayCount"
)

// resourceDeclarations maps each resource role to its variable name and WGSL declaration tail.
var resourceDeclarations = map[AnnotationArg]struct {
	name string
	decl string
}{
	AnnotationArgOutputImage:    {VarOutputImage, "var outputImage: texture_storage_2d<rgba16float, write>"},
	AnnotationArgAccumulation:   {VarAccumulation, "var<storage, read_write> accumulation: array<vec4<f32>>"},
	AnnotationArgRayCount:       {VarRayCount, "var<storage, read_write> rayCount: atomic<u32>"},
	AnnotationArgCompositeImage: {VarOutputImage, "var outputImage: texture_2d<f32>"},
}

// validResourceRoles lists the roles accepted by @oxy:resource in a stable order.
var validResourceRoles = []AnnotationArg{
	AnnotationArgOutputImage,
	AnnotationArgAccumulation,
	AnnotationArgRayCount,
	AnnotationArgCompositeImage,
}

// parseAnnotation attempts to parse a single line of WGSL source as an @oxy: annotation.
// Returns nil with no error for lines that do not contain the annotation prefix.
//
// Parameters:
//   - line: the raw WGSL source line to parse
//   - lineNum: the 1-based line number for error reporting
//
// Returns:
//   - *Annotation: the parsed annotation, or nil if the line is not an annotation
//   - error: a descriptive error if the annotation is malformed
func parseAnnotation(line string, lineNum int) (*Annotation, error) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "//") {
		return nil, nil
	}
	_, after, ok := strings.Cut(trimmed, annotationPrefix)
	if !ok {
		return nil, nil
	}

	args := strings.Fields(after)
	if len(args) == 0 {
		return nil, fmt.Errorf("line %d: empty @oxy annotation", lineNum)
	}

	kind := AnnotationType(args[0])
	switch kind {
	case AnnotationTypeParam, AnnotationTypeResource:
	default:
		return nil, fmt.Errorf("line %d: unknown @oxy annotation type %q", lineNum, args[0])
	}

	if len(args) != 4 {
		return nil, fmt.Errorf("line %d: @oxy %s annotation requires exactly three arguments (group, binding, name)", lineNum, kind)
	}
	group, err := strconv.Atoi(args[1])
	if err != nil || group < 0 {
		return nil, fmt.Errorf("line %d: invalid group number %q in @oxy %s annotation", lineNum, args[1], kind)
	}
	binding, err := strconv.Atoi(args[2])
	if err != nil || binding < 0 {
		return nil, fmt.Errorf("line %d: invalid binding number %q in @oxy %s annotation", lineNum, args[2], kind)
	}

	name := AnnotationArg(args[3])
	switch kind {
	case AnnotationTypeParam:
		if _, ok := camera.ParamWGSLTypes[string(name)]; !ok {
			return nil, fmt.Errorf("line %d: unknown kernel parameter %q in @oxy param annotation", lineNum, name)
		}
	case AnnotationTypeResource:
		if !slices.Contains(validResourceRoles, name) {
			return nil, fmt.Errorf("line %d: unknown resource role %q in @oxy resource annotation", lineNum, name)
		}
	}

	return &Annotation{
		Type:    kind,
		Args:    []AnnotationArg{name},
		Line:    lineNum,
		Group:   &group,
		Binding: &binding,
	}, nil
}
