package shader

import (
	"errors"
	"fmt"
	"os"

	"github.com/Carmen-Shannon/oxy-trace/log"
	"github.com/cogentcore/webgpu/wgpu"
)

var logger = log.New("shader")

// ShaderType identifies which pipeline stage a shader feeds.
type ShaderType int

const (
	ShaderTypeCompute ShaderType = iota
	ShaderTypeVertex
	ShaderTypeFragment
)

// String returns the WGSL stage attribute name of the shader type.
func (t ShaderType) String() string {
	switch t {
	case ShaderTypeCompute:
		return "compute"
	case ShaderTypeVertex:
		return "vertex"
	case ShaderTypeFragment:
		return "fragment"
	default:
		return fmt.Sprintf("ShaderType(%d)", int(t))
	}
}

// visibility is the stage flag applied to every binding the shader declares.
func (t ShaderType) visibility() wgpu.ShaderStage {
	switch t {
	case ShaderTypeCompute:
		return wgpu.ShaderStageCompute
	case ShaderTypeVertex:
		return wgpu.ShaderStageVertex
	case ShaderTypeFragment:
		return wgpu.ShaderStageFragment
	default:
		return wgpu.ShaderStageNone
	}
}

// Shader is one processed and reflected WGSL stage. Everything it reports is derived once at
// construction; a changed file means a new Shader.
type Shader interface {
	// Key is the label used for GPU objects and log lines.
	Key() string

	// Path returns the file the shader was read from, or an empty string for in-memory sources.
	Path() string

	// ShaderType returns the stage the shader feeds.
	ShaderType() ShaderType

	// Source returns the WGSL after annotation expansion.
	Source() string

	// Module returns the module descriptor handed to the device.
	Module() *wgpu.ShaderModuleDescriptor

	// EntryPoint returns the name of the function carrying the stage attribute.
	EntryPoint() string

	// WorkgroupSize returns the compute workgroup dimensions. Non-compute stages report
	// [0, 0, 0] and an omitted @workgroup_size dimension reports 1.
	WorkgroupSize() [3]uint32

	// Layout returns the reflected layout of one bind group, empty when the group is not declared.
	//
	// Parameters:
	//   - group: the bind group index
	//
	// Returns:
	//   - wgpu.BindGroupLayoutDescriptor: the entries sorted by binding
	Layout(group int) wgpu.BindGroupLayoutDescriptor

	// Layouts returns every reflected bind group layout keyed by group index.
	Layouts() map[int]wgpu.BindGroupLayoutDescriptor

	// VarName returns the variable declared at group and binding, or an empty string.
	VarName(group, binding int) string

	// Binding looks a variable up by name within one group.
	//
	// Parameters:
	//   - group: the bind group index
	//   - name: the WGSL variable name
	//
	// Returns:
	//   - int: the binding index, or -1
	//   - bool: whether the group declares the variable
	Binding(group int, name string) (int, bool)

	// VarNames returns the declared variable names keyed by group and binding.
	VarNames() map[int]map[int]string

	// Declarations returns the @oxy annotations expanded while processing the source, in
	// source order.
	Declarations() []Annotation
}

type shader struct {
	key        string
	path       string
	shaderType ShaderType
	validate   bool
	pp         PreProcessor

	source     string
	module     *wgpu.ShaderModuleDescriptor
	entryPoint string
	workgroup  [3]uint32
	layouts    map[int]wgpu.BindGroupLayoutDescriptor
	names      map[int]map[int]string
}

var _ Shader = &shader{}

// NewShader reads a WGSL file and builds a Shader from it.
//
// Parameters:
//   - key: label for GPU objects and logging
//   - shaderType: the stage the shader feeds
//   - sourcePath: the WGSL file
//   - options: optional settings such as WithValidation
//
// Returns:
//   - Shader: the processed shader
//   - error: ErrSourceRead if the file cannot be read, ErrCompile if the source is rejected
func NewShader(key string, shaderType ShaderType, sourcePath string, options ...ShaderOption) (Shader, error) {
	if sourcePath == "" {
		return nil, fmt.Errorf("%w: %s has no source path", ErrSourceRead, key)
	}
	data, err := os.ReadFile(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSourceRead, sourcePath, err)
	}
	return build(key, shaderType, sourcePath, string(data), options)
}

// NewShaderFromSource builds a Shader from WGSL held in memory.
//
// Parameters:
//   - key: label for GPU objects and logging
//   - shaderType: the stage the shader feeds
//   - source: the raw WGSL, annotations included
//   - options: optional settings such as WithValidation
//
// Returns:
//   - Shader: the processed shader
//   - error: ErrCompile if the source is rejected
func NewShaderFromSource(key string, shaderType ShaderType, source string, options ...ShaderOption) (Shader, error) {
	return build(key, shaderType, "", source, options)
}

// build returns the Shader interface only on success so a failed build is a nil interface.
func build(key string, shaderType ShaderType, path, raw string, options []ShaderOption) (Shader, error) {
	s := &shader{
		key:        key,
		path:       path,
		shaderType: shaderType,
		validate:   true,
		pp:         NewPreProcessor(),
	}
	for _, opt := range options {
		opt(s)
	}
	if err := s.process(raw); err != nil {
		return nil, err
	}
	return s, nil
}

// process expands annotations, checks the result with naga when validation is on, and
// reflects the entry point, workgroup size and bindings. naga's answers win; the textual
// reflection covers sources naga cannot lower and the layout entries naga does not report.
func (s *shader) process(raw string) error {
	source, err := s.pp.Process(raw)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrCompile, s.label(), err)
	}
	s.source = source
	s.module = &wgpu.ShaderModuleDescriptor{
		Label:          s.key,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: source},
	}

	var refl *reflection
	if s.validate {
		refl, err = reflectSource(source, s.shaderType)
		switch {
		case errors.Is(err, errFrontEndUnsupported):
			logger.Warningf("%s: skipping front-end validation: %v", s.label(), err)
		case err != nil:
			return fmt.Errorf("%w: %s: %w", ErrCompile, s.label(), err)
		}
	}

	s.entryPoint = entryPointFor(source, s.shaderType)
	if refl != nil && refl.entryPoint != "" {
		s.entryPoint = refl.entryPoint
	}
	if s.entryPoint == "" {
		return fmt.Errorf("%w: %s: no @%s entry point", ErrCompile, s.label(), s.shaderType)
	}

	if s.shaderType == ShaderTypeCompute {
		s.workgroup = workgroupSizeOf(source)
		if refl != nil && refl.workgroup != [3]uint32{} {
			s.workgroup = refl.workgroup
		}
	}

	s.layouts, s.names = reflectBindings(source, s.shaderType.visibility())
	if refl != nil {
		for g, bindings := range refl.bindings {
			for b, name := range bindings {
				if s.VarName(g, b) == "" {
					logger.Warningf("%s: @group(%d) @binding(%d) %s has no layout entry", s.label(), g, b, name)
				}
			}
		}
	}
	return nil
}

// label names the shader in error messages, preferring the file path when known.
func (s *shader) label() string {
	if s.path != "" {
		return s.path
	}
	return s.key
}

func (s *shader) Key() string { return s.key }
func (s *shader) Path() string { return s.path }
func (s *shader) ShaderType() ShaderType { return s.shaderType }
func (s *shader) Source() string { return s.source }
func (s *shader) Module() *wgpu.ShaderModuleDescriptor { return s.module }
func (s *shader) EntryPoint() string { return s.entryPoint }
func (s *shader) WorkgroupSize() [3]uint32 { return s.workgroup }
func (s *shader) VarNames() map[int]map[int]string { return s.names }
func (s *shader) Declarations() []Annotation { return s.pp.Declarations() }
func (s *shader) Layouts() map[int]wgpu.BindGroupLayoutDescriptor { return s.layouts }

func (s *shader) Layout(group int) wgpu.BindGroupLayoutDescriptor {
	return s.layouts[group]
}

func (s *shader) VarName(group, binding int) string {
	return s.names[group][binding]
}

func (s *shader) Binding(group int, name string) (int, bool) {
	for b, n := range s.names[group] {
		if n == name {
			return b, true
		}
	}
	return -1, false
}
