package shader

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"
)

// nagaStages maps each shader type to the IR stage its entry point must carry.
var nagaStages = map[ShaderType]ir.ShaderStage{
	ShaderTypeVertex:   ir.StageVertex,
	ShaderTypeFragment: ir.StageFragment,
	ShaderTypeCompute:  ir.StageCompute,
}

// errFrontEndUnsupported marks WGSL the naga front end cannot handle yet. Such sources are
// handed to the driver unchecked instead of being rejected.
var errFrontEndUnsupported = errors.New("shader: construct not supported by the WGSL front end")

// unsupportedMarkers are substrings naga uses for features it has not implemented.
var unsupportedMarkers = []string{"not yet implemented", "not supported", "unsupported"}

// reflection holds what the naga front end reports about a processed WGSL module.
type reflection struct {
	entryPoint string
	workgroup  [3]uint32
	bindings   map[int]map[int]string
}

// reflectSource parses, lowers and validates processed WGSL through naga and extracts the
// entry point for the requested stage along with every bound global variable.
//
// Parameters:
//   - source: the pre-processed WGSL source
//   - shaderType: the stage whose entry point should be reported
//
// Returns:
//   - *reflection: the entry point, workgroup size and binding names found in the module
//   - error: the parse, lowering or validation failure
func reflectSource(source string, shaderType ShaderType) (*reflection, error) {
	ast, err := naga.Parse(source)
	if err != nil {
		return nil, classifyNagaError(err)
	}
	mod, err := naga.LowerWithSource(ast, source)
	if err != nil {
		return nil, classifyNagaError(err)
	}
	issues, err := naga.Validate(mod)
	if err != nil {
		return nil, classifyNagaError(err)
	}
	if len(issues) > 0 {
		msgs := make([]string, 0, len(issues))
		for _, issue := range issues {
			msgs = append(msgs, issue.Error())
		}
		return nil, fmt.Errorf("validation: %s", strings.Join(msgs, "; "))
	}

	r := &reflection{bindings: make(map[int]map[int]string)}
	stage := nagaStages[shaderType]
	for _, ep := range mod.EntryPoints {
		if ep.Stage == stage {
			r.entryPoint = ep.Name
			r.workgroup = ep.Workgroup
			break
		}
	}
	for _, gv := range mod.GlobalVariables {
		if gv.Binding == nil {
			continue
		}
		g, b := int(gv.Binding.Group), int(gv.Binding.Binding)
		if r.bindings[g] == nil {
			r.bindings[g] = make(map[int]string)
		}
		r.bindings[g][b] = gv.Name
	}
	return r, nil
}

// classifyNagaError tags front-end limitations with errFrontEndUnsupported and passes real
// source errors through unchanged.
func classifyNagaError(err error) error {
	msg := strings.ToLower(err.Error())
	for _, marker := range unsupportedMarkers {
		if strings.Contains(msg, marker) {
			return fmt.Errorf("%w: %w", errFrontEndUnsupported, err)
		}
	}
	return err
}
