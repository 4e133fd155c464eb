package bind_group_provider

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// ErrUnboundVariable is returned by Bind when a shader variable has no matching resource.
var ErrUnboundVariable = errors.New("bind_group_provider: shader variable has no resource")

// slot is one entry of a binding table. Exactly one field is set.
type slot struct {
	buffer *wgpu.Buffer
	view   *wgpu.TextureView
}

type bindGroupProvider struct {
	label  string
	layout *wgpu.BindGroupLayout
	group  *wgpu.BindGroup
	slots  map[int]slot
}

// BindGroupProvider is the binding table for group 0 of one pipeline. The renderer fills it
// from a Resources set by variable name, the backend creates the GPU bind group from it, and
// the frame passes read BindGroup. Every resource in the table is borrowed from the Resources
// set, so Release frees only the bind group.
type BindGroupProvider interface {
	// Label returns the debug label used for the bind group.
	Label() string

	// BindGroup returns the created bind group, or nil before the backend initializes it.
	BindGroup() *wgpu.BindGroup

	// BindGroupLayout returns the pipeline layout the bind group is created against.
	BindGroupLayout() *wgpu.BindGroupLayout

	// Buffer returns the buffer bound at binding, or nil.
	Buffer(binding int) *wgpu.Buffer

	// TextureView returns the texture view bound at binding, or nil.
	TextureView(binding int) *wgpu.TextureView

	// Bindings returns the filled binding indices in ascending order.
	Bindings() []int

	// Bind fills the table from the variables s declares in group. A texture view takes
	// precedence over a buffer of the same name.
	//
	// Parameters:
	//   - s: the shader whose reflection names the variables
	//   - group: the bind group index
	//   - res: the resources to bind
	//
	// Returns:
	//   - error: ErrUnboundVariable listing every variable with no resource
	Bind(s shader.Shader, group int, res *Resources) error

	// SetBindGroup stores the bind group created by the backend.
	SetBindGroup(bg *wgpu.BindGroup)

	// Release releases the bind group. It is safe to call more than once.
	Release()
}

var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates an empty binding table against layout.
//
// Parameters:
//   - label: the debug label
//   - layout: the pipeline's layout for the bound group, borrowed
//
// Returns:
//   - BindGroupProvider: the empty provider
func NewBindGroupProvider(label string, layout *wgpu.BindGroupLayout) BindGroupProvider {
	return &bindGroupProvider{
		label:  label,
		layout: layout,
		slots:  make(map[int]slot),
	}
}

func (p *bindGroupProvider) Label() string {
	return p.label
}

func (p *bindGroupProvider) BindGroup() *wgpu.BindGroup {
	return p.group
}

func (p *bindGroupProvider) BindGroupLayout() *wgpu.BindGroupLayout {
	return p.layout
}

func (p *bindGroupProvider) Buffer(binding int) *wgpu.Buffer {
	return p.slots[binding].buffer
}

func (p *bindGroupProvider) TextureView(binding int) *wgpu.TextureView {
	return p.slots[binding].view
}

func (p *bindGroupProvider) Bindings() []int {
	out := make([]int, 0, len(p.slots))
	for b := range p.slots {
		out = append(out, b)
	}
	slices.Sort(out)
	return out
}

func (p *bindGroupProvider) Bind(s shader.Shader, group int, res *Resources) error {
	vars := s.VarNames()[group]
	bindings := make([]int, 0, len(vars))
	for b := range vars {
		bindings = append(bindings, b)
	}
	slices.Sort(bindings)

	var unbound []string
	for _, b := range bindings {
		name := vars[b]
		switch {
		case res.TextureView(name) != nil:
			p.slots[b] = slot{view: res.TextureView(name)}
		case res.Buffer(name) != nil:
			p.slots[b] = slot{buffer: res.Buffer(name)}
		default:
			unbound = append(unbound, fmt.Sprintf("%s@%d", name, b))
		}
	}
	if len(unbound) > 0 {
		return fmt.Errorf("%w: %s group %d: %s", ErrUnboundVariable, s.Key(), group, strings.Join(unbound, ", "))
	}
	return nil
}

func (p *bindGroupProvider) SetBindGroup(bg *wgpu.BindGroup) {
	p.group = bg
}

func (p *bindGroupProvider) Release() {
	if p.group != nil {
		p.group.Release()
		p.group = nil
	}
}
