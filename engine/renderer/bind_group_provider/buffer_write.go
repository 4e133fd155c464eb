package bind_group_provider

import (
	"github.com/Carmen-Shannon/oxy-trace/engine/camera"
)

// BufferWrite describes a single GPU buffer write operation targeting a specific binding
// on a BindGroupProvider at a given byte offset.
type BufferWrite struct {
	Provider BindGroupProvider
	Binding  int
	Offset   uint64
	Data     []byte
}

// ParamWrites builds one write per kernel parameter the provider binds. Parameters the
// bindings map does not contain are skipped.
//
// Parameters:
//   - provider: the kernel's bind group provider
//   - bindings: binding index by parameter name, for the provider's group
//   - params: the frame's kernel parameters
//
// Returns:
//   - []BufferWrite: the writes in parameter order
func ParamWrites(provider BindGroupProvider, bindings map[string]int, params *camera.KernelParams) []BufferWrite {
	writes := make([]BufferWrite, 0, len(bindings))
	for _, name := range camera.ParamNames {
		b, ok := bindings[name]
		if !ok {
			continue
		}
		writes = append(writes, BufferWrite{
			Provider: provider,
			Binding:  b,
			Data:     params.Marshal(name),
		})
	}
	return writes
}
