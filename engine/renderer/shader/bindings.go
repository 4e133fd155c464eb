package shader

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

var (
	// declRegex captures group, binding, address space, name and type from a resource declaration
	// such as @group(0) @binding(3) var<uniform> eye: vec3<f32>;
	declRegex = regexp.MustCompile(`@group\((\d+)\)\s*@binding\((\d+)\)\s*var(?:<([^>]*)>)?\s+(\w+)\s*:\s*([^;]+?)\s*;`)

	// entryRegex captures the stage attribute and the function name that follows it.
	entryRegex = regexp.MustCompile(`(?s)@(vertex|fragment|compute)\b.*?\bfn\s+(\w+)`)

	// workgroupRegex captures up to three @workgroup_size dimensions.
	workgroupRegex = regexp.MustCompile(`@workgroup_size\(\s*(\d+)\s*(?:,\s*(\d+)\s*(?:,\s*(\d+)\s*)?)?\)`)

	// structRegex captures a struct name and its body.
	structRegex = regexp.MustCompile(`struct\s+(\w+)\s*\{([^}]*)\}`)

	// memberRegex captures a struct member name and type after any attributes.
	memberRegex = regexp.MustCompile(`^(?:@\w+(?:\([^)]*\))?\s*)*(\w+)\s*:\s*(.+)$`)
)

// texelFormats are the storage texel formats a kernel may write.
var texelFormats = map[string]wgpu.TextureFormat{
	"rgba8unorm":  wgpu.TextureFormatRGBA8Unorm,
	"bgra8unorm":  wgpu.TextureFormatBGRA8Unorm,
	"rgba16float": wgpu.TextureFormatRGBA16Float,
	"rgba32float": wgpu.TextureFormatRGBA32Float,
	"r32float":    wgpu.TextureFormatR32Float,
	"r32uint":     wgpu.TextureFormatR32Uint,
	"rgba32uint":  wgpu.TextureFormatRGBA32Uint,
}

var textureDimensions = map[string]wgpu.TextureViewDimension{
	"1d":       wgpu.TextureViewDimension1D,
	"2d":       wgpu.TextureViewDimension2D,
	"2d_array": wgpu.TextureViewDimension2DArray,
	"3d":       wgpu.TextureViewDimension3D,
	"cube":     wgpu.TextureViewDimensionCube,
}

var sampleTypes = map[string]wgpu.TextureSampleType{
	"f32": wgpu.TextureSampleTypeFloat,
	"i32": wgpu.TextureSampleTypeSint,
	"u32": wgpu.TextureSampleTypeUint,
}

var storageAccess = map[string]wgpu.StorageTextureAccess{
	"write":      wgpu.StorageTextureAccessWriteOnly,
	"read":       wgpu.StorageTextureAccessReadOnly,
	"read_write": wgpu.StorageTextureAccessReadWrite,
}

// typeLayout is the size and alignment of a host-shareable WGSL type.
type typeLayout struct {
	size  uint64
	align uint64
}

// layoutResolver sizes WGSL types, consulting the structs declared in the same source.
type layoutResolver struct {
	structs  map[string][]string
	resolved map[string]typeLayout
}

// reflectBindings extracts every @group @binding declaration from source. Entries within a group
// are sorted by binding and carry the given visibility. Buffer entries get a MinBindingSize when
// the bound type can be sized; runtime arrays report a single element.
//
// Parameters:
//   - source: the processed WGSL source
//   - visibility: the stage that declared the bindings
//
// Returns:
//   - map[int]wgpu.BindGroupLayoutDescriptor: layout descriptors keyed by group
//   - map[int]map[int]string: variable names keyed by group and binding
func reflectBindings(source string, visibility wgpu.ShaderStage) (map[int]wgpu.BindGroupLayoutDescriptor, map[int]map[int]string) {
	code := stripComments(source)
	lr := newLayoutResolver(code)

	entries := make(map[int][]wgpu.BindGroupLayoutEntry)
	names := make(map[int]map[int]string)
	for _, m := range declRegex.FindAllStringSubmatch(code, -1) {
		group, _ := strconv.Atoi(m[1])
		binding, _ := strconv.Atoi(m[2])
		space, name, typ := strings.TrimSpace(m[3]), m[4], strings.TrimSpace(m[5])

		entry := wgpu.BindGroupLayoutEntry{Binding: uint32(binding), Visibility: visibility}
		if space != "" {
			bufferEntry(&entry, space)
			if l, ok := lr.layout(typ); ok {
				entry.Buffer.MinBindingSize = l.size
			}
		} else {
			handleEntry(&entry, typ)
		}
		entries[group] = append(entries[group], entry)

		if names[group] == nil {
			names[group] = make(map[int]string)
		}
		names[group][binding] = name
	}

	out := make(map[int]wgpu.BindGroupLayoutDescriptor, len(entries))
	for g, list := range entries {
		sort.Slice(list, func(i, j int) bool { return list[i].Binding < list[j].Binding })
		out[g] = wgpu.BindGroupLayoutDescriptor{Entries: list}
	}
	return out, names
}

// bufferEntry fills the buffer binding type for an address space such as "uniform" or
// "storage, read_write".
func bufferEntry(entry *wgpu.BindGroupLayoutEntry, space string) {
	kind, access, _ := strings.Cut(space, ",")
	switch strings.TrimSpace(kind) {
	case "uniform":
		entry.Buffer.Type = wgpu.BufferBindingTypeUniform
	case "storage":
		if strings.TrimSpace(access) == "read_write" {
			entry.Buffer.Type = wgpu.BufferBindingTypeStorage
		} else {
			entry.Buffer.Type = wgpu.BufferBindingTypeReadOnlyStorage
		}
	}
}

// handleEntry fills the texture, storage texture or sampler fields for a handle type.
func handleEntry(entry *wgpu.BindGroupLayoutEntry, typ string) {
	base, params := splitParams(typ)
	switch {
	case base == "sampler":
		entry.Sampler.Type = wgpu.SamplerBindingTypeFiltering
	case base == "sampler_comparison":
		entry.Sampler.Type = wgpu.SamplerBindingTypeComparison
	case strings.HasPrefix(base, "texture_storage_"):
		entry.StorageTexture.ViewDimension = textureDimensions[strings.TrimPrefix(base, "texture_storage_")]
		format, access, _ := strings.Cut(params, ",")
		entry.StorageTexture.Format = texelFormats[strings.TrimSpace(format)]
		entry.StorageTexture.Access = storageAccess[strings.TrimSpace(access)]
	case strings.HasPrefix(base, "texture_multisampled_"):
		entry.Texture.ViewDimension = textureDimensions[strings.TrimPrefix(base, "texture_multisampled_")]
		entry.Texture.Multisampled = true
		entry.Texture.SampleType = sampleTypes[params]
	case strings.HasPrefix(base, "texture_depth_"):
		entry.Texture.ViewDimension = textureDimensions[strings.TrimPrefix(base, "texture_depth_")]
		entry.Texture.SampleType = wgpu.TextureSampleTypeDepth
	case strings.HasPrefix(base, "texture_"):
		entry.Texture.ViewDimension = textureDimensions[strings.TrimPrefix(base, "texture_")]
		entry.Texture.SampleType = sampleTypes[params]
	}
}

func newLayoutResolver(code string) *layoutResolver {
	lr := &layoutResolver{
		structs:  make(map[string][]string),
		resolved: make(map[string]typeLayout),
	}
	for _, m := range structRegex.FindAllStringSubmatch(code, -1) {
		lr.structs[m[1]] = splitTopLevel(m[2])
	}
	return lr
}

// layout sizes typ using the host-shareable layout rules. Builtin members are skipped, and a
// runtime array sizes as one element.
func (lr *layoutResolver) layout(typ string) (typeLayout, bool) {
	typ = strings.TrimSpace(typ)
	if l, ok := lr.resolved[typ]; ok {
		return l, true
	}

	var (
		l  typeLayout
		ok bool
	)
	switch base, params := splitParams(typ); {
	case base == "atomic":
		l, ok = scalarLayout(params)
	case base == "array":
		l, ok = lr.arrayLayout(params)
	case lr.structs[typ] != nil:
		// Guard against self reference while the struct is being sized.
		lr.resolved[typ] = typeLayout{}
		l, ok = lr.structLayout(lr.structs[typ])
		delete(lr.resolved, typ)
	default:
		l, ok = valueLayout(typ)
	}
	if ok {
		lr.resolved[typ] = l
	}
	return l, ok
}

func (lr *layoutResolver) arrayLayout(params string) (typeLayout, bool) {
	parts := splitTopLevel(params)
	elem, ok := lr.layout(parts[0])
	if !ok {
		return typeLayout{}, false
	}
	stride := alignUp(elem.align, elem.size)
	if len(parts) < 2 {
		return typeLayout{stride, elem.align}, true
	}
	n, err := strconv.ParseUint(strings.TrimSpace(parts[1]), 10, 64)
	if err != nil {
		return typeLayout{}, false
	}
	return typeLayout{n * stride, elem.align}, true
}

func (lr *layoutResolver) structLayout(members []string) (typeLayout, bool) {
	var offset uint64
	align := uint64(1)
	for _, member := range members {
		member = strings.TrimSpace(member)
		if member == "" || strings.Contains(member, "@builtin") {
			continue
		}
		m := memberRegex.FindStringSubmatch(member)
		if m == nil {
			return typeLayout{}, false
		}
		ml, ok := lr.layout(m[2])
		if !ok {
			return typeLayout{}, false
		}
		offset = alignUp(ml.align, offset) + ml.size
		align = max(align, ml.align)
	}
	return typeLayout{alignUp(align, offset), align}, true
}

// scalarLayout sizes the 32-bit scalars and f16.
func scalarLayout(name string) (typeLayout, bool) {
	switch name {
	case "f32", "i32", "u32", "bool":
		return typeLayout{4, 4}, true
	case "f16":
		return typeLayout{2, 2}, true
	}
	return typeLayout{}, false
}

// shorthandScalars maps the vector and matrix alias suffixes to their component type.
var shorthandScalars = map[byte]string{'f': "f32", 'i': "i32", 'u': "u32", 'h': "f16"}

// valueLayout sizes scalars, vectors and matrices, accepting both vec3<f32> and vec3f spellings.
func valueLayout(typ string) (typeLayout, bool) {
	if l, ok := scalarLayout(typ); ok {
		return l, true
	}
	base, scalar := splitParams(typ)
	if scalar == "" && len(base) > 0 {
		if s, ok := shorthandScalars[base[len(base)-1]]; ok {
			base, scalar = base[:len(base)-1], s
		}
	}
	comp, ok := scalarLayout(scalar)
	if !ok {
		return typeLayout{}, false
	}

	switch {
	case len(base) == 4 && strings.HasPrefix(base, "vec"):
		return vectorLayout(int(base[3]-'0'), comp)
	case len(base) == 6 && strings.HasPrefix(base, "mat") && base[4] == 'x':
		cols, rows := uint64(base[3]-'0'), int(base[5]-'0')
		col, ok := vectorLayout(rows, comp)
		if !ok || cols < 2 || cols > 4 {
			return typeLayout{}, false
		}
		return typeLayout{cols * alignUp(col.align, col.size), col.align}, true
	}
	return typeLayout{}, false
}

func vectorLayout(n int, comp typeLayout) (typeLayout, bool) {
	switch n {
	case 2:
		return typeLayout{2 * comp.size, 2 * comp.size}, true
	case 3:
		return typeLayout{3 * comp.size, 4 * comp.size}, true
	case 4:
		return typeLayout{4 * comp.size, 4 * comp.size}, true
	}
	return typeLayout{}, false
}

// alignUp rounds v up to a multiple of the power of two a.
func alignUp(a, v uint64) uint64 {
	if a == 0 {
		return v
	}
	return (v + a - 1) &^ (a - 1)
}

// entryPointFor returns the name of the first function carrying the stage attribute for t.
func entryPointFor(source string, t ShaderType) string {
	for _, m := range entryRegex.FindAllStringSubmatch(stripComments(source), -1) {
		if m[1] == t.String() {
			return m[2]
		}
	}
	return ""
}

// workgroupSizeOf returns the declared @workgroup_size, defaulting omitted dimensions to 1.
func workgroupSizeOf(source string) [3]uint32 {
	size := [3]uint32{1, 1, 1}
	m := workgroupRegex.FindStringSubmatch(stripComments(source))
	if m == nil {
		return size
	}
	for i, dim := range m[1:] {
		if v, err := strconv.ParseUint(dim, 10, 32); err == nil {
			size[i] = uint32(v)
		}
	}
	return size
}

// splitParams splits "texture_2d<f32>" into "texture_2d" and "f32".
func splitParams(typ string) (string, string) {
	base, rest, ok := strings.Cut(typ, "<")
	if !ok {
		return strings.TrimSpace(typ), ""
	}
	return strings.TrimSpace(base), strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(rest), ">"))
}

// splitTopLevel splits s at commas outside angle brackets.
func splitTopLevel(s string) []string {
	var out []string
	depth, start := 0, 0
	for i, c := range s {
		switch c {
		case '<':
			depth++
		case '>':
			depth = max(depth-1, 0)
		case ',':
			if depth == 0 {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	return append(out, s[start:])
}

// stripComments blanks line comments and nested block comments, keeping newlines so
// positions on other lines are unchanged.
func stripComments(source string) string {
	var sb strings.Builder
	sb.Grow(len(source))
	depth, line := 0, false
	for i := 0; i < len(source); i++ {
		c := source[i]
		next := byte(0)
		if i+1 < len(source) {
			next = source[i+1]
		}
		switch {
		case line:
			if c == '\n' {
				line = false
				sb.WriteByte(c)
			}
		case c == '/' && next == '*':
			depth++
			i++
		case depth > 0 && c == '*' && next == '/':
			depth--
			i++
		case depth > 0:
			if c == '\n' {
				sb.WriteByte(c)
			}
		case c == '/' && next == '/':
			line = true
			i++
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}
