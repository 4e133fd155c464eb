package shader

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessExpandsParamAnnotations(t *testing.T) {
	src := strings.Join([]string{
		"//@oxy:param 0 3 eye",
		"  // @oxy:param 0 9 frameCount",
		"//@oxy:param 0 10 transposeInverseViewMatrix",
		"fn helper() {}",
	}, "\n")

	pp := NewPreProcessor()
	out, err := pp.Process(src)
	require.NoError(t, err)

	lines := strings.Split(out, "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "@group(0) @binding(3) var<uniform> eye: vec3<f32>;", lines[0])
	assert.Equal(t, "@group(0) @binding(9) var<uniform> frameCount: i32;", lines[1])
	assert.Equal(t, "@group(0) @binding(10) var<uniform> transposeInverseViewMatrix: mat3x3<f32>;", lines[2])
	assert.Equal(t, "fn helper() {}", lines[3])

	decls := pp.Declarations()
	require.Len(t, decls, 3)
	assert.Equal(t, AnnotationTypeParam, decls[0].Type)
	assert.Equal(t, AnnotationArg("eye"), decls[0].Args[0])
	assert.Equal(t, 1, decls[0].Line)
	assert.Equal(t, 9, *decls[1].Binding)
}

func TestProcessExpandsResourceAnnotations(t *testing.T) {
	pp := NewPreProcessor()
	out, err := pp.Process("//@oxy:resource 0 0 output_image\n//@oxy:resource 0 1 accumulation\n//@oxy:resource 0 2 ray_count")
	require.NoError(t, err)
	assert.Equal(t, strings.Join([]string{
		"@group(0) @binding(0) var outputImage: texture_storage_2d<rgba16float, write>;",
		"@group(0) @binding(1) var<storage, read_write> accumulation: array<vec4<f32>>;",
		"@group(0) @binding(2) var<storage, read_write> rayCount: atomic<u32>;",
	}, "\n"), out)

	out, err = pp.Process("//@oxy:resource 1 4 composite_image")
	require.NoError(t, err)
	assert.Equal(t, "@group(1) @binding(4) var outputImage: texture_2d<f32>;", out)
	assert.Len(t, pp.Declarations(), 1, "declarations reset between calls")
}

func TestProcessLeavesOrdinaryComments(t *testing.T) {
	src := "// plain comment\nlet x = 1; // @oxy:param 0 0 eye"
	out, err := NewPreProcessor().Process(src)
	require.NoError(t, err)
	assert.Equal(t, src, out)
}

func TestProcessRejectsMalformedAnnotations(t *testing.T) {
	cases := map[string]string{
		"empty":          "//@oxy:",
		"unknown type":   "//@oxy:texture 0 0 eye",
		"missing args":   "//@oxy:param 0 eye",
		"bad group":      "//@oxy:param x 0 eye",
		"negative":       "//@oxy:param 0 -1 eye",
		"unknown param":  "//@oxy:param 0 0 fov",
		"unknown role":   "//@oxy:resource 0 0 depth",
		"duplicate slot": "//@oxy:param 0 1 eye\n//@oxy:param 0 1 ray00",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewPreProcessor().Process(src)
			assert.Error(t, err)
		})
	}
}

func TestDuplicateSlotNamesBothLines(t *testing.T) {
	_, err := NewPreProcessor().Process("//@oxy:param 0 1 eye\n\n//@oxy:param 0 1 ray00")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 3")
	assert.Contains(t, err.Error(), "line 1")
}
