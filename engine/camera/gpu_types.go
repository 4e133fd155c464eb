package camera

import (
	"encoding/binary"

	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/go-gl/mathgl/mgl32"
)

// Kernel parameter names. Each one is a separate uniform binding in the compute shader.
const (
	ParamEye                        = "eye"
	ParamRay00                      = "ray00"
	ParamRay01                      = "ray01"
	ParamRay10                      = "ray10"
	ParamRay11                      = "ray11"
	ParamGlobalTime                 = "globalTime"
	ParamFrameCount                 = "frameCount"
	ParamTransposeInverseViewMatrix = "transposeInverseViewMatrix"
)

// ParamNames lists every kernel parameter in upload order.
var ParamNames = []string{
	ParamEye,
	ParamRay00,
	ParamRay01,
	ParamRay10,
	ParamRay11,
	ParamGlobalTime,
	ParamFrameCount,
	ParamTransposeInverseViewMatrix,
}

// ParamWGSLTypes maps each kernel parameter to its WGSL uniform type.
var ParamWGSLTypes = map[string]string{
	ParamEye:                        "vec3<f32>",
	ParamRay00:                      "vec3<f32>",
	ParamRay01:                      "vec3<f32>",
	ParamRay10:                      "vec3<f32>",
	ParamRay11:                      "vec3<f32>",
	ParamGlobalTime:                 "f32",
	ParamFrameCount:                 "i32",
	ParamTransposeInverseViewMatrix: "mat3x3<f32>",
}

// paramSizes holds the uniform buffer size for each parameter.
// vec3 and scalar uniforms are padded to 16 bytes, mat3x3 stores three 16-byte columns.
var paramSizes = map[string]int{
	ParamEye:                        16,
	ParamRay00:                      16,
	ParamRay01:                      16,
	ParamRay10:                      16,
	ParamRay11:                      16,
	ParamGlobalTime:                 16,
	ParamFrameCount:                 16,
	ParamTransposeInverseViewMatrix: 48,
}

// ParamSize returns the uniform buffer size for a kernel parameter, or 0 for an unknown name.
//
// Parameters:
//   - name: the parameter name
//
// Returns:
//   - int: the buffer size in bytes
func ParamSize(name string) int {
	return paramSizes[name]
}

// KernelParams is the per-frame parameter set consumed by the compute kernel.
type KernelParams struct {
	Eye                        mgl32.Vec3
	Rays                       [4]mgl32.Vec3 // ray00, ray01, ray10, ray11
	GlobalTime                 float32
	FrameCount                 int32
	TransposeInverseViewMatrix mgl32.Mat3
}

// Marshal serializes a single named parameter into a byte buffer suitable for GPU upload.
// Unknown names yield nil.
//
// Parameters:
//   - name: the parameter name
//
// Returns:
//   - []byte: the little-endian, padded parameter bytes
func (k *KernelParams) Marshal(name string) []byte {
	size, ok := paramSizes[name]
	if !ok {
		return nil
	}
	buf := make([]byte, size)

	switch name {
	case ParamEye:
		putVec3(buf, k.Eye)
	case ParamRay00:
		putVec3(buf, k.Rays[0])
	case ParamRay01:
		putVec3(buf, k.Rays[1])
	case ParamRay10:
		putVec3(buf, k.Rays[2])
	case ParamRay11:
		putVec3(buf, k.Rays[3])
	case ParamGlobalTime:
		common.PutFloat32s(buf, 0, k.GlobalTime)
	case ParamFrameCount:
		binary.LittleEndian.PutUint32(buf, uint32(k.FrameCount))
	case ParamTransposeInverseViewMatrix:
		for col := range 3 {
			putVec3(buf[col*16:], k.TransposeInverseViewMatrix.Col(col))
		}
	}
	return buf
}

// MarshalAll serializes every parameter keyed by name.
//
// Returns:
//   - map[string][]byte: parameter bytes by name
func (k *KernelParams) MarshalAll() map[string][]byte {
	out := make(map[string][]byte, len(ParamNames))
	for _, name := range ParamNames {
		out[name] = k.Marshal(name)
	}
	return out
}

func putVec3(buf []byte, v mgl32.Vec3) {
	common.PutFloat32s(buf, 0, v.X(), v.Y(), v.Z())
}
