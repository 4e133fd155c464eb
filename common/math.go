package common

import (
	"encoding/binary"
	"math"
)

// NextPowerOfTwo returns the smallest power of two greater than or equal to n.
// Zero maps to zero and 1 maps to 1. Values above 2^31 overflow to zero.
//
// Parameters:
//   - n: the extent to round up
//
// Returns:
//   - uint32: the rounded extent
func NextPowerOfTwo(n uint32) uint32 {
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n++
	return n
}

// IsPowerOfTwo reports whether n is a non-zero power of two.
func IsPowerOfTwo(n uint32) bool {
	return n != 0 && n&(n-1) == 0
}

// CeilDiv divides a by b rounding toward positive infinity. b must be non-zero.
func CeilDiv(a, b uint32) uint32 {
	return (a + b - 1) / b
}

// PutFloat32s writes each value little-endian into buf starting at offset and returns the next offset.
// buf must have room for 4*len(values) bytes past offset.
//
// Parameters:
//   - buf: destination buffer
//   - offset: byte offset of the first value
//   - values: the floats to write
//
// Returns:
//   - int: the offset just past the last written value
func PutFloat32s(buf []byte, offset int, values ...float32) int {
	for _, v := range values {
		binary.LittleEndian.PutUint32(buf[offset:], math.Float32bits(v))
		offset += 4
	}
	return offset
}
