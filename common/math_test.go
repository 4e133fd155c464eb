package common

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// referencePow2 doubles until it reaches n.
func referencePow2(n uint32) uint32 {
	p := uint32(1)
	for p < n {
		p <<= 1
	}
	return p
}

func TestNextPowerOfTwoOne(t *testing.T) {
	assert.Equal(t, uint32(1), NextPowerOfTwo(1))
}

func TestNextPowerOfTwoSmallRangeExhaustive(t *testing.T) {
	for n := uint32(1); n <= 1<<16; n++ {
		got := NextPowerOfTwo(n)
		require.Equal(t, referencePow2(n), got, "n=%d", n)
	}
}

func TestNextPowerOfTwoBoundaries(t *testing.T) {
	for shift := 0; shift <= 30; shift++ {
		p := uint32(1) << shift
		assert.Equal(t, p, NextPowerOfTwo(p), "exact power 2^%d", shift)
		if p > 2 {
			assert.Equal(t, p, NextPowerOfTwo(p-1), "2^%d - 1", shift)
		}
		if shift < 30 {
			assert.Equal(t, p<<1, NextPowerOfTwo(p+1), "2^%d + 1", shift)
		}
	}
}

func TestNextPowerOfTwoRandomUpTo2To30(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for range 100000 {
		n := uint32(rng.Int63n(1<<30)) + 1
		got := NextPowerOfTwo(n)
		require.True(t, IsPowerOfTwo(got), "n=%d got=%d", n, got)
		require.GreaterOrEqual(t, got, n)
		require.Less(t, got/2, n, "n=%d got=%d is not the smallest", n, got)
	}
}

func TestCeilDiv(t *testing.T) {
	assert.Equal(t, uint32(0), CeilDiv(0, 8))
	assert.Equal(t, uint32(1), CeilDiv(1, 8))
	assert.Equal(t, uint32(1), CeilDiv(8, 8))
	assert.Equal(t, uint32(2), CeilDiv(9, 8))
}

func TestPutFloat32s(t *testing.T) {
	buf := make([]byte, 12)
	next := PutFloat32s(buf, 4, 1, -2)
	assert.Equal(t, 12, next)
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0x80, 0x3f, 0, 0, 0, 0xc0}, buf)
}

func TestViewportAspect(t *testing.T) {
	assert.InDelta(t, 400.0/300.0, Viewport{Width: 400, Height: 300}.Aspect(), 1e-6)
	assert.Equal(t, float32(1), Viewport{}.Aspect())
	assert.False(t, Viewport{Width: 10}.Valid())
}

func TestCoalesce(t *testing.T) {
	assert.Equal(t, 5, Coalesce(0, 5, 7))
	assert.Equal(t, "", Coalesce("", ""))
	assert.Equal(t, "a", Coalesce("a", "b"))
}
