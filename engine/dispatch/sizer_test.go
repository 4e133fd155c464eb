package dispatch

import (
	"math/rand"
	"testing"

	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/stretchr/testify/assert"
)

func TestGridPowerOfTwoPolicy(t *testing.T) {
	grid := Grid(common.Viewport{Width: 400, Height: 300}, [3]uint32{16, 16, 1})
	assert.Equal(t, [3]uint32{512 / 16, 512 / 16, 1}, grid)

	grid = Grid(common.Viewport{Width: 800, Height: 600}, [3]uint32{8, 8, 1})
	assert.Equal(t, [3]uint32{1024 / 8, 1024 / 8, 1}, grid)
}

func TestGridExactPowerOfTwo(t *testing.T) {
	grid := Grid(common.Viewport{Width: 256, Height: 128}, [3]uint32{16, 8, 1})
	assert.Equal(t, [3]uint32{16, 16, 1}, grid)
}

func TestGridWorkgroupLargerThanImage(t *testing.T) {
	vp := common.Viewport{Width: 3, Height: 1}
	wg := [3]uint32{64, 1, 1}
	grid := Grid(vp, wg)
	assert.Equal(t, [3]uint32{1, 1, 1}, grid)
	assert.True(t, Covers(grid, wg, vp))
}

func TestGridNonPowerOfTwoWorkgroupStillCovers(t *testing.T) {
	vp := common.Viewport{Width: 1000, Height: 7}
	wg := [3]uint32{24, 3, 1}
	grid := Grid(vp, wg)
	assert.True(t, Covers(grid, wg, vp))
}

func TestGridInvalidInputs(t *testing.T) {
	assert.Equal(t, [3]uint32{}, Grid(common.Viewport{Width: 0, Height: 300}, [3]uint32{8, 8, 1}))
	assert.Equal(t, [3]uint32{}, Grid(common.Viewport{Width: 400, Height: 300}, [3]uint32{0, 8, 1}))
}

func TestGridAlwaysCoversViewport(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	groups := []uint32{1, 2, 4, 8, 16, 32, 3, 5, 12}
	for range 20000 {
		vp := common.Viewport{Width: rng.Intn(8192) + 1, Height: rng.Intn(8192) + 1}
		wg := [3]uint32{groups[rng.Intn(len(groups))], groups[rng.Intn(len(groups))], 1}
		grid := Grid(vp, wg)
		if !assert.True(t, Covers(grid, wg, vp), "viewport %+v workgroup %v grid %v", vp, wg, grid) {
			return
		}
		assert.Equal(t, uint32(1), grid[2])
	}
}
