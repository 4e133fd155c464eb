// Package dispatch sizes compute dispatches so the kernel covers the whole output image.
package dispatch

import "github.com/Carmen-Shannon/oxy-trace/common"

// Grid returns the workgroup counts for a dispatch over the viewport.
// Each image extent is padded to the next power of two and divided by the workgroup extent.
// The kernel must discard invocations outside the image. If a workgroup extent does not
// divide the padded extent the count is rounded up so that grid*workgroup still covers it.
// An invalid viewport or a zero workgroup extent yields a zero grid.
//
// Parameters:
//   - viewport: the current output image size
//   - workgroup: the kernel's @workgroup_size, as [x, y, z]
//
// Returns:
//   - [3]uint32: the dispatch size, z is always 1 for a non-zero grid
func Grid(viewport common.Viewport, workgroup [3]uint32) [3]uint32 {
	if !viewport.Valid() || workgroup[0] == 0 || workgroup[1] == 0 {
		return [3]uint32{}
	}
	return [3]uint32{
		axis(uint32(viewport.Width), workgroup[0]),
		axis(uint32(viewport.Height), workgroup[1]),
		1,
	}
}

// Covers reports whether a grid dispatched with the given workgroup reaches every pixel.
func Covers(grid [3]uint32, workgroup [3]uint32, viewport common.Viewport) bool {
	return uint64(grid[0])*uint64(workgroup[0]) >= uint64(viewport.Width) &&
		uint64(grid[1])*uint64(workgroup[1]) >= uint64(viewport.Height)
}

func axis(extent, group uint32) uint32 {
	padded := common.NextPowerOfTwo(extent)
	if padded%group == 0 {
		return padded / group
	}
	return common.CeilDiv(padded, group)
}
