package renderer

import (
	"encoding/binary"
	"sync/atomic"

	"github.com/cogentcore/webgpu/wgpu"
)

const (
	mapPending int32 = iota
	mapSucceeded
	mapFailed
)

// rayReadback moves the ray counter to the CPU without ever waiting on the GPU.
// Start maps the staging buffer as soon as a copy is submitted; collect picks the value up
// on a later frame once a non-blocking Poll has completed the map.
type rayReadback struct {
	mapper  bufferMapper
	buffer  *wgpu.Buffer
	size    uint64
	mapping bool
	status  atomic.Int32

	latest uint32
	fresh  bool
}

func newRayReadback(mapper bufferMapper, buffer *wgpu.Buffer, size uint64) *rayReadback {
	return &rayReadback{mapper: mapper, buffer: buffer, size: size}
}

// CanCopy reports whether the staging buffer may receive a new copy.
func (r *rayReadback) CanCopy() bool {
	return !r.mapping
}

// Start requests a read map of the staging buffer after a copy into it was submitted.
func (r *rayReadback) Start() {
	if r.mapping {
		return
	}
	r.status.Store(mapPending)
	err := r.mapper.MapRead(r.buffer, r.size, func(ok bool) {
		if ok {
			r.status.Store(mapSucceeded)
		} else {
			r.status.Store(mapFailed)
		}
	})
	if err != nil {
		logger.Debugf("ray counter map failed: %v", err)
		return
	}
	r.mapping = true
}

// collect polls an in-flight map and keeps its value once the map completes.
func (r *rayReadback) collect() {
	if !r.mapping {
		return
	}
	r.mapper.Poll()
	switch r.status.Load() {
	case mapPending:
		return
	case mapFailed:
		r.mapping = false
		return
	}

	data := r.mapper.ReadMapped(r.buffer, r.size)
	r.mapping = false
	if len(data) < 4 {
		return
	}
	r.latest = binary.LittleEndian.Uint32(data)
	r.fresh = true
}

// Read returns the newest collected counter value, or false when nothing arrived since the
// previous Read.
func (r *rayReadback) Read() (uint32, bool) {
	r.collect()
	if !r.fresh {
		return 0, false
	}
	r.fresh = false
	return r.latest, true
}
