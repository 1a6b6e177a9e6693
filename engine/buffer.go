package engine

import (
	"sync"
	"unsafe"
)

// DefaultRegionBytes is the default size of the word regions allocated for
// stress jobs. 1MB keeps a region pair well under the copy size gate while
// still spanning enough of the memory hierarchy to matter.
const DefaultRegionBytes = 1 * 1024 * 1024

// RegionPool manages reusable 64-bit word regions to minimize GC overhead
// across long runs. Every region it hands out is 16-byte aligned, which a
// specialized copy body may rely on.
type RegionPool struct {
	pool  sync.Pool
	words int
}

// NewRegionPool creates a new RegionPool that allocates regions of the
// specified byte size. If sizeBytes is <= 0, DefaultRegionBytes is used.
func NewRegionPool(sizeBytes int) *RegionPool {
	if sizeBytes <= 0 {
		sizeBytes = DefaultRegionBytes
	}
	words := sizeBytes / 8
	return &RegionPool{
		words: words,
		pool: sync.Pool{
			New: func() any {
				return alignedRegion(words)
			},
		},
	}
}

// Words returns the length in 64-bit words of the regions this pool hands out.
func (rp *RegionPool) Words() int {
	return rp.words
}

// Get retrieves a reusable region from the pool.
// The caller should defer calling Put on this region once finished.
func (rp *RegionPool) Get() []uint64 {
	return rp.pool.Get().([]uint64)
}

// Put returns the region to the pool so it can be reused.
// The caller should not hold onto or read/write the region after calling Put.
func (rp *RegionPool) Put(r []uint64) {
	if r != nil {
		rp.pool.Put(r)
	}
}

// alignedRegion allocates a word slice whose first element sits on a 16-byte
// boundary. The runtime only guarantees 8-byte alignment for []uint64, so one
// spare word is allocated and trimmed off when needed.
func alignedRegion(words int) []uint64 {
	raw := make([]uint64, words+1)
	if uintptr(unsafe.Pointer(&raw[0]))%16 == 0 {
		return raw[:words]
	}
	return raw[1 : words+1]
}
