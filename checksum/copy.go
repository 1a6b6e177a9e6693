package checksum

import (
	"fmt"
	"math"
	"sync/atomic"
	"unsafe"
)

// CopyFunc is the shared contract of the copy strategies: move src into dst
// and return the checksum of the words that passed through. All strategies
// produce identical destination bytes and identical checksums for identical
// inputs; they differ only in execution technique.
type CopyFunc func(dst, src []uint64) (Checksum, error)

// Strategy returns the copy strategy registered under name. The names form
// the dispatch table a caller selects from at startup: "baseline", "warm"
// and "fast".
func Strategy(name string) (CopyFunc, error) {
	switch name {
	case "baseline":
		return CopyBaseline, nil
	case "warm":
		return CopyWarm, nil
	case "fast":
		return CopyFast, nil
	}
	return nil, fmt.Errorf("checksum: unknown copy strategy %q", name)
}

// checkCopy validates the copy preconditions. Violations are checked
// failures here rather than undefined behavior: no bytes are written and the
// caller's output is untouched.
func checkCopy(dst, src []uint64) error {
	if len(dst) != len(src) {
		return ErrBadLength
	}
	if err := checkSize(len(src)); err != nil {
		return err
	}
	if overlaps(dst, src) {
		return ErrOverlap
	}
	return nil
}

// overlaps reports whether the two slices share any backing memory.
func overlaps(a, b []uint64) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	aLo := uintptr(unsafe.Pointer(&a[0]))
	aHi := aLo + uintptr(len(a))*8
	bLo := uintptr(unsafe.Pointer(&b[0]))
	bHi := bLo + uintptr(len(b))*8
	return aLo < bHi && bLo < aHi
}

// CopyBaseline moves src into dst in eight-word blocks, folding each block
// into the checksum as it passes. The fold and the store are one fused loop:
// a separate copy-then-checksum pass would warm the cache differently and
// mask the memory-subsystem faults this exists to expose.
func CopyBaseline(dst, src []uint64) (Checksum, error) {
	if err := checkCopy(dst, src); err != nil {
		return Checksum{}, err
	}
	return copyBlocks(dst, src), nil
}

// CopyFast moves src into dst through the fastest body available on this
// CPU, selected once at startup. Results are identical to CopyBaseline.
func CopyFast(dst, src []uint64) (Checksum, error) {
	if err := checkCopy(dst, src); err != nil {
		return Checksum{}, err
	}
	return copyBlocksFnc(dst, src), nil
}

// copyBlocksFnc is the dispatch seam for the fast strategy. Architecture
// init functions swap in a specialized body when the CPU qualifies; the
// portable loop is the fallback. A streaming-store assembly body would be
// installed here as well.
var copyBlocksFnc = copyBlocks

// copyBlocks is the portable fold-and-write loop. Preconditions are already
// checked, so the word count is a multiple of four; the tail handles a
// four-word group left over after the eight-word blocks.
func copyBlocks(dst, src []uint64) Checksum {
	c := New()
	n := len(src)
	i := 0
	for ; i+blockWords <= n; i += blockWords {
		w0, w1, w2, w3 := src[i], src[i+1], src[i+2], src[i+3]
		w4, w5, w6, w7 := src[i+4], src[i+5], src[i+6], src[i+7]
		c.fold(w0, w1, w2, w3)
		c.fold(w4, w5, w6, w7)
		dst[i], dst[i+1], dst[i+2], dst[i+3] = w0, w1, w2, w3
		dst[i+4], dst[i+5], dst[i+6], dst[i+7] = w4, w5, w6, w7
	}
	for ; i < n; i += groupWords {
		w0, w1, w2, w3 := src[i], src[i+1], src[i+2], src[i+3]
		c.fold(w0, w1, w2, w3)
		dst[i], dst[i+1], dst[i+2], dst[i+3] = w0, w1, w2, w3
	}
	return c
}

// warmSink publishes the warm strategy's floating-point result so the
// auxiliary workload cannot be eliminated as dead code.
var warmSink atomic.Uint64

// CopyWarm behaves exactly like CopyBaseline while additionally running a
// floating-point mul-add stream over the same words, loading the FP units
// while the memory system is saturated. Destination bytes and checksum are
// byte-for-byte identical to the baseline.
func CopyWarm(dst, src []uint64) (Checksum, error) {
	if err := checkCopy(dst, src); err != nil {
		return Checksum{}, err
	}
	c := New()
	n := len(src)
	f := 1.0
	i := 0
	for ; i+blockWords <= n; i += blockWords {
		w0, w1, w2, w3 := src[i], src[i+1], src[i+2], src[i+3]
		w4, w5, w6, w7 := src[i+4], src[i+5], src[i+6], src[i+7]
		c.fold(w0, w1, w2, w3)
		c.fold(w4, w5, w6, w7)
		f = f*0.5 + float64(w0>>11) + float64(w4>>11)
		f = f*0.5 + float64(w3>>11) + float64(w7>>11)
		dst[i], dst[i+1], dst[i+2], dst[i+3] = w0, w1, w2, w3
		dst[i+4], dst[i+5], dst[i+6], dst[i+7] = w4, w5, w6, w7
	}
	for ; i < n; i += groupWords {
		w0, w1, w2, w3 := src[i], src[i+1], src[i+2], src[i+3]
		c.fold(w0, w1, w2, w3)
		f = f*0.5 + float64(w0>>11) + float64(w3>>11)
		dst[i], dst[i+1], dst[i+2], dst[i+3] = w0, w1, w2, w3
	}
	warmSink.Store(math.Float64bits(f))
	return c, nil
}
