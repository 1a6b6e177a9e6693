package checksum

import "unsafe"

// copyBlocksUnsafe walks both buffers with raw pointers, eight words per
// step, avoiding per-element bounds checks. The arithmetic is identical to
// copyBlocks; architecture init functions install it behind copyBlocksFnc
// when the CPU qualifies.
func copyBlocksUnsafe(dst, src []uint64) Checksum {
	c := New()
	n := len(src)
	if n == 0 {
		return c
	}
	sp := unsafe.Pointer(&src[0])
	dp := unsafe.Pointer(&dst[0])
	i := 0
	for ; i+blockWords <= n; i += blockWords {
		w0 := *(*uint64)(sp)
		w1 := *(*uint64)(unsafe.Add(sp, 8))
		w2 := *(*uint64)(unsafe.Add(sp, 16))
		w3 := *(*uint64)(unsafe.Add(sp, 24))
		w4 := *(*uint64)(unsafe.Add(sp, 32))
		w5 := *(*uint64)(unsafe.Add(sp, 40))
		w6 := *(*uint64)(unsafe.Add(sp, 48))
		w7 := *(*uint64)(unsafe.Add(sp, 56))
		c.fold(w0, w1, w2, w3)
		c.fold(w4, w5, w6, w7)
		*(*uint64)(dp) = w0
		*(*uint64)(unsafe.Add(dp, 8)) = w1
		*(*uint64)(unsafe.Add(dp, 16)) = w2
		*(*uint64)(unsafe.Add(dp, 24)) = w3
		*(*uint64)(unsafe.Add(dp, 32)) = w4
		*(*uint64)(unsafe.Add(dp, 40)) = w5
		*(*uint64)(unsafe.Add(dp, 48)) = w6
		*(*uint64)(unsafe.Add(dp, 56)) = w7
		sp = unsafe.Add(sp, blockWords*8)
		dp = unsafe.Add(dp, blockWords*8)
	}
	for ; i < n; i += groupWords {
		w0 := *(*uint64)(sp)
		w1 := *(*uint64)(unsafe.Add(sp, 8))
		w2 := *(*uint64)(unsafe.Add(sp, 16))
		w3 := *(*uint64)(unsafe.Add(sp, 24))
		c.fold(w0, w1, w2, w3)
		*(*uint64)(dp) = w0
		*(*uint64)(unsafe.Add(dp, 8)) = w1
		*(*uint64)(unsafe.Add(dp, 16)) = w2
		*(*uint64)(unsafe.Add(dp, 24)) = w3
		sp = unsafe.Add(sp, groupWords*8)
		dp = unsafe.Add(dp, groupWords*8)
	}
	return c
}
