// Package checksum implements the checksummed memory-copy primitive at the
// heart of memstress: a modified Adler checksum computed over 64-bit words
// while the words are moved from a source region to a destination region.
// Corruption introduced by faulty RAM or bus errors during the copy shows up
// as a disagreement between two checksums of data that should be identical.
//
// Classic Adler treats data as bytes and keeps two 16-bit sums a and b, with
// a starting at 1, b at 0, and for each byte d: a += d; b += a. Here the data
// unit is a 64-bit word and the stream is split across two independent (a,b)
// pairs for throughput: words 0 and 1 of every four-word group feed pair one,
// words 2 and 3 feed pair two. The sums are never reduced modulo a prime;
// instead every entry point bounds the word count so the sums cannot
// overflow.
package checksum

import (
	"errors"
	"fmt"
)

// MaxWords is the largest number of 64-bit words a single checksum or copy
// call may process. Keeping the count below 2^19 guarantees the running sums
// cannot overflow, so the bound is enforced at every entry point rather than
// reducing the sums on the hot path.
const MaxWords = 1 << 19

const (
	groupWords = 4 // words folded per accumulator update
	blockWords = 8 // words moved per copy block, two folds each
)

var (
	// ErrSizeTooLarge is returned when a buffer holds MaxWords or more
	// 64-bit words. Callers can recover by splitting the buffer.
	ErrSizeTooLarge = errors.New("checksum: buffer must be under 2^19 words")

	// ErrBadLength is returned when a buffer's word count is not a multiple
	// of four, or when the two sides of a copy differ in length.
	ErrBadLength = errors.New("checksum: word count must be a multiple of 4")

	// ErrOverlap is returned when the source and destination of a copy share
	// backing memory.
	ErrOverlap = errors.New("checksum: source and destination overlap")
)

// Checksum is the rolling accumulator state: two independent 64-bit (a,b)
// running-sum pairs. It is a pure value type; a fresh one is created for
// every computation and handed back by value.
type Checksum struct {
	A1, B1 uint64
	A2, B2 uint64
}

// New returns a Checksum in its identity state (a=1, b=0 in both pairs),
// the value produced by a zero-length buffer.
func New() Checksum {
	return Checksum{A1: 1, A2: 1}
}

// Equal reports whether both running-sum pairs match exactly. Callers
// compare checksums of data that should be identical to detect corruption.
func (c Checksum) Equal(other Checksum) bool {
	return c == other
}

// String renders the four sums as fixed-width hex in the order a1 a2 b1 b2,
// suitable for exact-match comparison in logs and stored records. The layout
// is an internal regression oracle, not a wire format.
func (c Checksum) String() string {
	return fmt.Sprintf("%016x %016x %016x %016x", c.A1, c.A2, c.B1, c.B2)
}

// fold applies the update rule to one four-word group, read in buffer order.
// Pair one only ever sees w0 and w1, pair two only w2 and w3.
func (c *Checksum) fold(w0, w1, w2, w3 uint64) {
	c.A1 += w0
	c.B1 += c.A1
	c.A1 += w1
	c.B1 += c.A1
	c.A2 += w2
	c.B2 += c.A2
	c.A2 += w3
	c.B2 += c.A2
}

// checkSize validates the word-count gate shared by every entry point.
// Zero words is allowed and yields the identity state.
func checkSize(n int) error {
	if n >= MaxWords {
		return ErrSizeTooLarge
	}
	if n%groupWords != 0 {
		return ErrBadLength
	}
	return nil
}

// Compute walks src in order, folding each four-word group into the
// checksum. Nothing is written; this is the read-only verification pass.
// On failure the returned Checksum is the zero value and must be ignored.
func Compute(src []uint64) (Checksum, error) {
	if err := checkSize(len(src)); err != nil {
		return Checksum{}, err
	}
	c := New()
	for i := 0; i < len(src); i += groupWords {
		c.fold(src[i], src[i+1], src[i+2], src[i+3])
	}
	return c, nil
}
