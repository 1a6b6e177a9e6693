// Package pattern provides the deterministic data patterns a stress run
// fills its regions with. Fills are reproducible from a name and a seed, so
// a baseline checksum taken at fill time stays meaningful for every later
// copy of the same region.
package pattern

import (
	"fmt"
	"unsafe"

	"github.com/zeebo/xxh3"
)

// A Pattern deterministically fills a region of 64-bit words.
type Pattern struct {
	Name string
	fill func(words []uint64, seed uint64)
}

// Fill writes the pattern into words. The same name and seed always produce
// the same data.
func (p Pattern) Fill(words []uint64, seed uint64) {
	p.fill(words, seed)
}

var patterns = []Pattern{
	{Name: "zeroes", fill: fillValue(0)},
	{Name: "ones", fill: fillValue(^uint64(0))},
	{Name: "checkerboard", fill: fillAlternating(0x5555555555555555, 0xaaaaaaaaaaaaaaaa)},
	{Name: "walking-bit", fill: fillWalkingBit(false)},
	{Name: "walking-bit-inv", fill: fillWalkingBit(true)},
	{Name: "own-offset", fill: fillOwnOffset},
	{Name: "random", fill: fillRandom},
}

// All returns the full pattern set in a stable order.
func All() []Pattern {
	out := make([]Pattern, len(patterns))
	copy(out, patterns)
	return out
}

// ByName returns the pattern registered under name.
func ByName(name string) (Pattern, error) {
	for _, p := range patterns {
		if p.Name == name {
			return p, nil
		}
	}
	return Pattern{}, fmt.Errorf("pattern: unknown pattern %q", name)
}

// Fingerprint returns a hex xxh3-128 digest of the region's bytes. It labels
// the data a mismatch was observed against, so stored records identify the
// pattern buffer without carrying it.
func Fingerprint(words []uint64) string {
	if len(words) == 0 {
		return fmt.Sprintf("%016x%016x", 0, 0)
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&words[0])), len(words)*8)
	sum := xxh3.Hash128(b)
	return fmt.Sprintf("%016x%016x", sum.Hi, sum.Lo)
}

func fillValue(v uint64) func([]uint64, uint64) {
	return func(words []uint64, _ uint64) {
		for i := range words {
			words[i] = v
		}
	}
}

func fillAlternating(even, odd uint64) func([]uint64, uint64) {
	return func(words []uint64, _ uint64) {
		for i := range words {
			if i%2 == 0 {
				words[i] = even
			} else {
				words[i] = odd
			}
		}
	}
}

// fillWalkingBit marches a single set (or single clear) bit through each
// word, the classic probe for shorted or stuck data lines.
func fillWalkingBit(inverted bool) func([]uint64, uint64) {
	return func(words []uint64, _ uint64) {
		for i := range words {
			w := uint64(1) << (i % 64)
			if inverted {
				w = ^w
			}
			words[i] = w
		}
	}
}

// fillOwnOffset stores each word's own byte offset (plus the seed), so a
// misdirected write or read is identifiable from the value found.
func fillOwnOffset(words []uint64, seed uint64) {
	for i := range words {
		words[i] = seed + uint64(i)*8
	}
}

// fillRandom fills from a splitmix64 stream seeded per region.
func fillRandom(words []uint64, seed uint64) {
	x := seed
	for i := range words {
		x += 0x9e3779b97f4a7c15
		z := x
		z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
		z = (z ^ (z >> 27)) * 0x94d049bb133111eb
		words[i] = z ^ (z >> 31)
	}
}
