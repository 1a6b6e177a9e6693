package checksum

import (
	"bytes"
	"encoding/binary"
	"testing"
)

var strategies = []struct {
	name string
	fn   CopyFunc
}{
	{"baseline", CopyBaseline},
	{"warm", CopyWarm},
	{"fast", CopyFast},
}

func TestCopyStrategiesEquivalent(t *testing.T) {
	sizes := []int{0, 4, 8, 12, 64, 4096}

	for _, n := range sizes {
		src := testWords(n, uint64(n)+1)

		want, err := Compute(src)
		if err != nil {
			t.Fatalf("Compute failed for %d words: %v", n, err)
		}

		for _, s := range strategies {
			dst := make([]uint64, n)
			got, err := s.fn(dst, src)
			if err != nil {
				t.Fatalf("%s failed for %d words: %v", s.name, n, err)
			}
			if !got.Equal(want) {
				t.Errorf("%s checksum for %d words = %s, want %s", s.name, n, got, want)
			}
			if !wordsEqual(dst, src) {
				t.Errorf("%s produced a corrupted copy for %d words", s.name, n)
			}
		}
	}
}

func TestCopySingleGroup(t *testing.T) {
	// One group exercises pair one only; pair two never sees a second group
	// beyond its two words. Traced by hand in TestComputeSingleGroup.
	src := []uint64{0, 1, 2, 3}
	dst := make([]uint64, 4)

	c, err := CopyBaseline(dst, src)
	if err != nil {
		t.Fatalf("CopyBaseline failed: %v", err)
	}
	if !wordsEqual(dst, src) {
		t.Errorf("destination %v does not match source %v", dst, src)
	}
	want := Checksum{A1: 2, B1: 3, A2: 6, B2: 9}
	if !c.Equal(want) {
		t.Errorf("expected %s, got %s", want, c)
	}
}

func TestCopySizeGateLeavesDestinationUntouched(t *testing.T) {
	src := make([]uint64, MaxWords)
	dst := make([]uint64, MaxWords)
	for i := range dst {
		dst[i] = 0xfeedface
	}

	for _, s := range strategies {
		c, err := s.fn(dst, src)
		if err != ErrSizeTooLarge {
			t.Errorf("%s: expected ErrSizeTooLarge, got %v", s.name, err)
		}
		if !c.Equal(Checksum{}) {
			t.Errorf("%s: expected zero checksum on failure, got %s", s.name, c)
		}
		for i, w := range dst {
			if w != 0xfeedface {
				t.Fatalf("%s wrote to destination at word %d on failure", s.name, i)
			}
		}
	}
}

func TestCopyLengthMismatch(t *testing.T) {
	src := make([]uint64, 8)
	dst := make([]uint64, 4)
	if _, err := CopyBaseline(dst, src); err != ErrBadLength {
		t.Errorf("expected ErrBadLength, got %v", err)
	}
}

func TestCopyOverlapRejected(t *testing.T) {
	buf := make([]uint64, 16)

	if _, err := CopyBaseline(buf, buf); err != ErrOverlap {
		t.Errorf("full overlap: expected ErrOverlap, got %v", err)
	}
	if _, err := CopyBaseline(buf[:8], buf[4:12]); err != ErrOverlap {
		t.Errorf("partial overlap: expected ErrOverlap, got %v", err)
	}
	if _, err := CopyBaseline(buf[:8], buf[8:]); err != nil {
		t.Errorf("adjacent disjoint halves should copy, got %v", err)
	}
}

func TestCopyBlocksUnsafeMatchesPortable(t *testing.T) {
	for _, n := range []int{4, 8, 12, 256, 1020} {
		src := testWords(n, 7)
		dstA := make([]uint64, n)
		dstB := make([]uint64, n)

		ca := copyBlocks(dstA, src)
		cb := copyBlocksUnsafe(dstB, src)

		if !ca.Equal(cb) {
			t.Errorf("%d words: unsafe checksum %s, portable %s", n, cb, ca)
		}
		if !wordsEqual(dstA, dstB) {
			t.Errorf("%d words: unsafe copy differs from portable copy", n)
		}
	}
}

func TestCopyByteExact(t *testing.T) {
	src := testWords(128, 99)
	dst := make([]uint64, 128)
	if _, err := CopyFast(dst, src); err != nil {
		t.Fatalf("CopyFast failed: %v", err)
	}

	var sb, db bytes.Buffer
	for i := range src {
		binary.Write(&sb, binary.LittleEndian, src[i])
		binary.Write(&db, binary.LittleEndian, dst[i])
	}
	if !bytes.Equal(sb.Bytes(), db.Bytes()) {
		t.Error("copy is not byte-for-byte identical")
	}
}

func TestStrategyLookup(t *testing.T) {
	for _, name := range []string{"baseline", "warm", "fast"} {
		fn, err := Strategy(name)
		if err != nil {
			t.Errorf("Strategy(%q) failed: %v", name, err)
		}
		if fn == nil {
			t.Errorf("Strategy(%q) returned nil", name)
		}
	}
	if _, err := Strategy("turbo"); err == nil {
		t.Error("expected error for unknown strategy")
	}
}

func wordsEqual(a, b []uint64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func BenchmarkCopyBaseline(b *testing.B) {
	src := testWords(1<<16, 1)
	dst := make([]uint64, len(src))
	b.SetBytes(int64(len(src)) * 8)
	for i := 0; i < b.N; i++ {
		if _, err := CopyBaseline(dst, src); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkCopyFast(b *testing.B) {
	src := testWords(1<<16, 1)
	dst := make([]uint64, len(src))
	b.SetBytes(int64(len(src)) * 8)
	for i := 0; i < b.N; i++ {
		if _, err := CopyFast(dst, src); err != nil {
			b.Fatal(err)
		}
	}
}
