package checksum

import (
	"testing"
)

func TestNewIsIdentity(t *testing.T) {
	c := New()
	if c.A1 != 1 || c.A2 != 1 || c.B1 != 0 || c.B2 != 0 {
		t.Errorf("identity state wrong: %+v", c)
	}
}

func TestComputeEmpty(t *testing.T) {
	c, err := Compute(nil)
	if err != nil {
		t.Fatalf("Compute(nil) failed: %v", err)
	}
	if !c.Equal(New()) {
		t.Errorf("expected identity state for empty buffer, got %s", c)
	}
}

func TestComputeZeroWords(t *testing.T) {
	// 32 zero words: a stays at 1 in both pairs, b collects a twice per
	// group over eight groups, so b ends at 16 in both pairs.
	src := make([]uint64, 32)
	c, err := Compute(src)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	want := Checksum{A1: 1, B1: 16, A2: 1, B2: 16}
	if !c.Equal(want) {
		t.Errorf("expected %s, got %s", want, c)
	}
	const render = "0000000000000001 0000000000000001 0000000000000010 0000000000000010"
	if c.String() != render {
		t.Errorf("expected rendering %q, got %q", render, c.String())
	}
}

func TestComputeSingleGroup(t *testing.T) {
	// One group 0,1,2,3 traced by hand:
	//   pair one: a=1+0=1 b=1, a=1+1=2 b=3
	//   pair two: a=1+2=3 b=3, a=3+3=6 b=9
	src := []uint64{0, 1, 2, 3}
	c, err := Compute(src)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	want := Checksum{A1: 2, B1: 3, A2: 6, B2: 9}
	if !c.Equal(want) {
		t.Errorf("expected %s, got %s", want, c)
	}
}

func TestComputeDeterminism(t *testing.T) {
	src := testWords(256, 42)
	first, err := Compute(src)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := Compute(src)
		if err != nil {
			t.Fatalf("Compute failed on repeat %d: %v", i, err)
		}
		if !again.Equal(first) {
			t.Errorf("repeat %d produced %s, want %s", i, again, first)
		}
	}
}

func TestComputeOrderSensitivity(t *testing.T) {
	a := []uint64{1, 2, 3, 4, 5, 6, 7, 8}
	b := []uint64{2, 1, 3, 4, 5, 6, 7, 8}

	ca, err := Compute(a)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	cb, err := Compute(b)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if ca.Equal(cb) {
		t.Error("expected different checksums for reordered words")
	}
}

func TestComputeSingleWordSensitivity(t *testing.T) {
	base := []uint64{10, 20, 30, 40}
	want, err := Compute(base)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}

	for i := range base {
		mutated := append([]uint64(nil), base...)
		mutated[i] ^= 1 << 63
		got, err := Compute(mutated)
		if err != nil {
			t.Fatalf("Compute failed: %v", err)
		}
		if got.Equal(want) {
			t.Errorf("flipping word %d did not change the checksum", i)
		}
	}
}

func TestComputeSizeGate(t *testing.T) {
	tests := []struct {
		name  string
		words int
		err   error
	}{
		{"at bound", MaxWords, ErrSizeTooLarge},
		{"above bound", MaxWords + 4, ErrSizeTooLarge},
		{"not group multiple", 6, ErrBadLength},
		{"single word", 1, ErrBadLength},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compute(make([]uint64, tt.words))
			if err != tt.err {
				t.Errorf("expected %v, got %v", tt.err, err)
			}
		})
	}

	// Just under the bound succeeds.
	if _, err := Compute(make([]uint64, MaxWords-groupWords)); err != nil {
		t.Errorf("expected success just under the bound, got %v", err)
	}
}

func TestStringWidth(t *testing.T) {
	c := Checksum{A1: 0xdeadbeef, A2: 1, B1: 2, B2: 3}
	s := c.String()
	if len(s) != 4*16+3 {
		t.Errorf("expected fixed-width rendering, got %q (len %d)", s, len(s))
	}
}

// testWords produces a deterministic pseudo-random buffer (splitmix64).
func testWords(n int, seed uint64) []uint64 {
	words := make([]uint64, n)
	x := seed
	for i := range words {
		x += 0x9e3779b97f4a7c15
		z := x
		z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
		z = (z ^ (z >> 27)) * 0x94d049bb133111eb
		words[i] = z ^ (z >> 31)
	}
	return words
}
