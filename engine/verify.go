package engine

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/franksops/memstress/checksum"
)

// Phases where a checksum disagreement can surface during a job iteration.
const (
	// PhaseCopy covers the checksum produced while the words moved.
	PhaseCopy = "copy"
	// PhaseReadback covers the read-only pass over the destination.
	PhaseReadback = "readback"
)

// Mismatch records one checksum disagreement observed during a job. Both
// renderings are captured so the record stays useful once the buffers are
// recycled.
type Mismatch struct {
	JobID       string
	RunID       string
	Region      int
	Iteration   int
	Phase       string
	Pattern     string
	Fingerprint string
	Want        string
	Got         string
	At          time.Time
}

// Verifier compares checksums and collects mismatches. It only records what
// it saw; what to do about a disagreement is the caller's policy.
type Verifier struct {
	mu         sync.Mutex
	mismatches []Mismatch
	count      atomic.Int64
}

// NewVerifier creates an empty Verifier.
func NewVerifier() *Verifier {
	return &Verifier{}
}

// Check compares got against want and records a mismatch under the given
// phase when they differ. It reports whether the checksums agreed.
func (v *Verifier) Check(job StressJob, iteration int, phase, fingerprint string, want, got checksum.Checksum) bool {
	if got.Equal(want) {
		return true
	}

	m := Mismatch{
		JobID:       job.ID,
		RunID:       job.RunID,
		Region:      job.Region,
		Iteration:   iteration,
		Phase:       phase,
		Pattern:     job.Pattern.Name,
		Fingerprint: fingerprint,
		Want:        want.String(),
		Got:         got.String(),
		At:          time.Now(),
	}

	v.mu.Lock()
	v.mismatches = append(v.mismatches, m)
	v.mu.Unlock()
	v.count.Add(1)

	return false
}

// MismatchCount returns the number of mismatches recorded so far. Safe to
// poll from another goroutine while a run is in flight.
func (v *Verifier) MismatchCount() int64 {
	return v.count.Load()
}

// Mismatches returns a copy of all recorded mismatches.
func (v *Verifier) Mismatches() []Mismatch {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]Mismatch, len(v.mismatches))
	copy(out, v.mismatches)
	return out
}
