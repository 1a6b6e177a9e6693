package store

import (
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *BoltStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store, err := NewBoltStore(dbPath)
	if err != nil {
		t.Fatalf("Failed to create BoltStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestBoltStore_SaveAndGetJob(t *testing.T) {
	store := newTestStore(t)

	// Initial job
	job := &JobRecord{
		ID:              "job-123",
		RunID:           "run-1",
		Region:          3,
		Pattern:         "walking-bit",
		Strategy:        "fast",
		State:           StatePending,
		Iterations:      0,
		TotalIterations: 1000,
	}

	err := store.SaveJob(job)
	if err != nil {
		t.Fatalf("Failed to save job: %v", err)
	}

	// Retrieve job
	retrievedJob, err := store.GetJob("job-123")
	if err != nil {
		t.Fatalf("Failed to get job: %v", err)
	}

	if retrievedJob.ID != job.ID {
		t.Errorf("Expected job ID %s, got %s", job.ID, retrievedJob.ID)
	}
	if retrievedJob.State != job.State {
		t.Errorf("Expected job State %s, got %s", job.State, retrievedJob.State)
	}
	if retrievedJob.Pattern != job.Pattern {
		t.Errorf("Expected pattern %s, got %s", job.Pattern, retrievedJob.Pattern)
	}

	// Update job state
	job.State = StateInProgress
	job.Iterations = 512
	err = store.SaveJob(job)
	if err != nil {
		t.Fatalf("Failed to update job: %v", err)
	}

	// Retrieve updated job
	retrievedJob, err = store.GetJob("job-123")
	if err != nil {
		t.Fatalf("Failed to get updated job: %v", err)
	}

	if retrievedJob.State != StateInProgress {
		t.Errorf("Expected updated job State %s, got %s", StateInProgress, retrievedJob.State)
	}
	if retrievedJob.Iterations != 512 {
		t.Errorf("Expected updated iterations %d, got %d", 512, retrievedJob.Iterations)
	}

	// Non-existent job
	_, err = store.GetJob("non-existent")
	if err != ErrJobNotFound {
		t.Errorf("Expected ErrJobNotFound, got %v", err)
	}
}

func TestBoltStore_SaveAndGetRun(t *testing.T) {
	store := newTestStore(t)

	run := &RunRecord{
		ID:          "run-1",
		StartedAt:   time.Now(),
		RegionBytes: 1 << 20,
		Regions:     8,
		Workers:     4,
		Iterations:  100,
		Strategy:    "baseline",
		State:       StateInProgress,
	}

	if err := store.SaveRun(run); err != nil {
		t.Fatalf("Failed to save run: %v", err)
	}

	got, err := store.GetRun("run-1")
	if err != nil {
		t.Fatalf("Failed to get run: %v", err)
	}
	if got.Regions != run.Regions || got.Strategy != run.Strategy {
		t.Errorf("Run round-trip mismatch: %+v", got)
	}

	_, err = store.GetRun("missing")
	if err != ErrRunNotFound {
		t.Errorf("Expected ErrRunNotFound, got %v", err)
	}
}

func TestBoltStore_Runs(t *testing.T) {
	store := newTestStore(t)

	base := time.Now()
	for i, id := range []string{"run-a", "run-b", "run-c"} {
		run := &RunRecord{ID: id, StartedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := store.SaveRun(run); err != nil {
			t.Fatalf("Failed to save run %s: %v", id, err)
		}
	}

	runs, err := store.Runs()
	if err != nil {
		t.Fatalf("Failed to list runs: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("Expected 3 runs, got %d", len(runs))
	}
	// Newest first.
	if runs[0].ID != "run-c" || runs[2].ID != "run-a" {
		t.Errorf("Runs not sorted newest first: %s, %s, %s", runs[0].ID, runs[1].ID, runs[2].ID)
	}
}

func TestBoltStore_Mismatches(t *testing.T) {
	store := newTestStore(t)

	for i := 0; i < 3; i++ {
		m := &MismatchRecord{
			RunID:     "run-1",
			JobID:     "job-1",
			Region:    1,
			Iteration: i,
			Phase:     "copy",
			Want:      "0000000000000001",
			Got:       "0000000000000002",
			At:        time.Now(),
		}
		if err := store.AppendMismatch(m); err != nil {
			t.Fatalf("Failed to append mismatch %d: %v", i, err)
		}
	}

	// A second run's records must not bleed into the first.
	other := &MismatchRecord{RunID: "run-2", JobID: "job-9", Iteration: 0}
	if err := store.AppendMismatch(other); err != nil {
		t.Fatalf("Failed to append mismatch for second run: %v", err)
	}

	out, err := store.MismatchesForRun("run-1")
	if err != nil {
		t.Fatalf("Failed to list mismatches: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("Expected 3 mismatches, got %d", len(out))
	}
	for i, m := range out {
		if m.Iteration != i {
			t.Errorf("Mismatch %d out of order: iteration %d", i, m.Iteration)
		}
	}

	empty, err := store.MismatchesForRun("run-none")
	if err != nil {
		t.Fatalf("Failed to list mismatches for empty run: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("Expected no mismatches, got %d", len(empty))
	}
}

func TestBoltStore_Close(t *testing.T) {
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "test_close.db")

	store, err := NewBoltStore(dbPath)
	if err != nil {
		t.Fatalf("Failed to create BoltStore: %v", err)
	}

	err = store.Close()
	if err != nil {
		t.Errorf("Failed to close BoltStore: %v", err)
	}

	// Try to get a job on closed store
	_, err = store.GetJob("job-123")
	if err == nil {
		t.Error("Expected error when accessing closed store, got nil")
	}
}
