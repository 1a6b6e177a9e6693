package engine

import (
	"sync"
	"time"

	"github.com/franksops/memstress/store"
)

// CheckpointConfig defines the criteria for when to save a job's state
type CheckpointConfig struct {
	// IterationInterval triggers a save after this many iterations
	IterationInterval int
	// TimeInterval triggers a save after this much time has passed
	TimeInterval time.Duration
}

// DefaultCheckpointConfig provides reasonable defaults for checkpointing
var DefaultCheckpointConfig = CheckpointConfig{
	IterationInterval: 64,
	TimeInterval:      5 * time.Second,
}

// JobTracker wraps a store to provide job tracking and checkpointing capabilities
type JobTracker struct {
	store  store.Store
	config CheckpointConfig
}

// NewJobTracker creates a new JobTracker
func NewJobTracker(store store.Store, config CheckpointConfig) *JobTracker {
	return &JobTracker{
		store:  store,
		config: config,
	}
}

// InitJob initializes a job in the store and returns a tracker for that job
func (jt *JobTracker) InitJob(job StressJob) error {
	record := &store.JobRecord{
		ID:              job.ID,
		RunID:           job.RunID,
		Region:          job.Region,
		Pattern:         job.Pattern.Name,
		Strategy:        job.Strategy,
		State:           store.StatePending,
		Iterations:      0,
		TotalIterations: job.Iterations,
	}

	return jt.store.SaveJob(record)
}

// MarkInProgress updates a job's state to InProgress
func (jt *JobTracker) MarkInProgress(jobID string) error {
	record, err := jt.store.GetJob(jobID)
	if err != nil {
		return err
	}
	record.State = store.StateInProgress
	return jt.store.SaveJob(record)
}

// MarkCompleted updates a job's state to Completed
func (jt *JobTracker) MarkCompleted(jobID string) error {
	record, err := jt.store.GetJob(jobID)
	if err != nil {
		return err
	}
	record.State = store.StateCompleted
	record.Iterations = record.TotalIterations // Ensure it matches
	return jt.store.SaveJob(record)
}

// MarkFailed updates a job's state to Failed with an error message
func (jt *JobTracker) MarkFailed(jobID string, err error) error {
	record, getErr := jt.store.GetJob(jobID)
	if getErr != nil {
		return getErr
	}
	record.State = store.StateFailed
	if err != nil {
		record.Error = err.Error()
	}
	return jt.store.SaveJob(record)
}

// Progress counts a job's completed iterations and checkpoints them to the
// store, so an interrupted run shows how far each region got.
type Progress struct {
	tracker *JobTracker
	jobID   string

	mu              sync.Mutex
	iterations      int
	lastCheckpoint  int
	lastCheckpointT time.Time
}

// NewProgress creates a new Progress counter for the given job
func (jt *JobTracker) NewProgress(jobID string) *Progress {
	return &Progress{
		tracker:         jt,
		jobID:           jobID,
		lastCheckpointT: time.Now(),
	}
}

// Advance records one completed iteration and checkpoints progress
func (p *Progress) Advance() {
	p.mu.Lock()
	p.iterations++

	needsCheckpoint := false
	if p.iterations-p.lastCheckpoint >= p.tracker.config.IterationInterval {
		needsCheckpoint = true
	} else if time.Since(p.lastCheckpointT) >= p.tracker.config.TimeInterval {
		needsCheckpoint = true
	}

	current := p.iterations
	p.mu.Unlock()

	if needsCheckpoint {
		p.checkpoint(current)
	}
}

func (p *Progress) checkpoint(iterations int) {
	// We don't want a store failure to block the run, but we should try to save
	record, err := p.tracker.store.GetJob(p.jobID)
	if err == nil {
		record.Iterations = iterations
		// Ignore save error as it's just a checkpoint
		_ = p.tracker.store.SaveJob(record)

		p.mu.Lock()
		p.lastCheckpoint = iterations
		p.lastCheckpointT = time.Now()
		p.mu.Unlock()
	}
}

// Iterations returns the number of iterations recorded so far
func (p *Progress) Iterations() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.iterations
}
