package engine

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/franksops/memstress/checksum"
	"github.com/franksops/memstress/pattern"
)

// Runner executes stress jobs against pooled regions. One Runner is shared
// by all workers; it holds no per-job state.
type Runner struct {
	pool     *RegionPool
	tracker  *JobTracker
	verifier *Verifier
	logger   *log.Logger

	// OnIteration, if set, is called after every completed iteration with
	// the number of bytes the iteration moved. The TUI feeds from this.
	OnIteration func(job StressJob, bytes int)
}

// NewRunner creates a Runner over the given region pool, tracker and verifier.
func NewRunner(pool *RegionPool, tracker *JobTracker, verifier *Verifier, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		pool:     pool,
		tracker:  tracker,
		verifier: verifier,
		logger:   logger,
	}
}

// Run executes one stress job to completion or failure: fill the source
// region, take the baseline checksum, then copy and verify for the job's
// iteration count, ping-ponging the region pair so both buffers see writes.
func (r *Runner) Run(ctx context.Context, job StressJob) error {
	if err := r.tracker.InitJob(job); err != nil {
		return fmt.Errorf("failed to init job: %w", err)
	}

	if err := r.tracker.MarkInProgress(job.ID); err != nil {
		return fmt.Errorf("failed to mark job in progress: %w", err)
	}

	strat, err := checksum.Strategy(job.Strategy)
	if err != nil {
		r.tracker.MarkFailed(job.ID, err)
		return err
	}

	src := r.pool.Get()
	dst := r.pool.Get()
	defer r.pool.Put(src)
	defer r.pool.Put(dst)

	job.Pattern.Fill(src, job.Seed)
	fingerprint := pattern.Fingerprint(src)

	baseline, err := checksum.Compute(src)
	if err != nil {
		r.tracker.MarkFailed(job.ID, err)
		return fmt.Errorf("baseline checksum failed: %w", err)
	}

	r.logger.Debug("job started",
		"job", job.ID, "region", job.Region,
		"pattern", job.Pattern.Name, "strategy", job.Strategy,
		"baseline", baseline.String())

	bytes := len(src) * 8
	progress := r.tracker.NewProgress(job.ID)

	for i := 0; i < job.Iterations; i++ {
		select {
		case <-ctx.Done():
			r.tracker.MarkFailed(job.ID, ctx.Err())
			return ctx.Err()
		default:
		}

		got, err := strat(dst, src)
		if err != nil {
			r.tracker.MarkFailed(job.ID, err)
			return fmt.Errorf("copy failed at iteration %d: %w", i, err)
		}
		if !r.verifier.Check(job, i, PhaseCopy, fingerprint, baseline, got) {
			r.logger.Error("checksum mismatch during copy",
				"job", job.ID, "region", job.Region, "iteration", i,
				"want", baseline.String(), "got", got.String())
		}

		// Read-only pass over the destination catches corruption that the
		// in-flight checksum cannot: bits that flipped after the store.
		readback, err := checksum.Compute(dst)
		if err != nil {
			r.tracker.MarkFailed(job.ID, err)
			return fmt.Errorf("readback checksum failed at iteration %d: %w", i, err)
		}
		if !r.verifier.Check(job, i, PhaseReadback, fingerprint, baseline, readback) {
			r.logger.Error("checksum mismatch on readback",
				"job", job.ID, "region", job.Region, "iteration", i,
				"want", baseline.String(), "got", readback.String())
		}

		// Next iteration copies back the other way, so both regions take
		// write traffic over the course of the job.
		src, dst = dst, src

		progress.Advance()
		if r.OnIteration != nil {
			r.OnIteration(job, bytes)
		}
	}

	if err := r.tracker.MarkCompleted(job.ID); err != nil {
		return fmt.Errorf("failed to mark job completed: %w", err)
	}

	r.logger.Debug("job completed", "job", job.ID, "region", job.Region,
		"iterations", job.Iterations)

	return nil
}
