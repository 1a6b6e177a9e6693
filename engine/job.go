package engine

import (
	"context"

	"github.com/franksops/memstress/pattern"
)

// StressJob represents one region's worth of stress work: fill the region
// with a pattern, then copy and verify it for a number of iterations.
type StressJob struct {
	// ID uniquely identifies the job within the state store.
	ID string

	// RunID ties the job to the run it belongs to.
	RunID string

	// Region is the job's index within the run, used in records so a
	// recurring failure can be traced to one region.
	Region int

	// Pattern produces the data the region is filled with before the
	// baseline checksum is taken.
	Pattern pattern.Pattern

	// Seed parameterizes the pattern fill so regions hold distinct data.
	Seed uint64

	// Iterations is the number of copy-and-verify passes to run.
	Iterations int

	// Strategy names the copy strategy to exercise: baseline, warm or fast.
	Strategy string

	// Ctx allows cancellation or timeout settings for this specific job.
	Ctx context.Context
}

// JobChannel is a channel used to queue and dispatch StressJobs to workers
// in the worker pool.
type JobChannel chan StressJob
