package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/franksops/memstress/pattern"
)

// RunPlan describes the work a single stress run fans out to workers.
type RunPlan struct {
	RunID      string
	Regions    int
	Iterations int
	Strategy   string
	Patterns   []pattern.Pattern
	Seed       uint64
}

// Planner expands a run plan into per-region stress jobs and pushes them to
// a channel for the worker pool to consume.
type Planner struct {
	JobChan JobChannel
}

// NewPlanner creates a new run planner.
func NewPlanner(jobChan JobChannel) *Planner {
	return &Planner{JobChan: jobChan}
}

// Plan enqueues one job per region, cycling through the plan's patterns.
// It blocks when the channel is full and honors context cancellation, so a
// run can be aborted while jobs are still being fanned out.
func (p *Planner) Plan(ctx context.Context, plan RunPlan) error {
	if plan.Regions <= 0 {
		return fmt.Errorf("plan needs at least one region, got %d", plan.Regions)
	}
	if len(plan.Patterns) == 0 {
		return fmt.Errorf("plan needs at least one pattern")
	}

	for region := 0; region < plan.Regions; region++ {
		job := StressJob{
			ID:         uuid.NewString(),
			RunID:      plan.RunID,
			Region:     region,
			Pattern:    plan.Patterns[region%len(plan.Patterns)],
			Seed:       plan.Seed + uint64(region),
			Iterations: plan.Iterations,
			Strategy:   plan.Strategy,
			Ctx:        ctx,
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case p.JobChan <- job:
			// Enqueued
		}
	}

	return nil
}
