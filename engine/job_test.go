package engine_test

import (
	"context"
	"testing"

	"github.com/franksops/memstress/engine"
)

func TestStressJob(t *testing.T) {
	job := engine.StressJob{
		ID:         "job-1",
		RunID:      "run-1",
		Region:     4,
		Iterations: 100,
		Strategy:   "fast",
		Ctx:        context.Background(),
	}

	if job.Region != 4 {
		t.Errorf("Expected region 4, got %d", job.Region)
	}
}

func TestJobChannel(t *testing.T) {
	ch := make(engine.JobChannel, 1)

	job := engine.StressJob{
		ID: "job-2",
	}

	ch <- job
	received := <-ch

	if received.ID != "job-2" {
		t.Errorf("Expected job-2, got %s", received.ID)
	}
}
