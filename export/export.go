// Package export turns a stored stress run into a JSON report and delivers
// it to a destination: a local file for one-off runs, or an S3 bucket when
// results are collected fleet-wide.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/franksops/memstress/store"
)

// Report is the exportable summary of a run.
type Report struct {
	Run         store.RunRecord         `json:"run"`
	Mismatches  []*store.MismatchRecord `json:"mismatches"`
	Host        string                  `json:"host"`
	GeneratedAt time.Time               `json:"generated_at"`
}

// Build assembles a report for the given run from the state store.
func Build(st store.Store, runID string) (*Report, error) {
	run, err := st.GetRun(runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", runID, err)
	}

	mismatches, err := st.MismatchesForRun(runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load mismatches for run %s: %w", runID, err)
	}

	host, _ := os.Hostname()

	return &Report{
		Run:         *run,
		Mismatches:  mismatches,
		Host:        host,
		GeneratedAt: time.Now(),
	}, nil
}

// Exporter delivers a report to a destination.
type Exporter interface {
	Export(ctx context.Context, report *Report) error
}

// ForDestination returns the exporter matching dest: an s3://bucket/prefix
// URL or a local directory path.
func ForDestination(ctx context.Context, dest string) (Exporter, error) {
	if len(dest) >= 5 && dest[:5] == "s3://" {
		// Parse s3://bucket/prefix
		s3Path := dest[5:]
		bucket, prefix, _ := strings.Cut(s3Path, "/")
		return NewS3Exporter(ctx, bucket, prefix)
	}

	return &LocalExporter{Dir: dest}, nil
}

// LocalExporter writes reports as JSON files in a directory.
type LocalExporter struct {
	Dir string
}

// Export writes the report to <dir>/memstress-<runID>.json.
func (e *LocalExporter) Export(ctx context.Context, report *Report) error {
	if err := os.MkdirAll(e.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	path := filepath.Join(e.Dir, ReportName(report))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	return nil
}

// ReportName returns the canonical file name for a report.
func ReportName(report *Report) string {
	return fmt.Sprintf("memstress-%s.json", report.Run.ID)
}
