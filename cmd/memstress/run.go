package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/franksops/memstress/config"
	"github.com/franksops/memstress/engine"
	"github.com/franksops/memstress/export"
	"github.com/franksops/memstress/store"
	"github.com/franksops/memstress/ui"
)

var (
	flagRegionBytes int
	flagRegions     int
	flagWorkers     int
	flagIterations  int
	flagStrategy    string
	flagPatterns    []string
	flagSeed        uint64
	flagStateDir    string
	flagExport      string
	flagTUI         bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a memory stress session",
	RunE:  runStress,
}

func init() {
	runCmd.Flags().IntVar(&flagRegionBytes, "region-bytes", 0, "size of each region buffer in bytes")
	runCmd.Flags().IntVar(&flagRegions, "regions", 0, "number of region jobs to fan out")
	runCmd.Flags().IntVar(&flagWorkers, "workers", 0, "number of concurrent stress workers")
	runCmd.Flags().IntVar(&flagIterations, "iterations", 0, "copy-and-verify passes per region")
	runCmd.Flags().StringVar(&flagStrategy, "strategy", "", "copy strategy: baseline, warm or fast")
	runCmd.Flags().StringSliceVar(&flagPatterns, "pattern", nil, "fill patterns to cycle through (default all)")
	runCmd.Flags().Uint64Var(&flagSeed, "seed", 0, "seed for reproducible region fills")
	runCmd.Flags().StringVar(&flagStateDir, "state-dir", "", "directory for the state database")
	runCmd.Flags().StringVar(&flagExport, "export", "", "report destination: directory or s3://bucket/prefix")
	runCmd.Flags().BoolVar(&flagTUI, "tui", true, "enable the live terminal UI")

	rootCmd.AddCommand(runCmd)
}

func applyRunFlags(cmd *cobra.Command, cfg *config.RunConfig) {
	f := cmd.Flags()
	if f.Changed("region-bytes") {
		cfg.RegionBytes = flagRegionBytes
	}
	if f.Changed("regions") {
		cfg.Regions = flagRegions
	}
	if f.Changed("workers") {
		cfg.Workers = flagWorkers
	}
	if f.Changed("iterations") {
		cfg.Iterations = flagIterations
	}
	if f.Changed("strategy") {
		cfg.Strategy = flagStrategy
	}
	if f.Changed("pattern") {
		cfg.Patterns = flagPatterns
	}
	if f.Changed("seed") {
		cfg.Seed = flagSeed
	}
	if f.Changed("state-dir") {
		cfg.StateDir = flagStateDir
	}
	if f.Changed("export") {
		cfg.Export = flagExport
	}
	if f.Changed("tui") {
		cfg.TUI = flagTUI
	}
}

func runStress(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	applyRunFlags(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := newLogger(cfg)

	patterns, err := cfg.PatternSet()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.StateDir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	st, err := store.NewBoltStore(filepath.Join(cfg.StateDir, "state.db"))
	if err != nil {
		return fmt.Errorf("failed to initialize state store: %w", err)
	}
	defer st.Close()

	runID := uuid.NewString()
	runRecord := &store.RunRecord{
		ID:          runID,
		StartedAt:   time.Now(),
		RegionBytes: cfg.RegionBytes,
		Regions:     cfg.Regions,
		Workers:     cfg.Workers,
		Iterations:  cfg.Iterations,
		Strategy:    cfg.Strategy,
		State:       store.StateInProgress,
	}
	if err := st.SaveRun(runRecord); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	logger.Info("run started",
		"run", runID, "regions", cfg.Regions, "workers", cfg.Workers,
		"iterations", cfg.Iterations, "strategy", cfg.Strategy,
		"region_bytes", cfg.RegionBytes)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracker := engine.NewJobTracker(st, engine.DefaultCheckpointConfig)
	regionPool := engine.NewRegionPool(cfg.RegionBytes)
	verifier := engine.NewVerifier()
	jobChan := make(engine.JobChannel, cfg.Regions)

	mon := newRunMonitor(int64(cfg.Regions)*int64(cfg.Iterations), cfg.Workers, verifier)

	runner := engine.NewRunner(regionPool, tracker, verifier, logger)
	runner.OnIteration = mon.observe

	pool := engine.NewWorkerPool(ctx, jobChan, runner.Run)
	pool.SetWorkerCount(cfg.Workers)

	planner := engine.NewPlanner(jobChan)
	go func() {
		defer close(jobChan)
		plan := engine.RunPlan{
			RunID:      runID,
			Regions:    cfg.Regions,
			Iterations: cfg.Iterations,
			Strategy:   cfg.Strategy,
			Patterns:   patterns,
			Seed:       cfg.Seed,
		}
		if err := planner.Plan(ctx, plan); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("planner failed", "err", err)
		}
	}()

	done := make(chan struct{})
	go func() {
		pool.Wait()
		close(done)
	}()

	if cfg.TUI {
		runTUI(ctx, pool, mon, done, logger)
	} else {
		select {
		case <-done:
		case <-ctx.Done():
			logger.Warn("interrupted, stopping workers")
		}
	}

	// Either the run finished or the user bailed out; in both cases stop the
	// remaining workers before touching the store.
	select {
	case <-done:
	default:
		pool.Stop()
		<-done
	}

	for _, m := range verifier.Mismatches() {
		rec := &store.MismatchRecord{
			RunID:       m.RunID,
			JobID:       m.JobID,
			Region:      m.Region,
			Iteration:   m.Iteration,
			Phase:       m.Phase,
			Pattern:     m.Pattern,
			Fingerprint: m.Fingerprint,
			Want:        m.Want,
			Got:         m.Got,
			At:          m.At,
		}
		if err := st.AppendMismatch(rec); err != nil {
			logger.Error("failed to persist mismatch", "err", err)
		}
	}

	mismatches := verifier.MismatchCount()
	runRecord.FinishedAt = time.Now()
	runRecord.Mismatches = mismatches
	if ctx.Err() != nil {
		runRecord.State = store.StateFailed
		runRecord.Error = ctx.Err().Error()
	} else {
		runRecord.State = store.StateCompleted
	}
	if err := st.SaveRun(runRecord); err != nil {
		logger.Error("failed to finalize run record", "err", err)
	}

	if cfg.Export != "" {
		if err := exportRun(context.Background(), st, runID, cfg.Export); err != nil {
			logger.Error("failed to export report", "err", err)
		} else {
			logger.Info("report exported", "run", runID, "dest", cfg.Export)
		}
	}

	elapsed := time.Since(runRecord.StartedAt).Round(time.Millisecond)
	if mismatches > 0 {
		logger.Error("run finished with mismatches",
			"run", runID, "mismatches", mismatches, "elapsed", elapsed)
		return fmt.Errorf("run %s finished with %d checksum mismatches", runID, mismatches)
	}

	logger.Info("run finished, memory clean", "run", runID, "elapsed", elapsed)
	return ctx.Err()
}

func runTUI(ctx context.Context, pool *engine.WorkerPool, mon *runMonitor, done <-chan struct{}, logger *log.Logger) {
	model := ui.NewTUIModel(mon.snapshot(pool.WorkerCount()))
	model.OnWorkerChange = func(delta int) {
		if n := pool.WorkerCount() + delta; n >= 1 {
			pool.SetWorkerCount(n)
		}
	}
	prog := tea.NewProgram(model, tea.WithAltScreen())

	go func() {
		ticker := time.NewTicker(250 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				state := mon.snapshot(pool.WorkerCount())
				state.Done = true
				state.IsRunning = false
				prog.Send(ui.TUIUpdateMsg{State: state})
				return
			case <-ctx.Done():
				prog.Quit()
				return
			case <-ticker.C:
				prog.Send(ui.TUIUpdateMsg{State: mon.snapshot(pool.WorkerCount())})
			}
		}
	}()

	if _, err := prog.Run(); err != nil {
		logger.Error("terminal UI failed", "err", err)
	}
}

func exportRun(ctx context.Context, st store.Store, runID, dest string) error {
	exporter, err := export.ForDestination(ctx, dest)
	if err != nil {
		return err
	}
	report, err := export.Build(st, runID)
	if err != nil {
		return err
	}
	return exporter.Export(ctx, report)
}

// runMonitor aggregates worker progress into UI snapshots. Workers report
// through observe; the TUI ticker reads through snapshot.
type runMonitor struct {
	start           time.Time
	totalIterations int64
	maxWorkers      int
	verifier        *engine.Verifier

	completedIterations atomic.Int64
	completedBytes      atomic.Int64

	mu     sync.Mutex
	active map[string]*regionProgress
}

type regionProgress struct {
	region     int
	pattern    string
	iterations int
	total      int
	bytes      int64
	first      time.Time
}

func newRunMonitor(totalIterations int64, maxWorkers int, verifier *engine.Verifier) *runMonitor {
	return &runMonitor{
		start:           time.Now(),
		totalIterations: totalIterations,
		maxWorkers:      maxWorkers,
		verifier:        verifier,
		active:          make(map[string]*regionProgress),
	}
}

func (m *runMonitor) observe(job engine.StressJob, bytes int) {
	m.completedIterations.Add(1)
	m.completedBytes.Add(int64(bytes))

	m.mu.Lock()
	defer m.mu.Unlock()

	rp, ok := m.active[job.ID]
	if !ok {
		rp = &regionProgress{
			region:  job.Region,
			pattern: job.Pattern.Name,
			total:   job.Iterations,
			first:   time.Now(),
		}
		m.active[job.ID] = rp
	}
	rp.iterations++
	rp.bytes += int64(bytes)

	if rp.iterations >= rp.total {
		delete(m.active, job.ID)
	}
}

func (m *runMonitor) snapshot(workers int) *ui.UIState {
	completed := m.completedIterations.Load()
	elapsedMs := float64(time.Since(m.start)) / float64(time.Millisecond)

	var perMs float64
	if elapsedMs > 0 {
		perMs = float64(completed) / elapsedMs
	}

	m.mu.Lock()
	regions := make([]*ui.ActiveRegion, 0, len(m.active))
	for id, rp := range m.active {
		var bytesSec float64
		if secs := time.Since(rp.first).Seconds(); secs > 0 {
			bytesSec = float64(rp.bytes) / secs
		}
		regions = append(regions, &ui.ActiveRegion{
			JobID:    id,
			Region:   rp.region,
			Pattern:  rp.pattern,
			Progress: float64(rp.iterations) / float64(rp.total),
			BytesSec: bytesSec,
		})
	}
	m.mu.Unlock()

	sort.Slice(regions, func(i, j int) bool { return regions[i].Region < regions[j].Region })

	return &ui.UIState{
		TotalIterations:     m.totalIterations,
		CompletedIterations: completed,
		CompletedBytes:      m.completedBytes.Load(),
		Mismatches:          m.verifier.MismatchCount(),
		ActiveRegions:       regions,
		ActiveWorkers:       workers,
		MaxWorkers:          m.maxWorkers,
		IterationsPerMs:     perMs,
		IsRunning:           true,
	}
}
