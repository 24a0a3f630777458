package job

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"

	"github.com/mvkit/mvkit/internal/errors"
	"github.com/mvkit/mvkit/internal/ffmpeg"
	"github.com/mvkit/mvkit/internal/ffprobe"
	"github.com/mvkit/mvkit/internal/logging"
	"github.com/mvkit/mvkit/internal/reporter"
	"github.com/mvkit/mvkit/internal/runner"
	"github.com/mvkit/mvkit/internal/util"
	"github.com/mvkit/mvkit/internal/validation"
)

// LockFileName is the lock file a run holds in the work directory. It is
// left in place after the run.
const LockFileName = ".mvkit.lock"

// StaleListAge is the age after which a generated concat manifest left by
// an interrupted run is removed.
const StaleListAge = 24 * time.Hour

// Executor runs plans.
type Executor struct {
	engine   *runner.Engine
	builder  *ffmpeg.Builder
	prober   *ffprobe.Prober
	reporter reporter.Reporter
	logger   *logging.Logger
	retry    runner.RetryPolicy
	mode     string
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithReporter sets the progress reporter.
func WithReporter(r reporter.Reporter) ExecutorOption {
	return func(e *Executor) {
		if r != nil {
			e.reporter = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) ExecutorOption {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithRetryAttempts sets how many guarded attempts transcoder steps get.
func WithRetryAttempts(n int) ExecutorOption {
	return func(e *Executor) {
		e.retry.Attempts = n
	}
}

// WithMode records the environment mode shown in the hardware summary.
func WithMode(mode string) ExecutorOption {
	return func(e *Executor) {
		e.mode = mode
	}
}

// NewExecutor creates an executor. The builder must be the one the plan was
// built with so concat manifests are translated the same way.
func NewExecutor(engine *runner.Engine, builder *ffmpeg.Builder, prober *ffprobe.Prober, opts ...ExecutorOption) *Executor {
	e := &Executor{
		engine:   engine,
		builder:  builder,
		prober:   prober,
		reporter: reporter.NullReporter{},
		logger:   logging.Global(),
		mode:     "native",
	}
	for _, opt := range opts {
		opt(e)
	}
	e.retry.Logger = e.logger
	return e
}

// Run executes plan. Steps run in order, except that consecutive segment
// steps run concurrently on up to plan.Workers workers. The first failing
// batch stops the job and the remaining steps are reported as skipped.
func (e *Executor) Run(ctx context.Context, plan *Plan) (reporter.JobSummary, error) {
	summary := reporter.JobSummary{RunID: plan.RunID, Name: plan.Name, Total: len(plan.Steps)}

	if err := util.EnsureDirectory(plan.WorkDir); err != nil {
		return summary, errors.NewIOError("failed to create work directory "+plan.WorkDir, err)
	}
	if err := util.EnsureDirectoryWritable(plan.WorkDir); err != nil {
		return summary, errors.NewIOError("work directory is not usable", err)
	}
	lock := flock.New(filepath.Join(plan.WorkDir, LockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return summary, errors.NewIOError("failed to lock work directory "+plan.WorkDir, err)
	}
	if !locked {
		return summary, errors.NewConfigErrorf("work directory %s is in use by another run", plan.WorkDir)
	}
	defer func() { _ = lock.Unlock() }()

	sys := util.GetSystemInfo()
	e.reporter.Hardware(reporter.HardwareSummary{
		Hostname:      sys.Hostname,
		LogicalCores:  sys.LogicalCores,
		PhysicalCores: sys.PhysicalCores,
		Mode:          e.mode,
	})
	e.reporter.JobStarted(reporter.JobStartInfo{
		RunID:      plan.RunID,
		Name:       plan.Name,
		WorkDir:    plan.WorkDir,
		TotalSteps: len(plan.Steps),
		Workers:    plan.Workers,
	})
	util.CheckDiskSpace(plan.WorkDir, func(format string, args ...any) {
		e.reporter.Warning(fmt.Sprintf(format, args...))
	})

	logger := e.logger.With("run_id", plan.RunID)
	logger.Info("job started", "name", plan.Name, "steps", len(plan.Steps), "workers", plan.Workers)
	if n, err := util.CleanupStaleTempFiles(plan.WorkDir, ListPrefix, StaleListAge); err != nil {
		logger.Warn("failed to remove stale concat lists", "error", err)
	} else if n > 0 {
		logger.Info("removed stale concat lists", "count", n)
	}

	start := time.Now()
	outcomes := make([]reporter.StepOutcome, len(plan.Steps))
	ran := make([]bool, len(plan.Steps))
	tracker := &progress{total: len(plan.Steps), start: start, rep: e.reporter}

	var runErr error
	for _, batch := range batches(plan.Steps) {
		if ctx.Err() != nil {
			runErr = errors.NewCancelledError()
			break
		}
		for _, ps := range batch {
			ran[ps.Index] = true
		}
		if err := e.runBatch(ctx, plan, batch, outcomes, tracker, logger); err != nil {
			runErr = err
			break
		}
	}

	for i, ps := range plan.Steps {
		if !ran[i] {
			outcomes[i] = reporter.StepOutcome{Index: i, Name: ps.Name, Operation: string(ps.Kind), Message: "skipped"}
			summary.Skipped++
			continue
		}
		if outcomes[i].Success {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
	}
	summary.Results = outcomes
	summary.Duration = time.Since(start)

	if runErr != nil {
		e.reporter.Error(reporter.ReporterError{
			Title:      "Job failed",
			Message:    runErr.Error(),
			Context:    fmt.Sprintf("Run: %s", plan.RunID),
			Suggestion: "Check the log for the failing command and its output",
		})
		logger.Error("job failed", "error", runErr, "succeeded", summary.Succeeded, "failed", summary.Failed, "skipped", summary.Skipped)
	} else {
		logger.Info("job finished", "elapsed", summary.Duration)
	}
	e.reporter.JobComplete(summary)
	return summary, runErr
}

// batches groups consecutive segment steps; every other step is alone.
func batches(steps []PlannedStep) [][]PlannedStep {
	var out [][]PlannedStep
	for _, ps := range steps {
		n := len(out)
		if ps.Kind == ffmpeg.KindSegment && n > 0 && out[n-1][0].Kind == ffmpeg.KindSegment {
			out[n-1] = append(out[n-1], ps)
			continue
		}
		out = append(out, []PlannedStep{ps})
	}
	return out
}

func (e *Executor) runBatch(ctx context.Context, plan *Plan, batch []PlannedStep, outcomes []reporter.StepOutcome, tracker *progress, logger *logging.Logger) error {
	if len(batch) == 1 {
		return e.runStep(ctx, plan, batch[0], outcomes, tracker, logger)
	}

	// Siblings are not cancelled on failure so each segment reports its own outcome.
	var g errgroup.Group
	g.SetLimit(plan.Workers)
	for _, ps := range batch {
		ps := ps
		g.Go(func() error {
			return e.runStep(ctx, plan, ps, outcomes, tracker, logger)
		})
	}
	return g.Wait()
}

func (e *Executor) runStep(ctx context.Context, plan *Plan, ps PlannedStep, outcomes []reporter.StepOutcome, tracker *progress, logger *logging.Logger) error {
	e.reporter.StepStarted(reporter.StepInfo{
		Index:     ps.Index,
		Total:     len(plan.Steps),
		Name:      ps.Name,
		Operation: string(ps.Kind),
		Command:   ps.Command.String(),
	})

	out := reporter.StepOutcome{
		Index:     ps.Index,
		Name:      ps.Name,
		Operation: string(ps.Kind),
		Output:    ps.Command.Output(),
		Attempts:  1,
	}
	start := time.Now()
	err := e.execute(ctx, ps, &out, logger)
	out.Elapsed = time.Since(start)
	out.Success = err == nil
	if err != nil {
		out.Message = err.Error()
		if code := errors.ExitCode(err); code != -1 {
			out.ExitCode = code
		}
		logger.Warn("step failed", "step", ps.Name, "error", err)
	}

	outcomes[ps.Index] = out
	e.reporter.StepComplete(out)
	tracker.done()

	if err != nil {
		return fmt.Errorf("step %d (%s): %w", ps.Index+1, ps.Name, err)
	}
	return nil
}

func (e *Executor) execute(ctx context.Context, ps PlannedStep, out *reporter.StepOutcome, logger *logging.Logger) error {
	switch ps.Kind {
	case ffmpeg.KindProbeDuration:
		res, err := e.prober.Duration(ctx, ps.Spec.Sources[0], ps.Strict)
		if err != nil {
			return err
		}
		out.Value = probeValue("duration", res)
		return nil

	case ffmpeg.KindProbeBitrate:
		out.Value = probeValue("bitrate", e.prober.Bitrate(ctx, ps.Spec.Sources[0]))
		return nil

	case ffmpeg.KindProbeStreams:
		raw, err := e.prober.Streams(ctx, ps.Spec.Sources[0], ps.Spec.StreamType)
		if err != nil {
			return err
		}
		out.Value = fmt.Sprintf("%d stream(s)", len(ffprobe.ParseStreams(raw)))
		return nil
	}

	if ps.ListPath != "" {
		files, err := ps.listFiles(logger)
		if err != nil {
			return err
		}
		if err := e.builder.WriteConcatList(ctx, ps.ListPath, files); err != nil {
			return err
		}
		defer func() { _ = os.Remove(ps.ListPath) }()
	}

	if dir := filepath.Dir(ps.Command.Output()); dir != "" {
		if err := util.EnsureDirectory(dir); err != nil {
			return errors.NewIOError("failed to create output directory "+dir, err)
		}
	}

	res, err := e.engine.RunWithRetry(ctx, ps.Command, runner.Options{}, e.retry)
	out.ExitCode = res.ExitCode
	out.Attempts = res.Attempts
	if err != nil {
		return err
	}
	if size, err := util.GetFileSize(ps.Command.Output()); err == nil {
		out.Size = size
	}
	if ps.Verify.IsZero() {
		return nil
	}

	result, err := validation.Validate(ctx, validation.NewProbeAnalyzer(e.prober), ps.Command.Output(), ps.Verify)
	if err != nil {
		return err
	}
	if err := result.Err(); err != nil {
		return err
	}
	out.Value = fmt.Sprintf("%d check(s) passed", len(result.Checks))
	logger.Debug("output verified", "path", ps.Command.Output(), "checks", len(result.Checks))
	return nil
}

func probeValue(name string, res ffprobe.Result) string {
	v := name + "=" + formatValue(res.Value)
	if res.Fallback {
		v += " (fallback)"
	}
	return v
}

// progress counts finished steps across workers.
type progress struct {
	mu        sync.Mutex
	completed int
	total     int
	start     time.Time
	rep       reporter.Reporter
}

func (p *progress) done() {
	p.mu.Lock()
	p.completed++
	snap := reporter.ProgressSnapshot{
		Completed: p.completed,
		Total:     p.total,
		Elapsed:   time.Since(p.start),
	}
	p.mu.Unlock()

	if snap.Total > 0 {
		snap.Percent = float32(snap.Completed) / float32(snap.Total) * 100
	}
	p.rep.StepProgress(snap)
}
