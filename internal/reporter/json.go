package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// JSONReporter outputs NDJSON events, one object per line.
type JSONReporter struct {
	writer             io.Writer
	mu                 sync.Mutex
	lastProgressBucket int
	lastProgressTime   time.Time
}

// NewJSONReporter creates a new JSON reporter that writes to stdout.
func NewJSONReporter() *JSONReporter {
	return NewJSONReporterWithWriter(os.Stdout)
}

// NewJSONReporterWithWriter creates a JSON reporter with a custom writer.
func NewJSONReporterWithWriter(w io.Writer) *JSONReporter {
	return &JSONReporter{
		writer:             w,
		lastProgressBucket: -1,
	}
}

func (r *JSONReporter) timestamp() int64 {
	return time.Now().Unix()
}

func (r *JSONReporter) write(v map[string]any) {
	v["timestamp"] = r.timestamp()

	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintln(r.writer, string(data))
}

func (r *JSONReporter) Hardware(summary HardwareSummary) {
	r.write(map[string]any{
		"type":           "hardware",
		"hostname":       summary.Hostname,
		"logical_cores":  summary.LogicalCores,
		"physical_cores": summary.PhysicalCores,
		"mode":           summary.Mode,
	})
}

func (r *JSONReporter) JobStarted(info JobStartInfo) {
	r.mu.Lock()
	r.lastProgressBucket = -1
	r.lastProgressTime = time.Time{}
	r.mu.Unlock()

	r.write(map[string]any{
		"type":        "job_started",
		"run_id":      info.RunID,
		"name":        info.Name,
		"workdir":     info.WorkDir,
		"total_steps": info.TotalSteps,
		"workers":     info.Workers,
	})
}

func (r *JSONReporter) StepStarted(step StepInfo) {
	r.write(map[string]any{
		"type":      "step_started",
		"index":     step.Index,
		"total":     step.Total,
		"name":      step.Name,
		"operation": step.Operation,
		"command":   step.Command,
	})
}

// StepProgress emits at most one event per percent bucket unless
// minInterval has passed since the last one.
func (r *JSONReporter) StepProgress(progress ProgressSnapshot) {
	const progressBucketSize = 5
	const minInterval = 5 * time.Second

	bucket := int(progress.Percent) / progressBucketSize
	now := time.Now()

	r.mu.Lock()
	intervalElapsed := r.lastProgressTime.IsZero() || now.Sub(r.lastProgressTime) >= minInterval
	shouldEmit := bucket > r.lastProgressBucket || intervalElapsed || progress.Completed == progress.Total

	if !shouldEmit {
		r.mu.Unlock()
		return
	}

	if bucket > r.lastProgressBucket {
		r.lastProgressBucket = bucket
	}
	r.lastProgressTime = now
	r.mu.Unlock()

	r.write(map[string]any{
		"type":            "step_progress",
		"completed":       progress.Completed,
		"total":           progress.Total,
		"percent":         progress.Percent,
		"elapsed_seconds": int64(progress.Elapsed.Seconds()),
	})
}

func (r *JSONReporter) StepComplete(outcome StepOutcome) {
	r.write(map[string]any{
		"type":            "step_complete",
		"index":           outcome.Index,
		"name":            outcome.Name,
		"operation":       outcome.Operation,
		"output":          outcome.Output,
		"size":            outcome.Size,
		"exit_code":       outcome.ExitCode,
		"attempts":        outcome.Attempts,
		"elapsed_seconds": outcome.Elapsed.Seconds(),
		"success":         outcome.Success,
		"value":           outcome.Value,
		"message":         outcome.Message,
	})
}

func (r *JSONReporter) Warning(message string) {
	r.write(map[string]any{
		"type":    "warning",
		"message": message,
	})
}

func (r *JSONReporter) Error(err ReporterError) {
	r.write(map[string]any{
		"type":       "error",
		"title":      err.Title,
		"message":    err.Message,
		"context":    err.Context,
		"suggestion": err.Suggestion,
	})
}

func (r *JSONReporter) JobComplete(summary JobSummary) {
	r.write(map[string]any{
		"type":             "job_complete",
		"run_id":           summary.RunID,
		"name":             summary.Name,
		"succeeded":        summary.Succeeded,
		"failed":           summary.Failed,
		"skipped":          summary.Skipped,
		"total":            summary.Total,
		"duration_seconds": int64(summary.Duration.Seconds()),
	})
}

func (r *JSONReporter) Verbose(message string) {
	r.write(map[string]any{
		"type":    "verbose",
		"message": message,
	})
}
