// Package reporter provides progress reporting interfaces and implementations.
package reporter

import "time"

// HardwareSummary contains host information.
type HardwareSummary struct {
	Hostname      string
	LogicalCores  int
	PhysicalCores int
	Mode          string
}

// JobStartInfo describes a job run before any step executes.
type JobStartInfo struct {
	RunID      string
	Name       string
	WorkDir    string
	TotalSteps int
	Workers    int
}

// StepInfo identifies a step about to run.
type StepInfo struct {
	Index     int
	Total     int
	Name      string
	Operation string
	Command   string
}

// ProgressSnapshot reports how many steps have finished.
type ProgressSnapshot struct {
	Completed int
	Total     int
	Percent   float32
	Elapsed   time.Duration
}

// StepOutcome contains the result of one step.
type StepOutcome struct {
	Index     int
	Name      string
	Operation string
	Output    string
	Size      uint64
	ExitCode  int
	Attempts  int
	Elapsed   time.Duration
	Success   bool
	// Value is set by probe steps.
	Value   string
	Message string
}

// JobSummary contains job completion information.
type JobSummary struct {
	RunID     string
	Name      string
	Succeeded int
	Failed    int
	Skipped   int
	Total     int
	Duration  time.Duration
	Results   []StepOutcome
}

// ReporterError contains error information.
type ReporterError struct {
	Title      string
	Message    string
	Context    string
	Suggestion string
}
