package reporter

// Reporter defines the interface for progress reporting.
type Reporter interface {
	Hardware(summary HardwareSummary)
	JobStarted(info JobStartInfo)
	StepStarted(step StepInfo)
	StepProgress(progress ProgressSnapshot)
	StepComplete(outcome StepOutcome)
	Warning(message string)
	Error(err ReporterError)
	JobComplete(summary JobSummary)
	Verbose(message string)
}

// NullReporter is a no-op reporter that discards all updates.
type NullReporter struct{}

func (NullReporter) Hardware(HardwareSummary)      {}
func (NullReporter) JobStarted(JobStartInfo)       {}
func (NullReporter) StepStarted(StepInfo)          {}
func (NullReporter) StepProgress(ProgressSnapshot) {}
func (NullReporter) StepComplete(StepOutcome)      {}
func (NullReporter) Warning(string)                {}
func (NullReporter) Error(ReporterError)           {}
func (NullReporter) JobComplete(JobSummary)        {}
func (NullReporter) Verbose(string)                {}
