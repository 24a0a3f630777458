package reporter

import "sync"

// CompositeReporter fans out events to multiple reporters. Events are
// delivered one at a time so reporters need not be safe for concurrent use.
type CompositeReporter struct {
	mu        sync.Mutex
	reporters []Reporter
}

// NewCompositeReporter creates a composite reporter.
func NewCompositeReporter(reporters ...Reporter) *CompositeReporter {
	return &CompositeReporter{reporters: reporters}
}

func (c *CompositeReporter) each(fn func(Reporter)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range c.reporters {
		fn(r)
	}
}

func (c *CompositeReporter) Hardware(summary HardwareSummary) {
	c.each(func(r Reporter) { r.Hardware(summary) })
}

func (c *CompositeReporter) JobStarted(info JobStartInfo) {
	c.each(func(r Reporter) { r.JobStarted(info) })
}

func (c *CompositeReporter) StepStarted(step StepInfo) {
	c.each(func(r Reporter) { r.StepStarted(step) })
}

func (c *CompositeReporter) StepProgress(progress ProgressSnapshot) {
	c.each(func(r Reporter) { r.StepProgress(progress) })
}

func (c *CompositeReporter) StepComplete(outcome StepOutcome) {
	c.each(func(r Reporter) { r.StepComplete(outcome) })
}

func (c *CompositeReporter) Warning(message string) {
	c.each(func(r Reporter) { r.Warning(message) })
}

func (c *CompositeReporter) Error(err ReporterError) {
	c.each(func(r Reporter) { r.Error(err) })
}

func (c *CompositeReporter) JobComplete(summary JobSummary) {
	c.each(func(r Reporter) { r.JobComplete(summary) })
}

func (c *CompositeReporter) Verbose(message string) {
	c.each(func(r Reporter) { r.Verbose(message) })
}
