package reporter

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"github.com/mvkit/mvkit/internal/util"
)

// TerminalReporter outputs human-friendly text to the terminal.
type TerminalReporter struct {
	mu       sync.Mutex
	out      io.Writer
	errOut   io.Writer
	progress *progressbar.ProgressBar
	showBar  bool
	verbose  bool
	cyan     *color.Color
	green    *color.Color
	success  *color.Color
	yellow   *color.Color
	red      *color.Color
	magenta  *color.Color
	bold     *color.Color
	faint    *color.Color
}

// NewTerminalReporter creates a terminal reporter on stdout/stderr. The
// progress bar is only drawn when stderr is a terminal.
func NewTerminalReporter(verbose bool) *TerminalReporter {
	r := NewTerminalReporterWithWriters(os.Stdout, os.Stderr, verbose)
	fd := os.Stderr.Fd()
	r.showBar = isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	return r
}

// NewTerminalReporterWithWriters creates a terminal reporter writing to the
// given streams, without a progress bar.
func NewTerminalReporterWithWriters(out, errOut io.Writer, verbose bool) *TerminalReporter {
	return &TerminalReporter{
		out:     out,
		errOut:  errOut,
		verbose: verbose,
		cyan:    color.New(color.FgCyan, color.Bold),
		green:   color.New(color.FgGreen),
		success: color.New(color.FgGreen, color.Bold),
		yellow:  color.New(color.FgYellow, color.Bold),
		red:     color.New(color.FgRed, color.Bold),
		magenta: color.New(color.FgMagenta),
		bold:    color.New(color.Bold),
		faint:   color.New(color.Faint),
	}
}

func (r *TerminalReporter) finishProgress() {
	if r.progress != nil {
		_ = r.progress.Finish()
		r.progress = nil
	}
}

// printLabel prints a bold label with fixed width padding followed by a value.
// Width is applied to the plain text before styling to ensure proper alignment.
func (r *TerminalReporter) printLabel(width int, label, value string) {
	paddedLabel := fmt.Sprintf("%-*s", width, label)
	_, _ = fmt.Fprintf(r.out, "  %s %s\n", r.bold.Sprint(paddedLabel), value)
}

func (r *TerminalReporter) heading(title string) {
	_, _ = fmt.Fprintln(r.out)
	_, _ = r.cyan.Fprintln(r.out, title)
}

func (r *TerminalReporter) Hardware(summary HardwareSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.heading("HARDWARE")
	r.printLabel(10, "Hostname:", summary.Hostname)
	r.printLabel(10, "Cores:", fmt.Sprintf("%d physical, %d logical", summary.PhysicalCores, summary.LogicalCores))
	r.printLabel(10, "Mode:", summary.Mode)
}

func (r *TerminalReporter) JobStarted(info JobStartInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.heading("JOB")
	r.printLabel(8, "Name:", info.Name)
	r.printLabel(8, "Run:", info.RunID)
	r.printLabel(8, "Workdir:", info.WorkDir)
	r.printLabel(8, "Steps:", fmt.Sprintf("%d (%d workers)", info.TotalSteps, info.Workers))

	if r.showBar {
		r.progress = progressbar.NewOptions(
			info.TotalSteps,
			progressbar.OptionSetDescription(""),
			progressbar.OptionSetWidth(40),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionSetWriter(r.errOut),
			progressbar.OptionSetPredictTime(false),
			progressbar.OptionShowDescriptionAtLineEnd(),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "=",
				SaucerHead:    ">",
				SaucerPadding: " ",
				BarStart:      "Steps [",
				BarEnd:        "]",
			}),
		)
	}
}

func (r *TerminalReporter) StepStarted(step StepInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.progress != nil {
		r.progress.Describe(step.Name)
		return
	}
	_, _ = fmt.Fprintf(r.out, "  %s [%d/%d] %s\n", r.magenta.Sprint("›"), step.Index+1, step.Total, step.Name)
	if r.verbose && step.Command != "" {
		_, _ = fmt.Fprintf(r.out, "    %s\n", r.faint.Sprint(step.Command))
	}
}

func (r *TerminalReporter) StepProgress(progress ProgressSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.progress == nil {
		return
	}
	_ = r.progress.Set(progress.Completed)
}

func (r *TerminalReporter) StepComplete(outcome StepOutcome) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.progress != nil && outcome.Success && !r.verbose {
		return
	}

	var status string
	if outcome.Success {
		status = r.green.Sprint("✓")
	} else {
		status = r.red.Sprint("✗")
	}
	detail := util.FormatDuration(outcome.Elapsed.Seconds())
	if outcome.Value != "" {
		detail += ", " + outcome.Value
	}
	if outcome.Size > 0 {
		detail += ", " + util.FormatBytes(outcome.Size)
	}
	if outcome.Attempts > 1 {
		detail += fmt.Sprintf(", %d attempts", outcome.Attempts)
	}
	_, _ = fmt.Fprintf(r.out, "  %s %s (%s)\n", status, outcome.Name, detail)
	if !outcome.Success && outcome.Message != "" {
		_, _ = fmt.Fprintf(r.out, "    %s\n", outcome.Message)
	}
}

func (r *TerminalReporter) Warning(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, _ = fmt.Fprintln(r.out)
	_, _ = r.yellow.Fprintf(r.out, "WARN: %s\n", message)
}

func (r *TerminalReporter) Error(err ReporterError) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.finishProgress()
	_, _ = fmt.Fprintln(r.errOut)
	_, _ = r.red.Fprintf(r.errOut, "ERROR %s\n", err.Title)
	_, _ = fmt.Fprintf(r.errOut, "  %s\n", err.Message)
	if err.Context != "" {
		_, _ = fmt.Fprintf(r.errOut, "  Context: %s\n", err.Context)
	}
	if err.Suggestion != "" {
		_, _ = fmt.Fprintf(r.errOut, "  Suggestion: %s\n", err.Suggestion)
	}
}

func (r *TerminalReporter) JobComplete(summary JobSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.finishProgress()
	r.heading("SUMMARY")
	line := fmt.Sprintf("%d of %d steps succeeded", summary.Succeeded, summary.Total)
	if summary.Failed == 0 && summary.Skipped == 0 {
		_, _ = fmt.Fprintf(r.out, "  %s\n", r.success.Sprint(line))
	} else {
		_, _ = fmt.Fprintf(r.out, "  %s\n", r.red.Sprint(line))
		if summary.Skipped > 0 {
			_, _ = fmt.Fprintf(r.out, "  %d skipped\n", summary.Skipped)
		}
	}
	r.printLabel(5, "Time:", util.FormatDuration(summary.Duration.Seconds()))

	for _, res := range summary.Results {
		if res.Output == "" || !res.Success {
			continue
		}
		_, _ = fmt.Fprintf(r.out, "  - %s %s\n", res.Name, r.faint.Sprint(res.Output))
	}
}

func (r *TerminalReporter) Verbose(message string) {
	if !r.verbose {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_, _ = fmt.Fprintf(r.out, "  %s\n", r.faint.Sprint(message))
}
