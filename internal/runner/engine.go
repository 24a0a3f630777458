package runner

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/mvkit/mvkit/internal/errors"
	"github.com/mvkit/mvkit/internal/logging"
)

// Result describes one finished invocation.
type Result struct {
	Operation Operation
	ExitCode  int
	// Output is the combined stdout+stderr tail. Empty when output was discarded.
	Output    string
	Truncated bool
	TimedOut  bool
	Elapsed   time.Duration
	// Attempts is the number of invocations consumed, including retries.
	Attempts int
}

// Success reports whether the process exited with status zero.
func (r Result) Success() bool {
	return r.ExitCode == 0 && !r.TimedOut
}

// Options tune a single Run.
type Options struct {
	// Timeout overrides the engine default; zero keeps the default.
	Timeout time.Duration
	// Strict turns non-zero exits and timeouts into returned errors.
	Strict bool
	// Discard drops the process output instead of capturing it.
	Discard bool
}

// Engine runs commands as external processes.
type Engine struct {
	logger      *logging.Logger
	timeout     time.Duration
	outputLimit int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for invocation records.
func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithTimeout sets the default wall-clock budget per invocation.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.timeout = d
	}
}

// WithOutputLimit caps the number of captured output bytes per invocation.
func WithOutputLimit(n int) Option {
	return func(e *Engine) {
		e.outputLimit = n
	}
}

// NewEngine creates an execution engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		logger:      logging.Global(),
		outputLimit: 64 * 1024,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes cmd and blocks until it exits or its timeout fires. The argv
// is handed to the operating system directly; no shell parses it, so
// Command.String is only the rendering used for logs and translation.
//
// In non-strict mode a failing exit status or a timeout is reported through
// the Result only; the returned error is reserved for invalid commands and
// cancellation. In strict mode failures come back as ExecutionFailure or
// TimeoutError.
func (e *Engine) Run(ctx context.Context, cmd Command, opts Options) (Result, error) {
	return e.run(ctx, cmd, opts, nil)
}

// RunAndCheck executes cmd, discarding its output, and returns the exit status.
func (e *Engine) RunAndCheck(ctx context.Context, cmd Command) int {
	res, _ := e.Run(ctx, cmd, Options{Discard: true})
	return res.ExitCode
}

// Capture executes cmd and returns its stdout separately from the Result,
// whose Output then only holds stderr.
func (e *Engine) Capture(ctx context.Context, cmd Command, opts Options) (string, Result, error) {
	stdout := newTailBuffer(e.outputLimit)
	res, err := e.run(ctx, cmd, opts, stdout)
	return stdout.String(), res, err
}

// RunWithRetry executes cmd under policy. Each attempt is strict so that
// failures reach the policy; the result of the last attempt is returned.
func (e *Engine) RunWithRetry(ctx context.Context, cmd Command, opts Options, policy RetryPolicy) (Result, error) {
	opts.Strict = true
	if policy.Logger == nil {
		policy.Logger = e.logger
	}

	attempts := 0
	res, err := Retry(ctx, policy, string(cmd.Operation()), func(ctx context.Context) (Result, error) {
		attempts++
		return e.Run(ctx, cmd, opts)
	})
	res.Attempts = attempts
	return res, err
}

func (e *Engine) run(ctx context.Context, cmd Command, opts Options, stdout io.Writer) (Result, error) {
	res := Result{Operation: cmd.Operation(), ExitCode: -1, Attempts: 1}
	if err := cmd.Validate(); err != nil {
		return res, err
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = e.timeout
	}

	runCtx := ctx
	cancel := func() {}
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	var combined *tailBuffer
	var sink io.Writer = io.Discard
	if !opts.Discard {
		combined = newTailBuffer(e.outputLimit)
		sink = combined
	}

	c := exec.CommandContext(runCtx, cmd.Program(), cmd.Args()...)
	c.Stdout = sink
	if stdout != nil {
		c.Stdout = stdout
	}
	c.Stderr = sink
	configureProcess(c)

	line := cmd.String()
	e.logger.Debug("running command", "operation", cmd.Operation(), "command", line)

	start := time.Now()
	runErr := c.Run()
	res.Elapsed = time.Since(start)
	if c.ProcessState != nil {
		res.ExitCode = c.ProcessState.ExitCode()
	}
	if combined != nil {
		res.Output = combined.String()
		res.Truncated = combined.Truncated()
	}

	if runErr != nil && ctx.Err() != nil {
		e.logger.Error("command cancelled", "operation", cmd.Operation(), "command", line, "output", res.Output)
		return res, fmt.Errorf("%s: %w", cmd.Operation(), errors.NewCancelledError())
	}

	if runErr != nil && stderrors.Is(runCtx.Err(), context.DeadlineExceeded) {
		res.TimedOut = true
		note := fmt.Sprintf("timed out after %s", timeout)
		res.Output = appendLine(res.Output, note)
		e.logger.Error("command timed out", "operation", cmd.Operation(), "command", line, "timeout", timeout, "output", res.Output)
		if opts.Strict {
			return res, errors.NewTimeoutError(line, timeout, res.Output)
		}
		return res, nil
	}

	if runErr != nil {
		execErr := errors.WrapExecError(line, runErr, strings.TrimSpace(res.Output))
		var exitErr *exec.ExitError
		if stderrors.As(runErr, &exitErr) {
			e.logger.Error("command failed", "operation", cmd.Operation(), "command", line, "exit_code", res.ExitCode, "output", res.Output)
		} else {
			res.Output = appendLine(res.Output, runErr.Error())
			e.logger.Error("command failed to start", "operation", cmd.Operation(), "command", line, "error", runErr)
		}
		if opts.Strict {
			return res, execErr
		}
		return res, nil
	}

	e.logger.Debug("command finished", "operation", cmd.Operation(), "elapsed", res.Elapsed)
	return res, nil
}

func appendLine(output, line string) string {
	if output == "" || strings.HasSuffix(output, "\n") {
		return output + line
	}
	return output + "\n" + line
}
