package hostenv

import (
	"context"
	"strings"

	"github.com/mvkit/mvkit/internal/runner"
)

// Helper resolves a path through an external translation tool. flag selects
// the direction ("-m" to the tool host, "-u" back).
type Helper interface {
	Translate(ctx context.Context, flag, path string) (string, error)
}

// ExecHelper runs a wslpath-compatible binary through the execution engine.
type ExecHelper struct {
	engine  *runner.Engine
	program string
}

// NewExecHelper creates a helper that invokes program via engine.
func NewExecHelper(engine *runner.Engine, program string) *ExecHelper {
	if program == "" {
		program = "wslpath"
	}
	return &ExecHelper{engine: engine, program: program}
}

// Translate runs the helper and returns the first line of its stdout.
func (h *ExecHelper) Translate(ctx context.Context, flag, path string) (string, error) {
	cmd := runner.NewCommand(runner.OpPathTranslate, h.program, flag, path)
	stdout, _, err := h.engine.Capture(ctx, cmd, runner.Options{Strict: true})
	if err != nil {
		return "", err
	}
	line, _, _ := strings.Cut(stdout, "\n")
	return strings.TrimSpace(line), nil
}

// HelperFunc adapts a function to the Helper interface.
type HelperFunc func(ctx context.Context, flag, path string) (string, error)

// Translate calls f.
func (f HelperFunc) Translate(ctx context.Context, flag, path string) (string, error) {
	return f(ctx, flag, path)
}
