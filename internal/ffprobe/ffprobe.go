// Package ffprobe runs read-only media inspection commands and parses their
// output.
package ffprobe

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mvkit/mvkit/internal/errors"
	"github.com/mvkit/mvkit/internal/ffmpeg"
	"github.com/mvkit/mvkit/internal/logging"
	"github.com/mvkit/mvkit/internal/runner"
)

// Runner captures the stdout of a command. *runner.Engine satisfies it.
type Runner interface {
	Capture(ctx context.Context, cmd runner.Command, opts runner.Options) (string, runner.Result, error)
}

// Result is a probed numeric value. Fallback is set when the probe output
// could not be parsed and Value holds the 0.0 default instead.
type Result struct {
	Value    float64
	Fallback bool
}

// Prober builds and runs probe commands.
type Prober struct {
	builder *ffmpeg.Builder
	runner  Runner
	logger  *logging.Logger
}

// New creates a Prober. A nil logger uses the global one.
func New(builder *ffmpeg.Builder, r Runner, logger *logging.Logger) *Prober {
	if logger == nil {
		logger = logging.Global()
	}
	return &Prober{builder: builder, runner: r, logger: logger}
}

// Duration returns the container duration of path in seconds. Unparsable
// output yields 0.0 with Fallback set, or a MediaReadError naming the file
// when strict is true.
func (p *Prober) Duration(ctx context.Context, path string, strict bool) (Result, error) {
	cmd, err := p.builder.ProbeDuration(ctx, path)
	if err != nil {
		if strict {
			return Result{}, errors.NewMediaReadError(filepath.Base(path), err)
		}
		return p.fallback("duration", path, err), nil
	}

	out, _, err := p.runner.Capture(ctx, cmd, runner.Options{})
	if err != nil {
		if errors.IsCancelled(err) {
			return Result{}, err
		}
		if strict {
			return Result{}, errors.NewMediaReadError(filepath.Base(path), err)
		}
		return p.fallback("duration", path, err), nil
	}

	v, err := ParseNumber(out)
	if err != nil {
		if strict {
			return Result{}, errors.NewMediaReadError(filepath.Base(path), err)
		}
		return p.fallback("duration", path, err), nil
	}
	return Result{Value: v}, nil
}

// Bitrate returns the container bit rate of path in bits per second. It
// never fails; unusable output yields 0.0 with Fallback set.
func (p *Prober) Bitrate(ctx context.Context, path string) Result {
	cmd, err := p.builder.ProbeBitrate(ctx, path)
	if err != nil {
		return p.fallback("bitrate", path, err)
	}
	out, _, err := p.runner.Capture(ctx, cmd, runner.Options{})
	if err != nil {
		return p.fallback("bitrate", path, err)
	}
	v, err := ParseNumber(out)
	if err != nil {
		return p.fallback("bitrate", path, err)
	}
	return Result{Value: v}
}

// Streams returns the raw stream dump of path, limited to streamType when
// it is not empty. A failing probe is an ExecutionFailure.
func (p *Prober) Streams(ctx context.Context, path, streamType string) (string, error) {
	cmd, err := p.builder.ProbeStreams(ctx, path, streamType)
	if err != nil {
		return "", err
	}
	out, _, err := p.runner.Capture(ctx, cmd, runner.Options{Strict: true})
	if err != nil {
		return "", err
	}
	return out, nil
}

func (p *Prober) fallback(what, path string, err error) Result {
	p.logger.Warn("probe failed, using fallback", "probe", what, "path", path, "fallback", 0.0, "error", err)
	return Result{Fallback: true}
}

// ParseNumber parses the first line of a bare numeric probe output.
func ParseNumber(out string) (float64, error) {
	line, _, _ := strings.Cut(strings.TrimSpace(out), "\n")
	line = strings.TrimSpace(line)
	if line == "" {
		return 0, fmt.Errorf("empty probe output")
	}
	v, err := strconv.ParseFloat(line, 64)
	if err != nil {
		return 0, fmt.Errorf("unexpected probe output %q", line)
	}
	return v, nil
}
