// Package hostenv translates paths and tool names between the invoking
// environment and the environment the media tools run in.
//
// In native mode every translation is the identity. In wsl mode the tools are
// Windows executables started from a Linux shell that sees the same files
// under /mnt/<drive>; paths are rewritten to drive-letter form and tool names
// gain the host executable suffix.
package hostenv

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/mvkit/mvkit/internal/errors"
	"github.com/mvkit/mvkit/internal/logging"
)

// Mode selects whether translation is active.
type Mode string

const (
	ModeNative Mode = "native"
	ModeWSL    Mode = "wsl"
)

// ParseMode converts a configured mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeNative:
		return ModeNative, nil
	case ModeWSL:
		return ModeWSL, nil
	default:
		return ModeNative, errors.NewConfigErrorf("unknown environment mode %q", s)
	}
}

// DefaultTools lists the binaries renamed in cross-environment mode.
var DefaultTools = []string{"ffmpeg", "ffprobe"}

// Translator rewrites paths and commands for the tool host. It holds no
// mutable state and is safe for concurrent use.
type Translator struct {
	mode   Mode
	suffix string
	tools  []string
	helper Helper
	logger *logging.Logger
}

// Option configures a Translator.
type Option func(*Translator)

// WithHelper sets the fallback path helper.
func WithHelper(h Helper) Option {
	return func(t *Translator) {
		t.helper = h
	}
}

// WithSuffix sets the executable suffix appended to tool names.
func WithSuffix(suffix string) Option {
	return func(t *Translator) {
		t.suffix = suffix
	}
}

// WithTools replaces the list of tool names that are renamed.
func WithTools(tools ...string) Option {
	return func(t *Translator) {
		t.tools = append([]string(nil), tools...)
	}
}

// WithLogger sets the logger used for helper failures.
func WithLogger(l *logging.Logger) Option {
	return func(t *Translator) {
		if l != nil {
			t.logger = l
		}
	}
}

// New creates a Translator for mode.
func New(mode Mode, opts ...Option) *Translator {
	t := &Translator{
		mode:   mode,
		suffix: ".exe",
		tools:  DefaultTools,
		logger: logging.Global(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Native returns a Translator that never rewrites anything.
func Native() *Translator {
	return New(ModeNative)
}

// Mode returns the configured mode.
func (t *Translator) Mode() Mode {
	return t.mode
}

// Active reports whether cross-environment translation is performed.
func (t *Translator) Active() bool {
	return t.mode == ModeWSL
}

// Path converts p to the form the tool host expects. Mount-prefixed paths
// and paths already in drive-letter form are rewritten without spawning the
// helper; anything else is resolved through it. An empty result is an error.
func (t *Translator) Path(ctx context.Context, p string) (string, error) {
	if !t.Active() {
		return p, nil
	}
	if p == "" {
		return "", errors.NewTranslationError(p, fmt.Errorf("empty path"))
	}
	if out, ok := mountToDrive(p); ok {
		return out, nil
	}
	if isDrivePath(p) {
		return p, nil
	}
	return t.resolve(ctx, "-m", p)
}

// Paths translates each path in order, stopping at the first failure.
func (t *Translator) Paths(ctx context.Context, paths ...string) ([]string, error) {
	out := make([]string, len(paths))
	for i, p := range paths {
		tp, err := t.Path(ctx, p)
		if err != nil {
			return nil, err
		}
		out[i] = tp
	}
	return out, nil
}

// ToHost converts a tool-host path back to the invoking environment, the
// inverse of Path.
func (t *Translator) ToHost(ctx context.Context, p string) (string, error) {
	if !t.Active() {
		return p, nil
	}
	if p == "" {
		return "", errors.NewTranslationError(p, fmt.Errorf("empty path"))
	}
	if out, ok := driveToMount(p); ok {
		return out, nil
	}
	if strings.HasPrefix(p, "/") {
		return p, nil
	}
	return t.resolve(ctx, "-u", p)
}

// Program returns the host executable name for a bare tool name.
func (t *Translator) Program(name string) string {
	if !t.Active() || t.suffix == "" {
		return name
	}
	for _, tool := range t.tools {
		if name == tool {
			return name + t.suffix
		}
	}
	return name
}

// CommandLine rewrites the first occurrence of each tool name in a rendered
// command line. A command line invokes each tool at most once.
func (t *Translator) CommandLine(line string) string {
	if !t.Active() || t.suffix == "" {
		return line
	}
	for _, tool := range t.tools {
		line = strings.Replace(line, tool, tool+t.suffix, 1)
	}
	return line
}

func (t *Translator) resolve(ctx context.Context, flag, p string) (string, error) {
	if t.helper == nil {
		return "", errors.NewTranslationError(p, fmt.Errorf("no path helper configured"))
	}
	out, err := t.helper.Translate(ctx, flag, p)
	if err != nil {
		t.logger.Error("path helper failed", "path", p, "error", err)
		return "", errors.NewTranslationError(p, err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		t.logger.Error("path helper returned nothing", "path", p)
		return "", errors.NewTranslationError(p, fmt.Errorf("helper returned an empty path"))
	}
	return out, nil
}

// mountToDrive maps /mnt/<letter>[/rest] to <letter>:/rest.
func mountToDrive(p string) (string, bool) {
	const prefix = "/mnt/"
	if !strings.HasPrefix(p, prefix) {
		return "", false
	}
	rest := p[len(prefix):]
	if rest == "" || !isLetter(rest[0]) {
		return "", false
	}
	if len(rest) > 1 && rest[1] != '/' {
		return "", false
	}
	tail := strings.TrimPrefix(rest[1:], "/")
	return string(rest[0]) + ":/" + tail, true
}

// driveToMount maps <letter>:[/\]rest to /mnt/<letter>/rest.
func driveToMount(p string) (string, bool) {
	if !isDrivePath(p) {
		return "", false
	}
	drive := strings.ToLower(p[:1])
	tail := strings.ReplaceAll(p[2:], `\`, "/")
	tail = strings.TrimPrefix(tail, "/")
	if tail == "" {
		return "/mnt/" + drive, true
	}
	return path.Join("/mnt", drive, tail), true
}

func isDrivePath(p string) bool {
	if len(p) < 2 || !isLetter(p[0]) || p[1] != ':' {
		return false
	}
	return len(p) == 2 || p[2] == '/' || p[2] == '\\'
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
