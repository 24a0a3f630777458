// Package runner executes built media tool invocations as external processes.
package runner

import (
	"strings"

	"github.com/mvkit/mvkit/internal/errors"
)

// Operation names the logical operation a command implements.
type Operation string

const (
	OpExtractAudio  Operation = "extract-audio"
	OpConvertAudio  Operation = "convert-audio"
	OpSegmentEncode Operation = "segment-encode"
	OpConcatenate   Operation = "concatenate"
	OpMuxAudioVideo Operation = "mux-audio-video"
	OpProbeDuration Operation = "probe-duration"
	OpProbeBitrate  Operation = "probe-bitrate"
	OpProbeStreams  Operation = "probe-streams"
	OpPathTranslate Operation = "path-translate"
)

// Command is a fully resolved, host-executable command line. It is never
// mutated after construction; the accessors return copies.
type Command struct {
	op     Operation
	argv   []string
	output string
}

// NewCommand creates a command for op from a program name and its arguments.
func NewCommand(op Operation, program string, args ...string) Command {
	argv := make([]string, 0, len(args)+1)
	argv = append(argv, program)
	argv = append(argv, args...)
	return Command{op: op, argv: argv}
}

// WithOutput returns a copy of c that records the artifact path it produces.
func (c Command) WithOutput(path string) Command {
	c.argv = c.Argv()
	c.output = path
	return c
}

// Operation returns the logical operation.
func (c Command) Operation() Operation {
	return c.op
}

// Program returns the executable name.
func (c Command) Program() string {
	if len(c.argv) == 0 {
		return ""
	}
	return c.argv[0]
}

// Args returns the arguments after the program name.
func (c Command) Args() []string {
	if len(c.argv) < 2 {
		return nil
	}
	return append([]string(nil), c.argv[1:]...)
}

// Argv returns the program followed by its arguments.
func (c Command) Argv() []string {
	return append([]string(nil), c.argv...)
}

// Output returns the artifact path the command writes, if any.
func (c Command) Output() string {
	return c.output
}

// Validate reports a configuration error for an empty command.
func (c Command) Validate() error {
	if strings.TrimSpace(c.Program()) == "" {
		return errors.NewConfigErrorf("%s: empty command", c.op)
	}
	return nil
}

// String renders the command as a shell-equivalent line for logs.
func (c Command) String() string {
	parts := make([]string, len(c.argv))
	for i, arg := range c.argv {
		parts[i] = quoteArg(arg)
	}
	return strings.Join(parts, " ")
}

const shellSpecial = " \t\n\"'`$\\|&;<>()*?[]#~!{}"

func quoteArg(arg string) string {
	if arg == "" {
		return `""`
	}
	if !strings.ContainsAny(arg, shellSpecial) {
		return arg
	}
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range arg {
		switch r {
		case '"', '\\', '$', '`':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('"')
	return b.String()
}
