// Package ffmpeg builds ffmpeg and ffprobe invocations from semantic
// parameters. Builders never spawn processes; they return runner.Commands.
package ffmpeg

import "strings"

// Encoder profiles. Each is a flat argument list spliced in front of the
// container flags.
var (
	SoftwareEncoder = []string{"-c:v", "libx264", "-crf", "27", "-preset", "ultrafast"}
	HardwareEncoder = []string{
		"-c:v", "h264_nvenc", "-preset:v", "fast", "-tune:v", "hq",
		"-rc:v", "vbr", "-cq:v", "19", "-b:v", "0", "-profile:v", "high",
	}
	HardwareDecoder = []string{"-c:v", "h264_cuvid"}
	StreamCopy      = []string{"-c:v", "copy"}
)

const (
	// TrackTimescale pins the segment time base so concatenation stays
	// frame accurate.
	TrackTimescale = "60000"
	// DefaultSilenceThresholdDB is the level below which leading silence is
	// stripped from extracted audio.
	DefaultSilenceThresholdDB = -50
	// DefaultAudioCodec is the codec muxed audio is re-encoded to.
	DefaultAudioCodec = "aac"
)

// argsBuilder assembles an argument vector with method chaining.
type argsBuilder struct {
	args []string
}

func newArgs(args ...string) *argsBuilder {
	return &argsBuilder{args: append([]string(nil), args...)}
}

// add appends raw arguments.
func (b *argsBuilder) add(args ...string) *argsBuilder {
	b.args = append(b.args, args...)
	return b
}

// flag appends a flag and its value.
func (b *argsBuilder) flag(name, value string) *argsBuilder {
	b.args = append(b.args, name, value)
	return b
}

// addIf appends args only when cond holds.
func (b *argsBuilder) addIf(cond bool, args ...string) *argsBuilder {
	if cond {
		b.args = append(b.args, args...)
	}
	return b
}

// quiet adds the overwrite and quiet-logging prelude every ffmpeg call uses.
func (b *argsBuilder) quiet() *argsBuilder {
	return b.add("-y", "-hide_banner", "-loglevel", "error")
}

func (b *argsBuilder) build() []string {
	return b.args
}

// Codec is a codec request: hardware acceleration or an explicit override.
// Override is a whitespace separated argument string such as
// "-c:v libx265 -crf 22"; when set it wins over Hardware.
type Codec struct {
	Hardware bool
	Override string
}

// UsesHardware reports whether hardware decode, encode and filters apply.
func (c Codec) UsesHardware() bool {
	return c.Hardware && strings.TrimSpace(c.Override) == ""
}

// EncoderArgs returns the video encoder arguments for c.
func (c Codec) EncoderArgs() []string {
	if fields := strings.Fields(c.Override); len(fields) > 0 {
		return fields
	}
	if c.Hardware {
		return append([]string(nil), HardwareEncoder...)
	}
	return append([]string(nil), SoftwareEncoder...)
}

// DecoderArgs returns the input decoder arguments for c, if any.
func (c Codec) DecoderArgs() []string {
	if c.UsesHardware() {
		return append([]string(nil), HardwareDecoder...)
	}
	return nil
}
