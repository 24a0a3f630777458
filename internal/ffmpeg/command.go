package ffmpeg

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/mvkit/mvkit/internal/errors"
	"github.com/mvkit/mvkit/internal/hostenv"
	"github.com/mvkit/mvkit/internal/runner"
	"github.com/mvkit/mvkit/internal/util"
)

// Kind is the operation a MediaSpec asks for.
type Kind string

const (
	KindExtractAudio  Kind = "extract_audio"
	KindConvertAudio  Kind = "convert_audio"
	KindSegment       Kind = "segment"
	KindConcat        Kind = "concat"
	KindMux           Kind = "mux"
	KindProbeDuration Kind = "probe_duration"
	KindProbeBitrate  Kind = "probe_bitrate"
	KindProbeStreams  Kind = "probe_streams"
)

// AudioOptions select and shape the audio of a mux or conversion.
type AudioOptions struct {
	// Channel is "mix", "0"/"video" or "1"/"audio".
	Channel string
	// Offset delays the video input, in seconds.
	Offset float64
	// Codec is the target audio codec for conversions.
	Codec string
}

// MediaSpec is a semantic description of one desired output.
type MediaSpec struct {
	Kind    Kind
	Sources []string
	Output  string

	Start  float64
	Length float64

	Codec Codec
	// Reencode makes a concat re-encode instead of stream copying.
	Reencode bool
	Visual   VisualOptions
	Audio    AudioOptions
	// StreamType selects streams for probe_streams ("v", "a", "s", ...).
	StreamType string
}

// Builder turns MediaSpecs into host-executable commands.
type Builder struct {
	ffmpeg     string
	ffprobe    string
	translator *hostenv.Translator
	audioCodec string
	silenceDB  int
	fontFile   string
	fontSize   int
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithTranslator sets the path and program translator.
func WithTranslator(t *hostenv.Translator) BuilderOption {
	return func(b *Builder) {
		if t != nil {
			b.translator = t
		}
	}
}

// WithPrograms overrides the ffmpeg and ffprobe binary names.
func WithPrograms(ffmpeg, ffprobe string) BuilderOption {
	return func(b *Builder) {
		if ffmpeg != "" {
			b.ffmpeg = ffmpeg
		}
		if ffprobe != "" {
			b.ffprobe = ffprobe
		}
	}
}

// WithAudioCodec sets the codec muxed audio is re-encoded to.
func WithAudioCodec(codec string) BuilderOption {
	return func(b *Builder) {
		if codec != "" {
			b.audioCodec = codec
		}
	}
}

// WithSilenceThreshold sets the silence removal threshold in dB.
func WithSilenceThreshold(db int) BuilderOption {
	return func(b *Builder) {
		b.silenceDB = db
	}
}

// WithWatermarkFont sets the default font for watermark lines.
func WithWatermarkFont(file string, size int) BuilderOption {
	return func(b *Builder) {
		b.fontFile = file
		b.fontSize = size
	}
}

// NewBuilder creates a command builder.
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{
		ffmpeg:     "ffmpeg",
		ffprobe:    "ffprobe",
		translator: hostenv.Native(),
		audioCodec: DefaultAudioCodec,
		silenceDB:  DefaultSilenceThresholdDB,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build dispatches spec to the builder for its kind.
func (b *Builder) Build(ctx context.Context, spec MediaSpec) (runner.Command, error) {
	if spec.Kind != KindSegment && spec.Kind != KindConcat && !spec.Visual.IsZero() {
		return runner.Command{}, errors.NewConfigErrorf("%s: visual options apply only to segment and concat", spec.Kind)
	}

	want := 1
	if spec.Kind == KindMux {
		want = 2
	}
	if len(spec.Sources) != want {
		return runner.Command{}, errors.NewConfigErrorf("%s: expected %d source(s), got %d", spec.Kind, want, len(spec.Sources))
	}
	src := spec.Sources[0]

	switch spec.Kind {
	case KindExtractAudio:
		return b.ExtractAudio(ctx, src, spec.Output)
	case KindConvertAudio:
		return b.ConvertAudio(ctx, src, spec.Output, spec.Audio.Codec)
	case KindSegment:
		return b.EncodeSegment(ctx, SegmentSpec{
			Start:  spec.Start,
			Length: spec.Length,
			Input:  src,
			Output: spec.Output,
			Codec:  spec.Codec,
			Visual: spec.Visual,
		})
	case KindConcat:
		return b.Concat(ctx, ConcatSpec{
			List:     src,
			Output:   spec.Output,
			Reencode: spec.Reencode,
			Codec:    spec.Codec.Override,
			Visual:   spec.Visual,
		})
	case KindMux:
		return b.MuxAudioVideo(ctx, MuxSpec{
			Offset:  spec.Audio.Offset,
			Video:   spec.Sources[0],
			Audio:   spec.Sources[1],
			Channel: spec.Audio.Channel,
			Output:  spec.Output,
		})
	case KindProbeDuration:
		return b.ProbeDuration(ctx, src)
	case KindProbeBitrate:
		return b.ProbeBitrate(ctx, src)
	case KindProbeStreams:
		return b.ProbeStreams(ctx, src, spec.StreamType)
	default:
		return runner.Command{}, errors.NewConfigErrorf("unknown operation %q", spec.Kind)
	}
}

// ExtractAudio strips leading silence from src into an audio-only dest.
func (b *Builder) ExtractAudio(ctx context.Context, src, dest string) (runner.Command, error) {
	paths, err := b.paths(ctx, runner.OpExtractAudio, src, dest)
	if err != nil {
		return runner.Command{}, err
	}
	args := newArgs().quiet().
		flag("-i", paths[0]).
		flag("-af", fmt.Sprintf("silenceremove=1:0:%ddB", b.silenceDB)).
		add(paths[1]).
		build()
	return b.command(runner.OpExtractAudio, b.ffmpeg, args, dest), nil
}

// ConvertAudio re-encodes src to dest with codec, or the builder's default
// audio codec when codec is empty.
func (b *Builder) ConvertAudio(ctx context.Context, src, dest, codec string) (runner.Command, error) {
	if codec == "" {
		codec = b.audioCodec
	}
	paths, err := b.paths(ctx, runner.OpConvertAudio, src, dest)
	if err != nil {
		return runner.Command{}, err
	}
	args := newArgs().quiet().
		flag("-i", paths[0]).
		flag("-acodec", codec).
		add(paths[1]).
		build()
	return b.command(runner.OpConvertAudio, b.ffmpeg, args, dest), nil
}

// SegmentSpec parameters a time-bounded encode of one source clip.
type SegmentSpec struct {
	Start  float64
	Length float64
	Input  string
	Output string
	Codec  Codec
	Visual VisualOptions
}

// EncodeSegment encodes [Start, Start+Length) of Input into an MPEG-PS
// intermediate suitable for concatenation.
func (b *Builder) EncodeSegment(ctx context.Context, s SegmentSpec) (runner.Command, error) {
	if !finite(s.Start) || !finite(s.Length) {
		return runner.Command{}, errors.NewConfigErrorf("segment: start and length must be finite, got %v and %v", s.Start, s.Length)
	}
	if s.Start < 0 {
		return runner.Command{}, errors.NewConfigErrorf("segment: negative start %v", s.Start)
	}
	if s.Length <= 0 {
		return runner.Command{}, errors.NewConfigErrorf("segment: length must be positive, got %v", s.Length)
	}
	vf, err := b.filters(s.Visual, s.Codec.UsesHardware())
	if err != nil {
		return runner.Command{}, err
	}
	paths, err := b.paths(ctx, runner.OpSegmentEncode, s.Input, s.Output)
	if err != nil {
		return runner.Command{}, err
	}

	args := newArgs().quiet().
		add(s.Codec.DecoderArgs()...).
		flag("-vsync", "0").
		flag("-ss", util.FormatSeconds(s.Start)).
		flag("-t", util.FormatSeconds(s.Length)).
		flag("-i", paths[0]).
		flag("-ac", "2").
		flag("-c:a", "ac3").
		flag("-ar", "48000").
		flag("-mbd", "rd").
		flag("-trellis", "2").
		flag("-cmp", "2").
		flag("-subcmp", "2").
		flag("-g", "100").
		add(s.Codec.EncoderArgs()...).
		flag("-video_track_timescale", TrackTimescale).
		flag("-f", "mpeg").
		addIf(vf != "", "-vf", vf).
		add(paths[1]).
		build()
	return b.command(runner.OpSegmentEncode, b.ffmpeg, args, s.Output), nil
}

// ConcatSpec parameters a join of previously encoded segments.
type ConcatSpec struct {
	// List is a concat demuxer manifest, see WriteConcatList.
	List     string
	Output   string
	Reencode bool
	// Codec overrides the software encoder when re-encoding.
	Codec  string
	Visual VisualOptions
}

// Concat joins the segments named in the manifest. Without Reencode the
// video is stream copied and visual options are rejected.
func (b *Builder) Concat(ctx context.Context, s ConcatSpec) (runner.Command, error) {
	if !s.Reencode && !s.Visual.IsZero() {
		return runner.Command{}, errors.NewConfigError("concat: visual options require re-encoding")
	}
	vf, err := b.filters(s.Visual, false)
	if err != nil {
		return runner.Command{}, err
	}
	paths, err := b.paths(ctx, runner.OpConcatenate, s.List, s.Output)
	if err != nil {
		return runner.Command{}, err
	}

	codec := StreamCopy
	if s.Reencode {
		codec = Codec{Override: s.Codec}.EncoderArgs()
	}
	args := newArgs().quiet().
		flag("-auto_convert", "1").
		flag("-f", "concat").
		flag("-safe", "0").
		flag("-i", paths[0]).
		add(codec...).
		flag("-movflags", "faststart").
		addIf(vf != "", "-vf", vf).
		add(paths[1]).
		build()
	return b.command(runner.OpConcatenate, b.ffmpeg, args, s.Output), nil
}

// MuxSpec parameters combining a video with a separate audio track.
type MuxSpec struct {
	Offset  float64
	Video   string
	Audio   string
	Channel string
	Output  string
}

// MuxAudioVideo copies the video of Video, re-encodes the selected audio and
// cuts the result to the shortest input.
func (b *Builder) MuxAudioVideo(ctx context.Context, s MuxSpec) (runner.Command, error) {
	if !finite(s.Offset) {
		return runner.Command{}, errors.NewConfigErrorf("mux: offset must be finite, got %v", s.Offset)
	}
	mapping, err := channelMapping(s.Channel)
	if err != nil {
		return runner.Command{}, err
	}
	paths, err := b.paths(ctx, runner.OpMuxAudioVideo, s.Video, s.Audio, s.Output)
	if err != nil {
		return runner.Command{}, err
	}

	args := newArgs().quiet().
		flag("-itsoffset", util.FormatSeconds(s.Offset)).
		flag("-i", paths[0]).
		flag("-i", paths[1]).
		flag("-vcodec", "copy").
		flag("-acodec", b.audioCodec).
		add("-shortest").
		add(mapping...).
		add(paths[2]).
		build()
	return b.command(runner.OpMuxAudioVideo, b.ffmpeg, args, s.Output), nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// channelMapping turns a channel selector into stream selection arguments.
func channelMapping(channel string) ([]string, error) {
	switch strings.ToLower(strings.TrimSpace(channel)) {
	case "mix":
		return []string{"-filter_complex", "amix"}, nil
	case "0", "video":
		return []string{"-map", "0:v:0", "-map", "0:a:0"}, nil
	case "1", "audio":
		return []string{"-map", "0:v:0", "-map", "1:a:0"}, nil
	default:
		return nil, errors.NewConfigErrorf("mux: unknown audio channel %q (want mix, 0/video or 1/audio)", channel)
	}
}

// ProbeDuration prints the container duration in seconds as a bare number.
func (b *Builder) ProbeDuration(ctx context.Context, path string) (runner.Command, error) {
	return b.probeFormat(ctx, runner.OpProbeDuration, "duration", path)
}

// ProbeBitrate prints the container bit rate in bits/s as a bare number.
func (b *Builder) ProbeBitrate(ctx context.Context, path string) (runner.Command, error) {
	return b.probeFormat(ctx, runner.OpProbeBitrate, "bit_rate", path)
}

func (b *Builder) probeFormat(ctx context.Context, op runner.Operation, entry, path string) (runner.Command, error) {
	paths, err := b.paths(ctx, op, path)
	if err != nil {
		return runner.Command{}, err
	}
	args := newArgs().
		flag("-v", "error").
		flag("-show_entries", "format="+entry).
		flag("-of", "default=noprint_wrappers=1:nokey=1").
		add(paths[0]).
		build()
	return b.command(op, b.ffprobe, args, ""), nil
}

// ProbeStreams dumps stream descriptors, limited to streamType when given.
func (b *Builder) ProbeStreams(ctx context.Context, path, streamType string) (runner.Command, error) {
	paths, err := b.paths(ctx, runner.OpProbeStreams, path)
	if err != nil {
		return runner.Command{}, err
	}
	args := newArgs().
		flag("-i", paths[0]).
		add("-show_streams").
		addIf(streamType != "", "-select_streams", streamType).
		flag("-loglevel", "error").
		build()
	return b.command(runner.OpProbeStreams, b.ffprobe, args, ""), nil
}

// paths validates and translates each path for the tool host.
func (b *Builder) paths(ctx context.Context, op runner.Operation, paths ...string) ([]string, error) {
	for i, p := range paths {
		if strings.TrimSpace(p) == "" {
			return nil, errors.NewConfigErrorf("%s: path %d is empty", op, i+1)
		}
	}
	return b.translator.Paths(ctx, paths...)
}

func (b *Builder) filters(opts VisualOptions, hardware bool) (string, error) {
	if opts.FontFile == "" {
		opts.FontFile = b.fontFile
	}
	if opts.FontSize == 0 {
		opts.FontSize = b.fontSize
	}
	chain, err := BuildFilters(opts, hardware)
	if err != nil {
		return "", err
	}
	return chain.Expression(), nil
}

func (b *Builder) command(op runner.Operation, program string, args []string, output string) runner.Command {
	cmd := runner.NewCommand(op, b.translator.Program(program), args...)
	if output != "" {
		cmd = cmd.WithOutput(output)
	}
	return cmd
}
