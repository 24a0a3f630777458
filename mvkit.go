// Package mvkit builds and runs ffmpeg/ffprobe command lines for video
// editing pipelines.
//
// A Toolkit turns semantic requests (extract audio, encode a segment with
// scaling and a watermark, concatenate segments, mux audio onto video, probe
// a file) into concrete commands, optionally translating paths and program
// names for a tool host reached through WSL, and runs them with a timeout
// and a retry budget.
//
// Basic usage:
//
//	kit, err := mvkit.New(mvkit.WithHardware(true))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	_, err = kit.EncodeSegment(ctx, mvkit.SegmentSpec{
//	    Start:  10,
//	    Length: 5,
//	    Input:  "clip.mp4",
//	    Output: "seg_0001.mpg",
//	    Visual: mvkit.VisualOptions{Width: 1280, Height: 720},
//	})
package mvkit

import (
	"context"
	"path/filepath"
	"time"

	"github.com/mvkit/mvkit/internal/config"
	"github.com/mvkit/mvkit/internal/errors"
	"github.com/mvkit/mvkit/internal/ffmpeg"
	"github.com/mvkit/mvkit/internal/ffprobe"
	"github.com/mvkit/mvkit/internal/hostenv"
	"github.com/mvkit/mvkit/internal/job"
	"github.com/mvkit/mvkit/internal/logging"
	"github.com/mvkit/mvkit/internal/reporter"
	"github.com/mvkit/mvkit/internal/runner"
	"github.com/mvkit/mvkit/internal/util"
	"github.com/mvkit/mvkit/internal/validation"
)

// Re-exported request and result types.
type (
	Config        = config.Config
	Kind          = ffmpeg.Kind
	MediaSpec     = ffmpeg.MediaSpec
	SegmentSpec   = ffmpeg.SegmentSpec
	ConcatSpec    = ffmpeg.ConcatSpec
	MuxSpec       = ffmpeg.MuxSpec
	Codec         = ffmpeg.Codec
	VisualOptions = ffmpeg.VisualOptions
	AudioOptions  = ffmpeg.AudioOptions
	Command       = runner.Command
	Result        = runner.Result
	RunOptions    = runner.Options
	ProbeResult   = ffprobe.Result
	Stream        = ffprobe.Stream
	PathHelper    = hostenv.Helper
	Logger        = logging.Logger
	Reporter      = reporter.Reporter
	JobSummary    = reporter.JobSummary
	ToolStatus    = runner.Status

	ValidationOptions = validation.Options
	ValidationResult  = validation.Result
)

// Operation kinds.
const (
	KindExtractAudio  = ffmpeg.KindExtractAudio
	KindConvertAudio  = ffmpeg.KindConvertAudio
	KindSegment       = ffmpeg.KindSegment
	KindConcat        = ffmpeg.KindConcat
	KindMux           = ffmpeg.KindMux
	KindProbeDuration = ffmpeg.KindProbeDuration
	KindProbeBitrate  = ffmpeg.KindProbeBitrate
	KindProbeStreams  = ffmpeg.KindProbeStreams
)

// Error classification helpers.
var (
	IsConfig      = errors.IsConfig
	IsTranslation = errors.IsTranslation
	IsExecution   = errors.IsExecution
	IsTimeout     = errors.IsTimeout
	IsMediaRead   = errors.IsMediaRead
	IsCancelled   = errors.IsCancelled
	IsValidation  = errors.IsValidation
)

// SplitWatermark splits watermark text into lines on the <EOL> separator.
func SplitWatermark(text string) []string {
	return ffmpeg.SplitWatermark(text)
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return config.Default()
}

// LoadConfig reads a TOML configuration file over the defaults and applies
// MVKIT_* environment overrides.
func LoadConfig(path string) (*Config, error) {
	cfg, _, err := config.Load(path)
	return cfg, err
}

// Toolkit composes the translator, builder, engine and prober.
type Toolkit struct {
	config     *config.Config
	logger     *logging.Logger
	reporter   reporter.Reporter
	translator *hostenv.Translator
	builder    *ffmpeg.Builder
	engine     *runner.Engine
	prober     *ffprobe.Prober
}

type settings struct {
	cfg      config.Config
	logger   *logging.Logger
	reporter reporter.Reporter
	helper   hostenv.Helper
}

// Option configures a Toolkit.
type Option func(*settings)

// WithConfig replaces the whole configuration.
func WithConfig(cfg Config) Option {
	return func(s *settings) {
		s.cfg = cfg
	}
}

// WithMode selects "native" or "wsl" tool hosting.
func WithMode(mode string) Option {
	return func(s *settings) {
		s.cfg.Environment.Mode = mode
	}
}

// WithHardware enables GPU decode, encode and filters.
func WithHardware(enabled bool) Option {
	return func(s *settings) {
		s.cfg.Encoding.Hardware = enabled
	}
}

// WithPrograms overrides the ffmpeg and ffprobe binaries.
func WithPrograms(ffmpegBin, ffprobeBin string) Option {
	return func(s *settings) {
		if ffmpegBin != "" {
			s.cfg.Tools.FFmpeg = ffmpegBin
		}
		if ffprobeBin != "" {
			s.cfg.Tools.FFprobe = ffprobeBin
		}
	}
}

// WithTimeout sets the wall-clock budget of each invocation.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) {
		s.cfg.SetTimeout(d)
	}
}

// WithRetryAttempts sets the guarded attempts for transcoder operations.
func WithRetryAttempts(n int) Option {
	return func(s *settings) {
		s.cfg.Execution.RetryAttempts = n
	}
}

// WithLogger sets the logger; the global logger is used otherwise.
func WithLogger(l *Logger) Option {
	return func(s *settings) {
		s.logger = l
	}
}

// WithReporter sets the reporter used by RunJob.
func WithReporter(r Reporter) Option {
	return func(s *settings) {
		s.reporter = r
	}
}

// WithPathHelper replaces the external path translation helper.
func WithPathHelper(h PathHelper) Option {
	return func(s *settings) {
		s.helper = h
	}
}

// New creates a Toolkit from the default configuration and opts.
func New(opts ...Option) (*Toolkit, error) {
	s := settings{cfg: config.Default()}
	for _, opt := range opts {
		opt(&s)
	}
	if err := s.cfg.Validate(); err != nil {
		return nil, &errors.CoreError{Kind: errors.KindConfig, Message: "invalid configuration", Underlying: err}
	}

	cfg := s.cfg
	logger := s.logger
	if logger == nil {
		logger = logging.Global()
	}
	rep := s.reporter
	if rep == nil {
		rep = reporter.NullReporter{}
	}

	engine := runner.NewEngine(
		runner.WithLogger(logger),
		runner.WithTimeout(cfg.Timeout()),
		runner.WithOutputLimit(cfg.Execution.OutputLimit),
	)

	mode, err := hostenv.ParseMode(cfg.Environment.Mode)
	if err != nil {
		return nil, err
	}
	helper := s.helper
	if helper == nil {
		helper = hostenv.NewExecHelper(engine, cfg.Tools.PathHelper)
	}
	translator := hostenv.New(mode,
		hostenv.WithHelper(helper),
		hostenv.WithSuffix(cfg.Environment.ExecutableSuffix),
		hostenv.WithTools(cfg.Tools.FFmpeg, cfg.Tools.FFprobe),
		hostenv.WithLogger(logger),
	)

	builder := ffmpeg.NewBuilder(
		ffmpeg.WithTranslator(translator),
		ffmpeg.WithPrograms(cfg.Tools.FFmpeg, cfg.Tools.FFprobe),
		ffmpeg.WithAudioCodec(cfg.Encoding.AudioCodec),
		ffmpeg.WithSilenceThreshold(cfg.Encoding.SilenceThresholdDB),
		ffmpeg.WithWatermarkFont(cfg.Encoding.FontFile, cfg.Encoding.FontSize),
	)

	return &Toolkit{
		config:     &cfg,
		logger:     logger,
		reporter:   rep,
		translator: translator,
		builder:    builder,
		engine:     engine,
		prober:     ffprobe.New(builder, engine, logger),
	}, nil
}

// Config returns a copy of the effective configuration.
func (t *Toolkit) Config() Config {
	return *t.config
}

// TranslatePath converts a caller path into the tool host's namespace.
func (t *Toolkit) TranslatePath(ctx context.Context, path string) (string, error) {
	return t.translator.Path(ctx, path)
}

// TranslateToHost converts a tool host path back into the caller's namespace.
func (t *Toolkit) TranslateToHost(ctx context.Context, path string) (string, error) {
	return t.translator.ToHost(ctx, path)
}

// TranslateCommand renames the media tools in a rendered command line.
func (t *Toolkit) TranslateCommand(line string) string {
	return t.translator.CommandLine(line)
}

// Build turns spec into a command without running it.
func (t *Toolkit) Build(ctx context.Context, spec MediaSpec) (Command, error) {
	spec.Codec = t.codec(spec.Kind, spec.Codec)
	return t.builder.Build(ctx, spec)
}

// codec fills configured defaults into a request. Hardware enabled in the
// configuration applies to every request.
func (t *Toolkit) codec(kind Kind, c Codec) Codec {
	if c.Override == "" {
		switch kind {
		case KindSegment:
			c.Override = t.config.Encoding.SegmentCodec
		case KindConcat:
			c.Override = t.config.Encoding.ConcatCodec
		}
	}
	if !c.Hardware {
		c.Hardware = t.config.Encoding.Hardware
	}
	return c
}

// Run executes cmd once. See runner.Engine.Run for strict semantics.
func (t *Toolkit) Run(ctx context.Context, cmd Command, opts RunOptions) (Result, error) {
	return t.engine.Run(ctx, cmd, opts)
}

// RunAndCheck executes cmd and returns its exit status.
func (t *Toolkit) RunAndCheck(ctx context.Context, cmd Command) int {
	return t.engine.RunAndCheck(ctx, cmd)
}

// RunWithRetry executes cmd with the configured retry budget.
func (t *Toolkit) RunWithRetry(ctx context.Context, cmd Command) (Result, error) {
	return t.engine.RunWithRetry(ctx, cmd, runner.Options{}, t.retryPolicy())
}

func (t *Toolkit) retryPolicy() runner.RetryPolicy {
	return runner.RetryPolicy{Attempts: t.config.Execution.RetryAttempts, Logger: t.logger}
}

func (t *Toolkit) execute(ctx context.Context, cmd Command, err error) (Result, error) {
	if err != nil {
		return Result{}, err
	}
	return t.RunWithRetry(ctx, cmd)
}

// ExtractAudio writes the audio of src to dest with leading silence removed.
func (t *Toolkit) ExtractAudio(ctx context.Context, src, dest string) (Result, error) {
	cmd, err := t.builder.ExtractAudio(ctx, src, dest)
	return t.execute(ctx, cmd, err)
}

// ConvertAudio re-encodes src to dest; an empty codec uses the configured one.
func (t *Toolkit) ConvertAudio(ctx context.Context, src, dest, codec string) (Result, error) {
	cmd, err := t.builder.ConvertAudio(ctx, src, dest, codec)
	return t.execute(ctx, cmd, err)
}

// EncodeSegment encodes a time range of a clip into an intermediate segment.
func (t *Toolkit) EncodeSegment(ctx context.Context, s SegmentSpec) (Result, error) {
	s.Codec = t.codec(KindSegment, s.Codec)
	cmd, err := t.builder.EncodeSegment(ctx, s)
	return t.execute(ctx, cmd, err)
}

// Concat joins the segments listed in the manifest s.List.
func (t *Toolkit) Concat(ctx context.Context, s ConcatSpec) (Result, error) {
	if s.Codec == "" {
		s.Codec = t.config.Encoding.ConcatCodec
	}
	cmd, err := t.builder.Concat(ctx, s)
	return t.execute(ctx, cmd, err)
}

// ConcatFiles writes a manifest for files next to output and joins them.
// The manifest is removed afterwards.
func (t *Toolkit) ConcatFiles(ctx context.Context, files []string, output string, reencode bool, visual VisualOptions) (Result, error) {
	list, err := util.CreateTempFile(filepath.Dir(output), "concat", "txt")
	if err != nil {
		return Result{}, errors.NewIOError("failed to create concat list", err)
	}
	defer func() { _ = list.Cleanup() }()

	if err := t.builder.WriteConcatList(ctx, list.Path(), files); err != nil {
		return Result{}, err
	}
	return t.Concat(ctx, ConcatSpec{List: list.Path(), Output: output, Reencode: reencode, Visual: visual})
}

// Mux combines a video with a separate audio track.
func (t *Toolkit) Mux(ctx context.Context, s MuxSpec) (Result, error) {
	cmd, err := t.builder.MuxAudioVideo(ctx, s)
	return t.execute(ctx, cmd, err)
}

// ProbeDuration returns the duration of path in seconds.
func (t *Toolkit) ProbeDuration(ctx context.Context, path string, strict bool) (ProbeResult, error) {
	return t.prober.Duration(ctx, path, strict)
}

// ProbeBitrate returns the bit rate of path in bits per second.
func (t *Toolkit) ProbeBitrate(ctx context.Context, path string) ProbeResult {
	return t.prober.Bitrate(ctx, path)
}

// ProbeStreams returns the raw stream dump of path and its parsed streams.
func (t *Toolkit) ProbeStreams(ctx context.Context, path, streamType string) (string, []Stream, error) {
	raw, err := t.prober.Streams(ctx, path, streamType)
	if err != nil {
		return "", nil, err
	}
	return raw, ffprobe.ParseStreams(raw), nil
}

// Validate probes path and runs the checks selected by opts. Failed checks
// are reported through the result; see ValidationResult.Err.
func (t *Toolkit) Validate(ctx context.Context, path string, opts ValidationOptions) (*ValidationResult, error) {
	return validation.Validate(ctx, validation.NewProbeAnalyzer(t.prober), path, opts)
}

// RunJob loads the YAML manifest at path, builds every step and runs them.
func (t *Toolkit) RunJob(ctx context.Context, path string) (JobSummary, error) {
	m, err := job.Load(path)
	if err != nil {
		return JobSummary{}, err
	}
	plan, err := job.Build(ctx, t.builder, m, job.Defaults{
		Hardware:     t.config.Encoding.Hardware,
		SegmentCodec: t.config.Encoding.SegmentCodec,
		ConcatCodec:  t.config.Encoding.ConcatCodec,
		Workers:      t.workers(),
	})
	if err != nil {
		return JobSummary{}, err
	}

	executor := job.NewExecutor(t.engine, t.builder, t.prober,
		job.WithReporter(t.reporter),
		job.WithLogger(t.logger),
		job.WithRetryAttempts(t.config.Execution.RetryAttempts),
		job.WithMode(t.config.Environment.Mode),
	)
	return executor.Run(ctx, plan)
}

func (t *Toolkit) workers() int {
	if t.config.Execution.Workers > 0 {
		return t.config.Execution.Workers
	}
	return util.DefaultWorkers()
}

// CheckTools reports whether the configured binaries are on PATH.
func (t *Toolkit) CheckTools() []ToolStatus {
	reqs := []runner.Requirement{
		{Name: "FFmpeg", Command: t.translator.Program(t.config.Tools.FFmpeg), Description: "transcoder"},
		{Name: "FFprobe", Command: t.translator.Program(t.config.Tools.FFprobe), Description: "media prober"},
	}
	if t.config.CrossEnvironment() {
		reqs = append(reqs, runner.Requirement{Name: "Path helper", Command: t.config.Tools.PathHelper, Description: "WSL path translation"})
	}
	return runner.CheckBinaries(reqs)
}
