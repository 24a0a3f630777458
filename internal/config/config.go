// Package config provides configuration types and defaults for mvkit.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Default constants
const (
	// DefaultFFmpeg is the transcoder binary name.
	DefaultFFmpeg = "ffmpeg"

	// DefaultFFprobe is the prober binary name.
	DefaultFFprobe = "ffprobe"

	// DefaultPathHelper is the path translation helper used in WSL mode.
	DefaultPathHelper = "wslpath"

	// DefaultExecutableSuffix is appended to tool names in cross-environment mode.
	DefaultExecutableSuffix = ".exe"

	// DefaultAudioCodec is the audio codec used when muxing audio onto video.
	DefaultAudioCodec = "aac"

	// DefaultFontFile is the font used for watermark overlays.
	DefaultFontFile = "Arial"

	// DefaultFontSize is the watermark font size in pixels.
	DefaultFontSize = 40

	// DefaultSilenceThresholdDB is the level below which extracted audio is trimmed.
	DefaultSilenceThresholdDB = -50

	// DefaultRetryAttempts is the number of guarded attempts for retried operations.
	DefaultRetryAttempts = 3

	// DefaultOutputLimit caps the captured output of one invocation (bytes).
	DefaultOutputLimit = 64 * 1024

	// MaxFontSize is the largest accepted watermark font size.
	MaxFontSize = 500

	// MaxRetryAttempts bounds the retry budget.
	MaxRetryAttempts = 20
)

// Environment modes.
const (
	ModeNative = "native"
	ModeWSL    = "wsl"
)

// Tools names the external binaries.
type Tools struct {
	FFmpeg     string `toml:"ffmpeg"`
	FFprobe    string `toml:"ffprobe"`
	PathHelper string `toml:"path_helper"`
}

// Environment describes where the media tools run relative to the caller.
type Environment struct {
	Mode             string `toml:"mode"`
	ExecutableSuffix string `toml:"executable_suffix"`
}

// Encoding holds defaults applied to built commands.
type Encoding struct {
	Hardware           bool   `toml:"hardware"`
	SegmentCodec       string `toml:"segment_codec"`
	ConcatCodec        string `toml:"concat_codec"`
	AudioCodec         string `toml:"audio_codec"`
	FontFile           string `toml:"font_file"`
	FontSize           int    `toml:"font_size"`
	SilenceThresholdDB int    `toml:"silence_threshold_db"`
}

// Execution controls how external processes are run.
type Execution struct {
	// TimeoutSeconds may be fractional; zero means unbounded.
	TimeoutSeconds float64 `toml:"timeout_seconds"`
	RetryAttempts  int     `toml:"retry_attempts"`
	OutputLimit    int     `toml:"output_limit"`
	Workers        int     `toml:"workers"`
}

// Logging contains configuration for log output.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	Dir    string `toml:"dir"`
}

// Config holds all configuration for building and running media commands.
type Config struct {
	Tools       Tools       `toml:"tools"`
	Environment Environment `toml:"environment"`
	Encoding    Encoding    `toml:"encoding"`
	Execution   Execution   `toml:"execution"`
	Logging     Logging     `toml:"logging"`
}

// Default returns a Config populated with default values.
func Default() Config {
	return Config{
		Tools: Tools{
			FFmpeg:     DefaultFFmpeg,
			FFprobe:    DefaultFFprobe,
			PathHelper: DefaultPathHelper,
		},
		Environment: Environment{
			Mode:             ModeNative,
			ExecutableSuffix: DefaultExecutableSuffix,
		},
		Encoding: Encoding{
			AudioCodec:         DefaultAudioCodec,
			FontFile:           DefaultFontFile,
			FontSize:           DefaultFontSize,
			SilenceThresholdDB: DefaultSilenceThresholdDB,
		},
		Execution: Execution{
			RetryAttempts: DefaultRetryAttempts,
			OutputLimit:   DefaultOutputLimit,
		},
		Logging: Logging{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load parses the TOML file at path over the defaults, applies environment
// overrides and validates the result. A missing file is not an error.
func Load(path string) (*Config, bool, error) {
	cfg := Default()

	exists := false
	if path != "" {
		file, err := os.Open(path)
		switch {
		case err == nil:
			defer file.Close()
			decoder := toml.NewDecoder(file)
			if err := decoder.Decode(&cfg); err != nil {
				return nil, false, fmt.Errorf("parse config: %w", err)
			}
			exists = true
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, false, fmt.Errorf("open config: %w", err)
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, false, err
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, false, err
	}
	return &cfg, exists, nil
}

// ApplyEnv overrides fields from MVKIT_* environment variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("MVKIT_ENV_MODE"); ok && v != "" {
		c.Environment.Mode = v
	}
	if v, ok := lookup("MVKIT_HARDWARE"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: MVKIT_HARDWARE=%q", ErrInvalidEnv, v)
		}
		c.Encoding.Hardware = b
	}
	if v, ok := lookup("MVKIT_FFMPEG"); ok && v != "" {
		c.Tools.FFmpeg = v
	}
	if v, ok := lookup("MVKIT_FFPROBE"); ok && v != "" {
		c.Tools.FFprobe = v
	}
	if v, ok := lookup("MVKIT_LOG_LEVEL"); ok && v != "" {
		c.Logging.Level = v
	}
	return nil
}

func (c *Config) normalize() {
	c.Environment.Mode = strings.ToLower(strings.TrimSpace(c.Environment.Mode))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Encoding.SegmentCodec = strings.TrimSpace(c.Encoding.SegmentCodec)
	c.Encoding.ConcatCodec = strings.TrimSpace(c.Encoding.ConcatCodec)
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	switch c.Environment.Mode {
	case ModeNative, ModeWSL:
	default:
		return fmt.Errorf("%w: %q, valid options: %s, %s", ErrInvalidMode, c.Environment.Mode, ModeNative, ModeWSL)
	}

	if strings.TrimSpace(c.Tools.FFmpeg) == "" || strings.TrimSpace(c.Tools.FFprobe) == "" {
		return fmt.Errorf("%w: ffmpeg and ffprobe must be set", ErrMissingTool)
	}
	if c.Environment.Mode == ModeWSL && strings.TrimSpace(c.Tools.PathHelper) == "" {
		return fmt.Errorf("%w: path_helper is required in %s mode", ErrMissingTool, ModeWSL)
	}

	if c.Encoding.FontSize <= 0 || c.Encoding.FontSize > MaxFontSize {
		return fmt.Errorf("%w: must be 1-%d, got %d", ErrInvalidFontSize, MaxFontSize, c.Encoding.FontSize)
	}

	if t := c.Execution.TimeoutSeconds; t < 0 || math.IsNaN(t) || math.IsInf(t, 0) {
		return fmt.Errorf("%w: got %v", ErrInvalidTimeout, t)
	}

	if c.Execution.RetryAttempts < 0 || c.Execution.RetryAttempts > MaxRetryAttempts {
		return fmt.Errorf("%w: must be 0-%d, got %d", ErrInvalidRetries, MaxRetryAttempts, c.Execution.RetryAttempts)
	}

	if c.Execution.Workers < 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidWorkers, c.Execution.Workers)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Logging.Level)
	}

	return nil
}

// Timeout returns the per-invocation wall-clock budget; zero means unbounded.
func (c *Config) Timeout() time.Duration {
	return time.Duration(math.Round(c.Execution.TimeoutSeconds * float64(time.Second)))
}

// SetTimeout stores d as the per-invocation budget without rounding.
func (c *Config) SetTimeout(d time.Duration) {
	c.Execution.TimeoutSeconds = d.Seconds()
}

// CrossEnvironment reports whether paths and tool names need translating.
func (c *Config) CrossEnvironment() bool {
	return c.Environment.Mode == ModeWSL
}
