// Package job runs a sequence of media operations described in a YAML
// manifest.
package job

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mvkit/mvkit/internal/errors"
	"github.com/mvkit/mvkit/internal/ffmpeg"
	"github.com/mvkit/mvkit/internal/util"
)

// DefaultChannel is the mux audio selector used when a step names none.
const DefaultChannel = "mix"

// Manifest is the on-disk description of a job.
type Manifest struct {
	Name string `yaml:"name"`
	// WorkDir anchors relative paths and holds generated files. Defaults to
	// the directory containing the manifest.
	WorkDir string `yaml:"workdir"`
	Workers int    `yaml:"workers"`
	Steps   []Step `yaml:"steps"`
}

// Step is one operation of a job.
type Step struct {
	Name string `yaml:"name"`
	Op   string `yaml:"op"`

	Input  string   `yaml:"input"`
	Inputs []string `yaml:"inputs"`
	// InputDir collects the video files of a directory as concat inputs.
	InputDir string `yaml:"input_dir"`
	Video    string `yaml:"video"`
	Audio    string `yaml:"audio"`
	Output   string `yaml:"output"`

	// Start and Length accept seconds or "m:ss" timestamps.
	Start  string `yaml:"start"`
	Length string `yaml:"length"`

	Codec    string `yaml:"codec"`
	Hardware *bool  `yaml:"hardware"`
	Reencode bool   `yaml:"reencode"`

	Width          int    `yaml:"width"`
	Height         int    `yaml:"height"`
	Watermark      string `yaml:"watermark"`
	FontFile       string `yaml:"font_file"`
	FontSize       int    `yaml:"font_size"`
	EvenDimensions bool   `yaml:"even_dimensions"`
	Deinterlace    bool   `yaml:"deinterlace"`
	Colorspace     bool   `yaml:"colorspace"`

	Channel    string  `yaml:"channel"`
	Offset     float64 `yaml:"offset"`
	AudioCodec string  `yaml:"audio_codec"`
	StreamType string  `yaml:"stream_type"`

	// Strict makes a probe_duration step fail on unreadable output.
	Strict bool `yaml:"strict"`
	// Verify probes the output after the step ran and fails the step when
	// it lacks the expected streams, size or duration.
	Verify bool `yaml:"verify"`
}

// Load reads and parses the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewIOError("failed to read job manifest "+path, err)
	}
	m, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if m.WorkDir == "" {
		m.WorkDir = filepath.Dir(path)
	} else if !filepath.IsAbs(m.WorkDir) {
		m.WorkDir = filepath.Join(filepath.Dir(path), m.WorkDir)
	}
	return m, nil
}

// Parse decodes a manifest. Unknown keys are rejected.
func Parse(r io.Reader) (*Manifest, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var m Manifest
	if err := dec.Decode(&m); err != nil {
		if err == io.EOF {
			return nil, errors.NewConfigError("job manifest is empty")
		}
		return nil, errors.NewConfigErrorf("invalid job manifest: %v", err)
	}
	if len(m.Steps) == 0 {
		return nil, errors.NewConfigError("job manifest has no steps")
	}
	if m.Workers < 0 {
		return nil, errors.NewConfigErrorf("job manifest: workers must be >= 0, got %d", m.Workers)
	}
	return &m, nil
}

// DisplayName returns the step name, or one derived from its position.
func (s Step) DisplayName(index int) string {
	if s.Name != "" {
		return s.Name
	}
	return fmt.Sprintf("%s-%d", s.Op, index+1)
}

// kind maps the manifest op to a builder kind. "probe" is shorthand for
// probe_duration.
func (s Step) kind() (ffmpeg.Kind, error) {
	op := strings.ToLower(strings.TrimSpace(s.Op))
	switch ffmpeg.Kind(op) {
	case ffmpeg.KindExtractAudio, ffmpeg.KindConvertAudio, ffmpeg.KindSegment,
		ffmpeg.KindConcat, ffmpeg.KindMux, ffmpeg.KindProbeDuration,
		ffmpeg.KindProbeBitrate, ffmpeg.KindProbeStreams:
		return ffmpeg.Kind(op), nil
	}
	if op == "probe" {
		return ffmpeg.KindProbeDuration, nil
	}
	return "", errors.NewConfigErrorf("unknown op %q", s.Op)
}

// mediaSpec converts the step into a builder request. Relative paths are
// resolved against workDir; concat sources are filled in by the planner.
func (s Step) mediaSpec(kind ffmpeg.Kind, workDir string, hardware bool, codecOverride string) (ffmpeg.MediaSpec, error) {
	spec := ffmpeg.MediaSpec{
		Kind:       kind,
		Output:     resolve(workDir, s.Output),
		Reencode:   s.Reencode,
		StreamType: s.StreamType,
		Audio: ffmpeg.AudioOptions{
			Channel: s.Channel,
			Offset:  s.Offset,
			Codec:   s.AudioCodec,
		},
		Visual: ffmpeg.VisualOptions{
			Width:          s.Width,
			Height:         s.Height,
			Watermark:      ffmpeg.SplitWatermark(s.Watermark),
			FontFile:       s.FontFile,
			FontSize:       s.FontSize,
			EvenDimensions: s.EvenDimensions,
			Deinterlace:    s.Deinterlace,
			Colorspace:     s.Colorspace,
		},
	}

	if s.Hardware != nil {
		hardware = *s.Hardware
	}
	override := s.Codec
	if override == "" {
		override = codecOverride
	}
	spec.Codec = ffmpeg.Codec{Hardware: hardware, Override: override}

	var err error
	if spec.Start, err = parseTime("start", s.Start); err != nil {
		return spec, err
	}
	if spec.Length, err = parseTime("length", s.Length); err != nil {
		return spec, err
	}

	switch kind {
	case ffmpeg.KindMux:
		if strings.TrimSpace(spec.Audio.Channel) == "" {
			spec.Audio.Channel = DefaultChannel
		}
		spec.Sources = []string{resolve(workDir, s.Video), resolve(workDir, s.Audio)}
	case ffmpeg.KindConcat:
		if s.Input != "" {
			spec.Sources = []string{resolve(workDir, s.Input)}
		}
	default:
		spec.Sources = []string{resolve(workDir, s.Input)}
	}
	return spec, nil
}

func parseTime(field, v string) (float64, error) {
	if strings.TrimSpace(v) == "" {
		return 0, nil
	}
	secs, err := util.ParseTimestamp(v)
	if err != nil {
		return 0, errors.NewConfigErrorf("%s: %v", field, err)
	}
	return secs, nil
}

// resolve anchors a relative path at dir. Empty paths stay empty so the
// builder reports them.
func resolve(dir, p string) string {
	if p == "" || dir == "" || filepath.IsAbs(p) || isDrivePath(p) {
		return p
	}
	return filepath.Join(dir, p)
}

func isDrivePath(p string) bool {
	return len(p) >= 3 && p[1] == ':' && (p[2] == '/' || p[2] == '\\')
}

// formatValue renders a probed number for reports.
func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
