package validation

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/mvkit/mvkit/internal/errors"
	"github.com/mvkit/mvkit/internal/ffprobe"
)

// DefaultDurationTolerance is the allowed difference between the expected
// and actual duration, in seconds.
const DefaultDurationTolerance = 1.0

// Options select the checks to run. Nil pointers skip the check.
type Options struct {
	RequireVideo bool
	RequireAudio bool

	ExpectedDimensions *[2]int
	ExpectedDuration   *float64
	// DurationTolerance defaults to DefaultDurationTolerance when zero.
	DurationTolerance float64
	ExpectedHDR       *bool
	ExpectedAudioCodec string
}

// IsZero reports whether no check is requested.
func (o Options) IsZero() bool {
	return !o.RequireVideo && !o.RequireAudio && o.ExpectedDimensions == nil &&
		o.ExpectedDuration == nil && o.ExpectedHDR == nil && o.ExpectedAudioCodec == ""
}

// Validate probes path and runs the checks selected by opts.
// The returned error reports a probe failure; a file that probed fine but
// failed checks is reported through Result.Err.
func Validate(ctx context.Context, analyzer MediaAnalyzer, path string, opts Options) (*Result, error) {
	result := &Result{Path: path}

	streams, err := analyzer.Streams(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read streams of %s: %w", path, err)
	}
	if len(streams) == 0 {
		return nil, errors.NewMediaReadError(path, fmt.Errorf("no streams found"))
	}

	video := firstOfType(streams, "video")
	audio := streamsOfType(streams, "audio")
	if video != nil {
		result.VideoCodec = video.CodecName
		result.Width, result.Height = video.Width, video.Height
		result.HDR = video.IsHDR()
	}
	for _, a := range audio {
		result.AudioCodec = append(result.AudioCodec, a.CodecName)
	}

	if opts.RequireVideo {
		if video != nil {
			result.add("Video stream", true, video.CodecName)
		} else {
			result.add("Video stream", false, "no video stream")
		}
	}
	if opts.RequireAudio {
		if len(audio) > 0 {
			result.add("Audio stream", true, strings.Join(result.AudioCodec, ", "))
		} else {
			result.add("Audio stream", false, "no audio stream")
		}
	}

	if opts.ExpectedDimensions != nil {
		want := *opts.ExpectedDimensions
		result.add(validateDimensions(video, want[0], want[1]))
	}

	if opts.ExpectedHDR != nil {
		result.add(validateHDR(video, *opts.ExpectedHDR))
	}

	if opts.ExpectedAudioCodec != "" {
		result.add(validateAudioCodec(result.AudioCodec, opts.ExpectedAudioCodec))
	}

	if opts.ExpectedDuration != nil {
		actual, err := analyzer.Duration(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("failed to read duration of %s: %w", path, err)
		}
		result.Duration = actual
		tolerance := opts.DurationTolerance
		if tolerance <= 0 {
			tolerance = DefaultDurationTolerance
		}
		result.add(validateDuration(actual, *opts.ExpectedDuration, tolerance))
	}

	return result, nil
}

func validateDimensions(video *ffprobe.Stream, w, h int) (string, bool, string) {
	const name = "Dimensions"
	if video == nil {
		return name, false, "no video stream"
	}
	if video.Width == w && video.Height == h {
		return name, true, fmt.Sprintf("%dx%d", w, h)
	}
	return name, false, fmt.Sprintf("got %dx%d, expected %dx%d", video.Width, video.Height, w, h)
}

func validateDuration(actual, expected, tolerance float64) (string, bool, string) {
	const name = "Duration"
	diff := math.Abs(actual - expected)
	if diff <= tolerance {
		return name, true, fmt.Sprintf("%.1fs", actual)
	}
	return name, false, fmt.Sprintf("got %.1fs, expected %.1fs (diff: %.1fs)", actual, expected, diff)
}

func validateHDR(video *ffprobe.Stream, expected bool) (string, bool, string) {
	const name = "HDR/SDR status"
	if video == nil {
		return name, false, "no video stream"
	}
	actual := video.IsHDR()
	if actual == expected {
		return name, true, dynamicRange(actual) + " preserved"
	}
	return name, false, "expected " + dynamicRange(expected) + ", found " + dynamicRange(actual)
}

func validateAudioCodec(codecs []string, expected string) (string, bool, string) {
	const name = "Audio codec"
	if len(codecs) == 0 {
		return name, false, "no audio stream"
	}
	for _, c := range codecs {
		if !strings.EqualFold(c, expected) {
			return name, false, fmt.Sprintf("got %s, expected %s", strings.Join(codecs, ", "), expected)
		}
	}
	return name, true, strings.Join(codecs, ", ")
}

func dynamicRange(hdr bool) string {
	if hdr {
		return "HDR"
	}
	return "SDR"
}

func firstOfType(streams []ffprobe.Stream, codecType string) *ffprobe.Stream {
	for i := range streams {
		if streams[i].CodecType == codecType {
			return &streams[i]
		}
	}
	return nil
}

func streamsOfType(streams []ffprobe.Stream, codecType string) []ffprobe.Stream {
	var out []ffprobe.Stream
	for _, s := range streams {
		if s.CodecType == codecType {
			out = append(out, s)
		}
	}
	return out
}
