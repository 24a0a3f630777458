// Package validation checks produced media files against what a step asked for.
package validation

import (
	"context"

	"github.com/mvkit/mvkit/internal/ffprobe"
)

// MediaAnalyzer reads the properties validation needs from a media file.
// Tests substitute a fake so no external tools are required.
type MediaAnalyzer interface {
	// Streams returns every stream of the file.
	Streams(ctx context.Context, path string) ([]ffprobe.Stream, error)

	// Duration returns the container duration in seconds.
	Duration(ctx context.Context, path string) (float64, error)
}

// ProbeAnalyzer implements MediaAnalyzer with the ffprobe service.
type ProbeAnalyzer struct {
	prober *ffprobe.Prober
}

// NewProbeAnalyzer creates an analyzer backed by p.
func NewProbeAnalyzer(p *ffprobe.Prober) *ProbeAnalyzer {
	return &ProbeAnalyzer{prober: p}
}

// Streams runs a full stream dump and parses it.
func (a *ProbeAnalyzer) Streams(ctx context.Context, path string) ([]ffprobe.Stream, error) {
	raw, err := a.prober.Streams(ctx, path, "")
	if err != nil {
		return nil, err
	}
	return ffprobe.ParseStreams(raw), nil
}

// Duration probes strictly so an unreadable duration is an error, not 0.
func (a *ProbeAnalyzer) Duration(ctx context.Context, path string) (float64, error) {
	res, err := a.prober.Duration(ctx, path, true)
	if err != nil {
		return 0, err
	}
	return res.Value, nil
}
