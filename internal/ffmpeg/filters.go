package ffmpeg

import (
	"fmt"
	"strings"

	"github.com/mvkit/mvkit/internal/errors"
)

// StageKind identifies a filter stage. Stages always appear in ascending
// StageKind order.
type StageKind int

const (
	StageScalePad StageKind = iota
	StageCrop
	StageDeinterlace
	StageColorspace
	StageWatermark
)

func (k StageKind) String() string {
	switch k {
	case StageScalePad:
		return "scale-pad"
	case StageCrop:
		return "crop"
	case StageDeinterlace:
		return "deinterlace"
	case StageColorspace:
		return "colorspace"
	case StageWatermark:
		return "watermark"
	default:
		return "unknown"
	}
}

const (
	DefaultFontSize = 40
	DefaultFontFile = "Arial"
	// watermarkMargin is the left and top offset of the first line.
	watermarkMargin = 10
	// watermarkLeading is added to the font size to get the line pitch.
	watermarkLeading = 5
	// WatermarkSeparator splits a single watermark string into lines.
	WatermarkSeparator = "<EOL>"
)

// VisualOptions describe the frame transforms of an encode.
// Width and Height are zero when absent and must be given together.
type VisualOptions struct {
	Width          int
	Height         int
	Watermark      []string
	FontSize       int
	FontFile       string
	EvenDimensions bool
	Deinterlace    bool
	Colorspace     bool
}

// IsZero reports whether no visual transform is requested.
func (v VisualOptions) IsZero() bool {
	return v.Width == 0 && v.Height == 0 && len(v.Watermark) == 0 &&
		!v.EvenDimensions && !v.Deinterlace && !v.Colorspace
}

// Validate checks the both-or-neither dimension rule and value ranges.
func (v VisualOptions) Validate() error {
	if (v.Width == 0) != (v.Height == 0) {
		return errors.NewConfigErrorf("width and height must be given together (width=%d, height=%d)", v.Width, v.Height)
	}
	if v.Width < 0 || v.Height < 0 {
		return errors.NewConfigErrorf("invalid dimensions %dx%d", v.Width, v.Height)
	}
	if v.FontSize < 0 {
		return errors.NewConfigErrorf("invalid font size %d", v.FontSize)
	}
	return nil
}

// SplitWatermark splits text on the <EOL> separator. Empty text yields no lines.
func SplitWatermark(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(text, WatermarkSeparator)
}

// Stage is one entry of a filter chain.
type Stage struct {
	Kind StageKind
	Expr string
}

// FilterChain is an ordered list of filter stages.
type FilterChain struct {
	stages []Stage
}

// NewFilterChain creates a new empty filter chain.
func NewFilterChain() *FilterChain {
	return &FilterChain{}
}

// Add appends a stage. Empty expressions are ignored.
func (c *FilterChain) Add(kind StageKind, expr string) *FilterChain {
	if expr != "" {
		c.stages = append(c.stages, Stage{Kind: kind, Expr: expr})
	}
	return c
}

// Stages returns a copy of the stages in order.
func (c *FilterChain) Stages() []Stage {
	return append([]Stage(nil), c.stages...)
}

// Build joins the stages into a single filter string.
// Returns empty string if no filters are present.
func (c *FilterChain) Build() string {
	if len(c.stages) == 0 {
		return ""
	}
	exprs := make([]string, len(c.stages))
	for i, s := range c.stages {
		exprs[i] = s.Expr
	}
	return strings.Join(exprs, ",")
}

// Expression returns the labelled "-vf" value, or "" for an empty chain.
func (c *FilterChain) Expression() string {
	if c.IsEmpty() {
		return ""
	}
	return "[in]" + c.Build() + "[out]"
}

// IsEmpty returns true if no filters are present.
func (c *FilterChain) IsEmpty() bool {
	return len(c.stages) == 0
}

// BuildFilters derives the filter chain for opts. hardware selects the
// hardware deinterlacer.
func BuildFilters(opts VisualOptions, hardware bool) (*FilterChain, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	chain := NewFilterChain()
	if opts.Width > 0 {
		chain.Add(StageScalePad, scalePad(opts.Width, opts.Height))
	}
	if opts.EvenDimensions {
		chain.Add(StageCrop, "crop=trunc(iw/2)*2:trunc(ih/2)*2")
	}
	if opts.Deinterlace {
		if hardware {
			chain.Add(StageDeinterlace, "yadif_cuda")
		} else {
			chain.Add(StageDeinterlace, "yadif")
		}
	}
	if opts.Colorspace {
		chain.Add(StageColorspace, "format=pix_fmts=yuv420p")
	}

	size := opts.FontSize
	if size == 0 {
		size = DefaultFontSize
	}
	font := opts.FontFile
	if font == "" {
		font = DefaultFontFile
	}
	y := watermarkMargin
	for _, line := range opts.Watermark {
		chain.Add(StageWatermark, drawtext(line, y, size, font))
		y += size + watermarkLeading
	}
	return chain, nil
}

// scalePad fits the frame inside w x h preserving the display aspect ratio,
// then pads it centered to exactly w x h.
func scalePad(w, h int) string {
	factor := fmt.Sprintf(`min(%d/(iw*sar)\,%d/ih)`, w, h)
	padFactor := fmt.Sprintf(`min(%d/iw\,%d/ih)`, w, h)
	return fmt.Sprintf("scale=(iw*sar)*%s:ih*%s,pad=%d:%d:(%d-iw*%s)/2:(%d-ih*%s)/2",
		factor, factor, w, h, w, padFactor, h, padFactor)
}

func drawtext(text string, y, size int, font string) string {
	text = strings.ReplaceAll(text, "'", "’")
	return fmt.Sprintf("drawtext=text='%s':x=%d:y=%d:bordercolor=black:borderw=3:fontcolor=white:fontsize=%d:fontfile=%s",
		text, watermarkMargin, y, size, font)
}
