package ffprobe

import (
	"bufio"
	"strconv"
	"strings"
)

// Stream is one [STREAM] block of a stream dump.
type Stream struct {
	Index          int
	CodecType      string
	CodecName      string
	Profile        string
	Width          int
	Height         int
	Channels       int
	SampleRate     int
	PixFmt         string
	ColorPrimaries string
	ColorTransfer  string
	ColorSpace     string
	Duration       float64
	BitRate        float64
	// Fields holds every key=value pair of the block, including the
	// DISPOSITION: and TAG: prefixed ones.
	Fields map[string]string
}

// IsHDR reports whether the stream carries HDR colour metadata.
func (s Stream) IsHDR() bool {
	return detectHDR(s.ColorPrimaries, s.ColorTransfer, s.ColorSpace)
}

// Tag returns the TAG:<name> field, if present.
func (s Stream) Tag(name string) string {
	return s.Fields["TAG:"+name]
}

// ParseStreams parses the default ffprobe -show_streams writer output.
// Lines outside [STREAM] blocks are ignored; "N/A" numbers stay zero.
func ParseStreams(raw string) []Stream {
	var streams []Stream
	var cur *Stream

	scanner := bufio.NewScanner(strings.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "[STREAM]":
			cur = &Stream{Fields: map[string]string{}}
		case line == "[/STREAM]":
			if cur != nil {
				streams = append(streams, *cur)
			}
			cur = nil
		case cur != nil:
			key, value, ok := strings.Cut(line, "=")
			if !ok {
				continue
			}
			cur.Fields[key] = value
			cur.set(key, value)
		}
	}
	return streams
}

func (s *Stream) set(key, value string) {
	switch key {
	case "index":
		s.Index = atoi(value)
	case "codec_type":
		s.CodecType = value
	case "codec_name":
		s.CodecName = value
	case "profile":
		s.Profile = value
	case "width":
		s.Width = atoi(value)
	case "height":
		s.Height = atoi(value)
	case "channels":
		s.Channels = atoi(value)
	case "sample_rate":
		s.SampleRate = atoi(value)
	case "pix_fmt":
		s.PixFmt = value
	case "color_primaries":
		s.ColorPrimaries = value
	case "color_transfer":
		s.ColorTransfer = value
	case "color_space":
		s.ColorSpace = value
	case "duration":
		s.Duration = atof(value)
	case "bit_rate":
		s.BitRate = atof(value)
	}
}

func atoi(s string) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return v
}

func atof(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// detectHDR determines if content is HDR based on color metadata.
func detectHDR(primaries, transfer, matrix string) bool {
	if containsCI(primaries, "bt2020") || containsCI(primaries, "bt.2020") || containsCI(primaries, "bt2100") {
		return true
	}
	if containsCI(transfer, "smpte2084") || containsCI(transfer, "arib-std-b67") || containsCI(transfer, "hlg") {
		return true
	}
	return containsCI(matrix, "bt2020") || containsCI(matrix, "bt.2020")
}

// containsCI performs a case-insensitive substring check.
func containsCI(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
