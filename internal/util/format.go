// Package util provides utility functions for formatting and common operations.
package util

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	KiB = 1024
	MiB = KiB * 1024
	GiB = MiB * 1024
)

// FormatBytes formats bytes with appropriate binary units (B, KiB, MiB, GiB).
func FormatBytes(bytes uint64) string {
	bf := float64(bytes)
	switch {
	case bf >= GiB:
		return fmt.Sprintf("%.2f GiB", bf/GiB)
	case bf >= MiB:
		return fmt.Sprintf("%.2f MiB", bf/MiB)
	case bf >= KiB:
		return fmt.Sprintf("%.2f KiB", bf/KiB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// FormatDuration formats seconds as HH:MM:SS.
func FormatDuration(seconds float64) string {
	if seconds < 0 || seconds != seconds { // NaN check
		return "??:??:??"
	}

	totalSecs := int64(seconds)
	hours := totalSecs / 3600
	minutes := (totalSecs % 3600) / 60
	secs := totalSecs % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, secs)
}

// FormatSeconds renders a time value the way it is passed to the media
// tools: shortest exact decimal form, always with a fractional part
// (10 -> "10.0", 5.25 -> "5.25").
func FormatSeconds(seconds float64) string {
	s := strconv.FormatFloat(seconds, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// ParseFFmpegTime parses FFmpeg time string (HH:MM:SS.MS) to seconds.
func ParseFFmpegTime(timeStr string) (float64, bool) {
	parts := strings.Split(timeStr, ":")
	if len(parts) != 3 {
		return 0, false
	}

	hours, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0, false
	}

	minutes, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return 0, false
	}

	seconds, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return 0, false
	}

	return hours*3600 + minutes*60 + seconds, true
}

// ParseTimestamp accepts "SS[.ms]", "MM:SS[.ms]" or "HH:MM:SS[.ms]" and
// returns seconds. NaN and infinities are rejected.
func ParseTimestamp(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	v, err := parseTimestamp(s)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("timestamp %q is not a finite number", s)
	}
	return v, nil
}

func parseTimestamp(s string) (float64, error) {
	switch strings.Count(s, ":") {
	case 0:
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid timestamp %q", s)
		}
		return v, nil
	case 1:
		mins, secs, _ := strings.Cut(s, ":")
		m, err1 := strconv.ParseFloat(mins, 64)
		v, err2 := strconv.ParseFloat(secs, 64)
		if err1 != nil || err2 != nil {
			return 0, fmt.Errorf("invalid timestamp %q", s)
		}
		return m*60 + v, nil
	case 2:
		v, ok := ParseFFmpegTime(s)
		if !ok {
			return 0, fmt.Errorf("invalid timestamp %q", s)
		}
		return v, nil
	default:
		return 0, fmt.Errorf("invalid timestamp %q", s)
	}
}
