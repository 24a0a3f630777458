// Package discovery finds media files in a directory.
package discovery

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mvkit/mvkit/internal/logging"
	"github.com/mvkit/mvkit/internal/util"
)

// Result contains the results of file discovery with metadata.
type Result struct {
	Files        []string
	SkippedCount int
}

// Matcher reports whether a file path should be collected.
type Matcher func(path string) bool

// Video matches video containers, including MPEG-PS segments.
func Video(path string) bool {
	return util.IsVideoFile(path)
}

// Audio matches audio files.
func Audio(path string) bool {
	return util.IsAudioFile(path)
}

// FindFiles collects the non-hidden regular files in dir accepted by match,
// in natural order so that seg_2 sorts before seg_10.
func FindFiles(dir string, match Matcher) (*Result, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("directory does not exist: %s", dir)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot read directory %s: %w", dir, err)
	}

	result := &Result{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		fullPath := filepath.Join(dir, name)
		if match == nil || match(fullPath) {
			result.Files = append(result.Files, fullPath)
		} else {
			result.SkippedCount++
		}
	}

	if len(result.Files) == 0 {
		return nil, fmt.Errorf("no matching files found in %s", dir)
	}

	util.SortNatural(result.Files)
	return result, nil
}

// FindFilesWithLogging is FindFiles plus a debug record of what was found.
func FindFilesWithLogging(dir string, match Matcher, logger *logging.Logger) (*Result, error) {
	result, err := FindFiles(dir, match)
	if err != nil {
		return nil, err
	}
	if logger != nil {
		logDiscoveredFiles(dir, result, logger)
	}
	return result, nil
}

// logDiscoveredFiles logs the first 5 discovered files plus a count.
func logDiscoveredFiles(dir string, result *Result, logger *logging.Logger) {
	logger.Debug("discovered files", "dir", dir, "count", len(result.Files), "skipped", result.SkippedCount)

	maxToLog := min(5, len(result.Files))
	for i := 0; i < maxToLog; i++ {
		logger.Debug("discovered file", "name", filepath.Base(result.Files[i]))
	}
	if len(result.Files) > 5 {
		logger.Debug("more files not listed", "count", len(result.Files)-5)
	}
}
