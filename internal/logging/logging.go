package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// File is a timestamped run log opened under a log directory.
type File struct {
	file *os.File
	path string
}

// OpenFile creates logDir if needed and opens a new timestamped log file in it.
func OpenFile(logDir string) (*File, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", logDir, err)
	}

	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("mvkit_run_%s.log", timestamp)
	filePath := filepath.Join(logDir, filename)

	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file %s: %w", filePath, err)
	}

	return &File{file: file, path: filePath}, nil
}

// Path returns the path to the log file.
func (f *File) Path() string {
	if f == nil {
		return ""
	}
	return f.path
}

// Write implements io.Writer.
func (f *File) Write(p []byte) (int, error) {
	if f == nil || f.file == nil {
		return len(p), nil
	}
	return f.file.Write(p)
}

// Close closes the log file.
func (f *File) Close() error {
	if f == nil || f.file == nil {
		return nil
	}
	return f.file.Close()
}

// Tee returns a writer that sends records both to w and to the log file.
func (f *File) Tee(w io.Writer) io.Writer {
	if f == nil || f.file == nil {
		return w
	}
	if w == nil {
		return f
	}
	return io.MultiWriter(w, f)
}
