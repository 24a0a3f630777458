package util

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MinFreeSpace is the free space below which CheckDiskSpace warns.
const MinFreeSpace = 2 * GiB

// TempFile is a scratch file removed by Cleanup.
type TempFile struct {
	path string
}

// Path returns the file path.
func (f *TempFile) Path() string {
	return f.path
}

// Cleanup removes the file.
func (f *TempFile) Cleanup() error {
	err := os.Remove(f.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// EnsureDirectoryWritable verifies that path is an existing, writable directory.
func EnsureDirectoryWritable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}
	probe, err := os.CreateTemp(path, ".mvkit-write-*")
	if err != nil {
		return fmt.Errorf("%s is not writable: %w", path, err)
	}
	name := probe.Name()
	_ = probe.Close()
	return os.Remove(name)
}

// CreateTempFile creates an empty "<prefix>_<random>.<ext>" under baseDir.
func CreateTempFile(baseDir, prefix, ext string) (*TempFile, error) {
	path, err := CreateTempFilePath(baseDir, prefix, ext)
	if err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	return &TempFile{path: path}, nil
}

// CreateTempFilePath returns a unique path under baseDir without creating it.
func CreateTempFilePath(baseDir, prefix, ext string) (string, error) {
	name, err := tempName(prefix, ext)
	if err != nil {
		return "", err
	}
	return filepath.Join(baseDir, name), nil
}

// CleanupStaleTempFiles removes entries under dir whose names start with
// prefix and that are older than maxAge. A missing dir is not an error.
func CleanupStaleTempFiles(dir, prefix string, maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	cutoff := time.Now().Add(-maxAge)
	count := 0
	for _, entry := range entries {
		if !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// CheckDiskSpace reports whether path has at least MinFreeSpace available,
// calling logf with a warning when it does not.
func CheckDiskSpace(path string, logf func(format string, args ...any)) bool {
	free := GetAvailableSpace(path)
	if free == 0 || free >= MinFreeSpace {
		return true
	}
	if logf != nil {
		logf("low disk space in %s: %s free", path, FormatBytes(free))
	}
	return false
}

func tempName(prefix, ext string) (string, error) {
	suffix, err := generateRandomString(8)
	if err != nil {
		return "", err
	}
	name := prefix + "_" + suffix
	if ext != "" {
		name += "." + strings.TrimPrefix(ext, ".")
	}
	return name, nil
}

func generateRandomString(n int) (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	s := strings.ReplaceAll(id.String(), "-", "")
	if n > len(s) {
		n = len(s)
	}
	return s[:n], nil
}
