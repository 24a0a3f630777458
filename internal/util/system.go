package util

import (
	"os"
	"runtime"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
)

// SystemInfo contains information about the host system.
type SystemInfo struct {
	Hostname      string
	LogicalCores  int
	PhysicalCores int
	OS            string
	Arch          string
}

// GetSystemInfo collects system information.
func GetSystemInfo() SystemInfo {
	hostname, _ := os.Hostname()
	return SystemInfo{
		Hostname:      hostname,
		LogicalCores:  LogicalCores(),
		PhysicalCores: PhysicalCores(),
		OS:            runtime.GOOS,
		Arch:          runtime.GOARCH,
	}
}

// LogicalCores returns the number of logical CPU cores (includes hyperthreads).
func LogicalCores() int {
	if n, err := cpu.Counts(true); err == nil && n > 0 {
		return n
	}
	return runtime.NumCPU()
}

// PhysicalCores returns the number of physical CPU cores.
// Falls back to LogicalCores()/2 if detection fails.
func PhysicalCores() int {
	if n, err := cpu.Counts(false); err == nil && n > 0 {
		return min(n, LogicalCores())
	}
	logical := LogicalCores()
	if logical > 1 {
		return logical / 2
	}
	return 1
}

// DefaultWorkers returns the number of concurrent encodes to run when none
// is configured: one per physical core.
func DefaultWorkers() int {
	return max(PhysicalCores(), 1)
}

// GetAvailableSpace returns the free bytes on the filesystem holding path,
// or 0 when it cannot be determined.
func GetAvailableSpace(path string) uint64 {
	usage, err := disk.Usage(path)
	if err != nil {
		return 0
	}
	return usage.Free
}
