package ui

import (
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// ResourceStats holds resource information about the supervised
// subprocess and the host it runs on
type ResourceStats struct {
	Alive       bool
	CPUPercent  float64 // subprocess CPU usage
	MemoryRSS   uint64  // subprocess resident memory
	HostMemPct  float64 // host memory used percent
	HostMemUsed uint64
}

// GetResourceStats fetches resource statistics for the given subprocess pid.
// A pid of 0 reports host stats only.
func GetResourceStats(pid int) ResourceStats {
	stats := ResourceStats{}

	// Host memory
	memInfo, err := mem.VirtualMemory()
	if err == nil {
		stats.HostMemPct = memInfo.UsedPercent
		stats.HostMemUsed = memInfo.Used
	}

	if pid <= 0 {
		return stats
	}

	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		return stats
	}
	stats.Alive = true

	if cpuPct, err := proc.CPUPercent(); err == nil {
		stats.CPUPercent = cpuPct
	}
	if info, err := proc.MemoryInfo(); err == nil && info != nil {
		stats.MemoryRSS = info.RSS
	}

	return stats
}

// FormatBytes formats bytes into a human-readable string
func FormatBytes(bytes uint64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case bytes >= GB:
		return formatFloat(float64(bytes)/GB) + " GB"
	case bytes >= MB:
		return formatFloat(float64(bytes)/MB) + " MB"
	case bytes >= KB:
		return formatFloat(float64(bytes)/KB) + " KB"
	default:
		return formatInt(int(bytes)) + " B"
	}
}

// formatFloat formats a float to 1 decimal place
func formatFloat(f float64) string {
	// Simple formatting without fmt.Sprintf
	whole := int(f)
	frac := int((f - float64(whole)) * 10)
	if frac < 0 {
		frac = -frac
	}
	return formatInt(whole) + "." + formatInt(frac)
}

// formatInt converts an int to string
func formatInt(n int) string {
	if n == 0 {
		return "0"
	}

	negative := n < 0
	if negative {
		n = -n
	}

	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}

	if negative {
		return "-" + string(digits)
	}
	return string(digits)
}
