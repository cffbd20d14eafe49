package rslimiter

import (
	"context"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// ResourceUsage is one sample of process and host resource usage.
type ResourceUsage struct {
	AllocMB              int64
	SysMB                int64
	Goroutines           int
	GCCount              int64
	SystemMemUsedMB      int64
	SystemMemTotalMB     int64
	SystemMemUsedPercent float64 // 0-100
	CPUUsagePercent      float64 // 0-100
}

// Sampler reads current resource usage.
type Sampler interface {
	Sample(ctx context.Context) (ResourceUsage, error)
}

// SystemSampler samples the Go runtime and the host through gopsutil.
type SystemSampler struct {
	// CPUWindow is how long cpu.Percent measures for.
	CPUWindow time.Duration
}

// Sample implements Sampler. Host stats that cannot be read are left at zero.
func (s SystemSampler) Sample(ctx context.Context) (ResourceUsage, error) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	usage := ResourceUsage{
		AllocMB:    int64(m.Alloc / 1024 / 1024),
		SysMB:      int64(m.Sys / 1024 / 1024),
		Goroutines: runtime.NumGoroutine(),
		GCCount:    int64(m.NumGC),
	}

	vmStat, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return usage, err
	}
	usage.SystemMemUsedMB = int64(vmStat.Used / 1024 / 1024)
	usage.SystemMemTotalMB = int64(vmStat.Total / 1024 / 1024)
	usage.SystemMemUsedPercent = vmStat.UsedPercent

	window := s.CPUWindow
	if window <= 0 {
		window = time.Second
	}
	percents, err := cpu.PercentWithContext(ctx, window, false)
	if err != nil {
		return usage, err
	}
	if len(percents) > 0 {
		usage.CPUUsagePercent = percents[0]
	}

	return usage, nil
}
