package rslimiter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aleister1102/omnihunter/internal/config"

	"github.com/rs/zerolog"
)

// ResourceLimiter watches resource usage and asks the run to stop
// cooperatively when a threshold is crossed. The shutdown callback fires at
// most once per limiter.
type ResourceLimiter struct {
	config   config.ResourceLimiterConfig
	interval time.Duration
	sampler  Sampler
	logger   zerolog.Logger

	mu               sync.Mutex
	cancel           context.CancelFunc
	wg               sync.WaitGroup
	shutdownCallback func(reason string)
	shutdownOnce     sync.Once
	lastUsage        ResourceUsage
}

// NewResourceLimiter creates a limiter; zero thresholds fall back to defaults.
func NewResourceLimiter(cfg config.ResourceLimiterConfig, sampler Sampler, logger zerolog.Logger) *ResourceLimiter {
	if cfg.CheckIntervalSecs <= 0 {
		cfg.CheckIntervalSecs = config.DefaultResourceCheckIntervalSecs
	}
	if cfg.SystemMemThreshold == 0 {
		cfg.SystemMemThreshold = config.DefaultResourceSystemMemThreshold
	}
	if cfg.CPUThreshold == 0 {
		cfg.CPUThreshold = config.DefaultResourceCPUThreshold
	}
	if sampler == nil {
		sampler = SystemSampler{}
	}

	return &ResourceLimiter{
		config:   cfg,
		interval: time.Duration(cfg.CheckIntervalSecs) * time.Second,
		sampler:  sampler,
		logger:   logger.With().Str("component", "ResourceLimiter").Logger(),
	}
}

// SetShutdownCallback sets the function called when limits are exceeded.
func (rl *ResourceLimiter) SetShutdownCallback(callback func(reason string)) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.shutdownCallback = callback
}

// Start begins monitoring until Stop is called or ctx is done.
func (rl *ResourceLimiter) Start(ctx context.Context) {
	rl.mu.Lock()
	if rl.cancel != nil {
		rl.mu.Unlock()
		return
	}
	ctx, rl.cancel = context.WithCancel(ctx)
	rl.mu.Unlock()

	rl.wg.Add(1)
	go rl.monitorResources(ctx)

	rl.logger.Info().
		Int64("max_memory_mb", rl.config.MaxMemoryMB).
		Dur("check_interval", rl.interval).
		Float64("system_mem_threshold", rl.config.SystemMemThreshold).
		Float64("cpu_threshold", rl.config.CPUThreshold).
		Bool("auto_shutdown_enabled", rl.config.EnableAutoShutdown).
		Msg("Resource limiter started")
}

// Stop ends monitoring and waits for the loop to exit.
func (rl *ResourceLimiter) Stop() {
	rl.mu.Lock()
	cancel := rl.cancel
	rl.cancel = nil
	rl.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	rl.wg.Wait()
	rl.logger.Info().Msg("Resource limiter stopped")
}

// LastUsage returns the most recent sample.
func (rl *ResourceLimiter) LastUsage() ResourceUsage {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.lastUsage
}

// Check samples once and returns whether a limit is exceeded and why.
func (rl *ResourceLimiter) Check(ctx context.Context) (bool, string) {
	usage, err := rl.sampler.Sample(ctx)
	rl.mu.Lock()
	rl.lastUsage = usage
	rl.mu.Unlock()
	if err != nil {
		rl.logger.Debug().Err(err).Msg("Partial resource sample")
	}

	rl.logger.Debug().
		Int64("alloc_mb", usage.AllocMB).
		Int("goroutines", usage.Goroutines).
		Float64("system_mem_percent", usage.SystemMemUsedPercent).
		Float64("cpu_percent", usage.CPUUsagePercent).
		Msg("Current resource usage")

	return rl.exceeded(usage)
}

func (rl *ResourceLimiter) exceeded(usage ResourceUsage) (bool, string) {
	if rl.config.MaxMemoryMB > 0 && usage.AllocMB > rl.config.MaxMemoryMB {
		return true, fmt.Sprintf("application memory %dMB > limit %dMB", usage.AllocMB, rl.config.MaxMemoryMB)
	}
	if usage.SystemMemUsedPercent/100.0 > rl.config.SystemMemThreshold {
		return true, fmt.Sprintf("system memory %.1f%% > threshold %.1f%%", usage.SystemMemUsedPercent, rl.config.SystemMemThreshold*100)
	}
	if usage.CPUUsagePercent/100.0 > rl.config.CPUThreshold {
		return true, fmt.Sprintf("cpu %.1f%% > threshold %.1f%%", usage.CPUUsagePercent, rl.config.CPUThreshold*100)
	}
	return false, ""
}

func (rl *ResourceLimiter) monitorResources(ctx context.Context) {
	defer rl.wg.Done()

	ticker := time.NewTicker(rl.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			exceeded, reason := rl.Check(ctx)
			if !exceeded {
				continue
			}
			if !rl.config.EnableAutoShutdown {
				rl.logger.Warn().Str("reason", reason).Msg("Resource limit exceeded, auto-shutdown disabled")
				continue
			}
			rl.logger.Error().Str("reason", reason).Msg("Resource limits exceeded, triggering graceful shutdown")
			rl.triggerGracefulShutdown(reason)
		}
	}
}

func (rl *ResourceLimiter) triggerGracefulShutdown(reason string) {
	rl.mu.Lock()
	callback := rl.shutdownCallback
	rl.mu.Unlock()

	if callback == nil {
		rl.logger.Warn().Msg("No shutdown callback set, cannot trigger graceful shutdown")
		return
	}
	rl.shutdownOnce.Do(func() { callback(reason) })
}
