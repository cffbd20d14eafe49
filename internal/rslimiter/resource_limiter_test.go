package rslimiter

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aleister1102/omnihunter/internal/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedSampler struct {
	mu    sync.Mutex
	usage ResourceUsage
	err   error
}

func (f *fixedSampler) Sample(context.Context) (ResourceUsage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.usage, f.err
}

func (f *fixedSampler) set(u ResourceUsage) {
	f.mu.Lock()
	f.usage = u
	f.mu.Unlock()
}

func testLimiter(sampler Sampler) *ResourceLimiter {
	cfg := config.NewDefaultResourceLimiterConfig()
	rl := NewResourceLimiter(cfg, sampler, zerolog.Nop())
	rl.interval = 10 * time.Millisecond
	return rl
}

func TestNewResourceLimiter_Defaults(t *testing.T) {
	rl := NewResourceLimiter(config.ResourceLimiterConfig{}, nil, zerolog.Nop())

	require.NotNil(t, rl)
	assert.Equal(t, time.Duration(config.DefaultResourceCheckIntervalSecs)*time.Second, rl.interval)
	assert.Equal(t, config.DefaultResourceSystemMemThreshold, rl.config.SystemMemThreshold)
	assert.Equal(t, config.DefaultResourceCPUThreshold, rl.config.CPUThreshold)
	assert.IsType(t, SystemSampler{}, rl.sampler)
}

func TestResourceLimiter_Check(t *testing.T) {
	tests := []struct {
		name     string
		usage    ResourceUsage
		exceeded bool
		contains string
	}{
		{name: "healthy", usage: ResourceUsage{AllocMB: 100, SystemMemUsedPercent: 40, CPUUsagePercent: 30}},
		{name: "app memory", usage: ResourceUsage{AllocMB: 4096}, exceeded: true, contains: "application memory"},
		{name: "system memory", usage: ResourceUsage{SystemMemUsedPercent: 95}, exceeded: true, contains: "system memory"},
		{name: "cpu", usage: ResourceUsage{CPUUsagePercent: 99}, exceeded: true, contains: "cpu"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rl := testLimiter(&fixedSampler{usage: tt.usage})
			exceeded, reason := rl.Check(context.Background())
			assert.Equal(t, tt.exceeded, exceeded)
			assert.Contains(t, reason, tt.contains)
			assert.Equal(t, tt.usage, rl.LastUsage())
		})
	}
}

func TestResourceLimiter_PartialSampleStillChecked(t *testing.T) {
	rl := testLimiter(&fixedSampler{usage: ResourceUsage{AllocMB: 9000}, err: errors.New("no /proc")})
	exceeded, _ := rl.Check(context.Background())
	assert.True(t, exceeded)
}

func TestResourceLimiter_TriggersCallbackOnce(t *testing.T) {
	sampler := &fixedSampler{usage: ResourceUsage{AllocMB: 10}}
	rl := testLimiter(sampler)

	var calls atomic.Int32
	reasons := make(chan string, 4)
	rl.SetShutdownCallback(func(reason string) {
		calls.Add(1)
		reasons <- reason
	})

	rl.Start(context.Background())
	defer rl.Stop()

	time.Sleep(30 * time.Millisecond)
	assert.Zero(t, calls.Load())

	sampler.set(ResourceUsage{CPUUsagePercent: 100})
	select {
	case reason := <-reasons:
		assert.Contains(t, reason, "cpu")
	case <-time.After(time.Second):
		t.Fatal("shutdown callback not called")
	}

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestResourceLimiter_AutoShutdownDisabled(t *testing.T) {
	cfg := config.NewDefaultResourceLimiterConfig()
	cfg.EnableAutoShutdown = false
	rl := NewResourceLimiter(cfg, &fixedSampler{usage: ResourceUsage{CPUUsagePercent: 100}}, zerolog.Nop())
	rl.interval = 5 * time.Millisecond

	var calls atomic.Int32
	rl.SetShutdownCallback(func(string) { calls.Add(1) })

	rl.Start(context.Background())
	time.Sleep(40 * time.Millisecond)
	rl.Stop()

	assert.Zero(t, calls.Load())
}

func TestResourceLimiter_NoCallback(t *testing.T) {
	rl := testLimiter(&fixedSampler{})
	assert.NotPanics(t, func() { rl.triggerGracefulShutdown("test") })
}

func TestResourceLimiter_StartStopIdempotent(t *testing.T) {
	rl := testLimiter(&fixedSampler{})
	rl.Start(context.Background())
	rl.Start(context.Background())
	rl.Stop()
	rl.Stop()
}
