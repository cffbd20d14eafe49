package display

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aleister1102/omnihunter/internal/config"
	"github.com/aleister1102/omnihunter/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func testConfig() config.DisplayConfig {
	return config.DisplayConfig{Enabled: true, RefreshIntervalMs: 20, RecentFindings: 5, NoColor: true}
}

func finding(i int) models.VerifiedFinding {
	return models.NewVerifiedFinding(
		models.NewFinding("xss", models.VulnXSS, fmt.Sprintf("https://a.test/p%d?q=x", i), "q", 90), "", true)
}

func TestDisplay_UpdateStatsIgnoresUnknown(t *testing.T) {
	d := New(testConfig(), nil, zerolog.Nop())
	d.UpdateStats(models.StatsUpdate{models.StatRecon: 12, models.StatParams: 3, "bogus": 9})

	stats := d.Stats()
	assert.Equal(t, 12, stats[models.StatRecon])
	assert.Equal(t, 3, stats[models.StatParams])
	assert.Equal(t, 0, stats[models.StatScanned])
	_, ok := stats["bogus"]
	assert.False(t, ok)

	d.IncrementStat(models.StatScanned, 1)
	d.IncrementStat(models.StatScanned, 1)
	assert.Equal(t, 2, d.Stats()[models.StatScanned])
}

func TestDisplay_KeepsLastFindings(t *testing.T) {
	d := New(testConfig(), nil, zerolog.Nop())
	for i := 0; i < 8; i++ {
		d.AddFinding(finding(i))
	}

	recent := d.Recent()
	require.Len(t, recent, 5)
	assert.Equal(t, "https://a.test/p3?q=x", recent[0].URL)
	assert.Equal(t, "https://a.test/p7?q=x", recent[4].URL)
	assert.Equal(t, 8, d.Stats()[models.StatFindings])
}

func TestDisplay_RenderContainsStatsAndFindings(t *testing.T) {
	d := New(testConfig(), nil, zerolog.Nop())
	d.UpdateStats(models.StatsUpdate{models.StatRecon: 42})
	d.AddFinding(finding(1))

	out := d.Render()
	assert.Contains(t, out, "URLs processed")
	assert.Contains(t, out, "42")
	assert.Contains(t, out, "https://a.test/p1?q=x")
	assert.Contains(t, out, "Running...")
}

func TestDisplay_ShortensLongURLs(t *testing.T) {
	long := "https://a.test/" + strings.Repeat("x", 100)
	assert.Len(t, shorten(long, maxURLWidth), maxURLWidth)
	assert.Equal(t, "short", shorten("short", maxURLWidth))
}

func TestDisplay_StartStopDraws(t *testing.T) {
	out := &syncBuffer{}
	d := New(testConfig(), out, zerolog.Nop())

	d.Start(context.Background())
	d.AddFinding(finding(9))
	time.Sleep(60 * time.Millisecond)
	d.SetStatus("Done")
	d.Stop()

	text := out.String()
	assert.Contains(t, text, "https://a.test/p9?q=x")
	assert.Contains(t, text, "Done")

	// second stop is a no-op
	d.Stop()
}

func TestDisplay_DisabledNeverWrites(t *testing.T) {
	out := &syncBuffer{}
	cfg := testConfig()
	cfg.Enabled = false
	d := New(cfg, out, zerolog.Nop())

	d.Start(context.Background())
	d.AddFinding(finding(1))
	d.Stop()
	assert.Empty(t, out.String())
}
