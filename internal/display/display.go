package display

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/aleister1102/omnihunter/internal/config"
	"github.com/aleister1102/omnihunter/internal/models"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
)

const maxURLWidth = 50

var statRows = []struct {
	name  models.StatName
	label string
}{
	{models.StatRecon, "URLs processed"},
	{models.StatParams, "Endpoints"},
	{models.StatScanned, "Scans performed"},
	{models.StatFindings, "Findings"},
}

// Display is the live terminal panel. It only observes the run; nothing reads
// its state to make decisions.
type Display struct {
	mu       sync.RWMutex
	stats    map[models.StatName]int
	recent   []models.VerifiedFinding
	keep     int
	status   string
	styles   styles
	out      io.Writer
	interval time.Duration
	enabled  bool
	logger   zerolog.Logger

	lastRendered string
	trigger      chan struct{}
	cancel       context.CancelFunc
	done         chan struct{}
}

// New creates a display writing to out. A disabled display still tracks
// stats but never renders.
func New(cfg config.DisplayConfig, out io.Writer, logger zerolog.Logger) *Display {
	keep := cfg.RecentFindings
	if keep <= 0 {
		keep = config.DefaultDisplayRecentFindings
	}
	interval := time.Duration(cfg.RefreshIntervalMs) * time.Millisecond
	if interval <= 0 {
		interval = time.Duration(config.DefaultDisplayRefreshIntervalMs) * time.Millisecond
	}

	stats := make(map[models.StatName]int, len(statRows))
	for _, row := range statRows {
		stats[row.name] = 0
	}

	return &Display{
		stats:    stats,
		keep:     keep,
		status:   "Running...",
		styles:   newStyles(cfg.NoColor),
		out:      out,
		interval: interval,
		enabled:  cfg.Enabled && out != nil,
		logger:   logger.With().Str("component", "Display").Logger(),
		trigger:  make(chan struct{}, 1),
	}
}

// UpdateStats overwrites the named counters; unknown names are ignored.
func (d *Display) UpdateStats(update models.StatsUpdate) {
	d.mu.Lock()
	for name, v := range update {
		if _, ok := d.stats[name]; ok {
			d.stats[name] = v
		}
	}
	d.mu.Unlock()
	d.triggerRender()
}

// IncrementStat adds delta to one counter.
func (d *Display) IncrementStat(name models.StatName, delta int) {
	d.mu.Lock()
	if _, ok := d.stats[name]; ok {
		d.stats[name] += delta
	}
	d.mu.Unlock()
	d.triggerRender()
}

// AddFinding records f among the recent findings and bumps the findings counter.
func (d *Display) AddFinding(f models.VerifiedFinding) {
	d.mu.Lock()
	d.recent = append(d.recent, f)
	if len(d.recent) > d.keep {
		d.recent = append([]models.VerifiedFinding(nil), d.recent[len(d.recent)-d.keep:]...)
	}
	d.stats[models.StatFindings]++
	d.mu.Unlock()
	d.triggerRender()
}

// SetStatus changes the footer line.
func (d *Display) SetStatus(status string) {
	d.mu.Lock()
	d.status = status
	d.mu.Unlock()
	d.triggerRender()
}

// Stats returns a copy of the counters.
func (d *Display) Stats() map[models.StatName]int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[models.StatName]int, len(d.stats))
	for k, v := range d.stats {
		out[k] = v
	}
	return out
}

// Recent returns the retained findings, oldest first.
func (d *Display) Recent() []models.VerifiedFinding {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]models.VerifiedFinding(nil), d.recent...)
}

// Render builds the panel text.
func (d *Display) Render() string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	s := d.styles

	var stats strings.Builder
	stats.WriteString(s.header.Render("Stats") + "\n")
	for _, row := range statRows {
		fmt.Fprintf(&stats, "%s %s\n", s.label.Render(fmt.Sprintf("%-16s", row.label)), s.value.Render(fmt.Sprint(d.stats[row.name])))
	}

	var findings strings.Builder
	findings.WriteString(s.header.Render("Latest Findings") + "\n")
	if len(d.recent) == 0 {
		findings.WriteString(s.label.Render("none yet") + "\n")
	}
	for _, f := range d.recent {
		line := fmt.Sprintf("%-18s %-50s %3d%%", f.Type, shorten(f.URL, maxURLWidth), f.Confidence)
		findings.WriteString(s.finding(f.Confidence).Render(line) + "\n")
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		s.panel.Render(strings.TrimRight(stats.String(), "\n")),
		s.panel.Render(strings.TrimRight(findings.String(), "\n")),
	)

	return lipgloss.JoinVertical(lipgloss.Left,
		s.header.Render("OmniHunter"),
		body,
		s.status.Render(d.status),
	)
}

// Start launches the render loop. It is a no-op for a disabled display.
func (d *Display) Start(ctx context.Context) {
	if !d.enabled {
		d.logger.Debug().Msg("Display disabled")
		return
	}

	d.mu.Lock()
	if d.cancel != nil {
		d.mu.Unlock()
		return
	}
	ctx, d.cancel = context.WithCancel(ctx)
	d.done = make(chan struct{})
	d.mu.Unlock()

	go d.loop(ctx)
}

// Stop ends the render loop after drawing the final state once.
func (d *Display) Stop() {
	d.mu.Lock()
	cancel, done := d.cancel, d.done
	d.cancel = nil
	d.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	d.draw()
}

func (d *Display) loop(ctx context.Context) {
	defer close(d.done)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.draw()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.draw()
		case <-d.trigger:
			d.draw()
		}
	}
}

// draw writes the panel when it changed since the last draw.
func (d *Display) draw() {
	if !d.enabled {
		return
	}
	frame := d.Render()

	d.mu.Lock()
	if frame == d.lastRendered {
		d.mu.Unlock()
		return
	}
	d.lastRendered = frame
	d.mu.Unlock()

	if _, err := fmt.Fprintln(d.out, frame); err != nil {
		d.logger.Debug().Err(err).Msg("Failed to draw panel")
	}
}

func (d *Display) triggerRender() {
	select {
	case d.trigger <- struct{}{}:
	default:
	}
}

func shorten(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
