package orchestrator

import (
	"context"

	"github.com/aleister1102/omnihunter/internal/models"
)

// FindingStore persists verified findings.
type FindingStore interface {
	SaveFinding(ctx context.Context, f models.VerifiedFinding) error
}

// FindingNotifier fans a finding out to notification channels without blocking.
type FindingNotifier interface {
	Notify(f models.VerifiedFinding)
}

// StatsDisplay is the observational UI.
type StatsDisplay interface {
	IncrementStat(name models.StatName, delta int)
	AddFinding(f models.VerifiedFinding)
	SetStatus(status string)
}

// ResultWriter appends findings to the run's output file.
type ResultWriter interface {
	AppendFinding(f models.VerifiedFinding) error
}

// RunMetrics receives queue and finding measurements.
type RunMetrics interface {
	ObserveFinding(f models.VerifiedFinding)
	TaskDone()
	SetQueueDepth(n int)
	SetInFlight(n int)
	SetBaselines(n int)
}

// PauseFunc is called after each verified finding when pause-on-find is on.
// It returns when scanning may continue.
type PauseFunc func(ctx context.Context, f models.VerifiedFinding)

// Sinks are the collaborators that receive verified findings. Nil members are skipped.
type Sinks struct {
	Store    FindingStore
	Notifier FindingNotifier
	Display  StatsDisplay
	Results  ResultWriter
	Metrics  RunMetrics
	Pause    PauseFunc
}
