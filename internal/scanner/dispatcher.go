package scanner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aleister1102/omnihunter/internal/models"
	"github.com/aleister1102/omnihunter/internal/throttle"
	"github.com/rs/zerolog"
)

// OutcomeObserver is told about every scanner outcome.
type OutcomeObserver interface {
	ObserveOutcome(o Outcome)
}

// Dispatcher runs the active scanners concurrently on one task.
type Dispatcher struct {
	scanners []Scanner
	throttle *throttle.Throttle
	observer OutcomeObserver
	logger   zerolog.Logger
}

// NewDispatcher creates a dispatcher. observer may be nil.
func NewDispatcher(scanners []Scanner, th *throttle.Throttle, observer OutcomeObserver, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		scanners: scanners,
		throttle: th,
		observer: observer,
		logger:   logger.With().Str("component", "Dispatcher").Logger(),
	}
}

// Scanners returns the active scanner names.
func (d *Dispatcher) Scanners() []string {
	names := make([]string, len(d.scanners))
	for i, s := range d.scanners {
		names[i] = s.Name()
	}
	return names
}

// Dispatch blocks until every scanner has finished with task. One
// scanner's error or panic never affects the others. Outcomes are
// returned in scanner order.
func (d *Dispatcher) Dispatch(ctx context.Context, task models.ScanTask) []Outcome {
	outcomes := make([]Outcome, len(d.scanners))

	var wg sync.WaitGroup
	for i, s := range d.scanners {
		wg.Add(1)
		go func(i int, s Scanner) {
			defer wg.Done()
			outcomes[i] = d.run(ctx, s, task)
		}(i, s)
	}
	wg.Wait()

	return outcomes
}

func (d *Dispatcher) run(ctx context.Context, s Scanner, task models.ScanTask) (out Outcome) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			out = Failed(ErrorInternal, fmt.Errorf("scanner %s panicked: %v", s.Name(), r))
		}
		out.Scanner = s.Name()
		out.Duration = time.Since(start)
		if out.Finding != nil && out.Finding.Scanner == "" {
			out.Finding.Scanner = s.Name()
		}
		d.log(task, out)
		if d.observer != nil {
			d.observer.ObserveOutcome(out)
		}
	}()

	return s.Probe(ctx, task, d.throttle)
}

func (d *Dispatcher) log(task models.ScanTask, out Outcome) {
	switch out.Kind {
	case OutcomeFinding:
		d.logger.Info().
			Str("scanner", out.Scanner).
			Str("url", out.Finding.URL).
			Str("param", task.Param).
			Str("type", string(out.Finding.Type)).
			Int("confidence", out.Finding.Confidence).
			Msg("Raw finding")
	case OutcomeError:
		d.logger.Debug().
			Err(out.Err).
			Str("scanner", out.Scanner).
			Str("endpoint", task.Endpoint.URL).
			Str("param", task.Param).
			Str("kind", string(out.ErrorKind)).
			Msg("Scanner error")
	}
}
