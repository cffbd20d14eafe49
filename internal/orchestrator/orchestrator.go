package orchestrator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aleister1102/omnihunter/internal/anomaly"
	"github.com/aleister1102/omnihunter/internal/common"
	"github.com/aleister1102/omnihunter/internal/config"
	"github.com/aleister1102/omnihunter/internal/models"
	"github.com/aleister1102/omnihunter/internal/prioritizer"
	"github.com/aleister1102/omnihunter/internal/scanner"
	"github.com/aleister1102/omnihunter/internal/throttle"

	"github.com/rs/zerolog"
)

var errStopped = errors.New("orchestrator stopped")

// Dispatcher runs the active scanners on one task.
type Dispatcher interface {
	Dispatch(ctx context.Context, task models.ScanTask) []scanner.Outcome
	Scanners() []string
}

// Verifier re-checks a raw finding.
type Verifier interface {
	Verify(ctx context.Context, f models.Finding) bool
}

// BaselineRecorder stores reference responses for anomaly detection.
type BaselineRecorder interface {
	Record(key string, resp anomaly.Response) bool
	Len() int
}

// Deps are the collaborators of a run. Dispatcher and Verifier are required.
type Deps struct {
	Dispatcher  Dispatcher
	Verifier    Verifier
	Prioritizer *prioritizer.Prioritizer
	Baselines   BaselineRecorder
	Client      scanner.Requester
	Throttle    *throttle.Throttle
	Sinks       Sinks
}

// RunResult summarizes one run.
type RunResult struct {
	Queued      int
	Processed   int
	Remaining   int
	Baselines   int
	Interrupted bool
	Findings    []models.VerifiedFinding
	Duration    time.Duration
}

// Orchestrator feeds prioritized tasks into a bounded queue and drains it
// with a fixed pool of workers. It runs once.
type Orchestrator struct {
	cfg        config.OrchestratorConfig
	anomalyCfg config.AnomalyConfig
	platform   string
	deps       Deps
	queue      *TaskQueue
	logger     zerolog.Logger

	started  atomic.Bool
	running  atomic.Bool
	stopOnce sync.Once
	stopCh   chan struct{}
	workers  sync.WaitGroup

	processed atomic.Int64
	pauseMu   sync.Mutex

	findingsMu sync.Mutex
	findings   []models.VerifiedFinding
}

// New validates the collaborators and creates an orchestrator.
func New(cfg config.OrchestratorConfig, anomalyCfg config.AnomalyConfig, platform string, deps Deps, logger zerolog.Logger) (*Orchestrator, error) {
	if deps.Dispatcher == nil {
		return nil, common.NewValidationError("dispatcher", nil, "dispatcher is required")
	}
	if deps.Verifier == nil {
		return nil, common.NewValidationError("verifier", nil, "verifier is required")
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = config.DefaultOrchestratorConcurrency
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = config.DefaultOrchestratorQueueSize
	}
	if cfg.DequeueTimeoutMs < 1 {
		cfg.DequeueTimeoutMs = config.DefaultOrchestratorDequeueTimeoutMs
	}

	return &Orchestrator{
		cfg:        cfg,
		anomalyCfg: anomalyCfg,
		platform:   platform,
		deps:       deps,
		queue:      NewTaskQueue(cfg.QueueSize),
		stopCh:     make(chan struct{}),
		logger:     logger.With().Str("component", "Orchestrator").Logger(),
	}, nil
}

// Running reports whether workers may still dequeue.
func (o *Orchestrator) Running() bool {
	return o.running.Load()
}

// Stop clears the running flag. Workers finish the task they hold and exit;
// queued tasks are left unprocessed. Safe to call at any time, any number of times.
func (o *Orchestrator) Stop(reason string) {
	o.stopOnce.Do(func() {
		o.running.Store(false)
		close(o.stopCh)
		o.logger.Warn().Str("reason", reason).Msg("Stop requested, finishing in-flight tasks")
	})
}

// Queue exposes queue depth and in-flight count.
func (o *Orchestrator) Queue() *TaskQueue {
	return o.queue
}

// BuildTasks expands endpoints into one task per parameter, keeping order.
func BuildTasks(endpoints []models.Endpoint) []models.ScanTask {
	var tasks []models.ScanTask
	for _, ep := range endpoints {
		for _, p := range ep.Params {
			tasks = append(tasks, models.ScanTask{ID: len(tasks) + 1, Endpoint: ep, Param: p})
		}
	}
	return tasks
}

// Run prioritizes endpoints, collects baselines when anomaly detection is
// on, then queues every task and blocks until all are done or the run is
// stopped. Workers have exited when Run returns.
func (o *Orchestrator) Run(ctx context.Context, endpoints []models.Endpoint) (*RunResult, error) {
	if !o.started.CompareAndSwap(false, true) {
		return nil, common.NewError("orchestrator already ran")
	}
	start := time.Now()

	ordered := endpoints
	if o.deps.Prioritizer != nil {
		ordered = o.deps.Prioritizer.Prioritize(endpoints)
	}

	result := &RunResult{}
	if o.anomalyCfg.Enabled {
		o.setStatus("collecting baselines")
		result.Baselines = o.CollectBaselines(ctx, ordered)
	}

	tasks := BuildTasks(ordered)

	o.running.Store(true)
	select {
	case <-o.stopCh:
		// stopped before scanning started
		o.running.Store(false)
	default:
	}

	o.setStatus("scanning")
	o.logger.Info().
		Int("tasks", len(tasks)).
		Int("workers", o.cfg.Concurrency).
		Strs("scanners", o.deps.Dispatcher.Scanners()).
		Msg("Starting scan workers")

	for i := 0; i < o.cfg.Concurrency; i++ {
		o.workers.Add(1)
		go o.worker(ctx, i)
	}

	runErr := o.feed(ctx, tasks)
	if runErr == nil {
		runErr = o.queue.Join(ctx, o.stopCh)
	}
	interrupted := runErr != nil
	if errors.Is(runErr, errStopped) {
		runErr = nil
	}

	o.running.Store(false)
	o.workers.Wait()
	o.reportQueue()
	o.setStatus("done")

	result.Queued = len(tasks)
	result.Processed = int(o.processed.Load())
	result.Remaining = o.queue.Depth()
	result.Interrupted = interrupted && result.Processed < result.Queued
	result.Findings = o.Findings()
	result.Duration = time.Since(start)

	o.logger.Info().
		Int("processed", result.Processed).
		Int("remaining", result.Remaining).
		Int("findings", len(result.Findings)).
		Bool("interrupted", result.Interrupted).
		Dur("duration", result.Duration).
		Msg("Scan finished")

	return result, runErr
}

func (o *Orchestrator) feed(ctx context.Context, tasks []models.ScanTask) error {
	for _, task := range tasks {
		if !o.running.Load() {
			return errStopped
		}
		if err := o.queue.Put(ctx, task, o.stopCh); err != nil {
			return err
		}
		o.reportQueue()
	}
	return nil
}

func (o *Orchestrator) worker(ctx context.Context, id int) {
	defer o.workers.Done()

	logger := o.logger.With().Int("worker", id).Logger()
	timeout := time.Duration(o.cfg.DequeueTimeoutMs) * time.Millisecond

	for o.running.Load() {
		task, ok := o.queue.Get(timeout)
		if !ok {
			continue
		}
		o.reportQueue()

		logger.Debug().Int("task", task.ID).Str("endpoint", task.Endpoint.URL).Str("param", task.Param).Msg("Testing")
		o.process(ctx, task, logger)

		o.processed.Add(1)
		o.queue.TaskDone()
		o.reportQueue()
	}

	logger.Debug().Msg("Worker exiting")
}

// process dispatches one task, verifies each raw finding and forwards the
// verified ones to the sinks.
func (o *Orchestrator) process(ctx context.Context, task models.ScanTask, logger zerolog.Logger) {
	outcomes := o.deps.Dispatcher.Dispatch(ctx, task)

	for _, out := range outcomes {
		if out.Kind != scanner.OutcomeFinding || out.Finding == nil {
			continue
		}
		if !o.deps.Verifier.Verify(ctx, *out.Finding) {
			logger.Debug().Str("type", string(out.Finding.Type)).Str("url", out.Finding.URL).Msg("Finding not verified")
			continue
		}
		o.emit(ctx, models.NewVerifiedFinding(*out.Finding, o.platform, true), logger)
	}

	if d := o.deps.Sinks.Display; d != nil {
		d.IncrementStat(models.StatScanned, 1)
	}
	if m := o.deps.Sinks.Metrics; m != nil {
		m.TaskDone()
	}
}

func (o *Orchestrator) emit(ctx context.Context, f models.VerifiedFinding, logger zerolog.Logger) {
	o.findingsMu.Lock()
	o.findings = append(o.findings, f)
	o.findingsMu.Unlock()

	sinks := o.deps.Sinks
	if sinks.Store != nil {
		if err := sinks.Store.SaveFinding(ctx, f); err != nil {
			logger.Error().Err(err).Str("url", f.URL).Msg("Failed to save finding")
		}
	}
	if sinks.Notifier != nil {
		sinks.Notifier.Notify(f)
	}
	if sinks.Display != nil {
		sinks.Display.AddFinding(f)
	}
	if sinks.Results != nil {
		if err := sinks.Results.AppendFinding(f); err != nil {
			logger.Error().Err(err).Msg("Failed to append finding to output file")
		}
	}
	if sinks.Metrics != nil {
		sinks.Metrics.ObserveFinding(f)
	}

	logger.Warn().
		Str("type", string(f.Type)).
		Str("url", f.URL).
		Str("param", f.Param).
		Int("confidence", f.Confidence).
		Msg("Verified finding")

	if o.cfg.PauseOnFind && sinks.Pause != nil {
		o.pauseMu.Lock()
		sinks.Pause(ctx, f)
		o.pauseMu.Unlock()
	}
}

// Findings returns a copy of the verified findings so far.
func (o *Orchestrator) Findings() []models.VerifiedFinding {
	o.findingsMu.Lock()
	defer o.findingsMu.Unlock()
	return append([]models.VerifiedFinding(nil), o.findings...)
}

func (o *Orchestrator) reportQueue() {
	if m := o.deps.Sinks.Metrics; m != nil {
		m.SetQueueDepth(o.queue.Depth())
		m.SetInFlight(o.queue.InFlight())
	}
}

func (o *Orchestrator) setStatus(status string) {
	if d := o.deps.Sinks.Display; d != nil {
		d.SetStatus(status)
	}
}
