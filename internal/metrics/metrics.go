package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/aleister1102/omnihunter/internal/config"
	"github.com/aleister1102/omnihunter/internal/models"
	"github.com/aleister1102/omnihunter/internal/scanner"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var _ scanner.OutcomeObserver = (*Recorder)(nil)

// Recorder holds the run's Prometheus collectors. A nil *Recorder is valid and
// records nothing, so callers never need to check whether metrics are on.
type Recorder struct {
	registry *prometheus.Registry

	tasksTotal     prometheus.Counter
	findingsTotal  *prometheus.CounterVec
	outcomesTotal  *prometheus.CounterVec
	probeDuration  *prometheus.HistogramVec
	queueDepth     prometheus.Gauge
	inFlight       prometheus.Gauge
	proxyPoolSize  prometheus.Gauge
	baselinesTotal prometheus.Gauge
}

// NewRecorder creates and registers every collector on a private registry.
func NewRecorder() (*Recorder, error) {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		tasksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "omnihunter_tasks_total",
			Help: "Scan tasks completed",
		}),
		findingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "omnihunter_findings_total",
			Help: "Verified findings by vulnerability type",
		}, []string{"type"}),
		outcomesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "omnihunter_scanner_outcomes_total",
			Help: "Scanner outcomes by scanner and outcome kind",
		}, []string{"scanner", "outcome"}),
		probeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "omnihunter_probe_duration_seconds",
			Help:    "Time one scanner spent on one task",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 300},
		}, []string{"scanner"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "omnihunter_queue_depth",
			Help: "Tasks waiting in the queue",
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "omnihunter_in_flight",
			Help: "Tasks currently being processed",
		}),
		proxyPoolSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "omnihunter_proxy_pool_size",
			Help: "Healthy proxies in the live pool",
		}),
		baselinesTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "omnihunter_baselines",
			Help: "Recorded anomaly baselines",
		}),
	}

	collectors := []prometheus.Collector{
		r.tasksTotal, r.findingsTotal, r.outcomesTotal, r.probeDuration,
		r.queueDepth, r.inFlight, r.proxyPoolSize, r.baselinesTotal,
	}
	for _, c := range collectors {
		if err := r.registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register collector: %w", err)
		}
	}
	return r, nil
}

// Registry exposes the private registry for scraping and tests.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// ObserveOutcome counts one scanner outcome and its duration.
func (r *Recorder) ObserveOutcome(o scanner.Outcome) {
	if r == nil {
		return
	}
	r.outcomesTotal.WithLabelValues(o.Scanner, o.Kind.String()).Inc()
	r.probeDuration.WithLabelValues(o.Scanner).Observe(o.Duration.Seconds())
}

// ObserveFinding counts one verified finding.
func (r *Recorder) ObserveFinding(f models.VerifiedFinding) {
	if r == nil {
		return
	}
	r.findingsTotal.WithLabelValues(string(f.Type)).Inc()
}

// TaskDone counts one completed task.
func (r *Recorder) TaskDone() {
	if r == nil {
		return
	}
	r.tasksTotal.Inc()
}

// SetQueueDepth reports the number of queued tasks.
func (r *Recorder) SetQueueDepth(n int) {
	if r == nil {
		return
	}
	r.queueDepth.Set(float64(n))
}

// SetInFlight reports the number of tasks being processed.
func (r *Recorder) SetInFlight(n int) {
	if r == nil {
		return
	}
	r.inFlight.Set(float64(n))
}

func (r *Recorder) SetProxyPoolSize(n int) {
	if r == nil {
		return
	}
	r.proxyPoolSize.Set(float64(n))
}

func (r *Recorder) SetBaselines(n int) {
	if r == nil {
		return
	}
	r.baselinesTotal.Set(float64(n))
}

// Server serves the recorder's registry over HTTP.
type Server struct {
	server *http.Server
	logger zerolog.Logger
	addr   string
	mu     sync.Mutex
	closed bool
}

// Serve starts the metrics endpoint on cfg.ListenAddress in the background.
func Serve(cfg config.MetricsConfig, r *Recorder, logger zerolog.Logger) (*Server, error) {
	if r == nil {
		return nil, errors.New("metrics recorder is nil")
	}
	path := cfg.Path
	if path == "" {
		path = config.DefaultMetricsPath
	}

	listener, err := net.Listen("tcp", cfg.ListenAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", cfg.ListenAddress, err)
	}

	mux := http.NewServeMux()
	mux.Handle(path, promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{EnableOpenMetrics: true}))

	s := &Server{
		server: &http.Server{
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		logger: logger.With().Str("component", "Metrics").Logger(),
		addr:   listener.Addr().String(),
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("Metrics server stopped")
		}
	}()

	s.logger.Info().Str("address", s.addr).Str("path", path).Msg("Metrics server started")
	return s, nil
}

// Addr returns the bound address, useful when listening on port 0.
func (s *Server) Addr() string {
	return s.addr
}

// Close shuts the server down gracefully.
func (s *Server) Close(ctx context.Context) error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.server.Shutdown(ctx)
}
