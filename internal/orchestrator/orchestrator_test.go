package orchestrator

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aleister1102/omnihunter/internal/anomaly"
	"github.com/aleister1102/omnihunter/internal/config"
	"github.com/aleister1102/omnihunter/internal/httpclient"
	"github.com/aleister1102/omnihunter/internal/models"
	"github.com/aleister1102/omnihunter/internal/prioritizer"
	"github.com/aleister1102/omnihunter/internal/scanner"
	"github.com/aleister1102/omnihunter/internal/throttle"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingDispatcher struct {
	calls   atomic.Int64
	mu      sync.Mutex
	seen    map[int]int
	order   []string
	started chan struct{}
	release chan struct{}
	done    atomic.Int64
}

func newCountingDispatcher() *countingDispatcher {
	return &countingDispatcher{seen: make(map[int]int)}
}

func (d *countingDispatcher) Scanners() []string { return []string{"fake"} }

func (d *countingDispatcher) Dispatch(ctx context.Context, task models.ScanTask) []scanner.Outcome {
	d.calls.Add(1)
	d.mu.Lock()
	d.seen[task.ID]++
	d.order = append(d.order, task.Param)
	d.mu.Unlock()

	if d.started != nil {
		d.started <- struct{}{}
	}
	if d.release != nil {
		<-d.release
	}
	defer d.done.Add(1)

	switch task.Param {
	case "vuln":
		f := models.NewFinding("fake", models.VulnSQLiError, task.ProbeURL("'"), task.Param, 80)
		return []scanner.Outcome{scanner.Found(f), scanner.NoFinding()}
	case "weak":
		f := models.NewFinding("fake", models.VulnXSS, task.ProbeURL("x"), task.Param, 90)
		return []scanner.Outcome{scanner.Found(f)}
	}
	return []scanner.Outcome{scanner.NoFinding(), scanner.Failed(scanner.ErrorNetwork, fmt.Errorf("refused"))}
}

// rejects XSS, accepts everything else
type typeVerifier struct{}

func (typeVerifier) Verify(_ context.Context, f models.Finding) bool {
	return f.Type != models.VulnXSS
}

type recordingSinks struct {
	mu        sync.Mutex
	saved     []models.VerifiedFinding
	notified  int
	displayed int
	appended  int
	observed  int
	scanned   int
	tasksDone int
	statuses  []string
	baselines int
}

func (r *recordingSinks) SaveFinding(_ context.Context, f models.VerifiedFinding) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved = append(r.saved, f)
	return nil
}

func (r *recordingSinks) Notify(models.VerifiedFinding) { r.inc(&r.notified) }

func (r *recordingSinks) IncrementStat(name models.StatName, delta int) {
	if name == models.StatScanned {
		r.mu.Lock()
		r.scanned += delta
		r.mu.Unlock()
	}
}

func (r *recordingSinks) AddFinding(models.VerifiedFinding) { r.inc(&r.displayed) }

func (r *recordingSinks) SetStatus(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, s)
}

func (r *recordingSinks) AppendFinding(models.VerifiedFinding) error {
	r.inc(&r.appended)
	return nil
}

func (r *recordingSinks) ObserveFinding(models.VerifiedFinding) { r.inc(&r.observed) }
func (r *recordingSinks) TaskDone()                             { r.inc(&r.tasksDone) }
func (r *recordingSinks) SetQueueDepth(int)                     {}
func (r *recordingSinks) SetInFlight(int)                       {}

func (r *recordingSinks) SetBaselines(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.baselines = n
}

func (r *recordingSinks) inc(p *int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	*p++
}

func (r *recordingSinks) sinks() Sinks {
	return Sinks{Store: r, Notifier: r, Display: r, Results: r, Metrics: r}
}

func orchestratorConfig(workers, queueSize int) config.OrchestratorConfig {
	return config.OrchestratorConfig{Concurrency: workers, QueueSize: queueSize, DequeueTimeoutMs: 10}
}

func endpointsWithTasks(n int, param string) []models.Endpoint {
	eps := make([]models.Endpoint, 0, n)
	for i := 0; i < n; i++ {
		eps = append(eps, models.Endpoint{URL: fmt.Sprintf("https://a.test/p%d", i), Params: []string{param}})
	}
	return eps
}

func TestBuildTasks(t *testing.T) {
	tasks := BuildTasks([]models.Endpoint{
		{URL: "https://a.test/x", Params: []string{"id", "page"}},
		{URL: "https://a.test/y", Params: []string{"q"}},
		{URL: "https://a.test/z"},
	})
	require.Len(t, tasks, 3)
	assert.Equal(t, 1, tasks[0].ID)
	assert.Equal(t, "page", tasks[1].Param)
	assert.Equal(t, "https://a.test/y", tasks[2].Endpoint.URL)
	assert.Equal(t, 3, tasks[2].ID)
}

func TestRun_DrainsEveryTaskExactlyOnce(t *testing.T) {
	for _, workers := range []int{1, 3, 16} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			d := newCountingDispatcher()
			o, err := New(orchestratorConfig(workers, 4), config.AnomalyConfig{}, "hackerone", Deps{Dispatcher: d, Verifier: typeVerifier{}}, zerolog.Nop())
			require.NoError(t, err)

			const m = 50
			res, err := o.Run(context.Background(), endpointsWithTasks(m, "q"))
			require.NoError(t, err)

			assert.Equal(t, int64(m), d.calls.Load())
			assert.Len(t, d.seen, m)
			for id, n := range d.seen {
				assert.Equal(t, 1, n, "task %d", id)
			}
			assert.Equal(t, m, res.Queued)
			assert.Equal(t, m, res.Processed)
			assert.Zero(t, res.Remaining)
			assert.False(t, res.Interrupted)
			assert.True(t, o.Queue().Drained())
			assert.Zero(t, o.Queue().InFlight())
			assert.False(t, o.Running())
		})
	}
}

func TestRun_VerifiedFindingsReachEverySink(t *testing.T) {
	d := newCountingDispatcher()
	rec := &recordingSinks{}
	o, err := New(orchestratorConfig(3, 2), config.AnomalyConfig{}, "bugcrowd",
		Deps{Dispatcher: d, Verifier: typeVerifier{}, Sinks: rec.sinks()}, zerolog.Nop())
	require.NoError(t, err)

	eps := []models.Endpoint{
		{URL: "https://a.test/item", Params: []string{"vuln", "q"}},
		{URL: "https://a.test/search", Params: []string{"weak"}},
		{URL: "https://a.test/other", Params: []string{"vuln"}},
	}
	res, err := o.Run(context.Background(), eps)
	require.NoError(t, err)

	require.Len(t, res.Findings, 2)
	for _, f := range res.Findings {
		assert.True(t, f.Verified)
		assert.Equal(t, "bugcrowd", f.Platform)
		assert.Equal(t, models.VulnSQLiError, f.Type)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Len(t, rec.saved, 2)
	assert.Equal(t, 2, rec.notified)
	assert.Equal(t, 2, rec.displayed)
	assert.Equal(t, 2, rec.appended)
	assert.Equal(t, 2, rec.observed)
	assert.Equal(t, 4, rec.scanned)
	assert.Equal(t, 4, rec.tasksDone)
	assert.Equal(t, []string{"scanning", "done"}, rec.statuses)
}

func TestStop_LetsInFlightTasksFinish(t *testing.T) {
	const workers = 2
	d := newCountingDispatcher()
	d.started = make(chan struct{}, 10)
	d.release = make(chan struct{})

	o, err := New(orchestratorConfig(workers, 20), config.AnomalyConfig{}, "", Deps{Dispatcher: d, Verifier: typeVerifier{}}, zerolog.Nop())
	require.NoError(t, err)

	type runOut struct {
		res *RunResult
		err error
	}
	done := make(chan runOut, 1)
	go func() {
		res, err := o.Run(context.Background(), endpointsWithTasks(10, "q"))
		done <- runOut{res, err}
	}()

	for i := 0; i < workers; i++ {
		select {
		case <-d.started:
		case <-time.After(5 * time.Second):
			t.Fatal("workers did not start")
		}
	}

	o.Stop("test")
	assert.False(t, o.Running())

	select {
	case <-done:
		t.Fatal("run returned while tasks were still in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(d.release)

	var out runOut
	select {
	case out = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after stop")
	}
	require.NoError(t, out.err)

	assert.Equal(t, int64(workers), d.calls.Load())
	assert.Equal(t, int64(workers), d.done.Load())
	assert.Equal(t, workers, out.res.Processed)
	assert.True(t, out.res.Interrupted)
	assert.LessOrEqual(t, out.res.Remaining, 10-workers)
	assert.Zero(t, o.Queue().InFlight())
}

func TestStop_BeforeRun(t *testing.T) {
	d := newCountingDispatcher()
	o, err := New(orchestratorConfig(2, 5), config.AnomalyConfig{}, "", Deps{Dispatcher: d, Verifier: typeVerifier{}}, zerolog.Nop())
	require.NoError(t, err)

	o.Stop("resource limit")
	o.Stop("again")

	res, err := o.Run(context.Background(), endpointsWithTasks(5, "q"))
	require.NoError(t, err)
	assert.Zero(t, d.calls.Load())
	assert.True(t, res.Interrupted)
	assert.Zero(t, res.Processed)
}

func TestRun_ContextCancelled(t *testing.T) {
	d := newCountingDispatcher()
	d.release = make(chan struct{})
	o, err := New(orchestratorConfig(1, 1), config.AnomalyConfig{}, "", Deps{Dispatcher: d, Verifier: typeVerifier{}}, zerolog.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
		close(d.release)
	}()

	res, err := o.Run(ctx, endpointsWithTasks(5, "q"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, res.Interrupted)
	assert.Less(t, res.Processed, 5)
}

func TestRun_OnlyOnce(t *testing.T) {
	o, err := New(orchestratorConfig(1, 1), config.AnomalyConfig{}, "", Deps{Dispatcher: newCountingDispatcher(), Verifier: typeVerifier{}}, zerolog.Nop())
	require.NoError(t, err)

	_, err = o.Run(context.Background(), nil)
	require.NoError(t, err)
	_, err = o.Run(context.Background(), nil)
	assert.Error(t, err)
}

func TestNew_RequiresDispatcherAndVerifier(t *testing.T) {
	_, err := New(orchestratorConfig(1, 1), config.AnomalyConfig{}, "", Deps{Verifier: typeVerifier{}}, zerolog.Nop())
	assert.Error(t, err)
	_, err = New(orchestratorConfig(1, 1), config.AnomalyConfig{}, "", Deps{Dispatcher: newCountingDispatcher()}, zerolog.Nop())
	assert.Error(t, err)

	o, err := New(config.OrchestratorConfig{}, config.AnomalyConfig{}, "", Deps{Dispatcher: newCountingDispatcher(), Verifier: typeVerifier{}}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, config.DefaultOrchestratorConcurrency, o.cfg.Concurrency)
}

func TestRun_PrioritizedOrder(t *testing.T) {
	d := newCountingDispatcher()
	o, err := New(orchestratorConfig(1, 10), config.AnomalyConfig{}, "",
		Deps{Dispatcher: d, Verifier: typeVerifier{}, Prioritizer: prioritizer.New(true)}, zerolog.Nop())
	require.NoError(t, err)

	_, err = o.Run(context.Background(), []models.Endpoint{
		{URL: "https://a.test/settings", Params: []string{"theme"}},
		{URL: "https://a.test/user", Params: []string{"user_id"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"user_id", "theme"}, d.order)
}

func TestRun_PauseOnFind(t *testing.T) {
	d := newCountingDispatcher()
	var pauses atomic.Int64
	cfg := orchestratorConfig(2, 5)
	cfg.PauseOnFind = true

	sinks := Sinks{Pause: func(context.Context, models.VerifiedFinding) { pauses.Add(1) }}
	o, err := New(cfg, config.AnomalyConfig{}, "", Deps{Dispatcher: d, Verifier: typeVerifier{}, Sinks: sinks}, zerolog.Nop())
	require.NoError(t, err)

	_, err = o.Run(context.Background(), endpointsWithTasks(3, "vuln"))
	require.NoError(t, err)
	assert.Equal(t, int64(3), pauses.Load())
}

func TestCollectBaselines(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Empty(t, r.URL.RawQuery)
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		fmt.Fprintf(w, "page %s", r.URL.Path)
	}))
	defer srv.Close()

	client, err := httpclient.NewHTTPClientBuilder(zerolog.Nop()).WithTimeout(5 * time.Second).Build()
	require.NoError(t, err)

	anomalyCfg := config.NewDefaultAnomalyConfig()
	anomalyCfg.MaxBaselines = 2
	engine, err := anomaly.NewEngine(anomalyCfg, zerolog.Nop())
	require.NoError(t, err)

	rec := &recordingSinks{}
	th := throttle.New(config.ThrottleConfig{}, nil, zerolog.Nop())
	d := newCountingDispatcher()
	o, err := New(orchestratorConfig(2, 5), anomalyCfg, "", Deps{
		Dispatcher: d,
		Verifier:   typeVerifier{},
		Baselines:  engine,
		Client:     client,
		Throttle:   th,
		Sinks:      Sinks{Metrics: rec},
	}, zerolog.Nop())
	require.NoError(t, err)

	eps := []models.Endpoint{
		{URL: srv.URL + "/a", Params: []string{"q"}},
		{URL: srv.URL + "/b", Params: []string{"q"}},
		{URL: srv.URL + "/c", Params: []string{"q"}},
	}
	res, err := o.Run(context.Background(), eps)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Baselines)
	assert.Equal(t, int64(2), hits.Load())
	assert.Equal(t, 2, engine.Len())
	_, ok := engine.Baseline(anomaly.Key(srv.URL+"/a?q=1", "GET"))
	assert.True(t, ok)
	assert.Equal(t, 2, rec.baselines)
	assert.Equal(t, int64(3), d.calls.Load())
}

func TestCollectBaselines_SkipsFailures(t *testing.T) {
	client, err := httpclient.NewHTTPClientBuilder(zerolog.Nop()).WithTimeout(time.Second).Build()
	require.NoError(t, err)
	engine, err := anomaly.NewEngine(config.NewDefaultAnomalyConfig(), zerolog.Nop())
	require.NoError(t, err)

	srv := httptest.NewServer(http.NotFoundHandler())
	dead := srv.URL
	srv.Close()

	o, err := New(orchestratorConfig(1, 1), config.NewDefaultAnomalyConfig(), "", Deps{
		Dispatcher: newCountingDispatcher(),
		Verifier:   typeVerifier{},
		Baselines:  engine,
		Client:     client,
		Throttle:   throttle.New(config.ThrottleConfig{}, nil, zerolog.Nop()),
	}, zerolog.Nop())
	require.NoError(t, err)

	n := o.CollectBaselines(context.Background(), []models.Endpoint{{URL: dead + "/x"}})
	assert.Zero(t, n)
	assert.Zero(t, engine.Len())
}
