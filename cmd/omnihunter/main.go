package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aleister1102/omnihunter/internal/anomaly"
	"github.com/aleister1102/omnihunter/internal/config"
	"github.com/aleister1102/omnihunter/internal/datastore"
	"github.com/aleister1102/omnihunter/internal/discovery"
	"github.com/aleister1102/omnihunter/internal/display"
	"github.com/aleister1102/omnihunter/internal/httpclient"
	"github.com/aleister1102/omnihunter/internal/logger"
	"github.com/aleister1102/omnihunter/internal/metrics"
	"github.com/aleister1102/omnihunter/internal/models"
	"github.com/aleister1102/omnihunter/internal/notifier"
	"github.com/aleister1102/omnihunter/internal/oob"
	"github.com/aleister1102/omnihunter/internal/orchestrator"
	"github.com/aleister1102/omnihunter/internal/params"
	"github.com/aleister1102/omnihunter/internal/prioritizer"
	"github.com/aleister1102/omnihunter/internal/proxypool"
	"github.com/aleister1102/omnihunter/internal/rslimiter"
	"github.com/aleister1102/omnihunter/internal/scanner"
	"github.com/aleister1102/omnihunter/internal/throttle"
	"github.com/aleister1102/omnihunter/internal/verify"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func main() {
	fmt.Println("OmniHunter starting...")

	flags := ParseFlags()

	log.Println("[INFO] Main: Attempting to load global configuration...")
	configPath := config.GetConfigPath(flags.GlobalConfigFile)
	gCfg, err := config.LoadGlobalConfig(configPath)
	if err != nil {
		log.Fatalf("[FATAL] Main: Could not load global config using path '%s': %v", configPath, err)
	}
	applyFlags(gCfg, flags)

	if err := config.ValidateConfig(gCfg); err != nil {
		log.Fatalf("[FATAL] Main: %v", err)
	}
	if gCfg.Target == "" && gCfg.DiscoveryConfig.URLFile == "" {
		log.Fatalln("[FATAL] Main: -target or -urls is required")
	}

	scanID := uuid.NewString()
	zLogger, err := logger.NewWithScanID(gCfg.LogConfig, scanID)
	if err != nil {
		log.Fatalf("[FATAL] Main: Could not initialize logger: %v", err)
	}
	zLogger = zLogger.With().Str("scan_id", scanID).Logger()
	zLogger.Info().Str("target", gCfg.Target).Str("config", configPath).Msg("Configuration loaded and validated")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx, gCfg, zLogger); err != nil {
		zLogger.Error().Err(err).Msg("OmniHunter finished with errors")
		os.Exit(1)
	}
	zLogger.Info().Msg("OmniHunter finished")
}

// applyFlags lets command-line flags win over file values.
func applyFlags(cfg *config.GlobalConfig, flags AppFlags) {
	if flags.Target != "" {
		cfg.Target = flags.Target
	}
	if flags.Platform != "" {
		cfg.Platform = flags.Platform
	}
	if flags.URLFile != "" {
		cfg.DiscoveryConfig.URLFile = flags.URLFile
	}
	if flags.OutputFile != "" {
		cfg.OrchestratorConfig.OutputFile = flags.OutputFile
	}
	if flags.Threads > 0 {
		cfg.OrchestratorConfig.Concurrency = flags.Threads
	}
	if flags.AllScanners {
		cfg.ScannerConfig.AllScanners = true
	}
	if flags.DeepScan {
		cfg.ScannerConfig.DeepScan = true
	}
	if flags.NoProxy {
		cfg.ProxyConfig.UseFree = false
	}
	if flags.PauseOnFind {
		cfg.OrchestratorConfig.PauseOnFind = true
	}
	if flags.Verbose {
		cfg.Verbose = true
	}
	if flags.Debug {
		cfg.Debug = true
		cfg.LogConfig.LogLevel = "debug"
	}
}

// countParams is the number of endpoint x parameter pairs to scan.
func countParams(endpoints []models.Endpoint) int {
	n := 0
	for _, ep := range endpoints {
		n += len(ep.Params)
	}
	return n
}

// seedURLs turns a bare domain into a crawlable URL.
func seedURLs(target string) []string {
	target = strings.TrimSpace(target)
	if target == "" {
		return nil
	}
	if !strings.Contains(target, "://") {
		target = "https://" + target
	}
	return []string{target}
}

func run(ctx context.Context, gCfg *config.GlobalConfig, zLogger zerolog.Logger) error {
	client, err := httpclient.NewHTTPClientBuilder(zLogger).
		WithTimeout(time.Duration(gCfg.ScannerConfig.RequestTimeoutSecs) * time.Second).
		Build()
	if err != nil {
		return fmt.Errorf("failed to create http client: %w", err)
	}
	// probes are timed, so only auxiliary traffic retries
	auxClient, err := httpclient.NewHTTPClientBuilder(zLogger).
		WithTimeout(time.Duration(gCfg.ScannerConfig.RequestTimeoutSecs) * time.Second).
		WithRetry(httpclient.DefaultRetryHandlerConfig()).
		Build()
	if err != nil {
		return fmt.Errorf("failed to create http client: %w", err)
	}

	recorder, err := metrics.NewRecorder()
	if err != nil {
		zLogger.Warn().Err(err).Msg("Metrics disabled")
	}
	if gCfg.MetricsConfig.Enabled && recorder != nil {
		srv, err := metrics.Serve(gCfg.MetricsConfig, recorder, zLogger)
		if err != nil {
			zLogger.Error().Err(err).Msg("Failed to start metrics server")
		} else {
			defer func() {
				closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer closeCancel()
				_ = srv.Close(closeCtx)
			}()
		}
	}

	var proxies throttle.ProxyProvider
	if gCfg.ProxyConfig.UseFree {
		pool := proxypool.NewFromConfig(gCfg.ProxyConfig, auxClient, client, zLogger)
		pool.OnRefresh(recorder.SetProxyPoolSize)
		n, err := pool.Refresh(ctx)
		if err != nil {
			zLogger.Warn().Err(err).Msg("Some proxy sources failed")
		}
		zLogger.Info().Int("proxies", n).Msg("Proxy pool ready")
		if interval := gCfg.ProxyConfig.RefreshInterval(); interval > 0 {
			pool.StartRefresher(ctx, interval)
		}
		proxies = pool
	}
	th := throttle.New(gCfg.ThrottleConfig, proxies, zLogger)

	store, err := datastore.NewStore(gCfg.StorageConfig.DBPathFor(gCfg.Target), zLogger)
	if err != nil {
		zLogger.Fatal().Err(err).Msg("Could not open the scan database")
	}
	defer func() {
		if err := store.Close(); err != nil {
			zLogger.Error().Err(err).Msg("Failed to close the scan database")
		}
	}()

	results, err := datastore.NewResultFile(gCfg.OrchestratorConfig.OutputFile, zLogger)
	if err != nil {
		return fmt.Errorf("failed to open output file: %w", err)
	}

	notify := notifier.NewFromConfig(gCfg.NotificationConfig, auxClient, zLogger)

	disp := display.New(gCfg.DisplayConfig, os.Stdout, zLogger)
	disp.Start(ctx)
	defer disp.Stop()

	// Discovery and parameter extraction
	disp.SetStatus("discovering")
	discoverer := discovery.NewFromConfig(gCfg.DiscoveryConfig, client, zLogger)
	urls, err := discoverer.Run(ctx, seedURLs(gCfg.Target))
	if err != nil {
		zLogger.Warn().Err(err).Msg("Discovery finished with errors")
	}
	disp.UpdateStats(models.StatsUpdate{models.StatRecon: len(urls)})
	if _, err := store.SaveURLs(ctx, urls); err != nil {
		zLogger.Error().Err(err).Msg("Failed to save discovered URLs")
	}
	if path, err := datastore.WriteURLList(".", urls); err != nil {
		zLogger.Error().Err(err).Msg("Failed to write URL list")
	} else {
		zLogger.Info().Str("file", path).Int("urls", len(urls)).Msg("Discovered URLs written")
	}

	extractor, err := params.NewExtractor(gCfg.DiscoveryConfig.Scope, zLogger)
	if err != nil {
		return err
	}
	endpoints := extractor.Extract(urls)
	paramCount := countParams(endpoints)
	disp.UpdateStats(models.StatsUpdate{models.StatParams: paramCount})
	if _, err := store.SaveEndpoints(ctx, endpoints); err != nil {
		zLogger.Error().Err(err).Msg("Failed to save endpoints")
	}
	if _, err := datastore.WriteEndpointList(".", endpoints); err != nil {
		zLogger.Error().Err(err).Msg("Failed to write endpoint list")
	}
	if paramCount == 0 {
		zLogger.Warn().Msg("No testable parameters found, nothing to scan")
		return results.WriteSummary(gCfg.Target, gCfg.Platform, nil)
	}

	// Scanning collaborators
	var engine *anomaly.Engine
	if gCfg.AnomalyConfig.Enabled {
		engine, err = anomaly.NewEngine(gCfg.AnomalyConfig, zLogger)
		if err != nil {
			return err
		}
	}

	deps := scanner.Dependencies{
		Client:  client,
		Anomaly: engine,
		Config:  gCfg.ScannerConfig,
		Logger:  zLogger,
	}
	if listener, err := oob.NewInteractshClient(gCfg.OOBConfig, auxClient, zLogger); err != nil {
		zLogger.Warn().Err(err).Msg("Out-of-band listener unavailable")
	} else {
		deps.OOB = listener
	}

	scanners, err := scanner.DefaultRegistry().Build(gCfg.ScannerConfig.ActiveScanners(), deps)
	if err != nil {
		zLogger.Fatal().Err(err).Msg("Scanner configuration is invalid")
	}
	dispatcher := scanner.NewDispatcher(scanners, th, recorder, zLogger)

	var detector verify.DialogDetector
	if gCfg.VerifyConfig.XSSBrowserVerify {
		browser := verify.NewHeadlessBrowser(gCfg.VerifyConfig.ChromePath, time.Duration(gCfg.VerifyConfig.BrowserTimeoutSecs)*time.Second, zLogger)
		defer browser.Close()
		detector = browser
	}
	verifier := verify.NewFromConfig(gCfg.ScannerConfig, client, detector, zLogger)

	orchDeps := orchestrator.Deps{
		Dispatcher:  dispatcher,
		Verifier:    verifier,
		Prioritizer: prioritizer.New(gCfg.PrioritizerConfig.Enabled),
		Client:      client,
		Throttle:    th,
		Sinks: orchestrator.Sinks{
			Store:    store,
			Notifier: notify,
			Display:  disp,
			Results:  results,
			Metrics:  recorder,
			Pause:    stdinPause(os.Stdin, disp),
		},
	}
	if engine != nil {
		orchDeps.Baselines = engine
	}

	orch, err := orchestrator.New(gCfg.OrchestratorConfig, gCfg.AnomalyConfig, gCfg.Platform, orchDeps, zLogger)
	if err != nil {
		return err
	}

	limiter := rslimiter.NewResourceLimiter(gCfg.ResourceLimiterConfig, rslimiter.SystemSampler{CPUWindow: time.Second}, zLogger)
	limiter.SetShutdownCallback(orch.Stop)
	limiter.Start(ctx)
	defer limiter.Stop()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case sig := <-sigChan:
			orch.Stop("signal " + sig.String())
		case <-ctx.Done():
		}
	}()

	result, runErr := orch.Run(ctx, endpoints)
	if runErr != nil {
		zLogger.Error().Err(runErr).Msg("Scan run failed")
	}

	findings := orch.Findings()
	if err := results.WriteSummary(gCfg.Target, gCfg.Platform, findings); err != nil {
		zLogger.Error().Err(err).Msg("Failed to write summary report")
	}

	if archiver, err := datastore.NewArchiveWriter(gCfg.StorageConfig, zLogger); err != nil {
		zLogger.Warn().Err(err).Msg("Findings archive disabled")
	} else if len(findings) > 0 {
		if _, err := archiver.Write(ctx, gCfg.Target, findings); err != nil {
			zLogger.Error().Err(err).Msg("Failed to archive findings")
		}
	}

	waitCtx, waitCancel := context.WithTimeout(context.Background(), time.Duration(gCfg.NotificationConfig.TimeoutSecs+5)*time.Second)
	defer waitCancel()
	if err := notify.Wait(waitCtx); err != nil {
		zLogger.Warn().Err(err).Msg("Some notifications were still pending")
	}

	if gCfg.Verbose {
		printFindings(os.Stdout, findings)
	}

	if result != nil {
		zLogger.Info().
			Int("queued", result.Queued).
			Int("processed", result.Processed).
			Int("baselines", result.Baselines).
			Int("findings", len(result.Findings)).
			Bool("interrupted", result.Interrupted).
			Str("output", results.Path()).
			Msg("Scan summary")
	}
	return runErr
}

func printFindings(w io.Writer, findings []models.VerifiedFinding) {
	fmt.Fprintf(w, "\n%d verified finding(s)\n", len(findings))
	for _, f := range findings {
		fmt.Fprintf(w, "  [%s] %s param=%s confidence=%d\n", f.Type, f.URL, f.Param, f.Confidence)
	}
}

// stdinPause blocks until the operator presses Enter.
func stdinPause(in io.Reader, disp *display.Display) orchestrator.PauseFunc {
	reader := bufio.NewReader(in)
	return func(ctx context.Context, f models.VerifiedFinding) {
		disp.SetStatus("paused")
		fmt.Printf("\n[!] %s at %s (param %s). Press Enter to continue...\n", f.Type, f.URL, f.Param)

		done := make(chan struct{})
		go func() {
			_, _ = reader.ReadString('\n')
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
		}
		disp.SetStatus("scanning")
	}
}
