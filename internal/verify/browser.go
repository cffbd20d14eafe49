package verify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aleister1102/omnihunter/internal/models"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog"
)

// DialogDetector loads a URL and reports whether it opened a JavaScript dialog.
type DialogDetector interface {
	OpensDialog(ctx context.Context, url string) (bool, error)
}

// BrowserPolicy confirms XSS findings by loading them in a browser.
type BrowserPolicy struct {
	detector DialogDetector
}

// NewBrowserPolicy creates an XSS policy.
func NewBrowserPolicy(detector DialogDetector) *BrowserPolicy {
	return &BrowserPolicy{detector: detector}
}

// Verify implements Policy.
func (p *BrowserPolicy) Verify(ctx context.Context, f models.Finding) (bool, error) {
	return p.detector.OpensDialog(ctx, f.URL)
}

// HeadlessBrowser drives one lazily launched Chrome through go-rod.
type HeadlessBrowser struct {
	chromePath string
	timeout    time.Duration
	logger     zerolog.Logger

	mu       sync.Mutex
	browser  *rod.Browser
	launcher *launcher.Launcher
}

// NewHeadlessBrowser creates a browser that starts on first use.
func NewHeadlessBrowser(chromePath string, timeout time.Duration, logger zerolog.Logger) *HeadlessBrowser {
	return &HeadlessBrowser{
		chromePath: chromePath,
		timeout:    timeout,
		logger:     logger.With().Str("component", "HeadlessBrowser").Logger(),
	}
}

func (hb *HeadlessBrowser) start() (*rod.Browser, error) {
	hb.mu.Lock()
	defer hb.mu.Unlock()

	if hb.browser != nil {
		return hb.browser, nil
	}

	l := launcher.New().Headless(true)
	if hb.chromePath != "" {
		l = l.Bin(hb.chromePath)
	}
	l = l.
		Set("no-sandbox").
		Set("disable-dev-shm-usage").
		Set("disable-gpu").
		Set("no-first-run").
		Set("disable-default-apps").
		Set("disable-sync")

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("failed to connect browser: %w", err)
	}

	hb.browser = browser
	hb.launcher = l
	hb.logger.Info().Msg("Headless browser started")
	return browser, nil
}

// OpensDialog implements DialogDetector. Dialogs are accepted so the page
// does not hang.
func (hb *HeadlessBrowser) OpensDialog(ctx context.Context, url string) (bool, error) {
	browser, err := hb.start()
	if err != nil {
		return false, err
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, hb.timeout)
	defer cancel()

	page, err := browser.Context(timeoutCtx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return false, fmt.Errorf("failed to create page: %w", err)
	}
	defer page.Close()

	opened := make(chan string, 1)
	wait := page.EachEvent(func(e *proto.PageJavascriptDialogOpening) bool {
		select {
		case opened <- e.Message:
		default:
		}
		_ = proto.PageHandleJavaScriptDialog{Accept: true}.Call(page)
		return true
	})
	go wait()

	if err := page.Navigate(url); err != nil {
		return false, fmt.Errorf("failed to navigate to %s: %w", url, err)
	}

	select {
	case msg := <-opened:
		hb.logger.Debug().Str("url", url).Str("message", msg).Msg("Dialog opened")
		return true, nil
	case <-timeoutCtx.Done():
		return false, nil
	}
}

// Close shuts the browser down if it was started.
func (hb *HeadlessBrowser) Close() {
	hb.mu.Lock()
	defer hb.mu.Unlock()

	if hb.browser != nil {
		_ = hb.browser.Close()
		hb.browser = nil
	}
	if hb.launcher != nil {
		hb.launcher.Cleanup()
		hb.launcher = nil
	}
}
