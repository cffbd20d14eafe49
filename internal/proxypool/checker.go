package proxypool

import (
	"context"
	"net/http"
	"time"

	"github.com/aleister1102/omnihunter/internal/httpclient"
)

// Checker decides whether a proxy can relay a request.
type Checker interface {
	Check(ctx context.Context, addr string) (bool, time.Duration)
}

// HTTPChecker issues one GET to testURL through the candidate proxy.
type HTTPChecker struct {
	client  *httpclient.HTTPClient
	testURL string
	timeout time.Duration
}

// NewHTTPChecker creates a checker with a per-candidate timeout
func NewHTTPChecker(client *httpclient.HTTPClient, testURL string, timeout time.Duration) *HTTPChecker {
	return &HTTPChecker{client: client, testURL: testURL, timeout: timeout}
}

// Check reports a healthy proxy only on HTTP 200.
func (c *HTTPChecker) Check(ctx context.Context, addr string) (bool, time.Duration) {
	resp, err := c.client.Do(&httpclient.HTTPRequest{
		URL:     c.testURL,
		Context: ctx,
		Proxy:   addr,
		Timeout: c.timeout,
	})
	if err != nil {
		return false, 0
	}
	return resp.StatusCode == http.StatusOK, resp.Elapsed
}
