package verify

import (
	"context"
	"time"

	"github.com/aleister1102/omnihunter/internal/httpclient"
	"github.com/aleister1102/omnihunter/internal/models"
	"github.com/aleister1102/omnihunter/internal/scanner"
)

// TimingPolicy re-issues the triggering request directly and re-measures it
// against the same threshold the scanner used.
type TimingPolicy struct {
	client    scanner.Requester
	threshold time.Duration
	timeout   time.Duration
}

// NewTimingPolicy creates a policy for time-based findings.
func NewTimingPolicy(client scanner.Requester, threshold, timeout time.Duration) *TimingPolicy {
	return &TimingPolicy{client: client, threshold: threshold, timeout: timeout}
}

// Verify implements Policy. A request error means not verified.
func (p *TimingPolicy) Verify(ctx context.Context, f models.Finding) (bool, error) {
	resp, err := p.client.Do(&httpclient.HTTPRequest{
		URL:     f.URL,
		Method:  "GET",
		Context: ctx,
		Direct:  true,
		Timeout: p.threshold + p.timeout,
	})
	if err != nil {
		return false, err
	}
	return scanner.IsTimeBasedHit(resp.Elapsed, p.threshold), nil
}
