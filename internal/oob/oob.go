// Package oob talks to an interactsh style out-of-band interaction server.
package oob

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/aleister1102/omnihunter/internal/common"
	"github.com/aleister1102/omnihunter/internal/config"
	"github.com/aleister1102/omnihunter/internal/httpclient"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Listener hands out callback URLs and reports whether one was hit.
type Listener interface {
	CallbackURL(token string) string
	HasInteracted(ctx context.Context, token string) (bool, error)
}

// Interaction is one callback observed by the server.
type Interaction struct {
	Protocol      string    `json:"protocol"`
	UniqueID      string    `json:"unique-id"`
	FullID        string    `json:"full-id"`
	RawRequest    string    `json:"raw-request"`
	RemoteAddress string    `json:"remote-address"`
	Timestamp     time.Time `json:"timestamp"`
}

func (i Interaction) mentions(token string) bool {
	return strings.Contains(strings.ToLower(i.FullID), token) ||
		strings.Contains(strings.ToLower(i.UniqueID), token) ||
		strings.Contains(i.RawRequest, token)
}

// NewToken returns a random DNS-label safe token.
func NewToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// InteractshClient polls one correlation id. Interactions are drained by the
// server on every poll, so everything seen is kept locally and shared by
// all tokens.
type InteractshClient struct {
	serverURL     string
	host          string
	secretKey     string
	correlationID string
	pollTimeout   time.Duration
	client        *httpclient.HTTPClient
	logger        zerolog.Logger

	mu   sync.Mutex
	seen []Interaction
}

// NewInteractshClient creates a client for the configured server.
func NewInteractshClient(cfg config.OOBConfig, client *httpclient.HTTPClient, logger zerolog.Logger) (*InteractshClient, error) {
	u, err := url.Parse(cfg.ServerURL)
	if err != nil || u.Host == "" {
		return nil, common.NewValidationError("oob.server_url", cfg.ServerURL, "absolute url required")
	}

	return &InteractshClient{
		serverURL:     strings.TrimRight(cfg.ServerURL, "/"),
		host:          u.Hostname(),
		secretKey:     cfg.SecretKey,
		correlationID: strings.ReplaceAll(uuid.NewString(), "-", "")[:20],
		pollTimeout:   time.Duration(cfg.PollTimeoutSecs) * time.Second,
		client:        client,
		logger:        logger.With().Str("component", "Interactsh").Logger(),
	}, nil
}

// CorrelationID returns the id every callback host is nested under.
func (c *InteractshClient) CorrelationID() string {
	return c.correlationID
}

// CallbackURL formats http://<token>.<correlation>.<server>/.
func (c *InteractshClient) CallbackURL(token string) string {
	return fmt.Sprintf("http://%s.%s.%s/", strings.ToLower(token), c.correlationID, c.host)
}

// HasInteracted polls the server once and reports whether any interaction
// seen so far carries token.
func (c *InteractshClient) HasInteracted(ctx context.Context, token string) (bool, error) {
	token = strings.ToLower(token)
	if c.seenToken(token) {
		return true, nil
	}

	fresh, err := c.Poll(ctx)
	if err != nil {
		return false, err
	}
	for _, i := range fresh {
		if i.mentions(token) {
			return true, nil
		}
	}
	return false, nil
}

func (c *InteractshClient) seenToken(token string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, i := range c.seen {
		if i.mentions(token) {
			return true
		}
	}
	return false
}

// Poll fetches new interactions for the correlation id.
func (c *InteractshClient) Poll(ctx context.Context) ([]Interaction, error) {
	q := url.Values{}
	q.Set("id", c.correlationID)
	q.Set("secret", c.secretKey)
	pollURL := c.serverURL + "/poll?" + q.Encode()

	resp, err := c.client.Do(&httpclient.HTTPRequest{
		URL:     pollURL,
		Context: ctx,
		Direct:  true,
		Timeout: c.pollTimeout,
	})
	if err != nil {
		return nil, common.WrapError(err, "interaction poll failed")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, common.NewHTTPErrorWithURL(resp.StatusCode, "interaction poll failed", c.serverURL)
	}

	var pollResp struct {
		Data []Interaction `json:"data"`
	}
	if err := json.Unmarshal(resp.Body, &pollResp); err != nil {
		return nil, common.WrapError(err, "failed to decode poll response")
	}

	if len(pollResp.Data) > 0 {
		c.mu.Lock()
		c.seen = append(c.seen, pollResp.Data...)
		c.mu.Unlock()
		c.logger.Debug().Int("count", len(pollResp.Data)).Msg("Received interactions")
	}
	return pollResp.Data, nil
}

// Interactions returns a copy of everything seen so far.
func (c *InteractshClient) Interactions() []Interaction {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Interaction(nil), c.seen...)
}
