package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/aleister1102/omnihunter/internal/common"
	"github.com/aleister1102/omnihunter/internal/httpclient"
	"github.com/aleister1102/omnihunter/internal/models"

	"github.com/rs/zerolog"
)

// Notifier delivers a verified finding to one channel.
type Notifier interface {
	Name() string
	Send(ctx context.Context, f models.VerifiedFinding) error
}

// Poster is the HTTP capability channels use to deliver payloads.
type Poster interface {
	Do(req *httpclient.HTTPRequest) (*httpclient.HTTPResponse, error)
}

// Manager fans a finding out to every configured channel. Each channel runs in
// its own goroutine and a failing channel never affects the others.
type Manager struct {
	channels []Notifier
	timeout  time.Duration
	logger   zerolog.Logger
	wg       sync.WaitGroup
}

// NewManager creates a manager over channels. A zero timeout defaults to 10s.
func NewManager(channels []Notifier, timeout time.Duration, logger zerolog.Logger) *Manager {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Manager{
		channels: channels,
		timeout:  timeout,
		logger:   logger.With().Str("component", "Notifier").Logger(),
	}
}

// Channels lists the names of configured channels.
func (m *Manager) Channels() []string {
	names := make([]string, 0, len(m.channels))
	for _, ch := range m.channels {
		names = append(names, ch.Name())
	}
	return names
}

// Notify sends f to every channel without blocking the caller.
func (m *Manager) Notify(f models.VerifiedFinding) {
	if m == nil {
		return
	}
	for _, ch := range m.channels {
		m.wg.Add(1)
		go func(ch Notifier) {
			defer m.wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
			defer cancel()

			if err := ch.Send(ctx, f); err != nil {
				m.logger.Warn().Err(err).Str("channel", ch.Name()).Str("url", f.URL).Msg("Notification failed")
				return
			}
			m.logger.Debug().Str("channel", ch.Name()).Str("url", f.URL).Msg("Notification sent")
		}(ch)
	}
}

// Wait blocks until every in-flight notification finished or ctx is done.
func (m *Manager) Wait(ctx context.Context) error {
	if m == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// postJSON sends payload to endpoint and treats any non-2xx status as an error.
func postJSON(ctx context.Context, client Poster, endpoint string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return common.WrapError(err, "failed to marshal notification payload")
	}

	resp, err := client.Do(&httpclient.HTTPRequest{
		URL:     endpoint,
		Method:  http.MethodPost,
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    bytes.NewReader(body),
		Context: ctx,
		Direct:  true,
	})
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return common.NewHTTPErrorWithURL(resp.StatusCode, truncate(string(resp.Body), 200), endpoint)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
