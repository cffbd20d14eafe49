package oob

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aleister1102/omnihunter/internal/config"
	"github.com/aleister1102/omnihunter/internal/httpclient"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T, serverURL string) *InteractshClient {
	t.Helper()
	hc, err := httpclient.NewHTTPClientBuilder(zerolog.Nop()).Build()
	require.NoError(t, err)
	cfg := config.NewDefaultOOBConfig()
	cfg.ServerURL = serverURL
	cfg.SecretKey = "s3cret"
	c, err := NewInteractshClient(cfg, hc, zerolog.Nop())
	require.NoError(t, err)
	return c
}

func TestNewToken(t *testing.T) {
	a, b := NewToken(), NewToken()
	assert.Len(t, a, 12)
	assert.NotEqual(t, a, b)
	assert.NotContains(t, a, "-")
}

func TestCallbackURL(t *testing.T) {
	c := newClient(t, "https://oast.example")
	got := c.CallbackURL("ABC123")
	assert.Equal(t, "http://abc123."+c.CorrelationID()+".oast.example/", got)
	assert.Len(t, c.CorrelationID(), 20)
}

func TestHasInteracted(t *testing.T) {
	var polls atomic.Int32
	var token string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/poll", r.URL.Path)
		assert.Equal(t, "s3cret", r.URL.Query().Get("secret"))
		if polls.Add(1) == 1 {
			_, _ = w.Write([]byte(`{"data":[]}`))
			return
		}
		_, _ = w.Write([]byte(`{"data":[{"protocol":"http","unique-id":"` + token + `","full-id":"` + token + `.` + r.URL.Query().Get("id") + `"}]}`))
	}))
	defer server.Close()

	c := newClient(t, server.URL)
	token = NewToken()

	hit, err := c.HasInteracted(context.Background(), token)
	require.NoError(t, err)
	assert.False(t, hit)

	hit, err = c.HasInteracted(context.Background(), strings.ToUpper(token))
	require.NoError(t, err)
	assert.True(t, hit)

	// served from the local cache, no further poll
	hit, err = c.HasInteracted(context.Background(), token)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, int32(2), polls.Load())
	assert.Len(t, c.Interactions(), 1)
}

func TestPoll_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("id") == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	c := newClient(t, server.URL)
	_, err := c.HasInteracted(context.Background(), "tok")
	assert.Error(t, err)
}

func TestPoll_RetriesBusyServer(t *testing.T) {
	var polls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if polls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"data":[{"protocol":"dns","unique-id":"abc"}]}`))
	}))
	defer server.Close()

	hc, err := httpclient.NewHTTPClientBuilder(zerolog.Nop()).
		WithRetry(httpclient.RetryHandlerConfig{
			MaxRetries:       2,
			BaseDelay:        time.Millisecond,
			MaxDelay:         5 * time.Millisecond,
			RetryStatusCodes: []int{http.StatusBadGateway},
		}).
		Build()
	require.NoError(t, err)
	cfg := config.NewDefaultOOBConfig()
	cfg.ServerURL = server.URL
	c, err := NewInteractshClient(cfg, hc, zerolog.Nop())
	require.NoError(t, err)

	got, err := c.Poll(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, int32(2), polls.Load())
}

func TestPoll_BadJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer server.Close()

	_, err := newClient(t, server.URL).Poll(context.Background())
	assert.ErrorContains(t, err, "decode")
}

func TestNewInteractshClient_InvalidURL(t *testing.T) {
	hc, err := httpclient.NewHTTPClientBuilder(zerolog.Nop()).Build()
	require.NoError(t, err)
	_, err = NewInteractshClient(config.OOBConfig{ServerURL: "not a url"}, hc, zerolog.Nop())
	assert.Error(t, err)
}
