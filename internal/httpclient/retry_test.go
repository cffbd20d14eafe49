package httpclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetryConfig() RetryHandlerConfig {
	return RetryHandlerConfig{
		MaxRetries:       2,
		BaseDelay:        5 * time.Millisecond,
		MaxDelay:         20 * time.Millisecond,
		RetryStatusCodes: []int{429, 503},
	}
}

func TestRetryHandler_CalculateDelay(t *testing.T) {
	rh := NewRetryHandler(RetryHandlerConfig{BaseDelay: time.Second, MaxDelay: 5 * time.Second}, zerolog.Nop())

	assert.Equal(t, time.Second, rh.CalculateDelay(0))
	assert.Equal(t, 2*time.Second, rh.CalculateDelay(1))
	assert.Equal(t, 4*time.Second, rh.CalculateDelay(2))
	assert.Equal(t, 5*time.Second, rh.CalculateDelay(5))

	jittered := NewRetryHandler(RetryHandlerConfig{BaseDelay: time.Second, MaxDelay: 5 * time.Second, EnableJitter: true}, zerolog.Nop())
	d := jittered.CalculateDelay(0)
	assert.GreaterOrEqual(t, d, time.Second)
	assert.Less(t, d, 1100*time.Millisecond)
}

func TestRetryHandler_RetriesRetryableStatus(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	client := newTestClient(t, NewHTTPClientBuilder(zerolog.Nop()).WithRetry(fastRetryConfig()))
	resp, err := client.Do(&HTTPRequest{URL: server.URL})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRetryHandler_ResendsRequestBody(t *testing.T) {
	var calls atomic.Int32
	var bodies []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(raw))
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := newTestClient(t, NewHTTPClientBuilder(zerolog.Nop()).WithRetry(fastRetryConfig()))
	resp, err := client.Do(&HTTPRequest{URL: server.URL, Method: http.MethodPost, Body: strings.NewReader(`{"a":1}`)})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, []string{`{"a":1}`, `{"a":1}`}, bodies)
}

func TestRetryHandler_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := newTestClient(t, NewHTTPClientBuilder(zerolog.Nop()).WithRetry(fastRetryConfig()))
	resp, err := client.Do(&HTTPRequest{URL: server.URL})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRetryHandler_NonRetryableStatusReturnsImmediately(t *testing.T) {
	rh := NewRetryHandler(fastRetryConfig(), zerolog.Nop())
	calls := 0
	resp, err := rh.DoWithRetry(context.Background(), func(*HTTPRequest) (*HTTPResponse, error) {
		calls++
		return &HTTPResponse{StatusCode: http.StatusNotFound}, nil
	}, &HTTPRequest{URL: "http://x"})

	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, 1, calls)
}

func TestRetryHandler_NetworkErrors(t *testing.T) {
	rh := NewRetryHandler(fastRetryConfig(), zerolog.Nop())
	calls := 0
	_, err := rh.DoWithRetry(context.Background(), func(*HTTPRequest) (*HTTPResponse, error) {
		calls++
		return nil, errors.New("connection reset")
	}, &HTTPRequest{URL: "http://x"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "all retry attempts failed")
	assert.Equal(t, 3, calls)
}

func TestRetryHandler_ContextCancelled(t *testing.T) {
	rh := NewRetryHandler(fastRetryConfig(), zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := rh.DoWithRetry(ctx, func(*HTTPRequest) (*HTTPResponse, error) {
		t.Fatal("should not be called")
		return nil, nil
	}, &HTTPRequest{URL: "http://x"})
	assert.ErrorIs(t, err, context.Canceled)
}
