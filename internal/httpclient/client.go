package httpclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/aleister1102/omnihunter/internal/common"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
)

const directKey = ""

// HTTPClient performs requests with an optional per-request proxy.
// One net/http client is kept per distinct proxy so connections are reused.
type HTTPClient struct {
	config       HTTPClientConfig
	logger       zerolog.Logger
	retryHandler *RetryHandler
	bufferPool   sync.Pool

	mu      sync.RWMutex
	clients map[string]*http.Client
}

// NewHTTPClient creates a new HTTP client with the given configuration
func NewHTTPClient(config HTTPClientConfig, logger zerolog.Logger) (*HTTPClient, error) {
	c := &HTTPClient{
		config:  config,
		logger:  logger.With().Str("component", "HTTPClient").Logger(),
		clients: make(map[string]*http.Client),
		bufferPool: sync.Pool{
			New: func() interface{} {
				b := make([]byte, 32*1024)
				return &b
			},
		},
	}

	// fail fast on a bad default proxy
	if _, err := c.clientFor(config.Proxy); err != nil {
		return nil, err
	}

	c.logger.Debug().
		Dur("timeout", config.Timeout).
		Bool("insecure_skip_verify", config.InsecureSkipVerify).
		Bool("follow_redirects", config.FollowRedirects).
		Int("max_redirects", config.MaxRedirects).
		Bool("http2_enabled", config.EnableHTTP2).
		Str("proxy", config.Proxy).
		Msg("HTTP client created")

	return c, nil
}

// SetRetryHandler enables retries for requests made through Do.
func (c *HTTPClient) SetRetryHandler(rh *RetryHandler) {
	c.retryHandler = rh
}

// clientFor returns the cached client for a proxy, building it on first use.
func (c *HTTPClient) clientFor(proxyAddr string) (*http.Client, error) {
	c.mu.RLock()
	client, ok := c.clients[proxyAddr]
	c.mu.RUnlock()
	if ok {
		return client, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if client, ok := c.clients[proxyAddr]; ok {
		return client, nil
	}

	client, err := c.newStdClient(proxyAddr)
	if err != nil {
		return nil, err
	}
	c.clients[proxyAddr] = client
	return client, nil
}

func (c *HTTPClient) newStdClient(proxyAddr string) (*http.Client, error) {
	dialer := &net.Dialer{
		Timeout:   c.config.DialTimeout,
		KeepAlive: c.config.KeepAlive,
	}
	transport := &http.Transport{
		MaxIdleConns:          c.config.MaxIdleConns,
		MaxIdleConnsPerHost:   c.config.MaxIdleConnsPerHost,
		MaxConnsPerHost:       c.config.MaxConnsPerHost,
		IdleConnTimeout:       c.config.IdleConnTimeout,
		TLSHandshakeTimeout:   c.config.TLSHandshakeTimeout,
		ExpectContinueTimeout: c.config.ExpectContinueTimeout,
		DialContext:           dialer.DialContext,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: c.config.InsecureSkipVerify,
		},
	}

	if proxyAddr != directKey {
		proxyURL, err := ParseProxyURL(proxyAddr)
		if err != nil {
			return nil, common.WrapError(err, "failed to parse proxy URL")
		}
		if err := applyProxy(transport, proxyURL, dialer); err != nil {
			return nil, err
		}
	}

	if c.config.EnableHTTP2 {
		if err := http2.ConfigureTransport(transport); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to configure HTTP/2, falling back to HTTP/1.1")
		}
	}

	// deadlines come from the request context, see do
	client := &http.Client{Transport: transport}

	maxRedirects := c.config.MaxRedirects
	if !c.config.FollowRedirects {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	} else if maxRedirects > 0 {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		}
	}

	return client, nil
}

// Do performs an HTTP request, with retries if a retry handler is configured.
func (c *HTTPClient) Do(req *HTTPRequest) (*HTTPResponse, error) {
	if c.retryHandler != nil {
		ctx := req.Context
		if ctx == nil {
			ctx = context.Background()
		}
		rewind, err := replayable(req)
		if err != nil {
			return nil, err
		}
		return c.retryHandler.DoWithRetry(ctx, func(r *HTTPRequest) (*HTTPResponse, error) {
			return c.do(rewind(r))
		}, req)
	}
	return c.do(req)
}

// replayable buffers a request body so every retry attempt sends it again.
func replayable(req *HTTPRequest) (func(*HTTPRequest) *HTTPRequest, error) {
	if req.Body == nil {
		return func(r *HTTPRequest) *HTTPRequest { return r }, nil
	}
	payload, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, common.WrapError(err, "failed to buffer request body")
	}
	return func(r *HTTPRequest) *HTTPRequest {
		attempt := *r
		attempt.Body = bytes.NewReader(payload)
		return &attempt
	}, nil
}

// Get is a convenience wrapper for a GET with headers.
func (c *HTTPClient) Get(ctx context.Context, url string, headers map[string]string) (*HTTPResponse, error) {
	return c.Do(&HTTPRequest{URL: url, Method: http.MethodGet, Headers: headers, Context: ctx})
}

func (c *HTTPClient) do(req *HTTPRequest) (*HTTPResponse, error) {
	proxyAddr := c.config.Proxy
	if req.Proxy != "" {
		proxyAddr = req.Proxy
	}
	if req.Direct {
		proxyAddr = directKey
	}

	client, err := c.clientFor(proxyAddr)
	if err != nil {
		return nil, err
	}

	ctx := req.Context
	if ctx == nil {
		ctx = context.Background()
	}
	// a per-request timeout replaces the default, it may be longer or shorter
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.config.Timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, req.Body)
	if err != nil {
		return nil, common.WrapError(err, "failed to create HTTP request")
	}

	for key, value := range c.config.CustomHeaders {
		httpReq.Header.Set(key, value)
	}
	if c.config.UserAgent != "" {
		httpReq.Header.Set("User-Agent", c.config.UserAgent)
	}
	// request headers win over defaults, including User-Agent
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, common.NewNetworkError(req.URL, "HTTP request failed", err)
	}
	defer resp.Body.Close()

	bufPtr := c.bufferPool.Get().(*[]byte)
	defer c.bufferPool.Put(bufPtr)
	buf := bytes.NewBuffer((*bufPtr)[:0])

	var body io.Reader = resp.Body
	if c.config.MaxBodySize > 0 {
		body = io.LimitReader(resp.Body, c.config.MaxBodySize)
	}
	if _, err := io.Copy(buf, body); err != nil {
		return nil, common.NewNetworkError(req.URL, "failed to read response body", err)
	}
	elapsed := time.Since(start)

	bodyBytes := make([]byte, buf.Len())
	copy(bodyBytes, buf.Bytes())

	httpResp := &HTTPResponse{
		StatusCode: resp.StatusCode,
		Headers:    make(map[string]string, len(resp.Header)),
		Body:       bodyBytes,
		Elapsed:    elapsed,
	}
	for key, values := range resp.Header {
		if len(values) > 0 {
			httpResp.Headers[key] = values[0]
		}
	}

	return httpResp, nil
}
