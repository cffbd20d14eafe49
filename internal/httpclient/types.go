package httpclient

import (
	"context"
	"io"
	"time"
)

// HTTPRequest describes one outbound request.
type HTTPRequest struct {
	URL     string
	Method  string
	Headers map[string]string
	Body    io.Reader
	Context context.Context
	// Proxy overrides the client default for this request; "" uses the default.
	Proxy string
	// Direct forces a request without any proxy.
	Direct bool
	// Timeout overrides the client default for this request when positive.
	Timeout time.Duration
}

// HTTPResponse is a fully read response.
type HTTPResponse struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
	// Elapsed covers the round trip and reading the body.
	Elapsed time.Duration
}

// Header returns a response header by canonical name.
func (r *HTTPResponse) Header(name string) string {
	if r == nil {
		return ""
	}
	return r.Headers[name]
}
