package models

import (
	"net/url"
	"strings"

	"github.com/aleister1102/omnihunter/internal/common"
)

// Endpoint is a scan target: a URL without query or fragment plus the
// parameter names discovered for it. Treat it as read-only once built.
type Endpoint struct {
	URL    string   `json:"url"`
	Params []string `json:"params"`
	// Samples holds the first value seen for each parameter, if any.
	Samples map[string]string `json:"samples,omitempty"`
}

// NewEndpoint normalizes rawURL to scheme://host/path and copies params.
func NewEndpoint(rawURL string, params []string) (Endpoint, error) {
	base, err := NormalizeEndpointURL(rawURL)
	if err != nil {
		return Endpoint{}, err
	}
	return Endpoint{URL: base, Params: append([]string(nil), params...)}, nil
}

// NormalizeEndpointURL strips the query string and fragment from rawURL.
func NormalizeEndpointURL(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", common.WrapErrorf(err, "failed to parse endpoint url '%s'", rawURL)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", common.NewValidationError("url", rawURL, "absolute http(s) url required")
	}
	u.RawQuery = ""
	u.ForceQuery = false
	u.Fragment = ""
	u.RawFragment = ""
	return u.String(), nil
}

// SampleValue returns the first observed value of param.
func (e Endpoint) SampleValue(param string) (string, bool) {
	v, ok := e.Samples[param]
	return v, ok
}

// URLWithParam returns the endpoint URL carrying a single encoded param=value pair.
func (e Endpoint) URLWithParam(param, value string) string {
	q := url.Values{}
	q.Set(param, value)
	return e.URL + "?" + q.Encode()
}

// ScanTask is one (endpoint, parameter) unit of queued work.
type ScanTask struct {
	ID       int      `json:"id"`
	Endpoint Endpoint `json:"endpoint"`
	Param    string   `json:"param"`
}

// ProbeURL is shorthand for Endpoint.URLWithParam on the task's parameter.
func (t ScanTask) ProbeURL(value string) string {
	return t.Endpoint.URLWithParam(t.Param, value)
}
