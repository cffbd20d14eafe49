package anomaly

import (
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/aleister1102/omnihunter/internal/httpclient"
	"github.com/spaolacci/murmur3"
)

// maxStoredBody bounds the body kept per baseline for diff summaries.
const maxStoredBody = 64 * 1024

// Response is what the engine needs from an HTTP response.
type Response struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
}

// FromHTTP adapts a client response.
func FromHTTP(resp *httpclient.HTTPResponse) Response {
	if resp == nil {
		return Response{}
	}
	return Response{StatusCode: resp.StatusCode, Headers: resp.Headers, Body: resp.Body}
}

// Baseline is the reference fingerprint of one endpoint.
type Baseline struct {
	StatusCode int
	Length     int
	Headers    map[string]string
	HeaderHash uint64
	BodyHash   uint64
	Keywords   map[string]struct{}
	body       string
	RecordedAt time.Time
}

// Key builds the baseline key: URL without query or fragment, a pipe, then
// the method. Parameter values are deliberately not part of the key.
func Key(rawURL, method string) string {
	base := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		u.RawQuery = ""
		u.Fragment = ""
		base = u.String()
	} else if i := strings.IndexAny(rawURL, "?#"); i >= 0 {
		base = rawURL[:i]
	}
	if method == "" {
		method = "GET"
	}
	return base + "|" + strings.ToUpper(method)
}

// headerFingerprint hashes the sorted header names so that header order
// and volatile values like Date do not matter.
func headerFingerprint(headers map[string]string) uint64 {
	names := make([]string, 0, len(headers))
	for k := range headers {
		names = append(names, strings.ToLower(k))
	}
	sort.Strings(names)
	return murmur3.Sum64([]byte(strings.Join(names, "\n")))
}

func copyHeaders(h map[string]string) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out
}

func truncateBody(body []byte) string {
	if len(body) > maxStoredBody {
		body = body[:maxStoredBody]
	}
	return string(body)
}
