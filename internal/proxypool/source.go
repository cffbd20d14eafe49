package proxypool

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/aleister1102/omnihunter/internal/common"
	"github.com/aleister1102/omnihunter/internal/httpclient"
)

// Source yields candidate proxy addresses (host:port).
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]string, error)
}

var hostPortLine = regexp.MustCompile(`^\s*([0-9]{1,3}(?:\.[0-9]{1,3}){3}):([0-9]{1,5})\s*$`)

// HTTPSource downloads a public proxy list. Plain text lists are read one
// ip:port per line; HTML pages are scanned for ip/port table cells.
type HTTPSource struct {
	url    string
	client *httpclient.HTTPClient
}

// NewHTTPSource creates a source for a list URL
func NewHTTPSource(url string, client *httpclient.HTTPClient) *HTTPSource {
	return &HTTPSource{url: url, client: client}
}

func (s *HTTPSource) Name() string { return s.url }

// Fetch downloads the list directly, never through another proxy.
func (s *HTTPSource) Fetch(ctx context.Context) ([]string, error) {
	resp, err := s.client.Do(&httpclient.HTTPRequest{
		URL:     s.url,
		Context: ctx,
		Direct:  true,
	})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, common.NewHTTPErrorWithURL(resp.StatusCode, "unexpected status fetching proxy list", s.url)
	}

	if isHTML(resp.Header("Content-Type"), resp.Body) {
		return ParseHTMLTable(resp.Body)
	}
	return ParseTextList(resp.Body), nil
}

func isHTML(contentType string, body []byte) bool {
	if strings.Contains(strings.ToLower(contentType), "html") {
		return true
	}
	trimmed := bytes.TrimSpace(body)
	return len(trimmed) > 0 && trimmed[0] == '<'
}

// ParseTextList returns every valid ip:port line.
func ParseTextList(body []byte) []string {
	var out []string
	for _, line := range strings.Split(string(body), "\n") {
		m := hostPortLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if addr, ok := validAddress(m[1], m[2]); ok {
			out = append(out, addr)
		}
	}
	return out
}

// ParseHTMLTable reads table rows whose first two cells are an IP and a port.
func ParseHTMLTable(body []byte) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, common.WrapError(err, "failed to parse proxy list HTML")
	}

	var out []string
	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}
		ip := strings.TrimSpace(cells.Eq(0).Text())
		port := strings.TrimSpace(cells.Eq(1).Text())
		if addr, ok := validAddress(ip, port); ok {
			out = append(out, addr)
		}
	})
	return out, nil
}

func validAddress(ip, port string) (string, bool) {
	if net.ParseIP(ip) == nil || ip == "0.0.0.0" {
		return "", false
	}
	p, err := strconv.Atoi(port)
	if err != nil || p < 1 || p > 65535 {
		return "", false
	}
	return fmt.Sprintf("%s:%d", ip, p), true
}
