package urlhandler

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var (
	unsafeFilenameCharsRegex = regexp.MustCompile(`[^a-zA-Z0-9_.-]+`)
	multipleUnderscoresRegex = regexp.MustCompile(`_+`)
)

// NormalizeURL trims rawURL, adds http:// when no scheme is given, lowercases
// the host and drops the fragment.
func NormalizeURL(rawURL string) (string, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return "", errors.New("URL is empty or only whitespace")
	}

	if !strings.Contains(trimmed, "://") && !strings.HasPrefix(trimmed, "//") {
		trimmed = "http://" + trimmed
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("could not parse URL '%s': %w", trimmed, err)
	}
	if parsed.Scheme == "" {
		parsed.Scheme = "http"
	}
	if parsed.Host == "" {
		return "", errors.New("URL lacks a valid hostname")
	}

	parsed.Host = strings.ToLower(parsed.Host)
	parsed.Fragment = ""
	parsed.RawFragment = ""
	return parsed.String(), nil
}

// ResolveURL resolves href against base and normalizes the result. A nil
// base requires href to be absolute.
func ResolveURL(href string, base *url.URL) (string, error) {
	trimmed := strings.TrimSpace(href)
	if trimmed == "" {
		return "", errors.New("href is empty")
	}

	if base == nil {
		parsed, err := url.Parse(trimmed)
		if err != nil {
			return "", fmt.Errorf("error parsing href '%s': %w", trimmed, err)
		}
		if !parsed.IsAbs() {
			return "", fmt.Errorf("cannot resolve relative URL '%s' without a base URL", trimmed)
		}
		return NormalizeURL(parsed.String())
	}

	resolved, err := base.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("error resolving href '%s' against '%s': %w", trimmed, base.String(), err)
	}
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme in '%s'", trimmed)
	}
	return NormalizeURL(resolved.String())
}

// Hostname returns the lowercased host of rawURL without port.
func Hostname(rawURL string) string {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Hostname())
}

// SameHost reports whether two URLs point at the same hostname.
func SameHost(a, b string) bool {
	ha := Hostname(a)
	return ha != "" && ha == Hostname(b)
}

// SanitizeFilename creates a filesystem-safe name from a URL or any string.
func SanitizeFilename(input string) string {
	name := input
	if i := strings.Index(name, "://"); i != -1 {
		name = name[i+3:]
	}
	name = unsafeFilenameCharsRegex.ReplaceAllString(name, "_")
	name = multipleUnderscoresRegex.ReplaceAllString(name, "_")
	name = strings.Trim(name, "_")
	if name == "" {
		return "sanitized_empty_input"
	}
	return name
}

// Dedupe returns urls without repeats, keeping first-seen order.
func Dedupe(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}
