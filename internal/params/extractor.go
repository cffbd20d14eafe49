package params

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/aleister1102/omnihunter/internal/common"
	"github.com/aleister1102/omnihunter/internal/models"

	"github.com/rs/zerolog"
)

// junkParams are analytics and tracking parameters that never reach the app logic.
var junkParams = map[string]struct{}{
	"utm_source": {}, "utm_medium": {}, "utm_campaign": {}, "utm_term": {}, "utm_content": {},
	"fbclid": {}, "gclid": {}, "_ga": {}, "_gl": {}, "mc_cid": {}, "mc_eid": {},
	"_bta_tid": {}, "_bta_c": {},
}

// junkPrefixes catch the trk* and utm_* families.
var junkPrefixes = []string{"utm_", "trk"}

// interestingKeywords mark parameter names worth testing when they appear anywhere in the name.
var interestingKeywords = []string{
	"id", "file", "redirect", "url", "page", "path", "doc", "view", "dir", "show", "cat",
	"action", "mode", "type", "name", "user", "profile", "order", "sort", "filter", "search",
	"query", "return", "next", "prev", "refer", "callback", "data", "json", "xml", "template",
	"include", "load", "read", "import", "export", "download", "upload", "img", "image",
	"icon", "avatar", "photo", "picture",
}

// Extractor turns raw URLs into endpoints with the parameters worth scanning.
type Extractor struct {
	scope  *regexp.Regexp
	logger zerolog.Logger
}

// NewExtractor compiles scope, which is matched from the start of each URL. An empty scope accepts everything.
func NewExtractor(scope string, logger zerolog.Logger) (*Extractor, error) {
	e := &Extractor{logger: logger.With().Str("component", "ParamExtractor").Logger()}
	if scope != "" {
		re, err := regexp.Compile("^(?:" + scope + ")")
		if err != nil {
			return nil, common.WrapErrorf(err, "invalid scope regex '%s'", scope)
		}
		e.scope = re
	}
	return e, nil
}

// InScope reports whether rawURL passes the scope filter.
func (e *Extractor) InScope(rawURL string) bool {
	return e.scope == nil || e.scope.MatchString(rawURL)
}

// Extract groups parameters by endpoint. Endpoints and parameters keep the
// order in which they were first seen; endpoints without a kept parameter are dropped.
func (e *Extractor) Extract(urls []string) []models.Endpoint {
	var (
		order   []string
		byURL   = make(map[string]*models.Endpoint)
		seen    = make(map[string]map[string]struct{})
		skipped int
	)

	for _, raw := range urls {
		if !e.InScope(raw) {
			skipped++
			continue
		}

		u, err := url.Parse(strings.TrimSpace(raw))
		if err != nil || u.Scheme == "" || u.Host == "" {
			skipped++
			continue
		}
		base := u.Scheme + "://" + u.Host + u.EscapedPath()

		for _, pv := range parseQueryOrdered(u.RawQuery) {
			if IsJunk(pv.name) || !IsInteresting(pv.name, pv.values) {
				continue
			}

			ep, ok := byURL[base]
			if !ok {
				ep = &models.Endpoint{URL: base, Samples: make(map[string]string)}
				byURL[base] = ep
				seen[base] = make(map[string]struct{})
				order = append(order, base)
			}
			if _, dup := seen[base][pv.name]; dup {
				continue
			}
			seen[base][pv.name] = struct{}{}
			ep.Params = append(ep.Params, pv.name)
			if len(pv.values) > 0 {
				ep.Samples[pv.name] = pv.values[0]
			}
		}
	}

	out := make([]models.Endpoint, 0, len(order))
	for _, base := range order {
		out = append(out, *byURL[base])
	}

	e.logger.Debug().Int("urls", len(urls)).Int("skipped", skipped).Int("endpoints", len(out)).Msg("Parameters extracted")
	return out
}

// IsJunk reports whether name is a tracking parameter.
func IsJunk(name string) bool {
	lower := strings.ToLower(name)
	if _, ok := junkParams[lower]; ok {
		return true
	}
	for _, p := range junkPrefixes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}

// IsInteresting keeps a parameter whose name contains a known keyword or
// whose values look like numbers, paths or file/host names.
func IsInteresting(name string, values []string) bool {
	lower := strings.ToLower(name)
	for _, k := range interestingKeywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	for _, v := range values {
		if isDigits(v) || strings.HasPrefix(v, "/") || strings.Contains(v, ".") {
			return true
		}
	}
	return false
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

type paramValues struct {
	name   string
	values []string
}

// parseQueryOrdered is url.ParseQuery that keeps first-seen key order and skips undecodable pairs.
func parseQueryOrdered(rawQuery string) []paramValues {
	var (
		out   []paramValues
		index = make(map[string]int)
	)
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		k, err := url.QueryUnescape(key)
		if err != nil || k == "" {
			continue
		}
		v, err := url.QueryUnescape(value)
		if err != nil {
			continue
		}
		if i, ok := index[k]; ok {
			out[i].values = append(out[i].values, v)
			continue
		}
		index[k] = len(out)
		out = append(out, paramValues{name: k, values: []string{v}})
	}
	return out
}
