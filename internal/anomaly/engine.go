package anomaly

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aleister1102/omnihunter/internal/common"
	"github.com/aleister1102/omnihunter/internal/config"
	"github.com/rs/zerolog"
	"github.com/spaolacci/murmur3"
)

// NoBaselineReason is the single reason returned when nothing was recorded.
const NoBaselineReason = "no baseline"

type keywordPattern struct {
	source string
	re     *regexp.Regexp
}

// Engine records one baseline per key and compares later responses
// against it. Baselines are written during collection and only read
// while scanning.
type Engine struct {
	threshold float64
	patterns  []keywordPattern
	differ    *BodyDiffer
	logger    zerolog.Logger

	mu        sync.RWMutex
	baselines map[string]*Baseline
}

// NewEngine compiles the keyword patterns case-insensitively.
func NewEngine(cfg config.AnomalyConfig, logger zerolog.Logger) (*Engine, error) {
	threshold := cfg.LengthThreshold
	if threshold <= 0 {
		threshold = config.DefaultAnomalyLengthThreshold
	}

	patterns := make([]keywordPattern, 0, len(cfg.KeywordPatterns))
	for _, p := range cfg.KeywordPatterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, common.NewValidationError("keyword_patterns", p, err.Error())
		}
		patterns = append(patterns, keywordPattern{source: p, re: re})
	}

	return &Engine{
		threshold: threshold,
		patterns:  patterns,
		differ:    NewBodyDiffer(),
		logger:    logger.With().Str("component", "AnomalyEngine").Logger(),
		baselines: make(map[string]*Baseline),
	}, nil
}

// Record stores the baseline for key. A key is written at most once; a
// second call is ignored and returns false.
func (e *Engine) Record(key string, resp Response) bool {
	b := &Baseline{
		StatusCode: resp.StatusCode,
		Length:     len(resp.Body),
		Headers:    copyHeaders(resp.Headers),
		HeaderHash: headerFingerprint(resp.Headers),
		BodyHash:   murmur3.Sum64(resp.Body),
		Keywords:   e.matchKeywords(resp.Body),
		body:       truncateBody(resp.Body),
		RecordedAt: time.Now(),
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.baselines[key]; exists {
		return false
	}
	e.baselines[key] = b

	e.logger.Debug().Str("key", key).Int("status", b.StatusCode).Int("length", b.Length).Msg("Baseline recorded")
	return true
}

// Baseline returns the recorded baseline for key.
func (e *Engine) Baseline(key string) (*Baseline, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	b, ok := e.baselines[key]
	return b, ok
}

// Len returns the number of recorded baselines.
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.baselines)
}

// Detect compares resp with the baseline for key. The reasons of the
// status, length and keyword signals are returned in that order. Without
// a baseline it reports no anomaly, the reason "no baseline" and
// ErrNoBaseline.
func (e *Engine) Detect(key string, resp Response) (bool, []string, error) {
	base, ok := e.Baseline(key)
	if !ok {
		return false, []string{NoBaselineReason}, common.WrapErrorf(common.ErrNoBaseline, "key %s", key)
	}

	var reasons []string

	if resp.StatusCode != base.StatusCode {
		reasons = append(reasons, fmt.Sprintf("Status %d -> %d", base.StatusCode, resp.StatusCode))
	}

	newLen := len(resp.Body)
	if delta := LengthDelta(base.Length, newLen); delta > e.threshold {
		reasons = append(reasons, fmt.Sprintf("Length %d -> %d (%.1f%% change)", base.Length, newLen, delta*100))
	}

	if added := e.newKeywords(base.Keywords, resp.Body); len(added) > 0 {
		reasons = append(reasons, "New keywords: "+strings.Join(added, ", "))
	}

	return len(reasons) > 0, reasons, nil
}

// Diff summarizes how resp differs from the recorded baseline. A body
// with the baseline's hash is identical without running the diff.
func (e *Engine) Diff(key string, resp Response) (DiffStatistics, bool) {
	base, ok := e.Baseline(key)
	if !ok {
		return DiffStatistics{}, false
	}

	var stats DiffStatistics
	if murmur3.Sum64(resp.Body) == base.BodyHash {
		stats = DiffStatistics{IsIdentical: true}
	} else {
		stats = e.differ.Compare(base.body, truncateBody(resp.Body))
	}
	stats.HeadersChanged = headerFingerprint(resp.Headers) != base.HeaderHash
	return stats, true
}

// LengthDelta is |new-base|/base, defined as 0 when base is 0.
func LengthDelta(base, current int) float64 {
	if base == 0 {
		return 0
	}
	diff := current - base
	if diff < 0 {
		diff = -diff
	}
	return float64(diff) / float64(base)
}

func (e *Engine) matchKeywords(body []byte) map[string]struct{} {
	found := make(map[string]struct{})
	for _, p := range e.patterns {
		if p.re.Match(body) {
			found[p.source] = struct{}{}
		}
	}
	return found
}

// newKeywords lists patterns matching body but not the baseline, in
// configured order.
func (e *Engine) newKeywords(baseline map[string]struct{}, body []byte) []string {
	var added []string
	for _, p := range e.patterns {
		if _, had := baseline[p.source]; had {
			continue
		}
		if p.re.Match(body) {
			added = append(added, p.source)
		}
	}
	return added
}

// Keys returns recorded keys in sorted order.
func (e *Engine) Keys() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	keys := make([]string, 0, len(e.baselines))
	for k := range e.baselines {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
