package prioritizer

import (
	"sort"
	"strings"

	"github.com/aleister1102/omnihunter/internal/models"
)

const (
	// MinScore is given to a parameter matching no keyword.
	MinScore = 1
	// NeutralScore is given to every parameter when ranking is disabled.
	NeutralScore = 5
)

// KeywordScore is one row of the ranking table.
type KeywordScore struct {
	Keyword string
	Score   int
}

// DefaultTable is checked in order; the first keyword contained in the
// lowercased parameter name wins.
var DefaultTable = []KeywordScore{
	{"id", 10},
	{"file", 9},
	{"redirect", 8},
	{"url", 8},
	{"page", 7},
	{"user", 6},
	{"admin", 6},
	{"debug", 5},
	{"test", 4},
}

// Prioritizer orders endpoints by how likely their parameters are to be
// vulnerable.
type Prioritizer struct {
	enabled bool
	table   []KeywordScore
}

// New creates a prioritizer using the default table.
func New(enabled bool) *Prioritizer {
	return &Prioritizer{enabled: enabled, table: DefaultTable}
}

// NewWithTable creates a prioritizer with a custom table.
func NewWithTable(enabled bool, table []KeywordScore) *Prioritizer {
	return &Prioritizer{enabled: enabled, table: table}
}

// ScoreParameter scores one parameter name.
func (p *Prioritizer) ScoreParameter(param string) int {
	if !p.enabled {
		return NeutralScore
	}
	lower := strings.ToLower(param)
	for _, row := range p.table {
		if strings.Contains(lower, row.Keyword) {
			return row.Score
		}
	}
	return MinScore
}

// ScoreEndpoint is the highest score among the endpoint's parameters, 0
// when it has none.
func (p *Prioritizer) ScoreEndpoint(ep models.Endpoint) int {
	best := 0
	for _, param := range ep.Params {
		if s := p.ScoreParameter(param); s > best {
			best = s
		}
	}
	return best
}

// Prioritize returns endpoints sorted by descending score. Equal scores
// keep discovery order. The input slice is not modified.
func (p *Prioritizer) Prioritize(endpoints []models.Endpoint) []models.Endpoint {
	type scored struct {
		ep    models.Endpoint
		score int
	}
	ranked := make([]scored, len(endpoints))
	for i, ep := range endpoints {
		ranked[i] = scored{ep: ep, score: p.ScoreEndpoint(ep)}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	out := make([]models.Endpoint, len(ranked))
	for i, r := range ranked {
		out[i] = r.ep
	}
	return out
}
