package models

import (
	"strings"
	"time"
)

// VulnType labels what a finding claims to have found.
type VulnType string

const (
	VulnSQLiTimeBased VulnType = "SQLi (time-based)"
	VulnSQLiError     VulnType = "SQLi (error)"
	VulnXSS           VulnType = "XSS"
	VulnSSRF          VulnType = "SSRF"
	VulnBusinessLogic VulnType = "Business Logic"
	VulnIDOR          VulnType = "IDOR"
)

const (
	MinConfidenceScore = 0
	MaxConfidenceScore = 100
)

// Finding is a raw result produced by one scanner strategy.
type Finding struct {
	URL        string        `json:"url"`
	Param      string        `json:"param"`
	Type       VulnType      `json:"type"`
	Confidence int           `json:"confidence"`
	Details    []string      `json:"details,omitempty"`
	Platform   string        `json:"platform,omitempty"`
	Scanner    string        `json:"scanner,omitempty"`
	Elapsed    time.Duration `json:"elapsed,omitempty"`
	DetectedAt time.Time     `json:"detected_at"`
}

// NewFinding builds a finding with a clamped confidence score.
func NewFinding(scanner string, vulnType VulnType, probeURL, param string, confidence int, details ...string) Finding {
	return Finding{
		URL:        probeURL,
		Param:      param,
		Type:       vulnType,
		Confidence: ClampConfidence(confidence),
		Details:    append([]string(nil), details...),
		Scanner:    scanner,
		DetectedAt: time.Now(),
	}
}

// ClampConfidence keeps a score within [0,100].
func ClampConfidence(score int) int {
	if score < MinConfidenceScore {
		return MinConfidenceScore
	}
	if score > MaxConfidenceScore {
		return MaxConfidenceScore
	}
	return score
}

// DetailsString joins details for single-line sinks.
func (f Finding) DetailsString() string {
	return strings.Join(f.Details, "; ")
}

// VerifiedFinding is the terminal form of a finding. It is the only
// entity forwarded to storage, notification and display.
type VerifiedFinding struct {
	Finding
	Verified   bool      `json:"verified"`
	VerifiedAt time.Time `json:"verified_at"`
}

// NewVerifiedFinding copies f so later changes to the raw finding do not leak.
func NewVerifiedFinding(f Finding, platform string, verified bool) VerifiedFinding {
	f.Details = append([]string(nil), f.Details...)
	f.Confidence = ClampConfidence(f.Confidence)
	if platform != "" {
		f.Platform = platform
	}
	return VerifiedFinding{
		Finding:    f,
		Verified:   verified,
		VerifiedAt: time.Now(),
	}
}
