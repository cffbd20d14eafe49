package verify

import (
	"time"

	"github.com/aleister1102/omnihunter/internal/config"
	"github.com/aleister1102/omnihunter/internal/models"
	"github.com/aleister1102/omnihunter/internal/scanner"
	"github.com/rs/zerolog"
)

// NewFromConfig registers the built-in policies: time-based SQLi is re-timed,
// SSRF is accepted since the interaction was already observed, and XSS is
// loaded in a browser when a detector is given. Everything else is accepted.
func NewFromConfig(scanCfg config.ScannerConfig, client scanner.Requester, detector DialogDetector, logger zerolog.Logger) *Verifier {
	v := NewVerifier(logger)
	v.Register(models.VulnSQLiTimeBased, NewTimingPolicy(client, scanCfg.SQLiThreshold(), time.Duration(scanCfg.RequestTimeoutSecs)*time.Second))
	v.Register(models.VulnSSRF, Accept())
	if detector != nil {
		v.Register(models.VulnXSS, NewBrowserPolicy(detector))
	}
	return v
}
