package scanner

import (
	"context"
	"time"

	"github.com/aleister1102/omnihunter/internal/common"
	"github.com/aleister1102/omnihunter/internal/config"
	"github.com/aleister1102/omnihunter/internal/models"
	"github.com/aleister1102/omnihunter/internal/oob"
	"github.com/aleister1102/omnihunter/internal/throttle"
	"github.com/rs/zerolog"
)

const ssrfConfidence = 85

// SSRFScanner plants a callback URL and asks the listener whether it was hit.
type SSRFScanner struct {
	client   Requester
	listener oob.Listener
	settle   time.Duration
	timeout  int
	newToken func() string
	logger   zerolog.Logger
}

// NewSSRFScanner is the registry factory for ssrf.
func NewSSRFScanner(deps Dependencies) (Scanner, error) {
	if deps.OOB == nil {
		return nil, common.NewConfigurationError("oob_config", "server_url", "ssrf scanner needs an interaction listener")
	}
	return &SSRFScanner{
		client:   deps.Client,
		listener: deps.OOB,
		settle:   secs(deps.Config.SSRFSettleSecs),
		timeout:  deps.Config.SSRFRequestTimeoutSec,
		newToken: oob.NewToken,
		logger:   deps.Logger.With().Str("scanner", config.ScannerSSRF).Logger(),
	}, nil
}

func (s *SSRFScanner) Name() string { return config.ScannerSSRF }

// Probe implements Scanner. The probe request itself may fail or time out;
// only the listener decides the result.
func (s *SSRFScanner) Probe(ctx context.Context, task models.ScanTask, th *throttle.Throttle) Outcome {
	token := s.newToken()
	callback := s.listener.CallbackURL(token)
	probeURL := task.ProbeURL(callback)

	if _, err := probe(ctx, s.client, th.NewActor(), probeURL, s.timeout); err != nil {
		if ctx.Err() != nil {
			return FailedFrom(ctx.Err())
		}
		s.logger.Debug().Err(err).Str("url", probeURL).Msg("SSRF probe request failed")
	}

	timer := time.NewTimer(s.settle)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return FailedFrom(ctx.Err())
	case <-timer.C:
	}

	hit, err := s.listener.HasInteracted(ctx, token)
	if err != nil {
		return Failed(ErrorOOB, err)
	}
	if !hit {
		return NoFinding()
	}
	return Found(models.NewFinding(s.Name(), models.VulnSSRF, probeURL, task.Param, ssrfConfidence,
		"token: "+token,
		"callback: "+callback))
}
