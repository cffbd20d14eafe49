package scanner

import (
	"context"
	"errors"

	"github.com/aleister1102/omnihunter/internal/anomaly"
	"github.com/aleister1102/omnihunter/internal/common"
	"github.com/aleister1102/omnihunter/internal/config"
	"github.com/aleister1102/omnihunter/internal/models"
	"github.com/aleister1102/omnihunter/internal/throttle"
)

const businessLogicConfidence = 50

// BusinessLogicScanner sends a perturbed value and asks the anomaly engine
// whether the response strays from the endpoint baseline.
type BusinessLogicScanner struct {
	client  Requester
	engine  *anomaly.Engine
	value   string
	timeout int
}

// NewBusinessLogicScanner is the registry factory for business_logic.
func NewBusinessLogicScanner(deps Dependencies) (Scanner, error) {
	if deps.Anomaly == nil {
		return nil, common.NewConfigurationError("anomaly_config", "enabled", "business logic scanner needs anomaly detection")
	}
	value := deps.Config.BusinessLogicValue
	if value == "" {
		value = config.DefaultBusinessLogicValue
	}
	return &BusinessLogicScanner{
		client:  deps.Client,
		engine:  deps.Anomaly,
		value:   value,
		timeout: deps.Config.RequestTimeoutSecs,
	}, nil
}

func (s *BusinessLogicScanner) Name() string { return config.ScannerBusinessLogic }

// Probe implements Scanner.
func (s *BusinessLogicScanner) Probe(ctx context.Context, task models.ScanTask, th *throttle.Throttle) Outcome {
	probeURL := task.ProbeURL(s.value)
	resp, err := probe(ctx, s.client, th.NewActor(), probeURL, s.timeout)
	if err != nil {
		return FailedFrom(err)
	}

	isAnomaly, reasons, err := s.engine.Detect(anomaly.Key(task.Endpoint.URL, "GET"), anomaly.FromHTTP(resp))
	if err != nil {
		if errors.Is(err, common.ErrNoBaseline) {
			return NoFinding()
		}
		return Failed(ErrorInternal, err)
	}
	if !isAnomaly {
		return NoFinding()
	}
	return Found(models.NewFinding(s.Name(), models.VulnBusinessLogic, probeURL, task.Param, businessLogicConfidence, reasons...))
}
