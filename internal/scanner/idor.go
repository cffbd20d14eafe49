package scanner

import (
	"context"
	"net/http"
	"regexp"
	"strconv"

	"github.com/aleister1102/omnihunter/internal/anomaly"
	"github.com/aleister1102/omnihunter/internal/common"
	"github.com/aleister1102/omnihunter/internal/config"
	"github.com/aleister1102/omnihunter/internal/models"
	"github.com/aleister1102/omnihunter/internal/throttle"
)

const (
	idorConfidence     = 40
	idorMinChangeChars = 64
)

var errorPageSignature = regexp.MustCompile(`(?i)not found|access denied|unauthori[sz]ed|forbidden|invalid (id|request)|error`)

// baselineDiffer is the part of anomaly.Engine the IDOR scanner reads.
type baselineDiffer interface {
	Baseline(key string) (*anomaly.Baseline, bool)
	Diff(key string, resp anomaly.Response) (anomaly.DiffStatistics, bool)
}

// IDORScanner walks a numeric parameter to its neighbours and flags a 200
// response whose body materially differs from the baseline.
type IDORScanner struct {
	client  Requester
	engine  baselineDiffer
	timeout int
}

// NewIDORScanner is the registry factory for idor.
func NewIDORScanner(deps Dependencies) (Scanner, error) {
	if deps.Anomaly == nil {
		return nil, common.NewConfigurationError("anomaly_config", "enabled", "idor scanner needs anomaly detection")
	}
	return &IDORScanner{client: deps.Client, engine: deps.Anomaly, timeout: deps.Config.RequestTimeoutSecs}, nil
}

func (s *IDORScanner) Name() string { return config.ScannerIDOR }

// Probe implements Scanner.
func (s *IDORScanner) Probe(ctx context.Context, task models.ScanTask, th *throttle.Throttle) Outcome {
	raw, ok := task.Endpoint.SampleValue(task.Param)
	if !ok {
		return NoFinding()
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return NoFinding()
	}

	key := anomaly.Key(task.Endpoint.URL, "GET")
	base, ok := s.engine.Baseline(key)
	if !ok {
		return NoFinding()
	}

	actor := th.NewActor()
	for _, candidate := range []int64{n + 1, n - 1} {
		if candidate < 0 {
			continue
		}
		probeURL := task.ProbeURL(strconv.FormatInt(candidate, 10))
		resp, err := probe(ctx, s.client, actor, probeURL, s.timeout)
		if err != nil {
			return FailedFrom(err)
		}
		if resp.StatusCode != http.StatusOK || errorPageSignature.Match(resp.Body) {
			continue
		}

		stats, ok := s.engine.Diff(key, anomaly.FromHTTP(resp))
		if !ok {
			return NoFinding()
		}
		if !materialChange(stats, base.Length) {
			continue
		}
		return Found(models.NewFinding(s.Name(), models.VulnIDOR, probeURL, task.Param, idorConfidence,
			"original value: "+raw,
			"probed value: "+strconv.FormatInt(candidate, 10),
			stats.String()))
	}
	return NoFinding()
}

// materialChange ignores small diffs such as rotating tokens or timestamps.
func materialChange(stats anomaly.DiffStatistics, baseLen int) bool {
	if stats.IsIdentical {
		return false
	}
	need := idorMinChangeChars
	if pct := baseLen / 20; pct > need {
		need = pct
	}
	return stats.Changed() >= need
}
