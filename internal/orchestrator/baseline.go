package orchestrator

import (
	"context"
	"net/http"
	"time"

	"github.com/aleister1102/omnihunter/internal/anomaly"
	"github.com/aleister1102/omnihunter/internal/httpclient"
	"github.com/aleister1102/omnihunter/internal/models"
)

// CollectBaselines sends one clean GET per endpoint, in order, and records
// the responses. At most anomaly max_baselines endpoints are sampled (0
// means all). Consecutive requests are spaced by the throttle delay.
// Request failures are logged and skipped. Returns the number recorded.
func (o *Orchestrator) CollectBaselines(ctx context.Context, endpoints []models.Endpoint) int {
	if o.deps.Baselines == nil || o.deps.Client == nil || o.deps.Throttle == nil {
		o.logger.Debug().Msg("Baseline collection skipped, collaborators not configured")
		return 0
	}

	limit := len(endpoints)
	if o.anomalyCfg.MaxBaselines > 0 && o.anomalyCfg.MaxBaselines < limit {
		limit = o.anomalyCfg.MaxBaselines
	}
	timeout := time.Duration(o.anomalyCfg.BaselineTimeoutSecs) * time.Second

	actor := o.deps.Throttle.NewActor()
	recorded := 0

	for _, ep := range endpoints[:limit] {
		id, err := actor.Next(ctx, ep.URL)
		if err != nil {
			o.logger.Warn().Err(err).Msg("Baseline collection interrupted")
			break
		}

		resp, err := o.deps.Client.Do(id.Apply(&httpclient.HTTPRequest{
			URL:     ep.URL,
			Method:  http.MethodGet,
			Context: ctx,
			Timeout: timeout,
		}))
		if err != nil {
			o.logger.Debug().Err(err).Str("endpoint", ep.URL).Msg("Baseline request failed")
			continue
		}

		if o.deps.Baselines.Record(anomaly.Key(ep.URL, http.MethodGet), anomaly.FromHTTP(resp)) {
			recorded++
		}
	}

	if m := o.deps.Sinks.Metrics; m != nil {
		m.SetBaselines(o.deps.Baselines.Len())
	}
	o.logger.Info().Int("baselines", recorded).Int("sampled", limit).Msg("Baselines collected")
	return recorded
}
