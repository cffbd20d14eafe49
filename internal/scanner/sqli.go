package scanner

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"time"

	"github.com/aleister1102/omnihunter/internal/config"
	"github.com/aleister1102/omnihunter/internal/models"
	"github.com/aleister1102/omnihunter/internal/throttle"
	"github.com/rs/zerolog"
)

const (
	sqliTimeConfidence  = 70
	sqliErrorConfidence = 80
)

var sqlErrorSignature = regexp.MustCompile(`(?i)SQL syntax|mysql_fetch|ORA-[0-9]{5}|PostgreSQL.*ERROR|Microsoft OLE DB`)

// MatchesSQLError reports whether body contains a database error signature.
func MatchesSQLError(body []byte) bool {
	return sqlErrorSignature.Match(body)
}

// IsTimeBasedHit reports whether elapsed exceeds the latency threshold.
func IsTimeBasedHit(elapsed, threshold time.Duration) bool {
	return elapsed > threshold
}

// SQLiPayloads returns time based payloads sleeping past threshold followed
// by error based payloads.
func SQLiPayloads(threshold time.Duration) []string {
	sleep := int(math.Ceil(threshold.Seconds())) + 1
	return []string{
		fmt.Sprintf("1' AND SLEEP(%d)-- -", sleep),
		fmt.Sprintf("1 AND SLEEP(%d)", sleep),
		fmt.Sprintf("1' AND (SELECT 1 FROM PG_SLEEP(%d))-- -", sleep),
		fmt.Sprintf("1'; WAITFOR DELAY '0:0:%d'--", sleep),
		"'",
		`"`,
		"1')",
		"1 AND 1=CONVERT(int,@@version)",
	}
}

// SQLiScanner tries each payload until the first time or error based hit.
type SQLiScanner struct {
	client    Requester
	threshold time.Duration
	timeout   int
	payloads  []string
	logger    zerolog.Logger
}

// NewSQLiScanner is the registry factory for sqli.
func NewSQLiScanner(deps Dependencies) (Scanner, error) {
	threshold := deps.Config.SQLiThreshold()
	if threshold <= 0 {
		threshold = time.Duration(config.DefaultSQLiTimeThresholdSecs * float64(time.Second))
	}
	// the request must be allowed to outlive the sleep payload
	timeout := int(math.Ceil(threshold.Seconds())) + deps.Config.RequestTimeoutSecs
	return &SQLiScanner{
		client:    deps.Client,
		threshold: threshold,
		timeout:   timeout,
		payloads:  SQLiPayloads(threshold),
		logger:    deps.Logger.With().Str("scanner", config.ScannerSQLi).Logger(),
	}, nil
}

func (s *SQLiScanner) Name() string { return config.ScannerSQLi }

// Probe implements Scanner.
func (s *SQLiScanner) Probe(ctx context.Context, task models.ScanTask, th *throttle.Throttle) Outcome {
	actor := th.NewActor()
	var lastErr error
	failures := 0

	for _, payload := range s.payloads {
		probeURL := task.ProbeURL(payload)
		resp, err := probe(ctx, s.client, actor, probeURL, s.timeout)
		if err != nil {
			if ctx.Err() != nil {
				return FailedFrom(ctx.Err())
			}
			s.logger.Debug().Err(err).Str("url", probeURL).Msg("Payload request failed")
			lastErr = err
			failures++
			continue
		}

		if IsTimeBasedHit(resp.Elapsed, s.threshold) {
			f := models.NewFinding(s.Name(), models.VulnSQLiTimeBased, probeURL, task.Param, sqliTimeConfidence,
				"payload: "+payload,
				fmt.Sprintf("elapsed: %.2fs (threshold %.2fs)", resp.Elapsed.Seconds(), s.threshold.Seconds()))
			f.Elapsed = resp.Elapsed
			return Found(f)
		}
		if MatchesSQLError(resp.Body) {
			match := sqlErrorSignature.Find(resp.Body)
			return Found(models.NewFinding(s.Name(), models.VulnSQLiError, probeURL, task.Param, sqliErrorConfidence,
				"payload: "+payload,
				"signature: "+string(match)))
		}
	}

	if failures == len(s.payloads) && lastErr != nil {
		return FailedFrom(lastErr)
	}
	return NoFinding()
}
