package scanner

import (
	"bufio"
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/aleister1102/omnihunter/internal/common"
	"github.com/aleister1102/omnihunter/internal/config"
	"github.com/aleister1102/omnihunter/internal/models"
	"github.com/aleister1102/omnihunter/internal/throttle"
	"github.com/rs/zerolog"
)

const xssConfidence = 90

// CommandRunner runs an external tool and returns its stdout.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs the tool with os/exec, failing with ErrToolNotFound when
// it is not on PATH.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return nil, common.WrapErrorf(common.ErrToolNotFound, "%s", name)
	}
	cmd := exec.CommandContext(ctx, path, args...)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return stdout.Bytes(), ctx.Err()
		}
		return stdout.Bytes(), common.WrapErrorf(err, "%s exited", name)
	}
	return stdout.Bytes(), nil
}

// XSSScanner delegates payload generation and reflection checks to dalfox.
type XSSScanner struct {
	tool    string
	timeout time.Duration
	run     CommandRunner
	logger  zerolog.Logger
}

// NewXSSScanner is the registry factory for xss.
func NewXSSScanner(deps Dependencies) (Scanner, error) {
	tool := deps.Config.DalfoxPath
	if tool == "" {
		tool = config.DefaultDalfoxPath
	}
	run := deps.Runner
	if run == nil {
		run = ExecRunner
	}
	return &XSSScanner{
		tool:    tool,
		timeout: secs(deps.Config.XSSToolTimeoutSecs),
		run:     run,
		logger:  deps.Logger.With().Str("scanner", config.ScannerXSS).Logger(),
	}, nil
}

func (s *XSSScanner) Name() string { return config.ScannerXSS }

// Probe implements Scanner. The throttle is not used; dalfox paces itself.
func (s *XSSScanner) Probe(ctx context.Context, task models.ScanTask, _ *throttle.Throttle) Outcome {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	target := task.Endpoint.URL + "?" + task.Param + "=FUZZ"
	out, err := s.run(ctx, s.tool, "url", target, "--silence", "--only-poc")
	if poc := ParseDalfoxPOC(out); poc != "" {
		return Found(models.NewFinding(s.Name(), models.VulnXSS, poc, task.Param, xssConfidence, "dalfox poc"))
	}
	if err != nil {
		return FailedFrom(err)
	}
	return NoFinding()
}

// ParseDalfoxPOC returns the first http URL on a [POC] or [V] line.
func ParseDalfoxPOC(output []byte) string {
	sc := bufio.NewScanner(bytes.NewReader(output))
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if !strings.Contains(line, "[POC]") && !strings.Contains(line, "[V]") {
			continue
		}
		for _, field := range strings.Fields(line) {
			if strings.HasPrefix(field, "http") {
				return field
			}
		}
	}
	return ""
}
