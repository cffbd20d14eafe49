package scanner

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/aleister1102/omnihunter/internal/common"
	"github.com/aleister1102/omnihunter/internal/models"
)

// OutcomeKind distinguishes a hit, a clean miss and a failed probe.
type OutcomeKind int

const (
	OutcomeNoFinding OutcomeKind = iota
	OutcomeFinding
	OutcomeError
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeFinding:
		return "finding"
	case OutcomeError:
		return "error"
	default:
		return "no_finding"
	}
}

// ErrorKind classifies why a probe failed.
type ErrorKind string

const (
	ErrorNetwork  ErrorKind = "network"
	ErrorTimeout  ErrorKind = "timeout"
	ErrorCanceled ErrorKind = "canceled"
	ErrorTool     ErrorKind = "tool"
	ErrorOOB      ErrorKind = "oob"
	ErrorInternal ErrorKind = "internal"
)

// Outcome is the result of one scanner on one task.
type Outcome struct {
	Scanner   string
	Kind      OutcomeKind
	Finding   *models.Finding
	ErrorKind ErrorKind
	Err       error
	Duration  time.Duration
}

// Found wraps a finding.
func Found(f models.Finding) Outcome {
	f.Confidence = models.ClampConfidence(f.Confidence)
	return Outcome{Kind: OutcomeFinding, Finding: &f}
}

// NoFinding is the normal "not vulnerable" result.
func NoFinding() Outcome {
	return Outcome{Kind: OutcomeNoFinding}
}

// Failed reports a probe error of the given kind.
func Failed(kind ErrorKind, err error) Outcome {
	return Outcome{Kind: OutcomeError, ErrorKind: kind, Err: err}
}

// FailedFrom classifies err and reports it.
func FailedFrom(err error) Outcome {
	return Failed(ClassifyError(err), err)
}

// ClassifyError maps an error to an ErrorKind.
func ClassifyError(err error) ErrorKind {
	var netErr net.Error
	switch {
	case err == nil:
		return ErrorInternal
	case errors.Is(err, context.Canceled):
		return ErrorCanceled
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, common.ErrTimeout):
		return ErrorTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		return ErrorTimeout
	case errors.Is(err, common.ErrToolNotFound):
		return ErrorTool
	}

	var nwErr *common.NetworkError
	if errors.As(err, &nwErr) || errors.As(err, &netErr) || errors.Is(err, common.ErrNetworkFailure) {
		return ErrorNetwork
	}
	return ErrorInternal
}
