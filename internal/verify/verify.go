// Package verify re-checks raw findings before they reach any sink.
package verify

import (
	"context"
	"sync"

	"github.com/aleister1102/omnihunter/internal/models"
	"github.com/rs/zerolog"
)

// Policy decides whether a finding of one type holds up.
type Policy interface {
	Verify(ctx context.Context, f models.Finding) (bool, error)
}

// PolicyFunc adapts a function to Policy.
type PolicyFunc func(ctx context.Context, f models.Finding) (bool, error)

func (fn PolicyFunc) Verify(ctx context.Context, f models.Finding) (bool, error) {
	return fn(ctx, f)
}

// Accept trusts the scanner's own evidence.
func Accept() Policy {
	return PolicyFunc(func(context.Context, models.Finding) (bool, error) { return true, nil })
}

// Verifier dispatches to a policy per vulnerability type. Types without a
// policy are accepted.
type Verifier struct {
	mu       sync.RWMutex
	policies map[models.VulnType]Policy
	fallback Policy
	logger   zerolog.Logger
}

// NewVerifier creates a verifier with no type specific policies.
func NewVerifier(logger zerolog.Logger) *Verifier {
	return &Verifier{
		policies: make(map[models.VulnType]Policy),
		fallback: Accept(),
		logger:   logger.With().Str("component", "Verifier").Logger(),
	}
}

// Register sets the policy for a vulnerability type.
func (v *Verifier) Register(t models.VulnType, p Policy) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.policies[t] = p
}

// Verify applies the policy for f.Type. A policy error counts as not
// verified and is only logged.
func (v *Verifier) Verify(ctx context.Context, f models.Finding) bool {
	v.mu.RLock()
	p, ok := v.policies[f.Type]
	v.mu.RUnlock()
	if !ok {
		p = v.fallback
	}

	verified, err := p.Verify(ctx, f)
	if err != nil {
		v.logger.Debug().Err(err).Str("type", string(f.Type)).Str("url", f.URL).Msg("Verification failed")
		return false
	}
	if !verified {
		v.logger.Debug().Str("type", string(f.Type)).Str("url", f.URL).Msg("Finding did not reproduce")
	}
	return verified
}
