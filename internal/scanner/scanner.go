// Package scanner holds the probe strategies and the engine that runs them
// concurrently for one scan task.
package scanner

import (
	"context"

	"github.com/aleister1102/omnihunter/internal/anomaly"
	"github.com/aleister1102/omnihunter/internal/config"
	"github.com/aleister1102/omnihunter/internal/httpclient"
	"github.com/aleister1102/omnihunter/internal/models"
	"github.com/aleister1102/omnihunter/internal/oob"
	"github.com/aleister1102/omnihunter/internal/throttle"
	"github.com/rs/zerolog"
)

// Scanner probes one endpoint parameter for one vulnerability class.
// Implementations must not panic on transient failures; they report them
// as an error Outcome instead.
type Scanner interface {
	Name() string
	Probe(ctx context.Context, task models.ScanTask, th *throttle.Throttle) Outcome
}

// Requester is the HTTP capability scanners use.
type Requester interface {
	Do(req *httpclient.HTTPRequest) (*httpclient.HTTPResponse, error)
}

// Dependencies are the collaborators a scanner factory may use.
type Dependencies struct {
	Client  Requester
	Anomaly *anomaly.Engine
	OOB     oob.Listener
	Config  config.ScannerConfig
	Logger  zerolog.Logger
	// Runner executes external tools; nil means os/exec.
	Runner CommandRunner
}

// probe sends one throttled GET for the actor and returns the response.
func probe(ctx context.Context, client Requester, actor *throttle.Actor, probeURL string, timeout int) (*httpclient.HTTPResponse, error) {
	id, err := actor.Next(ctx, probeURL)
	if err != nil {
		return nil, err
	}
	req := id.Apply(&httpclient.HTTPRequest{
		URL:     probeURL,
		Method:  "GET",
		Context: ctx,
		Timeout: secs(timeout),
	})
	return client.Do(req)
}
