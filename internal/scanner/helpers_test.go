package scanner

import (
	"sync"
	"testing"

	"github.com/aleister1102/omnihunter/internal/config"
	"github.com/aleister1102/omnihunter/internal/httpclient"
	"github.com/aleister1102/omnihunter/internal/models"
	"github.com/aleister1102/omnihunter/internal/throttle"
	"github.com/rs/zerolog"
)

type fakeRequester struct {
	mu       sync.Mutex
	requests []*httpclient.HTTPRequest
	respond  func(req *httpclient.HTTPRequest) (*httpclient.HTTPResponse, error)
}

func (f *fakeRequester) Do(req *httpclient.HTTPRequest) (*httpclient.HTTPResponse, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	return f.respond(req)
}

func (f *fakeRequester) urls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.requests))
	for i, r := range f.requests {
		out[i] = r.URL
	}
	return out
}

func noDelayThrottle() *throttle.Throttle {
	return throttle.New(config.ThrottleConfig{}, nil, zerolog.Nop())
}

func testDeps(client Requester) Dependencies {
	return Dependencies{
		Client: client,
		Config: config.NewDefaultScannerConfig(),
		Logger: zerolog.Nop(),
	}
}

func testTask(t *testing.T, rawURL, param string) models.ScanTask {
	t.Helper()
	ep, err := models.NewEndpoint(rawURL, []string{param})
	if err != nil {
		t.Fatal(err)
	}
	return models.ScanTask{ID: 1, Endpoint: ep, Param: param}
}
