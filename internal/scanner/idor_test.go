package scanner

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aleister1102/omnihunter/internal/anomaly"
	"github.com/aleister1102/omnihunter/internal/httpclient"
	"github.com/aleister1102/omnihunter/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func idorTask(t *testing.T, sample string) models.ScanTask {
	task := testTask(t, "https://a.test/invoice", "invoice_id")
	task.Endpoint.Samples = map[string]string{"invoice_id": sample}
	return task
}

func newIDOR(t *testing.T, client Requester, engine *anomaly.Engine) Scanner {
	t.Helper()
	deps := testDeps(client)
	deps.Anomaly = engine
	s, err := NewIDORScanner(deps)
	require.NoError(t, err)
	return s
}

func TestIDORScanner_NeighbourDiffers(t *testing.T) {
	engine := newEngine(t)
	engine.Record(anomaly.Key("https://a.test/invoice", "GET"), anomaly.Response{
		StatusCode: 200,
		Body:       []byte("<h1>Invoice 41</h1><p>Customer: alice</p>" + strings.Repeat("a", 200)),
	})

	client := &fakeRequester{respond: func(req *httpclient.HTTPRequest) (*httpclient.HTTPResponse, error) {
		return &httpclient.HTTPResponse{StatusCode: 200, Body: []byte("<h1>Invoice 42</h1><p>Customer: bob</p>" + strings.Repeat("b", 200))}, nil
	}}

	out := newIDOR(t, client, engine).Probe(context.Background(), idorTask(t, "41"), noDelayThrottle())
	require.Equal(t, OutcomeFinding, out.Kind)
	assert.Equal(t, models.VulnIDOR, out.Finding.Type)
	assert.Equal(t, 40, out.Finding.Confidence)
	assert.Contains(t, out.Finding.URL, "invoice_id=42")
	assert.Contains(t, out.Finding.Details, "probed value: 42")
}

func TestIDORScanner_ErrorPagesIgnored(t *testing.T) {
	engine := newEngine(t)
	engine.Record(anomaly.Key("https://a.test/invoice", "GET"), anomaly.Response{StatusCode: 200, Body: []byte(strings.Repeat("a", 300))})

	client := &fakeRequester{respond: func(req *httpclient.HTTPRequest) (*httpclient.HTTPResponse, error) {
		if strings.Contains(req.URL, "=42") {
			return &httpclient.HTTPResponse{StatusCode: 403}, nil
		}
		return &httpclient.HTTPResponse{StatusCode: 200, Body: []byte("Invoice not found " + strings.Repeat("z", 300))}, nil
	}}

	s := newIDOR(t, client, engine)
	out := s.Probe(context.Background(), idorTask(t, "41"), noDelayThrottle())
	assert.Equal(t, OutcomeNoFinding, out.Kind)
	assert.Len(t, client.urls(), 2)
}

func TestIDORScanner_SkipsWithoutNumericSampleOrBaseline(t *testing.T) {
	client := &fakeRequester{respond: func(req *httpclient.HTTPRequest) (*httpclient.HTTPResponse, error) {
		t.Fatal("no request expected")
		return nil, nil
	}}
	engine := newEngine(t)
	s := newIDOR(t, client, engine)

	assert.Equal(t, OutcomeNoFinding, s.Probe(context.Background(), idorTask(t, "abc"), noDelayThrottle()).Kind)
	assert.Equal(t, OutcomeNoFinding, s.Probe(context.Background(), testTask(t, "https://a.test/invoice", "invoice_id"), noDelayThrottle()).Kind)
	// numeric but no baseline
	assert.Equal(t, OutcomeNoFinding, s.Probe(context.Background(), idorTask(t, "7"), noDelayThrottle()).Kind)
}

func TestIDORScanner_RequestError(t *testing.T) {
	engine := newEngine(t)
	engine.Record(anomaly.Key("https://a.test/invoice", "GET"), anomaly.Response{StatusCode: 200, Body: []byte("x")})
	client := &fakeRequester{respond: func(req *httpclient.HTTPRequest) (*httpclient.HTTPResponse, error) {
		return nil, errors.New("refused")
	}}

	out := newIDOR(t, client, engine).Probe(context.Background(), idorTask(t, "0"), noDelayThrottle())
	assert.Equal(t, OutcomeError, out.Kind)
}

type missingDiffEngine struct{ *anomaly.Engine }

func (missingDiffEngine) Diff(string, anomaly.Response) (anomaly.DiffStatistics, bool) {
	return anomaly.DiffStatistics{}, false
}

func TestIDORScanner_DiffWithoutBaselineIsNoFinding(t *testing.T) {
	engine := newEngine(t)
	engine.Record(anomaly.Key("https://a.test/invoice", "GET"), anomaly.Response{StatusCode: 200, Body: []byte("short")})
	client := &fakeRequester{respond: func(req *httpclient.HTTPRequest) (*httpclient.HTTPResponse, error) {
		return &httpclient.HTTPResponse{StatusCode: 200, Body: []byte(strings.Repeat("q", 500))}, nil
	}}

	s := &IDORScanner{client: client, engine: missingDiffEngine{engine}, timeout: 1}
	out := s.Probe(context.Background(), idorTask(t, "41"), noDelayThrottle())
	assert.Equal(t, OutcomeNoFinding, out.Kind)
	assert.Len(t, client.urls(), 1)
}

func TestIDORScanner_EvidenceNotesHeaderChange(t *testing.T) {
	engine := newEngine(t)
	engine.Record(anomaly.Key("https://a.test/invoice", "GET"), anomaly.Response{
		StatusCode: 200,
		Headers:    map[string]string{"Content-Type": "text/html"},
		Body:       []byte(strings.Repeat("a", 200)),
	})
	client := &fakeRequester{respond: func(req *httpclient.HTTPRequest) (*httpclient.HTTPResponse, error) {
		return &httpclient.HTTPResponse{
			StatusCode: 200,
			Headers:    map[string]string{"Content-Type": "text/html", "Set-Cookie": "sid=2"},
			Body:       []byte(strings.Repeat("b", 200)),
		}, nil
	}}

	out := newIDOR(t, client, engine).Probe(context.Background(), idorTask(t, "41"), noDelayThrottle())
	require.Equal(t, OutcomeFinding, out.Kind)
	assert.Contains(t, out.Finding.Details, "body diff +200 -200 chars, header set changed")
}

func TestMaterialChange(t *testing.T) {
	assert.False(t, materialChange(anomaly.DiffStatistics{IsIdentical: true}, 10))
	assert.False(t, materialChange(anomaly.DiffStatistics{Inserted: 10, Deleted: 10}, 100))
	assert.True(t, materialChange(anomaly.DiffStatistics{Inserted: 40, Deleted: 40}, 100))
	assert.False(t, materialChange(anomaly.DiffStatistics{Inserted: 40, Deleted: 40}, 10000))
}
