package models

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEndpoint_StripsQueryAndFragment(t *testing.T) {
	ep, err := NewEndpoint("https://example.com/items/view?id=4&utm_source=x#top", []string{"id"})
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/items/view", ep.URL)
	assert.Equal(t, []string{"id"}, ep.Params)
}

func TestNewEndpoint_RejectsRelative(t *testing.T) {
	_, err := NewEndpoint("/relative/path?id=1", nil)
	assert.Error(t, err)
}

func TestScanTask_ProbeURLEncodesValue(t *testing.T) {
	task := ScanTask{Endpoint: Endpoint{URL: "http://t.local/a"}, Param: "q"}
	probe := task.ProbeURL("' OR SLEEP(5)-- -")

	u, err := url.Parse(probe)
	require.NoError(t, err)
	assert.Equal(t, "/a", u.Path)
	assert.Equal(t, "' OR SLEEP(5)-- -", u.Query().Get("q"))
}

func TestClampConfidence(t *testing.T) {
	assert.Equal(t, 0, ClampConfidence(-5))
	assert.Equal(t, 70, ClampConfidence(70))
	assert.Equal(t, 100, ClampConfidence(150))
}

func TestNewVerifiedFinding_CopiesDetails(t *testing.T) {
	f := NewFinding("business_logic", VulnBusinessLogic, "http://t.local/a?id=1", "id", 50, "Status 200 -> 403")
	vf := NewVerifiedFinding(f, "bugcrowd", true)

	f.Details[0] = "mutated"
	assert.Equal(t, []string{"Status 200 -> 403"}, vf.Details)
	assert.Equal(t, "bugcrowd", vf.Platform)
	assert.True(t, vf.Verified)
	assert.Equal(t, "Status 200 -> 403", vf.DetailsString())
}
