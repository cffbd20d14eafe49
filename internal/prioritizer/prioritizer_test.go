package prioritizer

import (
	"testing"

	"github.com/aleister1102/omnihunter/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestScoreParameter(t *testing.T) {
	p := New(true)

	tests := []struct {
		param string
		want  int
	}{
		{"user_id", 10},
		{"ID", 10},
		{"filename", 9},
		{"redirect_to", 8},
		{"return_url", 8},
		{"page", 7},
		{"username", 6},
		{"is_admin", 6},
		{"debug", 5},
		{"testing", 4},
		{"theme", 1},
		{"", 1},
	}
	for _, tt := range tests {
		t.Run(tt.param, func(t *testing.T) {
			assert.Equal(t, tt.want, p.ScoreParameter(tt.param))
		})
	}

	assert.Greater(t, p.ScoreParameter("user_id"), p.ScoreParameter("theme"))
}

func TestScoreParameter_FirstMatchWins(t *testing.T) {
	// "fileurl" contains both file and url; file comes first
	assert.Equal(t, 9, New(true).ScoreParameter("fileurl"))
}

func TestScoreParameter_Disabled(t *testing.T) {
	p := New(false)
	assert.Equal(t, NeutralScore, p.ScoreParameter("user_id"))
	assert.Equal(t, NeutralScore, p.ScoreParameter("theme"))
}

func TestPrioritize_StableDescending(t *testing.T) {
	endpoints := []models.Endpoint{
		{URL: "https://a.test/theme", Params: []string{"theme"}},
		{URL: "https://a.test/page1", Params: []string{"page"}},
		{URL: "https://a.test/item", Params: []string{"color", "item_id"}},
		{URL: "https://a.test/page2", Params: []string{"pageno"}},
		{URL: "https://a.test/none"},
		{URL: "https://a.test/lang", Params: []string{"lang"}},
	}

	got := New(true).Prioritize(endpoints)

	var urls []string
	for _, ep := range got {
		urls = append(urls, ep.URL)
	}
	assert.Equal(t, []string{
		"https://a.test/item",
		"https://a.test/page1",
		"https://a.test/page2",
		"https://a.test/theme",
		"https://a.test/lang",
		"https://a.test/none",
	}, urls)

	// input untouched
	assert.Equal(t, "https://a.test/theme", endpoints[0].URL)
}

func TestPrioritize_DisabledKeepsOrder(t *testing.T) {
	endpoints := []models.Endpoint{
		{URL: "https://a.test/1", Params: []string{"theme"}},
		{URL: "https://a.test/2", Params: []string{"id"}},
	}
	got := New(false).Prioritize(endpoints)
	assert.Equal(t, endpoints, got)
}

func TestNewWithTable(t *testing.T) {
	p := NewWithTable(true, []KeywordScore{{"token", 42}})
	assert.Equal(t, 42, p.ScoreParameter("csrf_token"))
	assert.Equal(t, MinScore, p.ScoreParameter("id"))
}
