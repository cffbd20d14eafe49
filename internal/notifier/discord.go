package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/aleister1102/omnihunter/internal/models"
)

const (
	DiscordUsername = "OmniHunter"

	CriticalEmbedColor = 0xDC3545
	HighEmbedColor     = 0xFD7E14
	MediumEmbedColor   = 0xF0AD4E
	LowEmbedColor      = 0x5BC0DE
)

// DiscordEmbed represents a Discord embed object.
type DiscordEmbed struct {
	Title       string              `json:"title,omitempty"`
	Description string              `json:"description,omitempty"`
	URL         string              `json:"url,omitempty"`
	Timestamp   string              `json:"timestamp,omitempty"`
	Color       int                 `json:"color,omitempty"`
	Footer      *DiscordEmbedFooter `json:"footer,omitempty"`
	Fields      []DiscordEmbedField `json:"fields,omitempty"`
}

// DiscordEmbedFooter represents the footer of an embed.
type DiscordEmbedFooter struct {
	Text string `json:"text"`
}

// DiscordEmbedField is one name/value row of an embed.
type DiscordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// DiscordMessagePayload represents the JSON payload sent to a Discord webhook.
type DiscordMessagePayload struct {
	Content  string         `json:"content,omitempty"`
	Username string         `json:"username,omitempty"`
	Embeds   []DiscordEmbed `json:"embeds,omitempty"`
}

// DiscordEmbedBuilder helps in constructing DiscordEmbed objects.
type DiscordEmbedBuilder struct {
	embed DiscordEmbed
}

// NewDiscordEmbedBuilder creates a new instance of DiscordEmbedBuilder.
func NewDiscordEmbedBuilder() *DiscordEmbedBuilder {
	return &DiscordEmbedBuilder{}
}

func (b *DiscordEmbedBuilder) WithTitle(title string) *DiscordEmbedBuilder {
	b.embed.Title = title
	return b
}

func (b *DiscordEmbedBuilder) WithDescription(description string) *DiscordEmbedBuilder {
	b.embed.Description = description
	return b
}

func (b *DiscordEmbedBuilder) WithURL(url string) *DiscordEmbedBuilder {
	b.embed.URL = url
	return b
}

// WithTimestamp formats timestamp as RFC3339, which Discord expects.
func (b *DiscordEmbedBuilder) WithTimestamp(timestamp time.Time) *DiscordEmbedBuilder {
	b.embed.Timestamp = timestamp.Format(time.RFC3339)
	return b
}

func (b *DiscordEmbedBuilder) WithColor(color int) *DiscordEmbedBuilder {
	b.embed.Color = color
	return b
}

func (b *DiscordEmbedBuilder) WithFooter(text string) *DiscordEmbedBuilder {
	b.embed.Footer = &DiscordEmbedFooter{Text: text}
	return b
}

// AddField appends a field; empty values are skipped since Discord rejects them.
func (b *DiscordEmbedBuilder) AddField(name, value string, inline bool) *DiscordEmbedBuilder {
	if value == "" {
		return b
	}
	b.embed.Fields = append(b.embed.Fields, DiscordEmbedField{Name: name, Value: value, Inline: inline})
	return b
}

func (b *DiscordEmbedBuilder) Build() DiscordEmbed {
	return b.embed
}

// ColorForConfidence maps a confidence score onto an embed color.
func ColorForConfidence(confidence int) int {
	switch {
	case confidence >= 85:
		return CriticalEmbedColor
	case confidence >= 70:
		return HighEmbedColor
	case confidence >= 50:
		return MediumEmbedColor
	default:
		return LowEmbedColor
	}
}

// BuildFindingPayload renders f as a single-embed Discord message.
func BuildFindingPayload(f models.VerifiedFinding) DiscordMessagePayload {
	platform := f.Platform
	if platform == "" {
		platform = "unknown"
	}

	embed := NewDiscordEmbedBuilder().
		WithTitle(fmt.Sprintf("🚨 %s", f.Type)).
		WithDescription(fmt.Sprintf("`%s`", truncate(f.URL, 1000))).
		WithURL(f.URL).
		WithColor(ColorForConfidence(f.Confidence)).
		WithTimestamp(f.VerifiedAt).
		AddField("Parameter", f.Param, true).
		AddField("Confidence", fmt.Sprintf("%d%%", f.Confidence), true).
		AddField("Platform", platform, true).
		AddField("Scanner", f.Scanner, true).
		AddField("Details", truncate(f.DetailsString(), 1000), false).
		WithFooter("OmniHunter").
		Build()

	return DiscordMessagePayload{Username: DiscordUsername, Embeds: []DiscordEmbed{embed}}
}

// DiscordNotifier posts embeds to a Discord webhook.
type DiscordNotifier struct {
	client     Poster
	webhookURL string
}

func NewDiscordNotifier(client Poster, webhookURL string) *DiscordNotifier {
	return &DiscordNotifier{client: client, webhookURL: webhookURL}
}

func (d *DiscordNotifier) Name() string { return "discord" }

func (d *DiscordNotifier) Send(ctx context.Context, f models.VerifiedFinding) error {
	return postJSON(ctx, d.client, d.webhookURL, BuildFindingPayload(f))
}
