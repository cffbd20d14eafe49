package notifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/aleister1102/omnihunter/internal/models"
)

const telegramAPIBase = "https://api.telegram.org"

// FormatMessage renders f as the Markdown text shared by chat channels.
func FormatMessage(f models.VerifiedFinding) string {
	platform := f.Platform
	if platform == "" {
		platform = "unknown"
	}
	details := f.DetailsString()
	if details == "" {
		details = "N/A"
	}

	var b strings.Builder
	b.WriteString("🚨 *New Finding*\n")
	fmt.Fprintf(&b, "Platform: %s\n", platform)
	fmt.Fprintf(&b, "URL: %s\n", f.URL)
	fmt.Fprintf(&b, "Type: %s\n", f.Type)
	fmt.Fprintf(&b, "Confidence: %d%%\n", f.Confidence)
	fmt.Fprintf(&b, "Details: %s", details)
	return b.String()
}

// TelegramNotifier posts to a chat through the bot sendMessage API.
type TelegramNotifier struct {
	client  Poster
	token   string
	chatID  string
	apiBase string
}

// NewTelegramNotifier creates a Telegram channel for the given bot token and chat.
func NewTelegramNotifier(client Poster, token, chatID string) *TelegramNotifier {
	return &TelegramNotifier{client: client, token: token, chatID: chatID, apiBase: telegramAPIBase}
}

func (t *TelegramNotifier) Name() string { return "telegram" }

func (t *TelegramNotifier) Send(ctx context.Context, f models.VerifiedFinding) error {
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimRight(t.apiBase, "/"), t.token)
	return postJSON(ctx, t.client, endpoint, map[string]string{
		"chat_id":    t.chatID,
		"text":       FormatMessage(f),
		"parse_mode": "Markdown",
	})
}

// SlackNotifier posts to an incoming webhook.
type SlackNotifier struct {
	client     Poster
	webhookURL string
}

func NewSlackNotifier(client Poster, webhookURL string) *SlackNotifier {
	return &SlackNotifier{client: client, webhookURL: webhookURL}
}

func (s *SlackNotifier) Name() string { return "slack" }

func (s *SlackNotifier) Send(ctx context.Context, f models.VerifiedFinding) error {
	return postJSON(ctx, s.client, s.webhookURL, map[string]string{"text": FormatMessage(f)})
}

// WebhookNotifier posts the finding itself as JSON.
type WebhookNotifier struct {
	client     Poster
	webhookURL string
}

func NewWebhookNotifier(client Poster, webhookURL string) *WebhookNotifier {
	return &WebhookNotifier{client: client, webhookURL: webhookURL}
}

func (w *WebhookNotifier) Name() string { return "webhook" }

func (w *WebhookNotifier) Send(ctx context.Context, f models.VerifiedFinding) error {
	return postJSON(ctx, w.client, w.webhookURL, f)
}
