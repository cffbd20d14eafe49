package notifier

import (
	"time"

	"github.com/aleister1102/omnihunter/internal/config"

	"github.com/rs/zerolog"
)

// NewFromConfig builds a manager with one channel per configured destination.
// With nothing configured the manager has no channels and Notify is a no-op.
func NewFromConfig(cfg config.NotificationConfig, client Poster, logger zerolog.Logger) *Manager {
	var channels []Notifier

	if cfg.TelegramToken != "" && cfg.TelegramChatID != "" {
		channels = append(channels, NewTelegramNotifier(client, cfg.TelegramToken, cfg.TelegramChatID))
	}
	if cfg.SlackWebhookURL != "" {
		channels = append(channels, NewSlackNotifier(client, cfg.SlackWebhookURL))
	}
	if cfg.DiscordWebhookURL != "" {
		channels = append(channels, NewDiscordNotifier(client, cfg.DiscordWebhookURL))
	}
	if cfg.GenericWebhookURL != "" {
		channels = append(channels, NewWebhookNotifier(client, cfg.GenericWebhookURL))
	}

	m := NewManager(channels, time.Duration(cfg.TimeoutSecs)*time.Second, logger)
	m.logger.Info().Strs("channels", m.Channels()).Msg("Notification channels configured")
	return m
}
