package config

// NotificationConfig defines configuration for notifications
type NotificationConfig struct {
	TelegramToken     string `json:"telegram_token,omitempty" yaml:"telegram_token,omitempty"`
	TelegramChatID    string `json:"telegram_chat_id,omitempty" yaml:"telegram_chat_id,omitempty" validate:"required_with=TelegramToken"`
	SlackWebhookURL   string `json:"slack_webhook_url,omitempty" yaml:"slack_webhook_url,omitempty" validate:"omitempty,url"`
	DiscordWebhookURL string `json:"discord_webhook_url,omitempty" yaml:"discord_webhook_url,omitempty" validate:"omitempty,url"`
	GenericWebhookURL string `json:"generic_webhook_url,omitempty" yaml:"generic_webhook_url,omitempty" validate:"omitempty,url"`
	TimeoutSecs       int    `json:"timeout_secs,omitempty" yaml:"timeout_secs,omitempty" validate:"min=1"`
}

// NewDefaultNotificationConfig creates default notification configuration
func NewDefaultNotificationConfig() NotificationConfig {
	return NotificationConfig{
		TimeoutSecs: DefaultNotificationTimeoutSecs,
	}
}
