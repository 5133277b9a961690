package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// Message is one outbound notification
type Message struct {
	UserID  string `json:"user_id"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Sender delivers notification messages to users
type Sender interface {
	Send(ctx context.Context, msg *Message) error
}

// WebhookConfig holds delivery settings for the webhook sender
type WebhookConfig struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

// DefaultWebhookConfig returns the default sender configuration. With an
// empty URL the sender runs in dev mode and only logs messages.
func DefaultWebhookConfig() WebhookConfig {
	return WebhookConfig{Timeout: 10 * time.Second}
}

// WebhookSender posts notification messages to a configured HTTP endpoint.
// Without a URL it logs the message instead, which keeps local development
// working with no external service.
type WebhookSender struct {
	config WebhookConfig
	client *http.Client
	logger *logrus.Logger
}

// NewWebhookSender creates a webhook notification sender
func NewWebhookSender(config WebhookConfig, logger *logrus.Logger) *WebhookSender {
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	return &WebhookSender{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		logger: logger,
	}
}

// Send delivers one message. In dev mode (no URL configured) the message is
// logged and delivery is reported as successful.
func (s *WebhookSender) Send(ctx context.Context, msg *Message) error {
	if s.config.URL == "" {
		s.logger.WithFields(logrus.Fields{
			"user_id": msg.UserID,
			"subject": msg.Subject,
		}).Info("DEV MODE - notification logged instead of sent")
		return nil
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.config.APIKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to deliver notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notification endpoint returned status %d", resp.StatusCode)
	}
	return nil
}
