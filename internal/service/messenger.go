package service

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Messenger delivers a rendered notification to one recipient. Delivery is
// best-effort: implementations report success as a bool and never block the
// lifecycle path.
type Messenger interface {
	SendMessage(ctx context.Context, recipientTelegramID int64, text string) bool
	SendPhoto(ctx context.Context, recipientTelegramID int64, photoRef, caption string) bool
}

// WebhookMessenger posts notifications to an external delivery gateway.
type WebhookMessenger struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

func NewWebhookMessenger(url string, timeout time.Duration, logger *zap.Logger) *WebhookMessenger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookMessenger{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

type webhookPayload struct {
	Recipient int64  `json:"recipient"`
	Text      string `json:"text,omitempty"`
	PhotoRef  string `json:"photo_ref,omitempty"`
	Caption   string `json:"caption,omitempty"`
}

func (m *WebhookMessenger) SendMessage(ctx context.Context, recipientTelegramID int64, text string) bool {
	return m.post(ctx, webhookPayload{Recipient: recipientTelegramID, Text: text})
}

func (m *WebhookMessenger) SendPhoto(ctx context.Context, recipientTelegramID int64, photoRef, caption string) bool {
	return m.post(ctx, webhookPayload{Recipient: recipientTelegramID, PhotoRef: photoRef, Caption: caption})
}

func (m *WebhookMessenger) post(ctx context.Context, payload webhookPayload) bool {
	body, err := json.Marshal(payload)
	if err != nil {
		m.logger.Error("notification payload marshal failed", zap.Error(err))
		return false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.url, bytes.NewReader(body))
	if err != nil {
		m.logger.Error("notification request build failed", zap.Error(err))
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		m.logger.Warn("notification delivery failed",
			zap.Int64("recipient", payload.Recipient), zap.Error(err))
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		m.logger.Warn("notification delivery rejected",
			zap.Int64("recipient", payload.Recipient),
			zap.Int("status", resp.StatusCode))
		return false
	}
	return true
}

// LogMessenger writes notifications to the log. Used when no webhook is
// configured, and by tests.
type LogMessenger struct {
	logger *zap.Logger
}

func NewLogMessenger(logger *zap.Logger) *LogMessenger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogMessenger{logger: logger}
}

func (m *LogMessenger) SendMessage(_ context.Context, recipientTelegramID int64, text string) bool {
	m.logger.Info("notification",
		zap.Int64("recipient", recipientTelegramID),
		zap.String("text", text))
	return true
}

func (m *LogMessenger) SendPhoto(_ context.Context, recipientTelegramID int64, photoRef, caption string) bool {
	m.logger.Info("notification photo",
		zap.Int64("recipient", recipientTelegramID),
		zap.String("photo", photoRef),
		zap.String("caption", caption))
	return true
}
