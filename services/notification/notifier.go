package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Notifier sends out-of-band messages to the client.
type Notifier interface {
	SendSMS(ctx context.Context, phone, message string) error
}

// GatewayNotifier posts messages to the salon's SMS gateway.
type GatewayNotifier struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewGatewayNotifier returns a notifier for the given gateway base URL.
func NewGatewayNotifier(baseURL string, logger *zap.Logger) *GatewayNotifier {
	return &GatewayNotifier{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// SendSMS issues one POST to the gateway; failures are returned, never retried.
func (n *GatewayNotifier) SendSMS(ctx context.Context, phone, message string) error {
	if n.baseURL == "" {
		// Gateway not configured: log and treat as delivered so local
		// environments can exercise the flow.
		n.logger.Sugar().Infof("SMS gateway not configured, would send to %s: %s", phone, message)
		return nil
	}

	payload, err := json.Marshal(map[string]string{
		"phone":   phone,
		"message": message,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal sms payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.baseURL+"/send", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach sms gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("sms gateway returned status %d", resp.StatusCode)
	}

	n.logger.Info("sms dispatched", zap.String("phone", phone))
	return nil
}

// TelegramDeepLink builds the t.me link that hands the draft off to the
// salon's Telegram bot.
func TelegramDeepLink(botName, draftID string) string {
	return fmt.Sprintf("https://t.me/%s?start=%s", botName, draftID)
}
