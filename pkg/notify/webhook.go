package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/jalvirtual/acars-dispatch/pkg/logger"
)

type Payload struct {
	Source    string `json:"source"`
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// WebhookNotifier posts notifications as JSON to an external endpoint, for
// example a chat integration.
type WebhookNotifier struct {
	httpClient *resty.Client
	webhookURL string
	now        func() time.Time
}

func NewWebhookNotifier(webhookURL string, timeout time.Duration) *WebhookNotifier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(2*time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &WebhookNotifier{
		httpClient: client,
		webhookURL: webhookURL,
		now:        time.Now,
	}
}

func (w *WebhookNotifier) Notify(ctx context.Context, success bool, message string) {
	if err := w.Send(ctx, success, message); err != nil {
		logger.Warnf("Notification webhook failed: %v", err)
	}
}

// Send posts one notification and reports delivery errors.
func (w *WebhookNotifier) Send(ctx context.Context, success bool, message string) error {
	payload := Payload{
		Source:    "acars-dispatch",
		Success:   success,
		Message:   message,
		Timestamp: w.now().UTC().Format(time.RFC3339),
	}

	startTime := time.Now()

	resp, err := w.httpClient.R().
		SetContext(ctx).
		SetBody(payload).
		Post(w.webhookURL)

	duration := time.Since(startTime)

	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}

	logger.Debugf("Notification webhook %s completed in %v (status: %d)", w.webhookURL, duration, resp.StatusCode())

	if !resp.IsSuccess() {
		return fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode(), resp.String())
	}

	return nil
}

func (w *WebhookNotifier) GetURL() string {
	return w.webhookURL
}
