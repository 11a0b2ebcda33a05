// Package notify delivers refresh run summaries to an external webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourorg/yield-agg-api/internal/model"
)

// WebhookNotifier posts each completed refresh result to a configured URL.
// Delivery is best-effort: a failed POST is logged, never retried, and never
// affects the refresh result itself.
type WebhookNotifier struct {
	url        string
	apiKey     string
	httpClient *http.Client
}

// NewWebhookNotifier creates a notifier for the given endpoint. The API key
// is optional and sent as a bearer token when present.
func NewWebhookNotifier(url, apiKey string) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// webhookEvent is the wire shape of one notification.
type webhookEvent struct {
	Event     string              `json:"event"`
	Timestamp string              `json:"timestamp"`
	Result    model.RefreshResult `json:"result"`
}

// NotifyRefresh delivers the refresh result. Errors are returned for the
// caller to log; they carry no other consequence.
func (n *WebhookNotifier) NotifyRefresh(ctx context.Context, result model.RefreshResult) error {
	event := webhookEvent{
		Event:     "refresh.completed",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Result:    result,
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to serialize webhook event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if n.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+n.apiKey)
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook delivery failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	logrus.WithField("url", n.url).Debug("Refresh webhook delivered")
	return nil
}
