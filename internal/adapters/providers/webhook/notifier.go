package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/drugfactsio/backend/internal/domain/providers"
	"github.com/drugfactsio/backend/pkg/config"
)

// Notifier POSTs cache invalidations to the frontend revalidation webhook.
// A missing URL disables notification entirely rather than erroring.
type Notifier struct {
	url        string
	secret     string
	httpClient *http.Client
}

var _ providers.WebhookNotifier = (*Notifier)(nil)

// NewNotifier creates a new webhook notifier.
func NewNotifier(cfg *config.WebhookConfig) *Notifier {
	notifier := &Notifier{
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
	if cfg != nil {
		notifier.url = cfg.URL
		notifier.secret = cfg.Secret
	}
	return notifier
}

// Enabled reports whether a webhook URL is configured.
func (n *Notifier) Enabled() bool {
	return n.url != ""
}

// Notify sends one invalidation to the frontend.
func (n *Notifier) Notify(ctx context.Context, invalidation providers.CacheInvalidation) error {
	if !n.Enabled() {
		return nil
	}

	body, err := json.Marshal(invalidation)
	if err != nil {
		return fmt.Errorf("failed to marshal invalidation: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if n.secret != "" {
		req.Header.Set("X-Webhook-Secret", n.secret)
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook rejected invalidation with status %d", resp.StatusCode)
	}
	return nil
}
