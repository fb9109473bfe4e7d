package providers

import "context"

// Invalidation scopes sent to the frontend webhook
const (
	InvalidationTypeDrug   = "drug"
	InvalidationTypeGlobal = "global"
)

// CacheInvalidation is the payload sent to the frontend revalidation webhook
type CacheInvalidation struct {
	Type string `json:"type"`
	Slug string `json:"slug,omitempty"`
	NDC  string `json:"ndc,omitempty"`
}

// WebhookNotifier notifies the frontend that cached drug pages changed.
// Notification failures are logged and swallowed by callers, never
// propagated as enrichment failures.
type WebhookNotifier interface {
	Notify(ctx context.Context, invalidation CacheInvalidation) error
}
