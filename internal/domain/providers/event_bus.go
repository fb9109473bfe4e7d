package providers

import (
	"context"

	"github.com/drugfactsio/backend/internal/domain/entities"
)

// EventBus defines the interface for publishing and subscribing to drug
// update events
type EventBus interface {
	// Publish publishes an event to all subscribers
	Publish(ctx context.Context, channel string, event *entities.DrugEvent) error

	// Subscribe subscribes to events on a channel
	Subscribe(ctx context.Context, channel string) (<-chan *entities.DrugEvent, error)

	// Unsubscribe unsubscribes from a channel
	Unsubscribe(ctx context.Context, channel string) error

	// Close closes the event bus and all subscriptions
	Close() error
}

// EventChannel constants for different event types
const (
	// EventChannelDrugUpdates is the channel for all drug updates
	EventChannelDrugUpdates = "drug:updates"

	// EventChannelDrugPrefix is the prefix for drug-specific channels
	EventChannelDrugPrefix = "drug:"
)

// GetDrugChannel returns the channel name for a specific drug
func GetDrugChannel(drugID string) string {
	return EventChannelDrugPrefix + drugID
}
