package providers

import (
	"context"

	"github.com/zatekoja/facilitysearch/internal/domain/entities"
)

// EventBus defines the interface for publishing and subscribing to events
type EventBus interface {
	// Publish publishes an event to all subscribers
	Publish(ctx context.Context, channel string, event *entities.FacilityEvent) error

	// Subscribe subscribes to events on a channel
	Subscribe(ctx context.Context, channel string) (<-chan *entities.FacilityEvent, error)

	// Close closes the event bus and all subscriptions
	Close() error
}

// EventChannelFacilityUpdates carries every facility create/update/delete.
const EventChannelFacilityUpdates = "facility:updates"
