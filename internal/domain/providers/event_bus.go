package providers

import (
	"context"

	"github.com/searchiq/storefront/internal/domain/entities"
)

// EventBus defines the interface for publishing and subscribing to analysis events
type EventBus interface {
	// Publish publishes an event to all subscribers
	Publish(ctx context.Context, channel string, event *entities.AnalysisEvent) error

	// Subscribe subscribes to events on a channel. The returned channel is
	// closed when ctx is done or the bus is closed.
	Subscribe(ctx context.Context, channel string) (<-chan *entities.AnalysisEvent, error)

	// Close closes the event bus and all subscriptions
	Close() error
}

// EventChannelAnalysisPrefix is the prefix for per-session analysis channels
const EventChannelAnalysisPrefix = "analysis:"

// GetAnalysisChannel returns the channel name for a session's live analysis
func GetAnalysisChannel(sessionID string) string {
	return EventChannelAnalysisPrefix + sessionID
}
