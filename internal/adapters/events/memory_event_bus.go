package events

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/searchiq/storefront/internal/domain/entities"
	"github.com/searchiq/storefront/internal/domain/providers"
)

// MemoryEventBus is an in-process EventBus used when Redis is disabled.
type MemoryEventBus struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan *entities.AnalysisEvent]struct{}
	closed      bool
}

// NewMemoryEventBus creates an in-process event bus.
func NewMemoryEventBus() providers.EventBus {
	return &MemoryEventBus{
		subscribers: make(map[string]map[chan *entities.AnalysisEvent]struct{}),
	}
}

// Publish delivers event to every current subscriber of channel without blocking.
func (b *MemoryEventBus) Publish(ctx context.Context, channel string, event *entities.AnalysisEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for subscriber := range b.subscribers[channel] {
		select {
		case subscriber <- cloneEvent(event):
		default:
			log.Warn().Str("channel", channel).Str("event_id", event.ID).Msg("Subscriber channel full, skipping event")
		}
	}
	return nil
}

// Subscribe registers a subscriber that lives until ctx is done.
func (b *MemoryEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.AnalysisEvent, error) {
	eventChan := make(chan *entities.AnalysisEvent, subscriberBuffer)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(eventChan)
		return eventChan, nil
	}
	if b.subscribers[channel] == nil {
		b.subscribers[channel] = make(map[chan *entities.AnalysisEvent]struct{})
	}
	b.subscribers[channel][eventChan] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.remove(channel, eventChan)
	}()

	return eventChan, nil
}

func (b *MemoryEventBus) remove(channel string, eventChan chan *entities.AnalysisEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subscribers, ok := b.subscribers[channel]
	if !ok {
		return
	}
	if _, ok := subscribers[eventChan]; !ok {
		return
	}
	delete(subscribers, eventChan)
	close(eventChan)
	if len(subscribers) == 0 {
		delete(b.subscribers, channel)
	}
}

// Close closes all subscribers; later subscriptions receive a closed channel.
func (b *MemoryEventBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for channel, subscribers := range b.subscribers {
		for subscriber := range subscribers {
			close(subscriber)
		}
		delete(b.subscribers, channel)
	}
	b.closed = true
	return nil
}
