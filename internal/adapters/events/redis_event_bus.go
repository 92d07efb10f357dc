package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/searchiq/storefront/internal/domain/entities"
	"github.com/searchiq/storefront/internal/domain/providers"
	redisclient "github.com/searchiq/storefront/internal/infrastructure/clients/redis"
)

// subscriberBuffer bounds each subscriber; a slow SSE client drops events.
const subscriberBuffer = 16

// topic is one Redis subscription and the local streams fed from it. A
// topic is retired as a whole; a later Subscribe on the same channel gets a
// new topic.
type topic struct {
	pubsub      *redis.PubSub
	subscribers map[chan *entities.AnalysisEvent]struct{}
	done        chan struct{}
}

// RedisEventBus fans analysis events out across instances with Redis Pub/Sub.
type RedisEventBus struct {
	client *redisclient.Client

	mu     sync.Mutex
	topics map[string]*topic
	closed bool
}

// NewRedisEventBus creates a new Redis-based event bus
func NewRedisEventBus(client *redisclient.Client) providers.EventBus {
	return &RedisEventBus{
		client: client,
		topics: make(map[string]*topic),
	}
}

// Publish publishes an event to all subscribers
func (b *RedisEventBus) Publish(ctx context.Context, channel string, event *entities.AnalysisEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.client.Client().Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	log.Debug().Str("channel", channel).Str("event_id", event.ID).Uint64("generation", event.Generation).Msg("Published analysis event")
	return nil
}

// Subscribe streams channel's events until ctx is done.
func (b *RedisEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.AnalysisEvent, error) {
	eventChan := make(chan *entities.AnalysisEvent, subscriberBuffer)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(eventChan)
		return eventChan, nil
	}
	t, ok := b.topics[channel]
	if !ok {
		t = &topic{
			pubsub:      b.client.Client().Subscribe(context.Background(), channel),
			subscribers: make(map[chan *entities.AnalysisEvent]struct{}),
			done:        make(chan struct{}),
		}
		b.topics[channel] = t
		go b.forward(channel, t)
	}
	t.subscribers[eventChan] = struct{}{}
	count := len(t.subscribers)
	b.mu.Unlock()

	log.Debug().Str("channel", channel).Int("subscribers", count).Msg("Subscribed to channel")

	go func() {
		<-ctx.Done()
		b.leave(channel, t, eventChan)
	}()

	return eventChan, nil
}

// forward copies t's Redis messages to its subscribers until the
// subscription ends.
func (b *RedisEventBus) forward(channel string, t *topic) {
	defer close(t.done)
	defer b.retire(channel, t)

	for msg := range t.pubsub.Channel() {
		var event entities.AnalysisEvent
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			log.Warn().Err(err).Str("channel", channel).Msg("Dropping undecodable event")
			continue
		}

		b.mu.Lock()
		for subscriber := range t.subscribers {
			select {
			case subscriber <- cloneEvent(&event):
			default:
				log.Warn().Str("channel", channel).Str("event_id", event.ID).Msg("Subscriber channel full, skipping event")
			}
		}
		b.mu.Unlock()
	}
}

// leave drops one subscriber; the last one out closes the Redis subscription.
func (b *RedisEventBus) leave(channel string, t *topic, eventChan chan *entities.AnalysisEvent) {
	b.mu.Lock()
	if _, ok := t.subscribers[eventChan]; !ok {
		b.mu.Unlock()
		return
	}
	delete(t.subscribers, eventChan)
	close(eventChan)
	last := len(t.subscribers) == 0
	if last {
		b.detach(channel, t)
	}
	b.mu.Unlock()

	if last {
		_ = t.pubsub.Close()
		log.Debug().Str("channel", channel).Msg("Closed subscription")
	}
}

// retire closes whatever subscribers t still has. Only t's own registration
// is removed; a newer topic on the same channel is left alone.
func (b *RedisEventBus) retire(channel string, t *topic) {
	b.mu.Lock()
	for subscriber := range t.subscribers {
		close(subscriber)
		delete(t.subscribers, subscriber)
	}
	b.detach(channel, t)
	b.mu.Unlock()

	_ = t.pubsub.Close()
}

// detach must be called with b.mu held.
func (b *RedisEventBus) detach(channel string, t *topic) {
	if b.topics[channel] == t {
		delete(b.topics, channel)
	}
}

// Close closes the event bus and all subscriptions
func (b *RedisEventBus) Close() error {
	b.mu.Lock()
	b.closed = true
	topics := b.topics
	b.topics = make(map[string]*topic)
	for _, t := range topics {
		for subscriber := range t.subscribers {
			close(subscriber)
			delete(t.subscribers, subscriber)
		}
	}
	b.mu.Unlock()

	var errs []error
	for channel, t := range topics {
		if err := t.pubsub.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", channel, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing event bus: %v", errs)
	}

	log.Info().Msg("Event bus closed")
	return nil
}

func cloneEvent(e *entities.AnalysisEvent) *entities.AnalysisEvent {
	c := *e
	return &c
}
