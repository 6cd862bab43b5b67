// Package realtime fans tenant events out over Redis pub/sub.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"warehousepos/internal/models"
	"warehousepos/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const channelPrefix = "wpos:events:"

// Channel is the pub/sub channel carrying one tenant's events.
func Channel(tenantID uuid.UUID) string {
	return channelPrefix + tenantID.String()
}

type Broker struct {
	client *redis.Client
	log    *logger.Logger
}

func NewBroker(client *redis.Client, log *logger.Logger) *Broker {
	return &Broker{client: client, log: log}
}

func (b *Broker) Publish(ctx context.Context, event models.Event) error {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := b.client.Publish(ctx, Channel(event.TenantID), payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}

// Subscription delivers a tenant's events until Close is called or its context ends.
type Subscription struct {
	pubsub *redis.PubSub
	events chan models.Event
}

func (s *Subscription) Events() <-chan models.Event { return s.events }

func (s *Subscription) Close() error { return s.pubsub.Close() }

// Subscribe waits for the subscription to be confirmed before returning.
func (b *Broker) Subscribe(ctx context.Context, tenantID uuid.UUID) (*Subscription, error) {
	pubsub := b.client.Subscribe(ctx, Channel(tenantID))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	sub := &Subscription{pubsub: pubsub, events: make(chan models.Event, 16)}
	go func() {
		defer close(sub.events)
		for msg := range pubsub.Channel() {
			var e models.Event
			if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
				b.log.Warn(ctx, "dropping malformed realtime event")
				continue
			}
			select {
			case sub.events <- e:
			case <-ctx.Done():
				return
			}
		}
	}()
	return sub, nil
}
