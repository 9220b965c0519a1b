package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// Broadcaster is the outbound channel for location/status pushes to
// connected clients. The core treats it as a non-blocking sink: publish
// failures are logged by callers and never affect the primary operation.
type Broadcaster interface {
	Publish(ctx context.Context, topic, event string, payload any) error
}

// envelope is the wire format consumed by the websocket gateway.
type envelope struct {
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

// RedisBroadcaster publishes events over redis pub/sub channels.
type RedisBroadcaster struct {
	client *redis.Client
}

func NewRedisBroadcaster(client *redis.Client) *RedisBroadcaster {
	return &RedisBroadcaster{client: client}
}

func (b *RedisBroadcaster) Publish(ctx context.Context, topic, event string, payload any) error {
	data, err := json.Marshal(envelope{Event: event, Payload: payload})
	if err != nil {
		return fmt.Errorf("failed to marshal broadcast payload: %w", err)
	}
	if err := b.client.Publish(ctx, topic, data).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return nil
}

// BookingTopic is the per-booking channel clients subscribe to for status
// and position updates.
func BookingTopic(bookingID string) string {
	return "booking:" + bookingID
}
