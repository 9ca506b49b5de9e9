package realtime

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/events"
)

// RedisBridge propagates lifecycle events between instances over redis
// pub/sub so a client connected to any instance observes every event. Each
// bridge tags outgoing messages with its own origin id and skips them on
// the way back in.
type RedisBridge struct {
	client  *redis.Client
	channel string
	origin  string
	logger  *zap.Logger
}

type bridgeEnvelope struct {
	Origin string       `json:"origin"`
	Event  events.Event `json:"event"`
}

// NewRedisBridge creates a bridge publishing on the given channel.
func NewRedisBridge(client *redis.Client, channel string, logger *zap.Logger) *RedisBridge {
	return &RedisBridge{
		client:  client,
		channel: channel,
		origin:  uuid.NewString(),
		logger:  logger,
	}
}

// Broadcast publishes the event for other instances.
func (b *RedisBridge) Broadcast(ctx context.Context, event events.Event) error {
	payload, err := json.Marshal(bridgeEnvelope{Origin: b.origin, Event: event})
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, b.channel, payload).Err()
}

// Run consumes the bridge channel and replays foreign events into the hub.
// It returns when the context is cancelled.
func (b *RedisBridge) Run(ctx context.Context, hub *Hub) {
	sub := b.client.Subscribe(ctx, b.channel)
	defer func() { _ = sub.Close() }()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var env bridgeEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				b.logger.Warn("realtime bridge: bad payload", zap.Error(err))
				continue
			}
			if env.Origin == b.origin {
				continue
			}
			hub.Deliver(env.Event)
		}
	}
}
