package redis

import (
	"context"
	"fmt"
	"strings"

	"github.com/alanyoungcy/coinonebot/internal/domain"
	"github.com/redis/go-redis/v9"
)

// subscriberBuffer is the per-subscription backlog before delivery blocks.
const subscriberBuffer = 128

// SignalBus implements domain.SignalBus over Redis Pub/Sub. Analysis
// results go out on domain.AnalysisChannel(symbol) and flag events on
// domain.ChannelFlags; "ch:analysis:*" subscribes to every symbol.
type SignalBus struct {
	rdb *redis.Client
}

// NewSignalBus creates a SignalBus backed by the given Client.
func NewSignalBus(c *Client) *SignalBus {
	return &SignalBus{rdb: c.Underlying()}
}

// Publish sends payload to channel. Messages published with no subscriber
// are dropped by Redis.
func (sb *SignalBus) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := sb.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis: publish %s: %w", channel, err)
	}
	return nil
}

// Subscribe listens on channel, or on a pattern when it contains glob
// characters. The returned channel is closed once ctx is done or the
// subscription drops.
func (sb *SignalBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	pubsub := sb.open(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis: subscribe %s: %w", channel, err)
	}

	out := make(chan []byte, subscriberBuffer)
	go relay(ctx, pubsub, out)
	return out, nil
}

func (sb *SignalBus) open(ctx context.Context, channel string) *redis.PubSub {
	if strings.ContainsAny(channel, "*?[") {
		return sb.rdb.PSubscribe(ctx, channel)
	}
	return sb.rdb.Subscribe(ctx, channel)
}

func relay(ctx context.Context, pubsub *redis.PubSub, out chan<- []byte) {
	defer close(out)
	defer pubsub.Close()

	msgs := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			select {
			case out <- []byte(msg.Payload):
			case <-ctx.Done():
				return
			}
		}
	}
}

var _ domain.SignalBus = (*SignalBus)(nil)
