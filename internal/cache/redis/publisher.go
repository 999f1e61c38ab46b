package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/YoelDevSoft1/ProyectoP2P-sub002/internal/domain"
)

// Channel names used for published pipeline output. The WebSocket hub
// subscribes to these and forwards payloads to connected dashboards.
const (
	ChannelResults = "ch:results"
	ChannelCycles  = "ch:cycles"
)

// Publisher implements domain.Publisher on Redis Pub/Sub. Delivery is
// fire-and-forget: consumers that need the latest state read the result
// cache instead of replaying messages.
type Publisher struct {
	rdb *redis.Client
}

// NewPublisher creates a Publisher backed by the given Client.
func NewPublisher(c *Client) *Publisher {
	return &Publisher{rdb: c.Underlying()}
}

// PublishResult announces one freshly computed pair result.
func (p *Publisher) PublishResult(ctx context.Context, res *domain.PairResult) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("redis: encode result %s: %w", res.Pair, err)
	}
	if err := p.rdb.Publish(ctx, ChannelResults, payload).Err(); err != nil {
		return fmt.Errorf("redis: publish result %s: %w", res.Pair, err)
	}
	return nil
}

// PublishCycle announces the summary of a completed cycle.
func (p *Publisher) PublishCycle(ctx context.Context, report *domain.CycleReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("redis: encode cycle report: %w", err)
	}
	if err := p.rdb.Publish(ctx, ChannelCycles, payload).Err(); err != nil {
		return fmt.Errorf("redis: publish cycle report: %w", err)
	}
	return nil
}

// Subscribe creates a Redis Pub/Sub subscription and returns a read-only
// channel of raw payloads. The subscription is closed when ctx is
// cancelled; the returned channel closes at that point as well.
func (p *Publisher) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	var pubsub *redis.PubSub
	if hasPattern(channel) {
		pubsub = p.rdb.PSubscribe(ctx, channel)
	} else {
		pubsub = p.rdb.Subscribe(ctx, channel)
	}

	// Verify the subscription is established.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis: subscribe %s: %w", channel, err)
	}

	out := make(chan []byte, 128)
	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
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
	}()

	return out, nil
}

// hasPattern returns true when the Redis channel includes glob-style
// wildcards, in which case PSubscribe must be used.
func hasPattern(channel string) bool {
	return strings.ContainsAny(channel, "*?[")
}

// Compile-time interface check.
var _ domain.Publisher = (*Publisher)(nil)
