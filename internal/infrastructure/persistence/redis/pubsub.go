package redis

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/concordia-classroom/concordia/internal/infrastructure/messaging"
)

var _ messaging.RedisClient = (*PubSub)(nil)

// PubSub adapts Client to messaging.RedisClient. Close releases the
// subscriptions it opened; the shared connection pool stays with its owner.
type PubSub struct {
	client *Client

	mu      sync.Mutex
	subs    []*redis.PubSub
	wg      sync.WaitGroup
	closing bool
}

// NewPubSub creates a pub/sub adapter over a connected client.
func NewPubSub(client *Client) *PubSub {
	return &PubSub{client: client}
}

// Publish sends a message to a channel.
func (p *PubSub) Publish(ctx context.Context, channel string, message interface{}) error {
	if err := p.client.rdb.Publish(ctx, channel, message).Err(); err != nil {
		return fmt.Errorf("redis: publish %s: %w", channel, err)
	}
	return nil
}

// Subscribe subscribes to channels and forwards messages until ctx is done
// or Close is called. The subscription is confirmed before returning.
func (p *PubSub) Subscribe(ctx context.Context, channels ...string) (<-chan messaging.RedisMessage, error) {
	p.mu.Lock()
	if p.closing {
		p.mu.Unlock()
		return nil, messaging.ErrEventBusClosed
	}
	p.mu.Unlock()

	sub := p.client.rdb.Subscribe(ctx, channels...)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("redis: subscribe: %w", err)
	}

	p.mu.Lock()
	p.subs = append(p.subs, sub)
	p.mu.Unlock()

	out := make(chan messaging.RedisMessage, 64)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer close(out)

		in := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-in:
				if !ok {
					return
				}
				select {
				case out <- messaging.RedisMessage{Channel: msg.Channel, Payload: msg.Payload}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// Close closes every subscription and waits for the forwarders to stop.
func (p *PubSub) Close() error {
	p.mu.Lock()
	p.closing = true
	subs := p.subs
	p.subs = nil
	p.mu.Unlock()

	var firstErr error
	for _, sub := range subs {
		if err := sub.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	p.wg.Wait()
	return firstErr
}
