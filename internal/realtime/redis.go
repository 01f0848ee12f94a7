package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"roomchat/pkg/logger"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

// RedisBroker fans changes out across service instances: Publish goes to a
// Redis channel per table, and every instance forwards what it receives into
// its local Hub, where subscriptions live.
type RedisBroker struct {
	client *redis.Client
	hub    *Hub
	prefix string
	pubsub *redis.PubSub
	cancel context.CancelFunc
	group  *errgroup.Group
}

func NewRedisBroker(ctx context.Context, client *redis.Client, prefix string, bufferSize int) (*RedisBroker, error) {
	pubsub := client.PSubscribe(ctx, prefix+"*")
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe to %s*: %w", prefix, err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(runCtx)

	b := &RedisBroker{
		client: client,
		hub:    NewHub(bufferSize),
		prefix: prefix,
		pubsub: pubsub,
		cancel: cancel,
		group:  g,
	}
	g.Go(func() error { return b.forward(gctx) })
	return b, nil
}

func (b *RedisBroker) channel(c Change) string {
	return b.prefix + c.Schema + "." + c.Table
}

func (b *RedisBroker) forward(ctx context.Context) error {
	ch := b.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var c Change
			if err := json.Unmarshal([]byte(msg.Payload), &c); err != nil {
				logger.Error("Dropping malformed change on %s: %v", msg.Channel, err)
				continue
			}
			if err := b.hub.Publish(ctx, c); err != nil {
				if errors.Is(err, ErrClosed) || errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			}
		}
	}
}

func (b *RedisBroker) Publish(ctx context.Context, c Change) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode change: %w", err)
	}
	return b.client.Publish(ctx, b.channel(c), payload).Err()
}

func (b *RedisBroker) Subscribe(ctx context.Context, spec Spec) (*Subscription, error) {
	return b.hub.Subscribe(ctx, spec)
}

func (b *RedisBroker) Close() error {
	b.cancel()
	err := b.pubsub.Close()
	if werr := b.group.Wait(); werr != nil && err == nil {
		err = werr
	}
	_ = b.hub.Close()
	return err
}
