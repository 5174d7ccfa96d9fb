package changefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"hiresync/internal/logger"
	"hiresync/internal/validator"

	"github.com/redis/go-redis/v9"
)

// RedisBroker fans events out across processes over redis pub/sub.
// Every process keeps one pattern subscription and dispatches locally.
type RedisBroker struct {
	*hub
	client    *redis.Client
	prefix    string
	pubsub    *redis.PubSub
	done      chan struct{}
	ownClient bool
}

// NewRedisBroker connects to redisURL and starts listening.
func NewRedisBroker(ctx context.Context, redisURL, prefix string, buffer int) (*RedisBroker, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	b, err := NewRedisBrokerWithClient(ctx, client, prefix, buffer)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	b.ownClient = true
	return b, nil
}

// NewRedisBrokerWithClient builds a broker on an existing client. The client
// stays owned by the caller.
func NewRedisBrokerWithClient(ctx context.Context, client *redis.Client, prefix string, buffer int) (*RedisBroker, error) {
	if prefix == "" {
		prefix = "changefeed"
	}

	pubsub := client.PSubscribe(ctx, prefix+":*")
	// Receive blocks until the subscription is confirmed, so no publish
	// after the constructor returns can be missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe to redis channel: %w", err)
	}

	b := &RedisBroker{
		hub:    newHub(buffer),
		client: client,
		prefix: prefix,
		pubsub: pubsub,
		done:   make(chan struct{}),
	}
	go b.run(pubsub.Channel())
	return b, nil
}

func (b *RedisBroker) channel(topic Topic, key string) string {
	return b.prefix + ":" + string(topic) + ":" + key
}

func (b *RedisBroker) Publish(ctx context.Context, evt Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal change event: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel(evt.Topic, evt.Key), payload).Err(); err != nil {
		return fmt.Errorf("publish change event: %w", err)
	}
	return nil
}

func (b *RedisBroker) run(messages <-chan *redis.Message) {
	defer close(b.done)

	for msg := range messages {
		evt, err := validator.DecodeRecord[Event]([]byte(msg.Payload))
		if err != nil {
			logger.Warn("dropping malformed change event", "channel", msg.Channel, "error", err)
			continue
		}
		b.dispatch(evt)
	}
}

// Close stops the pattern subscription and closes every local subscription.
func (b *RedisBroker) Close() error {
	err := b.pubsub.Close()
	<-b.done
	b.close()
	if b.ownClient {
		if cerr := b.client.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
