package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrijs2005/authkeeper/internal/logging"
)

// NewRedisClient connects to Redis and verifies the connection with a ping.
func NewRedisClient(addr, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return client, nil
}

// RedisBus carries events over Redis pub/sub with JSON payloads.
type RedisBus struct {
	client *redis.Client
	logger logging.Logger
}

func NewRedisBus(client *redis.Client, logger logging.Logger) *RedisBus {
	return &RedisBus{
		client: client,
		logger: logger.With("module", "event_bus"),
	}
}

// Publish marshals payload to JSON and publishes it on topic.
func (b *RedisBus) Publish(ctx context.Context, topic string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", topic, err)
	}
	if err := b.client.Publish(ctx, topic, data).Err(); err != nil {
		return fmt.Errorf("publish event %s: %w", topic, err)
	}
	return nil
}

// Consume subscribes to every topic in handlers and dispatches deliveries
// until ctx is cancelled. A handler error is logged and the event dropped;
// the consumer itself never stops on a bad payload.
func (b *RedisBus) Consume(ctx context.Context, handlers map[string]Handler) error {
	topics := make([]string, 0, len(handlers))
	for topic := range handlers {
		topics = append(topics, topic)
	}

	sub := b.client.Subscribe(ctx, topics...)
	defer sub.Close()

	// Wait for the subscription to be confirmed so no early publishes are
	// missed by tests or callers that publish immediately after startup.
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %v: %w", topics, err)
	}

	b.logger.Info(ctx, "consuming events", "topics", topics)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			handler := handlers[msg.Channel]
			if handler == nil {
				continue
			}
			if err := handler(ctx, []byte(msg.Payload)); err != nil {
				b.logger.Error(ctx, "event dropped", "topic", msg.Channel, "error", err.Error())
			}
		}
	}
}
