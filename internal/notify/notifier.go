// Package notify publishes purchase events raised after a payment completes.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/checkout-core/internal/model"
)

// StreamAdder is the subset of the redis client used for publishing.
type StreamAdder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// RedisNotifier appends purchase events to a Redis stream.
type RedisNotifier struct {
	client StreamAdder
	stream string
}

// NewRedisNotifier creates a RedisNotifier writing to stream.
func NewRedisNotifier(client StreamAdder, stream string) *RedisNotifier {
	return &RedisNotifier{client: client, stream: stream}
}

// PurchaseCompleted implements service.Notifier.
func (n *RedisNotifier) PurchaseCompleted(ctx context.Context, event model.PurchaseEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal purchase event: %w", err)
	}

	id, err := n.client.XAdd(ctx, &redis.XAddArgs{
		Stream: n.stream,
		Values: map[string]any{
			"order_id": event.OrderID,
			"event":    string(payload),
		},
	}).Result()
	if err != nil {
		return fmt.Errorf("publish purchase event: %w", err)
	}

	log.Debug().
		Str("stream", n.stream).
		Str("entry_id", id).
		Str("order_id", event.OrderID).
		Msg("purchase event published")
	return nil
}

// LogNotifier only logs purchase events. Used when no Redis is configured.
type LogNotifier struct{}

// PurchaseCompleted implements service.Notifier.
func (LogNotifier) PurchaseCompleted(_ context.Context, event model.PurchaseEvent) error {
	log.Info().
		Str("order_id", event.OrderID).
		Str("payment_id", event.PaymentID).
		Str("payment_method", string(event.Method)).
		Str("transaction_id", event.TransactionID).
		Str("amount", event.Amount.StringFixed(2)).
		Msg("purchase completed")
	return nil
}

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	log.Info().Msg("redis connection established")
	return client, nil
}
