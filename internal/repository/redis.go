package repository

import (
	"context"
	"fmt"
	"time"

	"coffeebeat/internal/config"

	"github.com/redis/go-redis/v9"
)

const (
	clearedSetKey      = "coffeebeat:cleared_bookings"
	clearedChannelName = "coffeebeat:table_cleared"
)

// RedisOverrideRepository shares the cleared-booking set across views through
// Redis and broadcasts clear actions on a pub/sub channel.
type RedisOverrideRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient builds a Redis client from configuration.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func NewRedisOverrideRepository(client *redis.Client, ttl time.Duration) *RedisOverrideRepository {
	return &RedisOverrideRepository{client: client, ttl: ttl}
}

func (r *RedisOverrideRepository) MarkCleared(ctx context.Context, bookingID string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.SAdd(ctx, clearedSetKey, bookingID).Err(); err != nil {
		return fmt.Errorf("add cleared booking: %w", err)
	}
	if r.ttl > 0 {
		r.client.Expire(ctx, clearedSetKey, r.ttl)
	}
	if err := r.client.Publish(ctx, clearedChannelName, bookingID).Err(); err != nil {
		return fmt.Errorf("publish cleared signal: %w", err)
	}
	return nil
}

func (r *RedisOverrideRepository) IsCleared(ctx context.Context, bookingID string) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	ok, err := r.client.SIsMember(ctx, clearedSetKey, bookingID).Result()
	if err != nil {
		return false, fmt.Errorf("check cleared booking: %w", err)
	}
	return ok, nil
}

func (r *RedisOverrideRepository) ClearedIDs(ctx context.Context) ([]string, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	ids, err := r.client.SMembers(ctx, clearedSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list cleared bookings: %w", err)
	}
	return ids, nil
}

// SubscribeCleared delivers booking IDs cleared by other views. The returned
// cancel function closes the subscription.
func (r *RedisOverrideRepository) SubscribeCleared(ctx context.Context) (<-chan string, func(), error) {
	if r.client == nil {
		return nil, nil, fmt.Errorf("redis client is nil")
	}
	sub := r.client.Subscribe(ctx, clearedChannelName)
	out := make(chan string)

	go func() {
		defer close(out)
		for msg := range sub.Channel() {
			select {
			case out <- msg.Payload:
			case <-ctx.Done():
				return
			}
		}
	}()

	cancel := func() { _ = sub.Close() }
	return out, cancel, nil
}

// Ping verifies the Redis connection.
func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
