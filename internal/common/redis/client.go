// Package redis builds Redis clients and publishes events to Redis streams.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"irrad-data/internal/common/config"

	"github.com/go-redis/redis/v8"
)

// NewRedisClient creates a client for cfg. It does not dial.
func NewRedisClient(cfg *config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// Ping checks the connection.
func Ping(ctx context.Context, client *redis.Client) error {
	return client.Ping(ctx).Err()
}

// PublishJSONToStream appends data, JSON encoded, to stream as {"data", "timestamp"}.
// maxLen > 0 trims the stream approximately to that length.
func PublishJSONToStream(ctx context.Context, client *redis.Client, stream string, data any, maxLen int64) (string, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to encode stream message: %w", err)
	}
	args := &redis.XAddArgs{
		Stream: stream,
		Values: map[string]any{
			"data":      string(b),
			"timestamp": fmt.Sprintf("%d", time.Now().Unix()),
		},
	}
	if maxLen > 0 {
		args.MaxLen = maxLen
		args.Approx = true
	}
	id, err := client.XAdd(ctx, args).Result()
	if err != nil {
		return "", fmt.Errorf("failed to publish to stream %s: %w", stream, err)
	}
	return id, nil
}
