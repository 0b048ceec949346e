package telemetry

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dkeye/roomrelay/internal/core"
	"github.com/redis/go-redis/v9"
)

// RedisSink appends notices to a Redis stream.
type RedisSink struct {
	client *redis.Client
	stream string
}

func NewRedisSink(client *redis.Client, stream string) *RedisSink {
	return &RedisSink{client: client, stream: stream}
}

func (s *RedisSink) Publish(ctx context.Context, n core.Notice) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notice: %w", err)
	}
	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]any{
			"reason":  n.Reason,
			"address": n.Address,
			"payload": string(data),
		},
	}
	return retry(ctx, "redis", func() error {
		return s.client.XAdd(ctx, args).Err()
	})
}
