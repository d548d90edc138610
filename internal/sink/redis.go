// v0
// internal/sink/redis.go
package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisSink stores each collection as a sorted set scored by epoch milliseconds.
type RedisSink struct {
	client *redis.Client
	prefix string
}

// NewRedisSink connects and pings the server.
func NewRedisSink(ctx context.Context, addr string, db int, password, prefix string) (*RedisSink, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		DB:       db,
		Password: password,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	if prefix == "" {
		prefix = "footfall"
	}
	return &RedisSink{client: client, prefix: prefix}, nil
}

func (s *RedisSink) Name() string { return "redis" }

// Key returns the sorted set holding collection.
func (s *RedisSink) Key(collection string) string {
	return s.prefix + ":" + safeName(collection)
}

func (s *RedisSink) Write(ctx context.Context, b Batch) error {
	if err := b.validate(); err != nil {
		return err
	}
	entries, err := encode(b)
	if err != nil {
		return err
	}
	key := s.Key(b.Collection)

	pipe := s.client.TxPipeline()
	if !b.Update {
		pipe.Del(ctx, key)
	}
	for _, e := range entries {
		pipe.ZAdd(ctx, key, redis.Z{
			Score:  float64(e.at.UnixMilli()),
			Member: e.raw,
		})
	}
	_, err = pipe.Exec(ctx)
	return err
}

// Range returns the raw documents of collection between two instants.
func (s *RedisSink) Range(ctx context.Context, collection string, from, to time.Time) ([]string, error) {
	return s.client.ZRangeByScore(ctx, s.Key(collection), &redis.ZRangeBy{
		Min: fmt.Sprintf("%d", from.UnixMilli()),
		Max: fmt.Sprintf("%d", to.UnixMilli()),
	}).Result()
}

func (s *RedisSink) Close() error { return s.client.Close() }
