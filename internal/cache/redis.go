package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Journal remembers which drafts were approved from this dashboard so
// later loads can flag approvals the pipeline has not reflected yet.
type Journal interface {
	Close() error
	IsApproved(ctx context.Context, id string) (bool, error)
	MarkApproved(ctx context.Context, id string, ttl time.Duration) error
	ClearApproved(ctx context.Context) error
}

type RedisJournal struct {
	client *redis.Client
	prefix string
}

// NewRedisJournal connects to redisURL and verifies the connection
func NewRedisJournal(redisURL, prefix string) (*RedisJournal, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisJournal{
		client: client,
		prefix: prefix,
	}, nil
}

func (r *RedisJournal) Close() error {
	return r.client.Close()
}

func (r *RedisJournal) IsApproved(ctx context.Context, id string) (bool, error) {
	exists, err := r.client.Exists(ctx, r.prefix+id).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists error: %w", err)
	}
	return exists > 0, nil
}

func (r *RedisJournal) MarkApproved(ctx context.Context, id string, ttl time.Duration) error {
	stamp := time.Now().UTC().Format(time.RFC3339)
	if err := r.client.Set(ctx, r.prefix+id, stamp, ttl).Err(); err != nil {
		return fmt.Errorf("redis set error: %w", err)
	}
	return nil
}

func (r *RedisJournal) ClearApproved(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 0).Iterator()
	var keys []string

	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}

	if err := iter.Err(); err != nil {
		return fmt.Errorf("error scanning keys: %w", err)
	}

	if len(keys) > 0 {
		if err := r.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("error deleting keys: %w", err)
		}
	}

	return nil
}
