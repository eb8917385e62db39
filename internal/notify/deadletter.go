package notify

import (
	"context"
	"fmt"

	platformredis "hometrust/internal/platform/redis"
)

// DeadLetter receives notifications that exhausted their delivery attempts.
type DeadLetter interface {
	Push(ctx context.Context, payload []byte) error
}

// DeadLetterKey is the redis list holding dead notifications for manual
// replay.
const DeadLetterKey = "hometrust:notifications:dead"

// RedisDeadLetter appends dead notifications to a redis list.
type RedisDeadLetter struct {
	client *platformredis.Client
	key    string
}

func NewRedisDeadLetter(client *platformredis.Client) *RedisDeadLetter {
	return &RedisDeadLetter{client: client, key: DeadLetterKey}
}

func (d *RedisDeadLetter) Push(ctx context.Context, payload []byte) error {
	if err := d.client.RPush(ctx, d.key, payload).Err(); err != nil {
		return fmt.Errorf("push dead letter: %w", err)
	}
	return nil
}
