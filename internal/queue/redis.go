package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisQueue stores tasks as JSON on a Redis list: LPUSH to submit, BRPOP to
// consume.
type RedisQueue struct {
	client  redis.UniversalClient
	key     string
	pollFor time.Duration
}

func NewRedisQueue(client redis.UniversalClient, key string) *RedisQueue {
	return &RedisQueue{client: client, key: key, pollFor: 5 * time.Second}
}

// DialRedisQueue connects to addr and verifies the connection.
func DialRedisQueue(ctx context.Context, addr, key string) (*RedisQueue, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return NewRedisQueue(client, key), nil
}

func (q *RedisQueue) Enqueue(ctx context.Context, task Task) (string, error) {
	task = prepare(task)
	payload, err := json.Marshal(task)
	if err != nil {
		return "", err
	}
	if err := q.client.LPush(ctx, q.key, payload).Err(); err != nil {
		return "", q.mapErr(err)
	}
	return task.ID, nil
}

// Dequeue polls BRPOP in short windows so ctx cancellation is honoured.
func (q *RedisQueue) Dequeue(ctx context.Context) (Task, error) {
	for {
		res, err := q.client.BRPop(ctx, q.pollFor, q.key).Result()
		if errors.Is(err, redis.Nil) {
			if ctx.Err() != nil {
				return Task{}, ctx.Err()
			}
			continue
		}
		if err != nil {
			return Task{}, q.mapErr(err)
		}
		// res is [key, value]
		var task Task
		if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
			return Task{}, fmt.Errorf("decode task: %w", err)
		}
		return task, nil
	}
}

func (q *RedisQueue) Close() error {
	return q.client.Close()
}

func (q *RedisQueue) mapErr(err error) error {
	if errors.Is(err, redis.ErrClosed) {
		return ErrClosed
	}
	return err
}
