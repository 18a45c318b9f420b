package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// QueueRepository is the matchmaking queue. Rooms are pushed at the tail and popped from the head.
type QueueRepository interface {
	Push(ctx context.Context, roomID string) error
	PushFront(ctx context.Context, roomID string) error
	Pop(ctx context.Context) (string, bool, error)
}

type dbQueue struct {
	client *redis.Client
}

func NewQueueRepository(client *redis.Client) QueueRepository {
	return &dbQueue{
		client: client,
	}
}

func (that *dbQueue) Push(ctx context.Context, roomID string) error {
	if err := that.client.LPush(ctx, matchQueueKey, roomID).Err(); err != nil {
		return fmt.Errorf("failed to enqueue room: %w", err)
	}

	return nil
}

// PushFront puts roomID back so that it is popped next.
func (that *dbQueue) PushFront(ctx context.Context, roomID string) error {
	if err := that.client.RPush(ctx, matchQueueKey, roomID).Err(); err != nil {
		return fmt.Errorf("failed to requeue room: %w", err)
	}

	return nil
}

func (that *dbQueue) Pop(ctx context.Context) (string, bool, error) {
	roomID, err := that.client.RPop(ctx, matchQueueKey).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}

	if err != nil {
		return "", false, fmt.Errorf("failed to dequeue room: %w", err)
	}

	return roomID, true, nil
}
