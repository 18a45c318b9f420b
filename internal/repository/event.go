package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/othello-rooms/internal/entity"
)

// EventRepository publishes room events on the room channel and subscribes to them.
type EventRepository interface {
	Publish(ctx context.Context, roomID string, event entity.Event) error
	Subscribe(ctx context.Context, roomID string) *redis.PubSub
}

type dbEvent struct {
	client *redis.Client
}

func NewEventRepository(client *redis.Client) EventRepository {
	return &dbEvent{
		client: client,
	}
}

func (that *dbEvent) Publish(ctx context.Context, roomID string, event entity.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("could not marshal event: %w", err)
	}

	if err = that.client.Publish(ctx, eventsChannel(roomID), data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

func (that *dbEvent) Subscribe(ctx context.Context, roomID string) *redis.PubSub {
	return that.client.Subscribe(ctx, eventsChannel(roomID))
}
