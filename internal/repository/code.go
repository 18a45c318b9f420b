package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/othello-rooms/internal/entity"
)

var ErrCodeNotFound = errors.New("invite code not found")

// CodeRepository maps invite codes to room ids. Player and spectator codes live in separate namespaces.
type CodeRepository interface {
	Reserve(ctx context.Context, role entity.Role, code, roomID string, ttl time.Duration) (bool, error)
	Assign(ctx context.Context, role entity.Role, code, roomID string, ttl time.Duration) error
	Resolve(ctx context.Context, role entity.Role, code string) (string, error)
}

type dbCode struct {
	client *redis.Client
}

func NewCodeRepository(client *redis.Client) CodeRepository {
	return &dbCode{
		client: client,
	}
}

// Reserve maps code to roomID only if the code is free in its namespace.
func (that *dbCode) Reserve(ctx context.Context, role entity.Role, code, roomID string, ttl time.Duration) (bool, error) {
	ok, err := that.client.SetNX(ctx, codeKey(role, code), roomID, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to reserve code: %w", err)
	}

	return ok, nil
}

// Assign maps code to roomID, overwriting any previous mapping.
func (that *dbCode) Assign(ctx context.Context, role entity.Role, code, roomID string, ttl time.Duration) error {
	if err := that.client.Set(ctx, codeKey(role, code), roomID, ttl).Err(); err != nil {
		return fmt.Errorf("failed to assign code: %w", err)
	}

	return nil
}

func (that *dbCode) Resolve(ctx context.Context, role entity.Role, code string) (string, error) {
	roomID, err := that.client.Get(ctx, codeKey(role, code)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrCodeNotFound
	}

	if err != nil {
		return "", fmt.Errorf("failed to resolve code: %w", err)
	}

	return roomID, nil
}
