package storage

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/othello-rooms/internal/config"
)

// New connects to Redis and checks the connection with a ping.
func New(ctx context.Context, conf config.Redis) (*redis.Client, error) {
	conn := redis.NewClient(&redis.Options{
		Addr:     conf.GetRedisAddr(),
		Password: conf.Password,
		DB:       conf.DB,
	})

	if _, err := conn.Ping(ctx).Result(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return conn, nil
}
