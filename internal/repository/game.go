package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/othello-rooms/internal/apperror"
	"github.com/rocketscienceinc/othello-rooms/internal/entity"
)

var ErrGameNotFound = errors.New("game not found")

type GameRepository interface {
	GetByID(ctx context.Context, roomID string) (*entity.Game, error)
	Create(ctx context.Context, game *entity.Game) (*entity.Game, bool, error)
	Update(ctx context.Context, roomID string, fn func(game *entity.Game) (bool, error)) (*entity.Game, bool, error)
}

type dbGame struct {
	client *redis.Client
}

func NewGameRepository(client *redis.Client) GameRepository {
	return &dbGame{
		client: client,
	}
}

func (that *dbGame) GetByID(ctx context.Context, roomID string) (*entity.Game, error) {
	response, err := that.client.Get(ctx, gameKey(roomID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrGameNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}

	return unmarshalGame(response)
}

// Create stores game unless the room already has one, and returns the stored game.
// The game key gets the remaining TTL of the room meta.
func (that *dbGame) Create(ctx context.Context, game *entity.Game) (*entity.Game, bool, error) {
	key := gameKey(game.RoomID)

	data, err := json.Marshal(game)
	if err != nil {
		return nil, false, fmt.Errorf("could not marshal game: %w", err)
	}

	var (
		stored  *entity.Game
		created bool
	)

	txf := func(tx *redis.Tx) error {
		ttl, err := roomTTL(ctx, tx, game.RoomID)
		if err != nil {
			return err
		}

		response, err := tx.Get(ctx, key).Result()
		switch {
		case err == nil:
			stored, err = unmarshalGame(response)
			created = false
			return err
		case !errors.Is(err, redis.Nil):
			return fmt.Errorf("failed to get game: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.SetNX(ctx, key, data, ttl)
			return nil
		})
		if err != nil {
			return err
		}

		stored, created = game, true

		return nil
	}

	if err = that.watch(ctx, txf, game.RoomID); err != nil {
		return nil, false, err
	}

	return stored, created, nil
}

// Update runs fn against the freshly loaded game under WATCH and writes it back when fn reports a change.
// The write copies the room meta TTL to the game key, a room without expiry keeps a game without expiry.
func (that *dbGame) Update(
	ctx context.Context,
	roomID string,
	fn func(game *entity.Game) (bool, error),
) (*entity.Game, bool, error) {
	key := gameKey(roomID)

	var (
		game    *entity.Game
		changed bool
	)

	txf := func(tx *redis.Tx) error {
		ttl, err := roomTTL(ctx, tx, roomID)
		if err != nil {
			return err
		}

		response, err := tx.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return ErrGameNotFound
		}

		if err != nil {
			return fmt.Errorf("failed to get game: %w", err)
		}

		if game, err = unmarshalGame(response); err != nil {
			return err
		}

		if changed, err = fn(game); err != nil || !changed {
			return err
		}

		data, err := json.Marshal(game)
		if err != nil {
			return fmt.Errorf("could not marshal game: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, ttl)
			return nil
		})

		return err
	}

	if err := that.watch(ctx, txf, roomID); err != nil {
		return nil, false, err
	}

	return game, changed, nil
}

func (that *dbGame) watch(ctx context.Context, txf func(tx *redis.Tx) error, roomID string) error {
	for range maxTxRetries {
		err := that.client.Watch(ctx, txf, roomKey(roomID), gameKey(roomID))
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}

		return err
	}

	return fmt.Errorf("failed to write game %s: %w", roomID, ErrTooManyRetries)
}

// roomTTL returns the expiration to give a room scoped key, 0 when the room never expires.
func roomTTL(ctx context.Context, tx *redis.Tx, roomID string) (time.Duration, error) {
	ttl, err := tx.PTTL(ctx, roomKey(roomID)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get room ttl: %w", err)
	}

	switch {
	case ttl == keyMissing:
		return 0, apperror.ErrRoomVanished
	case ttl > 0:
		return ttl, nil
	default:
		return 0, nil
	}
}

func unmarshalGame(response string) (*entity.Game, error) {
	var game entity.Game
	if err := json.Unmarshal([]byte(response), &game); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game: %w", err)
	}

	return &game, nil
}
