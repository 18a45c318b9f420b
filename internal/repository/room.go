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

const (
	// NoExpiry is the remaining TTL reported for a room that never expires.
	NoExpiry = time.Duration(-1)

	keyMissing = time.Duration(-2)

	lifetimeNever = "never"
)

// pinFieldScript sets a hash field once, only while the hash exists, and returns the stored value.
var pinFieldScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return false
end
redis.call('HSETNX', KEYS[1], ARGV[1], ARGV[2])
return redis.call('HGET', KEYS[1], ARGV[1])
`)

type RoomRepository interface {
	Create(ctx context.Context, room *entity.Room, ttl time.Duration) error
	GetByID(ctx context.Context, roomID string) (*entity.Room, error)
	Update(ctx context.Context, roomID string, fn func(room *entity.Room) (bool, error)) (*entity.Room, error)
	PinBotColor(ctx context.Context, roomID string, color entity.Color) (entity.Color, error)
	TTL(ctx context.Context, roomID string) (time.Duration, error)
	ApplyTTL(ctx context.Context, room *entity.Room, ttl time.Duration) error
	Destroy(ctx context.Context, roomID string, authorize func(room *entity.Room) error) error
}

type dbRoom struct {
	client *redis.Client
}

func NewRoomRepository(client *redis.Client) RoomRepository {
	return &dbRoom{
		client: client,
	}
}

// Create stores the room meta with ttl. A non-positive ttl stores it without expiry.
func (that *dbRoom) Create(ctx context.Context, room *entity.Room, ttl time.Duration) error {
	fields, err := encodeRoom(room)
	if err != nil {
		return fmt.Errorf("could not marshal room: %w", err)
	}

	key := roomKey(room.ID)
	_, err = that.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, fields)
		if ttl > 0 {
			pipe.PExpire(ctx, key, ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to create room: %w", err)
	}

	return nil
}

func (that *dbRoom) GetByID(ctx context.Context, roomID string) (*entity.Room, error) {
	fields, err := that.client.HGetAll(ctx, roomKey(roomID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}

	return decodeRoom(roomID, fields)
}

// Update runs fn against fresh meta under WATCH and stores the participant lists when fn reports a change.
func (that *dbRoom) Update(
	ctx context.Context,
	roomID string,
	fn func(room *entity.Room) (bool, error),
) (*entity.Room, error) {
	key := roomKey(roomID)

	var room *entity.Room
	txf := func(tx *redis.Tx) error {
		fields, err := tx.HGetAll(ctx, key).Result()
		if err != nil {
			return fmt.Errorf("failed to get room: %w", err)
		}

		room, err = decodeRoom(roomID, fields)
		if err != nil {
			return err
		}

		changed, err := fn(room)
		if err != nil {
			return err
		}

		if !changed {
			return nil
		}

		players, err := json.Marshal(room.Players)
		if err != nil {
			return fmt.Errorf("could not marshal players: %w", err)
		}

		spectators, err := json.Marshal(room.Spectators)
		if err != nil {
			return fmt.Errorf("could not marshal spectators: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, roomHashPlayers, players, roomHashSpectators, spectators)
			return nil
		})

		return err
	}

	for range maxTxRetries {
		err := that.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}

		if err != nil {
			return nil, err
		}

		return room, nil
	}

	return nil, fmt.Errorf("failed to update room %s: %w", roomID, ErrTooManyRetries)
}

// PinBotColor stores the human color of an AI room once and returns whichever color won.
func (that *dbRoom) PinBotColor(ctx context.Context, roomID string, color entity.Color) (entity.Color, error) {
	pinned, err := pinFieldScript.Run(ctx, that.client, []string{roomKey(roomID)}, roomHashBotColor, string(color)).Text()
	if errors.Is(err, redis.Nil) {
		return "", apperror.ErrRoomNotFound
	}

	if err != nil {
		return "", fmt.Errorf("failed to pin bot color: %w", err)
	}

	return entity.Color(pinned), nil
}

// TTL returns the remaining lifetime of the room meta, NoExpiry if it never expires.
func (that *dbRoom) TTL(ctx context.Context, roomID string) (time.Duration, error) {
	ttl, err := that.client.PTTL(ctx, roomKey(roomID)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get room ttl: %w", err)
	}

	if ttl == keyMissing {
		return 0, apperror.ErrRoomNotFound
	}

	return ttl, nil
}

// ApplyTTL moves every room scoped key to the same countdown, or removes expiry when ttl is not positive.
func (that *dbRoom) ApplyTTL(ctx context.Context, room *entity.Room, ttl time.Duration) error {
	_, err := that.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, key := range roomScopedKeys(room) {
			if ttl > 0 {
				pipe.PExpire(ctx, key, ttl)
			} else {
				pipe.Persist(ctx, key)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to apply room ttl: %w", err)
	}

	return nil
}

// Destroy publishes room.destroyed and deletes every room key in one transaction.
// A concurrent destroy that lost the race gets ErrRoomNotFound.
func (that *dbRoom) Destroy(ctx context.Context, roomID string, authorize func(room *entity.Room) error) error {
	payload, err := json.Marshal(entity.NewRoomDestroyedEvent(roomID))
	if err != nil {
		return fmt.Errorf("could not marshal event: %w", err)
	}

	key := roomKey(roomID)
	txf := func(tx *redis.Tx) error {
		fields, err := tx.HGetAll(ctx, key).Result()
		if err != nil {
			return fmt.Errorf("failed to get room: %w", err)
		}

		room, err := decodeRoom(roomID, fields)
		if err != nil {
			return err
		}

		if err = authorize(room); err != nil {
			return err
		}

		keys := append(roomScopedKeys(room), botLockKey(roomID))
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Publish(ctx, eventsChannel(roomID), payload)
			pipe.Del(ctx, keys...)
			return nil
		})

		return err
	}

	for range maxTxRetries {
		err = that.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}

		return err
	}

	return fmt.Errorf("failed to destroy room %s: %w", roomID, ErrTooManyRetries)
}

func encodeRoom(room *entity.Room) (map[string]any, error) {
	players, err := json.Marshal(room.Players)
	if err != nil {
		return nil, err
	}

	spectators, err := json.Marshal(room.Spectators)
	if err != nil {
		return nil, err
	}

	handicap, err := json.Marshal(room.Handicap)
	if err != nil {
		return nil, err
	}

	lifetime := lifetimeNever
	if room.Lifetime != nil {
		lifetime = room.Lifetime.String()
	}

	fields := map[string]any{
		roomHashMode:       string(room.Mode),
		roomHashCreatedAt:  room.CreatedAt.UTC().Format(time.RFC3339Nano),
		roomHashPlayers:    players,
		roomHashSpectators: spectators,
		roomHashHandicap:   handicap,
		roomHashLifetime:   lifetime,
	}

	if room.Invite != nil {
		if fields[roomHashInvite], err = json.Marshal(room.Invite); err != nil {
			return nil, err
		}
	}

	if room.Bot != nil {
		if fields[roomHashBot], err = json.Marshal(room.Bot); err != nil {
			return nil, err
		}
	}

	return fields, nil
}

func decodeRoom(roomID string, fields map[string]string) (*entity.Room, error) {
	if len(fields) == 0 {
		return nil, apperror.ErrRoomNotFound
	}

	mode, ok := fields[roomHashMode]
	if !ok {
		return nil, apperror.ErrRoomNotFound
	}

	room := &entity.Room{
		ID:   roomID,
		Mode: entity.Mode(mode),
	}

	createdAt, err := time.Parse(time.RFC3339Nano, fields[roomHashCreatedAt])
	if err != nil {
		return nil, fmt.Errorf("failed to parse room creation time: %w", err)
	}
	room.CreatedAt = createdAt

	if err = unmarshalField(fields, roomHashPlayers, &room.Players); err != nil {
		return nil, err
	}

	if err = unmarshalField(fields, roomHashSpectators, &room.Spectators); err != nil {
		return nil, err
	}

	if err = unmarshalField(fields, roomHashHandicap, &room.Handicap); err != nil {
		return nil, err
	}

	if lifetime := fields[roomHashLifetime]; lifetime != "" && lifetime != lifetimeNever {
		duration, err := time.ParseDuration(lifetime)
		if err != nil {
			return nil, fmt.Errorf("failed to parse room lifetime: %w", err)
		}
		room.Lifetime = &duration
	}

	if _, ok := fields[roomHashInvite]; ok {
		room.Invite = &entity.InviteSettings{}
		if err = unmarshalField(fields, roomHashInvite, room.Invite); err != nil {
			return nil, err
		}
	}

	if _, ok := fields[roomHashBot]; ok {
		room.Bot = &entity.BotSettings{}
		if err = unmarshalField(fields, roomHashBot, room.Bot); err != nil {
			return nil, err
		}
		room.Bot.ResolvedColor = entity.Color(fields[roomHashBotColor])
	}

	return room, nil
}

func unmarshalField(fields map[string]string, name string, target any) error {
	raw, ok := fields[name]
	if !ok || raw == "" {
		return nil
	}

	if err := json.Unmarshal([]byte(raw), target); err != nil {
		return fmt.Errorf("failed to unmarshal room %s: %w", name, err)
	}

	return nil
}
