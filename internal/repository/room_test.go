package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/othello-rooms/internal/apperror"
	"github.com/rocketscienceinc/othello-rooms/internal/entity"
	"github.com/rocketscienceinc/othello-rooms/testing/suite"
)

var createdAt = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newInviteRoom(id string) *entity.Room {
	lifetime := 10 * time.Minute

	return entity.NewInviteRoom(id, createdAt, entity.InviteSettings{
		PlayerCode:        "PLAY01",
		SpectatorCode:     "WATCH1",
		AllowSpectators:   true,
		SpectatorChat:     true,
		SpectatorCapacity: 3,
		HostColor:         entity.ColorWhite,
	}, entity.Handicap{Black: []int{0}, White: []int{63}}, &lifetime)
}

func TestRoomRepository_CreateAndGet(t *testing.T) {
	t.Run("Round trip keeps every field", func(t *testing.T) {
		ctx, st := suite.NewInMemory(t)
		rooms := NewRoomRepository(st.Storage)

		// Given: an invite room with a handicap and a lifetime
		room := newInviteRoom("r1")
		room.Players = []string{"host"}

		// When: it is stored and loaded back
		require.NoError(t, rooms.Create(ctx, room, time.Hour))
		loaded, err := rooms.GetByID(ctx, "r1")

		// Then: the loaded room equals the stored one
		require.NoError(t, err)
		assert.Equal(t, room, loaded)
		assert.Equal(t, time.Hour, st.Memory.TTL(roomKey("r1")))
	})

	t.Run("Never expiring AI room", func(t *testing.T) {
		ctx, st := suite.NewInMemory(t)
		rooms := NewRoomRepository(st.Storage)

		room := entity.NewBotRoom("r2", createdAt, entity.BotSettings{Level: 3, HumanColor: entity.ColorBlack}, entity.Handicap{}, nil)
		require.NoError(t, rooms.Create(ctx, room, time.Hour))

		loaded, err := rooms.GetByID(ctx, "r2")

		require.NoError(t, err)
		assert.Nil(t, loaded.Lifetime)
		require.NotNil(t, loaded.Bot)
		assert.Equal(t, 3, loaded.Bot.Level)
		assert.Nil(t, loaded.Invite)
	})

	t.Run("Missing room", func(t *testing.T) {
		ctx, st := suite.NewInMemory(t)
		rooms := NewRoomRepository(st.Storage)

		_, err := rooms.GetByID(ctx, "absent")

		assert.ErrorIs(t, err, apperror.ErrRoomNotFound)
	})
}

func TestRoomRepository_Update(t *testing.T) {
	t.Run("Stores the admitted token without touching the TTL", func(t *testing.T) {
		ctx, st := suite.NewInMemory(t)
		rooms := NewRoomRepository(st.Storage)
		require.NoError(t, rooms.Create(ctx, entity.NewMatchRoom("r1", createdAt, nil), time.Hour))

		// When: a player is admitted
		room, err := rooms.Update(ctx, "r1", func(room *entity.Room) (bool, error) {
			_, changed, err := room.Admit("a", "")
			return changed, err
		})

		// Then: the list is persisted and the countdown is intact
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, room.Players)

		loaded, err := rooms.GetByID(ctx, "r1")
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, loaded.Players)
		assert.Equal(t, time.Hour, st.Memory.TTL(roomKey("r1")))
	})

	t.Run("Concurrent admissions all land", func(t *testing.T) {
		ctx, st := suite.NewInMemory(t)
		rooms := NewRoomRepository(st.Storage)
		room := newInviteRoom("r1")
		room.Invite.SpectatorCapacity = 10
		require.NoError(t, rooms.Create(ctx, room, time.Hour))

		// When: several spectators join at once
		tokens := []string{"s1", "s2", "s3", "s4", "s5"}
		var wg sync.WaitGroup
		for _, token := range tokens {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := rooms.Update(ctx, "r1", func(room *entity.Room) (bool, error) {
					room.Spectators = append(room.Spectators, token)
					return true, nil
				})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		// Then: none of them was lost
		loaded, err := rooms.GetByID(ctx, "r1")
		require.NoError(t, err)
		assert.ElementsMatch(t, tokens, loaded.Spectators)
	})

	t.Run("Errors from fn are returned and nothing is written", func(t *testing.T) {
		ctx, st := suite.NewInMemory(t)
		rooms := NewRoomRepository(st.Storage)
		room := entity.NewMatchRoom("r1", createdAt, nil)
		room.Players = []string{"a", "b"}
		require.NoError(t, rooms.Create(ctx, room, time.Hour))

		_, err := rooms.Update(ctx, "r1", func(room *entity.Room) (bool, error) {
			_, changed, err := room.Admit("c", "")
			return changed, err
		})

		require.ErrorIs(t, err, apperror.ErrRoomFull)
		loaded, err := rooms.GetByID(ctx, "r1")
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, loaded.Players)
	})

	t.Run("Missing room", func(t *testing.T) {
		ctx, st := suite.NewInMemory(t)
		rooms := NewRoomRepository(st.Storage)

		_, err := rooms.Update(ctx, "absent", func(*entity.Room) (bool, error) { return true, nil })

		assert.ErrorIs(t, err, apperror.ErrRoomNotFound)
	})
}

func TestRoomRepository_PinBotColor(t *testing.T) {
	t.Run("First resolution wins", func(t *testing.T) {
		ctx, st := suite.NewInMemory(t)
		rooms := NewRoomRepository(st.Storage)
		room := entity.NewBotRoom("r1", createdAt, entity.BotSettings{Level: 1}, entity.Handicap{}, nil)
		require.NoError(t, rooms.Create(ctx, room, time.Hour))

		first, err := rooms.PinBotColor(ctx, "r1", entity.ColorWhite)
		require.NoError(t, err)
		second, err := rooms.PinBotColor(ctx, "r1", entity.ColorBlack)
		require.NoError(t, err)

		assert.Equal(t, entity.ColorWhite, first)
		assert.Equal(t, entity.ColorWhite, second)

		loaded, err := rooms.GetByID(ctx, "r1")
		require.NoError(t, err)
		assert.Equal(t, entity.ColorWhite, loaded.Bot.ResolvedColor)
	})

	t.Run("Does not resurrect a missing room", func(t *testing.T) {
		ctx, st := suite.NewInMemory(t)
		rooms := NewRoomRepository(st.Storage)

		_, err := rooms.PinBotColor(ctx, "absent", entity.ColorWhite)

		require.ErrorIs(t, err, apperror.ErrRoomNotFound)
		assert.False(t, st.Memory.Exists(roomKey("absent")))
	})
}

func TestRoomRepository_TTL(t *testing.T) {
	t.Run("ApplyTTL moves every room key together", func(t *testing.T) {
		ctx, st := suite.NewInMemory(t)
		rooms := NewRoomRepository(st.Storage)
		room := newInviteRoom("r1")
		require.NoError(t, rooms.Create(ctx, room, time.Hour))
		require.NoError(t, st.Memory.Set(gameKey("r1"), "{}"))
		_, err := st.Memory.Lpush(messagesKey("r1"), "hello")
		require.NoError(t, err)
		require.NoError(t, st.Memory.Set(codeKey(entity.RolePlayer, "PLAY01"), "r1"))
		require.NoError(t, st.Memory.Set(codeKey(entity.RoleSpectator, "WATCH1"), "r1"))

		// When: the room switches to its playing countdown
		require.NoError(t, rooms.ApplyTTL(ctx, room, 10*time.Minute))

		// Then: all keys share it
		for _, key := range roomScopedKeys(room) {
			assert.Equal(t, 10*time.Minute, st.Memory.TTL(key), key)
		}

		ttl, err := rooms.TTL(ctx, "r1")
		require.NoError(t, err)
		assert.Equal(t, 10*time.Minute, ttl)
	})

	t.Run("Non positive TTL persists every room key", func(t *testing.T) {
		ctx, st := suite.NewInMemory(t)
		rooms := NewRoomRepository(st.Storage)
		room := newInviteRoom("r1")
		require.NoError(t, rooms.Create(ctx, room, time.Hour))
		require.NoError(t, st.Memory.Set(gameKey("r1"), "{}"))
		st.Memory.SetTTL(gameKey("r1"), time.Hour)

		require.NoError(t, rooms.ApplyTTL(ctx, room, 0))

		assert.Zero(t, st.Memory.TTL(roomKey("r1")))
		assert.Zero(t, st.Memory.TTL(gameKey("r1")))

		ttl, err := rooms.TTL(ctx, "r1")
		require.NoError(t, err)
		assert.Equal(t, NoExpiry, ttl)
	})

	t.Run("Expired room is not found", func(t *testing.T) {
		ctx, st := suite.NewInMemory(t)
		rooms := NewRoomRepository(st.Storage)
		require.NoError(t, rooms.Create(ctx, entity.NewMatchRoom("r1", createdAt, nil), time.Minute))

		st.Memory.FastForward(2 * time.Minute)

		_, err := rooms.TTL(ctx, "r1")
		require.ErrorIs(t, err, apperror.ErrRoomNotFound)
		_, err = rooms.GetByID(ctx, "r1")
		assert.ErrorIs(t, err, apperror.ErrRoomNotFound)
	})
}

func TestRoomRepository_Destroy(t *testing.T) {
	allowPlayers := func(token string) func(room *entity.Room) error {
		return func(room *entity.Room) error {
			if room.RoleOf(token) != entity.RolePlayer {
				return apperror.ErrForbidden
			}
			return nil
		}
	}

	seed := func(ctx context.Context, t *testing.T, st *suite.Suite, rooms RoomRepository) *entity.Room {
		t.Helper()

		room := newInviteRoom("r1")
		room.Players = []string{"host"}
		room.Spectators = []string{"viewer"}
		require.NoError(t, rooms.Create(ctx, room, time.Hour))
		require.NoError(t, st.Memory.Set(gameKey("r1"), "{}"))
		_, err := st.Memory.Lpush(messagesKey("r1"), "hello")
		require.NoError(t, err)
		require.NoError(t, st.Memory.Set(codeKey(entity.RolePlayer, "PLAY01"), "r1"))
		require.NoError(t, st.Memory.Set(codeKey(entity.RoleSpectator, "WATCH1"), "r1"))
		require.NoError(t, st.Memory.Set(botLockKey("r1"), "owner"))

		return room
	}

	t.Run("Player removes every key and announces it", func(t *testing.T) {
		ctx, st := suite.NewInMemory(t)
		rooms := NewRoomRepository(st.Storage)
		room := seed(ctx, t, st, rooms)

		sub := NewEventRepository(st.Storage).Subscribe(ctx, "r1")
		defer sub.Close()
		_, err := sub.Receive(ctx)
		require.NoError(t, err)

		// When: the host destroys the room
		err = rooms.Destroy(ctx, "r1", allowPlayers("host"))

		// Then: nothing is left and subscribers heard about it
		require.NoError(t, err)
		for _, key := range append(roomScopedKeys(room), botLockKey("r1")) {
			assert.False(t, st.Memory.Exists(key), key)
		}

		msg, err := sub.ReceiveMessage(ctx)
		require.NoError(t, err)
		assert.JSONEq(t, `{"event":"room.destroyed","payload":{"room_id":"r1"}}`, msg.Payload)
	})

	t.Run("Spectator is forbidden and nothing is deleted", func(t *testing.T) {
		ctx, st := suite.NewInMemory(t)
		rooms := NewRoomRepository(st.Storage)
		room := seed(ctx, t, st, rooms)

		err := rooms.Destroy(ctx, "r1", allowPlayers("viewer"))

		require.ErrorIs(t, err, apperror.ErrForbidden)
		for _, key := range roomScopedKeys(room) {
			assert.True(t, st.Memory.Exists(key), key)
		}
	})

	t.Run("Two concurrent destroys, exactly one wins", func(t *testing.T) {
		ctx, st := suite.NewInMemory(t)
		rooms := NewRoomRepository(st.Storage)
		room := seed(ctx, t, st, rooms)

		// When: both players destroy at the same time
		results := make([]error, 2)
		var wg sync.WaitGroup
		for i := range results {
			wg.Add(1)
			go func() {
				defer wg.Done()
				results[i] = rooms.Destroy(ctx, "r1", allowPlayers("host"))
			}()
		}
		wg.Wait()

		// Then: one acknowledgment, one not found, no orphaned keys
		var succeeded, notFound int
		for _, err := range results {
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, apperror.ErrRoomNotFound):
				notFound++
			}
		}
		assert.Equal(t, 1, succeeded)
		assert.Equal(t, 1, notFound)

		for _, key := range roomScopedKeys(room) {
			assert.False(t, st.Memory.Exists(key), key)
		}
	})
}
