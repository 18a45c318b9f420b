package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/othello-rooms/internal/config"
	"github.com/rocketscienceinc/othello-rooms/internal/entity"
	"github.com/rocketscienceinc/othello-rooms/internal/pkg"
	"github.com/rocketscienceinc/othello-rooms/internal/repository"
	"github.com/rocketscienceinc/othello-rooms/testing/suite"
)

var botConfig = config.Bot{
	Delay:      20 * time.Millisecond,
	LockTTL:    time.Second,
	MaxSteps:   4,
	RunTimeout: time.Second,
}

// countingDriver reports the AI turn as always pending unless stop is set.
type countingDriver struct {
	calls atomic.Int32
	err   error
	stop  bool
}

func (that *countingDriver) AdvanceBot(context.Context, string) (*entity.Game, bool, error) {
	that.calls.Add(1)

	if that.err != nil {
		return nil, false, that.err
	}

	game := &entity.Game{Status: entity.StatusPlaying, Turn: entity.ColorBlack, BlackToken: entity.BotToken}
	if that.stop {
		game.Turn = entity.ColorWhite
	}

	return game, true, nil
}

type fakeLock struct {
	mu       sync.Mutex
	held     bool
	acquired int
	released int
}

func (that *fakeLock) Acquire(context.Context, string, string, time.Duration) (bool, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.held {
		return false, nil
	}

	that.held = true
	that.acquired++

	return true, nil
}

func (that *fakeLock) Release(context.Context, string, string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.held = false
	that.released++

	return nil
}

func (that *fakeLock) counts() (int, int) {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.acquired, that.released
}

func newScheduler(t *testing.T, driver botDriver, locks lockRepo) *BotScheduler {
	t.Helper()

	_, st := suite.NewInMemory(t)

	scheduler := NewBotScheduler(st.Logger, botConfig, driver, locks)
	t.Cleanup(scheduler.Shutdown)

	return scheduler
}

func TestBotScheduler_Arm(t *testing.T) {
	t.Run("Burst of arms ends in a single run", func(t *testing.T) {
		driver := &countingDriver{stop: true}
		locks := &fakeLock{}
		scheduler := newScheduler(t, driver, locks)

		// When: the room is armed several times within the delay
		for range 5 {
			scheduler.Arm("room")
		}

		// Then: one run happens and its lock is released
		require.Eventually(t, func() bool {
			_, released := locks.counts()
			return released == 1
		}, time.Second, 5*time.Millisecond)

		time.Sleep(3 * botConfig.Delay)
		assert.Equal(t, int32(1), driver.calls.Load())
	})

	t.Run("Cancel drops the pending run", func(t *testing.T) {
		driver := &countingDriver{stop: true}
		scheduler := newScheduler(t, driver, &fakeLock{})

		scheduler.Arm("room")
		scheduler.Cancel("room")

		time.Sleep(3 * botConfig.Delay)
		assert.Zero(t, driver.calls.Load())
	})

	t.Run("Held lock skips the run", func(t *testing.T) {
		driver := &countingDriver{stop: true}
		locks := &fakeLock{held: true}
		scheduler := newScheduler(t, driver, locks)

		scheduler.Arm("room")

		time.Sleep(3 * botConfig.Delay)
		assert.Zero(t, driver.calls.Load())
		_, released := locks.counts()
		assert.Zero(t, released)
	})

	t.Run("Steps are bounded", func(t *testing.T) {
		driver := &countingDriver{}
		locks := &fakeLock{}
		scheduler := newScheduler(t, driver, locks)

		scheduler.Arm("room")

		require.Eventually(t, func() bool {
			_, released := locks.counts()
			return released == 1
		}, time.Second, 5*time.Millisecond)
		assert.Equal(t, int32(botConfig.MaxSteps), driver.calls.Load())
	})

	t.Run("Lock is released after a failed step", func(t *testing.T) {
		driver := &countingDriver{err: errors.New("boom")}
		locks := &fakeLock{}
		scheduler := newScheduler(t, driver, locks)

		scheduler.Arm("room")

		require.Eventually(t, func() bool {
			_, released := locks.counts()
			return released == 1
		}, time.Second, 5*time.Millisecond)
		assert.Equal(t, int32(1), driver.calls.Load())
	})

	t.Run("Shutdown ignores later arms", func(t *testing.T) {
		driver := &countingDriver{stop: true}
		scheduler := newScheduler(t, driver, &fakeLock{})

		scheduler.Shutdown()
		scheduler.Arm("room")

		time.Sleep(3 * botConfig.Delay)
		assert.Zero(t, driver.calls.Load())
	})
}

func TestBotScheduler_AnswersHumanMove(t *testing.T) {
	f := newFixture(t, pkg.NewSeededRandom(7))

	scheduler := NewBotScheduler(f.st.Logger, config.Bot{
		Delay:      20 * time.Millisecond,
		LockTTL:    5 * time.Second,
		MaxSteps:   64,
		RunTimeout: 5 * time.Second,
	}, f.games, repository.NewLockRepository(f.st.Storage))
	t.Cleanup(scheduler.Shutdown)

	// Given: a hard AI room where the human plays black and has opened
	room, err := f.rooms.CreateBotRoom(f.ctx, BotRoomConfig{Level: 3, HumanColor: entity.ColorBlack})
	require.NoError(t, err)
	_, _, err = f.rooms.Admit(f.ctx, room.ID, "human", "")
	require.NoError(t, err)
	_, err = f.games.Start(f.ctx, room.ID)
	require.NoError(t, err)

	game, err := f.games.Move(f.ctx, room.ID, "human", 3, 2)
	require.NoError(t, err)
	require.True(t, game.IsBotTurn())

	// When: the scheduler is armed
	scheduler.Arm(room.ID)

	// Then: the AI answers and hands the turn back
	games := repository.NewGameRepository(f.st.Storage)
	require.Eventually(t, func() bool {
		current, err := games.GetByID(f.ctx, room.ID)
		if err != nil {
			return false
		}

		return current.Turn == entity.ColorBlack && current.LastMove != nil && current.LastMove.Color == entity.ColorWhite
	}, 2*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		return !f.st.Memory.Exists("room:" + room.ID + ":bot-lock")
	}, time.Second, 10*time.Millisecond, "lock is released after the run")
}
