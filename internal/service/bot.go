package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rocketscienceinc/othello-rooms/internal/config"
	"github.com/rocketscienceinc/othello-rooms/internal/entity"
	"github.com/rocketscienceinc/othello-rooms/internal/pkg"
)

type botDriver interface {
	AdvanceBot(ctx context.Context, roomID string) (*entity.Game, bool, error)
}

type lockRepo interface {
	Acquire(ctx context.Context, roomID, owner string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, roomID, owner string) error
}

// BotScheduler plays AI turns in the background. Arming a room replaces its pending timer,
// so bursts of requests end in a single run after the delay.
type BotScheduler struct {
	logger *slog.Logger
	conf   config.Bot

	driver botDriver
	locks  lockRepo

	mu     sync.Mutex
	timers map[string]*time.Timer
	closed bool
	wg     sync.WaitGroup
}

func NewBotScheduler(logger *slog.Logger, conf config.Bot, driver botDriver, locks lockRepo) *BotScheduler {
	return &BotScheduler{
		logger: logger.With("component", "bot_scheduler"),
		conf:   conf,

		driver: driver,
		locks:  locks,

		timers: make(map[string]*time.Timer),
	}
}

// Arm schedules a run for the room after the configured delay.
func (that *BotScheduler) Arm(roomID string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.closed {
		return
	}

	if timer, ok := that.timers[roomID]; ok {
		timer.Stop()
	}

	var timer *time.Timer
	timer = time.AfterFunc(that.conf.Delay, func() {
		that.mu.Lock()
		// superseded or canceled while waiting for the mutex
		if that.closed || that.timers[roomID] != timer {
			that.mu.Unlock()
			return
		}

		delete(that.timers, roomID)
		that.wg.Add(1)
		that.mu.Unlock()

		defer that.wg.Done()
		that.run(roomID)
	})

	that.timers[roomID] = timer
}

// Cancel drops the pending run of the room, if any.
func (that *BotScheduler) Cancel(roomID string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if timer, ok := that.timers[roomID]; ok {
		timer.Stop()
		delete(that.timers, roomID)
	}
}

// Shutdown stops every pending timer and waits for runs in flight.
func (that *BotScheduler) Shutdown() {
	that.mu.Lock()
	that.closed = true
	for roomID, timer := range that.timers {
		timer.Stop()
		delete(that.timers, roomID)
	}
	that.mu.Unlock()

	that.wg.Wait()
}

// run plays AI turns under the room lock until it is a human's turn or the game is over.
func (that *BotScheduler) run(roomID string) {
	log := that.logger.With("method", "run", "room", roomID)

	ctx, cancel := context.WithTimeout(context.Background(), that.conf.RunTimeout)
	defer cancel()

	owner := pkg.GenerateNewSessionID()

	acquired, err := that.locks.Acquire(ctx, roomID, owner, that.conf.LockTTL)
	if err != nil {
		log.Error("failed to acquire bot lock", "error", err)
		return
	}

	if !acquired {
		log.Debug("bot lock is held elsewhere, skipping")
		return
	}

	defer func() {
		releaseCtx, releaseCancel := context.WithTimeout(context.Background(), that.conf.LockTTL)
		defer releaseCancel()

		if err := that.locks.Release(releaseCtx, roomID, owner); err != nil {
			log.Error("failed to release bot lock", "error", err)
		}
	}()

	for step := 0; step < that.conf.MaxSteps; step++ {
		game, advanced, err := that.driver.AdvanceBot(ctx, roomID)
		if err != nil {
			log.Error("failed to advance bot", "error", err, "step", step)
			return
		}

		if !advanced || !game.IsBotTurn() {
			return
		}
	}

	log.Warn("bot step limit reached", "steps", that.conf.MaxSteps)
}
