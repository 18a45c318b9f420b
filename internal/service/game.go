package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rocketscienceinc/othello-rooms/internal/bot"
	"github.com/rocketscienceinc/othello-rooms/internal/entity"
	"github.com/rocketscienceinc/othello-rooms/internal/othello"
	"github.com/rocketscienceinc/othello-rooms/internal/pkg"
	"github.com/rocketscienceinc/othello-rooms/internal/repository"
)

type roomReader interface {
	GetByID(ctx context.Context, roomID string) (*entity.Room, error)
	PinBotColor(ctx context.Context, roomID string, color entity.Color) (entity.Color, error)
}

type gameRepo interface {
	GetByID(ctx context.Context, roomID string) (*entity.Game, error)
	Create(ctx context.Context, game *entity.Game) (*entity.Game, bool, error)
	Update(ctx context.Context, roomID string, fn func(game *entity.Game) (bool, error)) (*entity.Game, bool, error)
}

type eventPublisher interface {
	Publish(ctx context.Context, roomID string, event entity.Event) error
}

// GameService owns the game state machine of every room.
type GameService struct {
	logger *slog.Logger
	random pkg.Random

	rooms  roomReader
	games  gameRepo
	events eventPublisher
}

func NewGameService(logger *slog.Logger, random pkg.Random, rooms roomReader, games gameRepo, events eventPublisher) *GameService {
	return &GameService{
		logger: logger.With("component", "game_service"),
		random: random,

		rooms:  rooms,
		games:  games,
		events: events,
	}
}

// Load returns the game of the room, bootstrapping it from the room membership when none is stored yet.
func (that *GameService) Load(ctx context.Context, roomID string) (*entity.Game, error) {
	game, err := that.games.GetByID(ctx, roomID)
	if err == nil {
		return game, nil
	}

	if !errors.Is(err, repository.ErrGameNotFound) {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}

	room, err := that.rooms.GetByID(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}

	game, err = that.initialGame(ctx, room)
	if err != nil {
		return nil, err
	}

	stored, created, err := that.games.Create(ctx, game)
	if err != nil {
		return nil, fmt.Errorf("failed to create game: %w", err)
	}

	if created {
		that.logger.Debug("game bootstrapped", "room", roomID, "status", stored.Status)
		that.publish(ctx, stored)
	}

	return stored, nil
}

// Start moves a waiting game to playing once the room is playable. It is a no-op otherwise.
func (that *GameService) Start(ctx context.Context, roomID string) (*entity.Game, error) {
	game, err := that.Load(ctx, roomID)
	if err != nil {
		return nil, err
	}

	if !game.IsWaiting() {
		return game, nil
	}

	room, err := that.rooms.GetByID(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}

	if !room.IsPlayable() {
		return game, nil
	}

	black, white, err := that.assignColors(ctx, room)
	if err != nil {
		return nil, err
	}

	game, changed, err := that.games.Update(ctx, roomID, func(game *entity.Game) (bool, error) {
		if !game.IsWaiting() {
			return false, nil
		}

		game.Start(black, white, time.Now().UTC())

		return true, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start game: %w", err)
	}

	if changed {
		that.logger.Info("game started", "room", roomID)
		that.publish(ctx, game)
	}

	return game, nil
}

// Move plays token's disc at (x, y). Turn and legality are checked against the stored game at write time.
func (that *GameService) Move(ctx context.Context, roomID, token string, x, y int) (*entity.Game, error) {
	return that.transition(ctx, roomID, func(game *entity.Game) error {
		return game.PlaceDisc(token, x, y, time.Now().UTC())
	})
}

func (that *GameService) Pass(ctx context.Context, roomID, token string) (*entity.Game, error) {
	return that.transition(ctx, roomID, func(game *entity.Game) error {
		return game.Pass(token, time.Now().UTC())
	})
}

// AdvanceBot plays one AI turn, a move or a forced pass. It reports false when it was not the AI's turn.
func (that *GameService) AdvanceBot(ctx context.Context, roomID string) (*entity.Game, bool, error) {
	room, err := that.rooms.GetByID(ctx, roomID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to get room: %w", err)
	}

	if room.Bot == nil {
		return nil, false, nil
	}

	level := bot.ClampLevel(room.Bot.Level)

	game, changed, err := that.games.Update(ctx, roomID, func(game *entity.Game) (bool, error) {
		if !game.IsBotTurn() {
			return false, nil
		}

		now := time.Now().UTC()

		move, ok := bot.ChooseMove(game.Board, game.Turn.Cell(), level, that.random)
		if !ok {
			return true, game.Pass(entity.BotToken, now)
		}

		return true, game.PlaceDisc(entity.BotToken, move.X, move.Y, now)
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to advance bot: %w", err)
	}

	if changed {
		that.publish(ctx, game)
	}

	return game, changed, nil
}

func (that *GameService) transition(ctx context.Context, roomID string, apply func(game *entity.Game) error) (*entity.Game, error) {
	if _, err := that.Load(ctx, roomID); err != nil {
		return nil, err
	}

	game, _, err := that.games.Update(ctx, roomID, func(game *entity.Game) (bool, error) {
		if err := apply(game); err != nil {
			return false, err
		}

		return true, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update game: %w", err)
	}

	that.publish(ctx, game)

	return game, nil
}

func (that *GameService) initialGame(ctx context.Context, room *entity.Room) (*entity.Game, error) {
	now := time.Now().UTC()

	board := othello.NewBoard().WithHandicap(room.Handicap.Black, room.Handicap.White)
	game := entity.NewGame(room.ID, board, now)

	if !room.IsPlayable() {
		return game, nil
	}

	black, white, err := that.assignColors(ctx, room)
	if err != nil {
		return nil, err
	}

	game.Start(black, white, now)

	return game, nil
}

// assignColors returns the black and white tokens. AI rooms pin the human color in the room meta,
// invite rooms honor the host preference, everything else is a coin flip.
func (that *GameService) assignColors(ctx context.Context, room *entity.Room) (string, string, error) {
	if room.IsAI() {
		human := room.Players[0]

		color := room.Bot.ResolvedColor
		if !color.IsSide() {
			color = room.Bot.HumanColor
			if !color.IsSide() {
				color = that.flipColor()
			}

			pinned, err := that.rooms.PinBotColor(ctx, room.ID, color)
			if err != nil {
				return "", "", fmt.Errorf("failed to pin bot color: %w", err)
			}
			color = pinned
		}

		if color == entity.ColorBlack {
			return human, entity.BotToken, nil
		}

		return entity.BotToken, human, nil
	}

	host, guest := room.Players[0], room.Players[1]

	hostColor := entity.ColorRandom
	if room.Invite != nil && room.Invite.HostColor.IsSide() {
		hostColor = room.Invite.HostColor
	}

	if !hostColor.IsSide() {
		hostColor = that.flipColor()
	}

	if hostColor == entity.ColorBlack {
		return host, guest, nil
	}

	return guest, host, nil
}

func (that *GameService) flipColor() entity.Color {
	if pkg.CoinFlip(that.random) {
		return entity.ColorBlack
	}

	return entity.ColorWhite
}

// publish announces the new public state. Delivery is best effort.
func (that *GameService) publish(ctx context.Context, game *entity.Game) {
	if err := that.events.Publish(ctx, game.RoomID, entity.NewGameStateEvent(game)); err != nil {
		that.logger.Warn("failed to publish game state", "room", game.RoomID, "error", err)
	}
}
