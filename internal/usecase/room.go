package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rocketscienceinc/othello-rooms/internal/apperror"
	"github.com/rocketscienceinc/othello-rooms/internal/entity"
	"github.com/rocketscienceinc/othello-rooms/internal/service"
)

type RoomUseCase interface {
	CreateInviteRoom(ctx context.Context, token string, roomConfig service.InviteRoomConfig) (*entity.Admission, error)
	CreateBotRoom(ctx context.Context, token string, roomConfig service.BotRoomConfig) (*entity.Admission, error)
	FindMatch(ctx context.Context, token string) (*entity.Admission, error)

	ResolveCode(ctx context.Context, code string) (*entity.CodeResolution, error)
	Join(ctx context.Context, roomID, token, code string) (*entity.Admission, error)
	RoleOf(ctx context.Context, roomID, token string) (entity.Role, error)

	GetGame(ctx context.Context, roomID, token string) (*entity.Snapshot, error)
	MakeMove(ctx context.Context, roomID, token string, x, y int) (*entity.Snapshot, error)
	Pass(ctx context.Context, roomID, token string) (*entity.Snapshot, error)

	Destroy(ctx context.Context, roomID, token string) error
}

type roomService interface {
	CreateInviteRoom(ctx context.Context, roomConfig service.InviteRoomConfig) (*entity.Room, error)
	CreateBotRoom(ctx context.Context, roomConfig service.BotRoomConfig) (*entity.Room, error)
	FindOrCreateMatch(ctx context.Context, token string) (*entity.Room, error)
	ResolveCode(ctx context.Context, rawCode string) (*entity.CodeResolution, error)
	Admit(ctx context.Context, roomID, token, rawCode string) (*entity.Room, entity.Role, error)
	RoleOf(ctx context.Context, roomID, token string) (*entity.Room, entity.Role, error)
	Describe(ctx context.Context, room *entity.Room, role entity.Role) (*entity.Admission, error)
	Destroy(ctx context.Context, roomID, token string) error
}

type gameService interface {
	Load(ctx context.Context, roomID string) (*entity.Game, error)
	Start(ctx context.Context, roomID string) (*entity.Game, error)
	Move(ctx context.Context, roomID, token string, x, y int) (*entity.Game, error)
	Pass(ctx context.Context, roomID, token string) (*entity.Game, error)
}

type botScheduler interface {
	Arm(roomID string)
	Cancel(roomID string)
}

type roomUseCase struct {
	logger *slog.Logger

	rooms roomService
	games gameService
	bots  botScheduler
}

func NewRoomUseCase(logger *slog.Logger, rooms roomService, games gameService, bots botScheduler) RoomUseCase {
	return &roomUseCase{
		logger: logger.With("component", "room_usecase"),

		rooms: rooms,
		games: games,
		bots:  bots,
	}
}

func (that *roomUseCase) CreateInviteRoom(
	ctx context.Context,
	token string,
	roomConfig service.InviteRoomConfig,
) (*entity.Admission, error) {
	room, err := that.rooms.CreateInviteRoom(ctx, roomConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create invite room: %w", err)
	}

	// the creator holds the first seat, no code needed
	return that.Join(ctx, room.ID, token, "")
}

func (that *roomUseCase) CreateBotRoom(
	ctx context.Context,
	token string,
	roomConfig service.BotRoomConfig,
) (*entity.Admission, error) {
	room, err := that.rooms.CreateBotRoom(ctx, roomConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot room: %w", err)
	}

	return that.Join(ctx, room.ID, token, "")
}

func (that *roomUseCase) FindMatch(ctx context.Context, token string) (*entity.Admission, error) {
	room, err := that.rooms.FindOrCreateMatch(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to find match: %w", err)
	}

	return that.Join(ctx, room.ID, token, "")
}

func (that *roomUseCase) ResolveCode(ctx context.Context, code string) (*entity.CodeResolution, error) {
	resolution, err := that.rooms.ResolveCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve code: %w", err)
	}

	return resolution, nil
}

// Join admits token and starts the game once the room has its players.
func (that *roomUseCase) Join(ctx context.Context, roomID, token, code string) (*entity.Admission, error) {
	log := that.logger.With("method", "Join")

	room, role, err := that.rooms.Admit(ctx, roomID, token, code)
	if err != nil {
		return nil, fmt.Errorf("failed to join room: %w", err)
	}

	var game *entity.Game
	if room.IsPlayable() {
		game, err = that.games.Start(ctx, roomID)
	} else {
		game, err = that.games.Load(ctx, roomID)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to prepare game: %w", err)
	}

	that.armIfBotTurn(game)

	log.Debug("joined room", "room", roomID, "role", role)

	admission, err := that.rooms.Describe(ctx, room, role)
	if err != nil {
		return nil, fmt.Errorf("failed to describe room: %w", err)
	}

	return admission, nil
}

func (that *roomUseCase) RoleOf(ctx context.Context, roomID, token string) (entity.Role, error) {
	_, role, err := that.rooms.RoleOf(ctx, roomID, token)
	if err != nil {
		return entity.RoleNone, fmt.Errorf("failed to get role: %w", err)
	}

	return role, nil
}

// GetGame returns the snapshot of a member. A pending AI turn is re-armed, which recovers runs lost to restarts.
func (that *roomUseCase) GetGame(ctx context.Context, roomID, token string) (*entity.Snapshot, error) {
	if err := that.authorize(ctx, roomID, token, false); err != nil {
		return nil, err
	}

	game, err := that.games.Load(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to load game: %w", err)
	}

	that.armIfBotTurn(game)

	return snapshotOf(game, token), nil
}

func (that *roomUseCase) MakeMove(ctx context.Context, roomID, token string, x, y int) (*entity.Snapshot, error) {
	if err := that.authorize(ctx, roomID, token, true); err != nil {
		return nil, err
	}

	game, err := that.games.Move(ctx, roomID, token, x, y)
	if err != nil {
		return nil, fmt.Errorf("failed to make move: %w", err)
	}

	that.armIfBotTurn(game)

	return snapshotOf(game, token), nil
}

func (that *roomUseCase) Pass(ctx context.Context, roomID, token string) (*entity.Snapshot, error) {
	if err := that.authorize(ctx, roomID, token, true); err != nil {
		return nil, err
	}

	game, err := that.games.Pass(ctx, roomID, token)
	if err != nil {
		return nil, fmt.Errorf("failed to pass: %w", err)
	}

	that.armIfBotTurn(game)

	return snapshotOf(game, token), nil
}

func (that *roomUseCase) Destroy(ctx context.Context, roomID, token string) error {
	if err := that.rooms.Destroy(ctx, roomID, token); err != nil {
		return fmt.Errorf("failed to destroy room: %w", err)
	}

	that.bots.Cancel(roomID)

	return nil
}

// authorize checks that token is a member of the room, or a player when playerOnly is set.
func (that *roomUseCase) authorize(ctx context.Context, roomID, token string, playerOnly bool) error {
	_, role, err := that.rooms.RoleOf(ctx, roomID, token)
	if err != nil {
		return fmt.Errorf("failed to get role: %w", err)
	}

	switch {
	case role == entity.RoleNone:
		return apperror.ErrNotAMember
	case playerOnly && role != entity.RolePlayer:
		return apperror.ErrNotAPlayer
	}

	return nil
}

func (that *roomUseCase) armIfBotTurn(game *entity.Game) {
	if game.IsBotTurn() {
		that.bots.Arm(game.RoomID)
	}
}

func snapshotOf(game *entity.Game, token string) *entity.Snapshot {
	snapshot := game.SnapshotFor(token)

	return &snapshot
}
