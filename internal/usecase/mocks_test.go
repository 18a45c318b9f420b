package usecase

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/rocketscienceinc/othello-rooms/internal/entity"
	"github.com/rocketscienceinc/othello-rooms/internal/service"
)

type mockRoomService struct {
	mock.Mock
}

func (that *mockRoomService) CreateInviteRoom(ctx context.Context, roomConfig service.InviteRoomConfig) (*entity.Room, error) {
	args := that.Called(ctx, roomConfig)
	return args.Get(0).(*entity.Room), args.Error(1)
}

func (that *mockRoomService) CreateBotRoom(ctx context.Context, roomConfig service.BotRoomConfig) (*entity.Room, error) {
	args := that.Called(ctx, roomConfig)
	return args.Get(0).(*entity.Room), args.Error(1)
}

func (that *mockRoomService) FindOrCreateMatch(ctx context.Context, token string) (*entity.Room, error) {
	args := that.Called(ctx, token)
	return args.Get(0).(*entity.Room), args.Error(1)
}

func (that *mockRoomService) ResolveCode(ctx context.Context, rawCode string) (*entity.CodeResolution, error) {
	args := that.Called(ctx, rawCode)
	return args.Get(0).(*entity.CodeResolution), args.Error(1)
}

func (that *mockRoomService) Admit(ctx context.Context, roomID, token, rawCode string) (*entity.Room, entity.Role, error) {
	args := that.Called(ctx, roomID, token, rawCode)
	return args.Get(0).(*entity.Room), args.Get(1).(entity.Role), args.Error(2)
}

func (that *mockRoomService) RoleOf(ctx context.Context, roomID, token string) (*entity.Room, entity.Role, error) {
	args := that.Called(ctx, roomID, token)
	return args.Get(0).(*entity.Room), args.Get(1).(entity.Role), args.Error(2)
}

func (that *mockRoomService) Describe(ctx context.Context, room *entity.Room, role entity.Role) (*entity.Admission, error) {
	args := that.Called(ctx, room, role)
	return args.Get(0).(*entity.Admission), args.Error(1)
}

func (that *mockRoomService) Destroy(ctx context.Context, roomID, token string) error {
	return that.Called(ctx, roomID, token).Error(0)
}

type mockGameService struct {
	mock.Mock
}

func (that *mockGameService) Load(ctx context.Context, roomID string) (*entity.Game, error) {
	args := that.Called(ctx, roomID)
	return args.Get(0).(*entity.Game), args.Error(1)
}

func (that *mockGameService) Start(ctx context.Context, roomID string) (*entity.Game, error) {
	args := that.Called(ctx, roomID)
	return args.Get(0).(*entity.Game), args.Error(1)
}

func (that *mockGameService) Move(ctx context.Context, roomID, token string, x, y int) (*entity.Game, error) {
	args := that.Called(ctx, roomID, token, x, y)
	return args.Get(0).(*entity.Game), args.Error(1)
}

func (that *mockGameService) Pass(ctx context.Context, roomID, token string) (*entity.Game, error) {
	args := that.Called(ctx, roomID, token)
	return args.Get(0).(*entity.Game), args.Error(1)
}

type mockBotScheduler struct {
	mock.Mock
}

func (that *mockBotScheduler) Arm(roomID string) {
	that.Called(roomID)
}

func (that *mockBotScheduler) Cancel(roomID string) {
	that.Called(roomID)
}
