package rest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rocketscienceinc/othello-rooms/internal/entity"
	"github.com/rocketscienceinc/othello-rooms/internal/service"
)

type roomUseCase interface {
	CreateInviteRoom(ctx context.Context, token string, roomConfig service.InviteRoomConfig) (*entity.Admission, error)
	CreateBotRoom(ctx context.Context, token string, roomConfig service.BotRoomConfig) (*entity.Admission, error)
	FindMatch(ctx context.Context, token string) (*entity.Admission, error)

	ResolveCode(ctx context.Context, code string) (*entity.CodeResolution, error)
	Join(ctx context.Context, roomID, token, code string) (*entity.Admission, error)

	GetGame(ctx context.Context, roomID, token string) (*entity.Snapshot, error)
	MakeMove(ctx context.Context, roomID, token string, x, y int) (*entity.Snapshot, error)
	Pass(ctx context.Context, roomID, token string) (*entity.Snapshot, error)

	Destroy(ctx context.Context, roomID, token string) error
}

type joinRequest struct {
	Code string `json:"code"`
}

type moveRequest struct {
	X *int `json:"x" binding:"required"`
	Y *int `json:"y" binding:"required"`
}

type Handlers struct {
	logger *slog.Logger
	rooms  roomUseCase
}

func NewHandlers(logger *slog.Logger, rooms roomUseCase) *Handlers {
	return &Handlers{
		logger: logger.With("component", "rest"),
		rooms:  rooms,
	}
}

func (that *Handlers) Ping(ctx *gin.Context) {
	ctx.String(http.StatusOK, "pong")
}

func (that *Handlers) CreateInviteRoom(ctx *gin.Context) {
	var roomConfig service.InviteRoomConfig
	if !bindOptional(ctx, &roomConfig) || !isColorChoice(roomConfig.HostColor) {
		abortInvalidRequest(ctx)
		return
	}

	admission, err := that.rooms.CreateInviteRoom(ctx.Request.Context(), tokenOf(ctx), roomConfig)
	if err != nil {
		that.abortWithError(ctx, "CreateInviteRoom", err)
		return
	}

	ctx.JSON(http.StatusCreated, admission)
}

func (that *Handlers) CreateBotRoom(ctx *gin.Context) {
	var roomConfig service.BotRoomConfig
	if !bindOptional(ctx, &roomConfig) || !isColorChoice(roomConfig.HumanColor) {
		abortInvalidRequest(ctx)
		return
	}

	admission, err := that.rooms.CreateBotRoom(ctx.Request.Context(), tokenOf(ctx), roomConfig)
	if err != nil {
		that.abortWithError(ctx, "CreateBotRoom", err)
		return
	}

	ctx.JSON(http.StatusCreated, admission)
}

func (that *Handlers) FindMatch(ctx *gin.Context) {
	admission, err := that.rooms.FindMatch(ctx.Request.Context(), tokenOf(ctx))
	if err != nil {
		that.abortWithError(ctx, "FindMatch", err)
		return
	}

	ctx.JSON(http.StatusOK, admission)
}

func (that *Handlers) ResolveCode(ctx *gin.Context) {
	resolution, err := that.rooms.ResolveCode(ctx.Request.Context(), ctx.Param("code"))
	if err != nil {
		that.abortWithError(ctx, "ResolveCode", err)
		return
	}

	ctx.JSON(http.StatusOK, resolution)
}

func (that *Handlers) Join(ctx *gin.Context) {
	var request joinRequest
	if !bindOptional(ctx, &request) {
		abortInvalidRequest(ctx)
		return
	}

	admission, err := that.rooms.Join(ctx.Request.Context(), ctx.Param("id"), tokenOf(ctx), request.Code)
	if err != nil {
		that.abortWithError(ctx, "Join", err)
		return
	}

	ctx.JSON(http.StatusOK, admission)
}

func (that *Handlers) GetGame(ctx *gin.Context) {
	snapshot, err := that.rooms.GetGame(ctx.Request.Context(), ctx.Param("id"), tokenOf(ctx))
	if err != nil {
		that.abortWithError(ctx, "GetGame", err)
		return
	}

	ctx.JSON(http.StatusOK, snapshot)
}

func (that *Handlers) MakeMove(ctx *gin.Context) {
	var request moveRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		abortInvalidRequest(ctx)
		return
	}

	snapshot, err := that.rooms.MakeMove(ctx.Request.Context(), ctx.Param("id"), tokenOf(ctx), *request.X, *request.Y)
	if err != nil {
		that.abortWithError(ctx, "MakeMove", err)
		return
	}

	ctx.JSON(http.StatusOK, snapshot)
}

func (that *Handlers) Pass(ctx *gin.Context) {
	snapshot, err := that.rooms.Pass(ctx.Request.Context(), ctx.Param("id"), tokenOf(ctx))
	if err != nil {
		that.abortWithError(ctx, "Pass", err)
		return
	}

	ctx.JSON(http.StatusOK, snapshot)
}

func (that *Handlers) Destroy(ctx *gin.Context) {
	if err := that.rooms.Destroy(ctx.Request.Context(), ctx.Param("id"), tokenOf(ctx)); err != nil {
		that.abortWithError(ctx, "Destroy", err)
		return
	}

	ctx.Status(http.StatusNoContent)
}

// bindOptional decodes a JSON body when one is sent. An empty body keeps the zero value.
func bindOptional(ctx *gin.Context, target any) bool {
	err := ctx.ShouldBindJSON(target)

	return err == nil || errors.Is(err, io.EOF)
}

func isColorChoice(color entity.Color) bool {
	return color == "" || color == entity.ColorRandom || color.IsSide()
}
