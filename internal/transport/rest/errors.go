package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rocketscienceinc/othello-rooms/internal/apperror"
)

type errorResponse struct {
	Error string `json:"error"`
}

type errorMapping struct {
	err    error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{apperror.ErrRoomNotFound, http.StatusNotFound, "room_not_found"},
	{apperror.ErrRoomFull, http.StatusConflict, "room_full"},
	{apperror.ErrSpectatorSlotsFull, http.StatusConflict, "spectator_slots_full"},
	{apperror.ErrInviteCodeRequired, http.StatusBadRequest, "invite_code_required"},
	{apperror.ErrInviteCodeInvalid, http.StatusBadRequest, "invite_code_invalid"},
	{apperror.ErrSpectatorsNotAllowed, http.StatusForbidden, "spectators_not_allowed"},

	{apperror.ErrNotAPlayer, http.StatusForbidden, "not_a_player"},
	{apperror.ErrNotAMember, http.StatusForbidden, "not_a_member"},
	{apperror.ErrForbidden, http.StatusForbidden, "forbidden"},

	{apperror.ErrGameIsNotStarted, http.StatusConflict, "game_not_started"},
	{apperror.ErrGameFinished, http.StatusConflict, "game_finished"},
	{apperror.ErrNotYourTurn, http.StatusConflict, "not_your_turn"},
	{apperror.ErrIllegalMove, http.StatusUnprocessableEntity, "illegal_move"},
	{apperror.ErrPassNotAllowed, http.StatusUnprocessableEntity, "pass_not_allowed"},

	{apperror.ErrRoomVanished, http.StatusGone, "room_vanished"},
}

// abortWithError answers with the status and code of err. Unknown errors are logged and hidden.
func (that *Handlers) abortWithError(ctx *gin.Context, method string, err error) {
	for _, mapping := range errorMappings {
		if errors.Is(err, mapping.err) {
			ctx.AbortWithStatusJSON(mapping.status, errorResponse{Error: mapping.code})
			return
		}
	}

	that.logger.Error("request failed", "method", method, "path", ctx.FullPath(), "error", err)
	ctx.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse{Error: "internal_error"})
}

func abortInvalidRequest(ctx *gin.Context) {
	ctx.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: "invalid_request"})
}
