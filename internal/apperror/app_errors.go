package apperror

import "errors"

// admission
var (
	ErrRoomNotFound         = errors.New("room not found")
	ErrRoomFull             = errors.New("room is full")
	ErrSpectatorSlotsFull   = errors.New("spectator slots are full")
	ErrInviteCodeRequired   = errors.New("invite code is required")
	ErrInviteCodeInvalid    = errors.New("invite code is invalid")
	ErrSpectatorsNotAllowed = errors.New("room does not allow spectators")
)

// authorization
var (
	ErrNotAPlayer = errors.New("not a player of this room")
	ErrNotAMember = errors.New("not a member of this room")
	ErrForbidden  = errors.New("forbidden")
)

// game rules
var (
	ErrGameIsNotStarted = errors.New("game is not started")
	ErrGameFinished     = errors.New("game is already finished")
	ErrNotYourTurn      = errors.New("it's not your turn")
	ErrIllegalMove      = errors.New("illegal move")
	ErrPassNotAllowed   = errors.New("pass is not allowed while moves exist")
)

// integrity
var ErrRoomVanished = errors.New("room expired or vanished")
