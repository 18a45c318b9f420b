package repository

import (
	"errors"

	"github.com/rocketscienceinc/othello-rooms/internal/entity"
)

// maxTxRetries bounds optimistic transactions that lost a WATCH race.
const maxTxRetries = 16

var ErrTooManyRetries = errors.New("too many concurrent updates")

const matchQueueKey = "match:queue"

const (
	roomHashMode       = "mode"
	roomHashCreatedAt  = "created_at"
	roomHashPlayers    = "players"
	roomHashSpectators = "spectators"
	roomHashHandicap   = "handicap"
	roomHashLifetime   = "lifetime"
	roomHashInvite     = "invite"
	roomHashBot        = "bot"
	roomHashBotColor   = "bot_color"
)

func roomKey(roomID string) string {
	return "room:" + roomID
}

func gameKey(roomID string) string {
	return roomKey(roomID) + ":game"
}

func messagesKey(roomID string) string {
	return roomKey(roomID) + ":messages"
}

func botLockKey(roomID string) string {
	return roomKey(roomID) + ":bot-lock"
}

func eventsChannel(roomID string) string {
	return roomKey(roomID) + ":events"
}

func codeKey(role entity.Role, code string) string {
	return "code:" + string(role) + ":" + code
}

// roomScopedKeys lists every key whose lifetime follows the room.
func roomScopedKeys(room *entity.Room) []string {
	keys := []string{roomKey(room.ID), gameKey(room.ID), messagesKey(room.ID)}
	for role, code := range room.Codes() {
		keys = append(keys, codeKey(role, code))
	}

	return keys
}
