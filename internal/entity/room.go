package entity

import (
	"slices"
	"time"

	"github.com/rocketscienceinc/othello-rooms/internal/apperror"
)

type Mode string

const (
	ModeInvite Mode = "invite"
	ModeMatch  Mode = "match"
	ModeAI     Mode = "ai"
)

type Role string

const (
	RoleNone      Role = ""
	RolePlayer    Role = "player"
	RoleSpectator Role = "spectator"
)

// Handicap holds extra discs stamped on the starting board, by cell index.
type Handicap struct {
	Black []int `json:"black,omitempty"`
	White []int `json:"white,omitempty"`
}

type InviteSettings struct {
	PlayerCode        string `json:"player_code"`
	SpectatorCode     string `json:"spectator_code,omitempty"`
	AllowSpectators   bool   `json:"allow_spectators"`
	SpectatorChat     bool   `json:"spectator_chat"`
	SpectatorCapacity int    `json:"spectator_capacity"`
	HostColor         Color  `json:"host_color,omitempty"`
}

type BotSettings struct {
	Level      int   `json:"level"`
	HumanColor Color `json:"human_color,omitempty"`

	// ResolvedColor is the human color once decided. It is stored apart from the settings.
	ResolvedColor Color `json:"-"`
}

// Room is the metadata of one room. Invite is set only for invite rooms and Bot only for AI rooms.
type Room struct {
	ID         string
	Mode       Mode
	CreatedAt  time.Time
	Players    []string
	Spectators []string
	Handicap   Handicap

	// Lifetime is the countdown applied once the room is playable. Nil means the room never expires.
	Lifetime *time.Duration

	Invite *InviteSettings
	Bot    *BotSettings
}

func NewInviteRoom(id string, createdAt time.Time, invite InviteSettings, handicap Handicap, lifetime *time.Duration) *Room {
	if !invite.AllowSpectators {
		invite.SpectatorCode = ""
		invite.SpectatorChat = false
		invite.SpectatorCapacity = 0
	}

	return &Room{
		ID:        id,
		Mode:      ModeInvite,
		CreatedAt: createdAt,
		Handicap:  handicap,
		Lifetime:  lifetime,
		Invite:    &invite,
	}
}

func NewMatchRoom(id string, createdAt time.Time, lifetime *time.Duration) *Room {
	return &Room{
		ID:        id,
		Mode:      ModeMatch,
		CreatedAt: createdAt,
		Lifetime:  lifetime,
	}
}

func NewBotRoom(id string, createdAt time.Time, settings BotSettings, handicap Handicap, lifetime *time.Duration) *Room {
	settings.ResolvedColor = ""

	return &Room{
		ID:        id,
		Mode:      ModeAI,
		CreatedAt: createdAt,
		Handicap:  handicap,
		Lifetime:  lifetime,
		Bot:       &settings,
	}
}

func (that *Room) IsAI() bool {
	return that.Mode == ModeAI
}

// Threshold is the number of human players needed to start the game.
func (that *Room) Threshold() int {
	if that.IsAI() {
		return 1
	}

	return 2
}

func (that *Room) IsPlayable() bool {
	return len(that.Players) >= that.Threshold()
}

func (that *Room) SpectatorCapacity() int {
	if that.Invite == nil || !that.Invite.AllowSpectators {
		return 0
	}

	return that.Invite.SpectatorCapacity
}

func (that *Room) RoleOf(token string) Role {
	switch {
	case token == "":
		return RoleNone
	case slices.Contains(that.Players, token):
		return RolePlayer
	case slices.Contains(that.Spectators, token):
		return RoleSpectator
	default:
		return RoleNone
	}
}

// Codes returns the issued invite codes keyed by role.
func (that *Room) Codes() map[Role]string {
	codes := make(map[Role]string, 2)
	if that.Invite == nil {
		return codes
	}

	if that.Invite.PlayerCode != "" {
		codes[RolePlayer] = that.Invite.PlayerCode
	}
	if that.Invite.SpectatorCode != "" {
		codes[RoleSpectator] = that.Invite.SpectatorCode
	}

	return codes
}

// Admit places token into the room and reports whether the token lists changed.
// code must already be normalized.
func (that *Room) Admit(token, code string) (Role, bool, error) {
	if role := that.RoleOf(token); role != RoleNone {
		return role, false, nil
	}

	switch that.Mode {
	case ModeAI, ModeMatch:
		return that.admitPlayer(token)
	case ModeInvite:
		return that.admitInvited(token, code)
	default:
		return RoleNone, false, apperror.ErrRoomNotFound
	}
}

func (that *Room) admitInvited(token, code string) (Role, bool, error) {
	if that.Invite == nil {
		return RoleNone, false, apperror.ErrInviteCodeInvalid
	}

	if code == "" {
		if len(that.Players) == 0 {
			return that.admitPlayer(token)
		}

		return RoleNone, false, apperror.ErrInviteCodeRequired
	}

	switch {
	case code == that.Invite.PlayerCode:
		return that.admitPlayer(token)
	case that.Invite.AllowSpectators && that.Invite.SpectatorCode != "" && code == that.Invite.SpectatorCode:
		if len(that.Spectators) >= that.SpectatorCapacity() {
			return RoleNone, false, apperror.ErrSpectatorSlotsFull
		}

		that.Spectators = append(that.Spectators, token)

		return RoleSpectator, true, nil
	default:
		return RoleNone, false, apperror.ErrInviteCodeInvalid
	}
}

func (that *Room) admitPlayer(token string) (Role, bool, error) {
	if len(that.Players) >= that.Threshold() {
		return RoleNone, false, apperror.ErrRoomFull
	}

	that.Players = append(that.Players, token)

	return RolePlayer, true, nil
}
