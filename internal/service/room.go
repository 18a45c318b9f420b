package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rocketscienceinc/othello-rooms/internal/apperror"
	"github.com/rocketscienceinc/othello-rooms/internal/config"
	"github.com/rocketscienceinc/othello-rooms/internal/entity"
	"github.com/rocketscienceinc/othello-rooms/internal/pkg"
	"github.com/rocketscienceinc/othello-rooms/internal/repository"
)

type roomRepo interface {
	Create(ctx context.Context, room *entity.Room, ttl time.Duration) error
	GetByID(ctx context.Context, roomID string) (*entity.Room, error)
	Update(ctx context.Context, roomID string, fn func(room *entity.Room) (bool, error)) (*entity.Room, error)
	TTL(ctx context.Context, roomID string) (time.Duration, error)
	ApplyTTL(ctx context.Context, room *entity.Room, ttl time.Duration) error
	Destroy(ctx context.Context, roomID string, authorize func(room *entity.Room) error) error
}

type codeRepo interface {
	Reserve(ctx context.Context, role entity.Role, code, roomID string, ttl time.Duration) (bool, error)
	Assign(ctx context.Context, role entity.Role, code, roomID string, ttl time.Duration) error
	Resolve(ctx context.Context, role entity.Role, code string) (string, error)
}

type queueRepo interface {
	Push(ctx context.Context, roomID string) error
	PushFront(ctx context.Context, roomID string) error
	Pop(ctx context.Context) (string, bool, error)
}

// Lifetime is the auto destroy policy requested at room creation.
type Lifetime struct {
	AutoDestroy bool `json:"auto_destroy"`
	// Seconds of the playing countdown, zero picks the configured default.
	Seconds int `json:"seconds"`
}

type InviteRoomConfig struct {
	AllowSpectators   bool            `json:"allow_spectators"`
	SpectatorChat     bool            `json:"spectator_chat"`
	SpectatorCapacity int             `json:"spectator_capacity"`
	HostColor         entity.Color    `json:"host_color"`
	Handicap          entity.Handicap `json:"handicap"`
	Lifetime          Lifetime        `json:"lifetime"`
}

type BotRoomConfig struct {
	Level      int             `json:"level"`
	HumanColor entity.Color    `json:"human_color"`
	Handicap   entity.Handicap `json:"handicap"`
	Lifetime   Lifetime        `json:"lifetime"`
}

type RoomService struct {
	logger *slog.Logger
	conf   config.Room
	random pkg.Random

	rooms roomRepo
	codes codeRepo
	queue queueRepo
}

func NewRoomService(
	logger *slog.Logger,
	conf config.Room,
	random pkg.Random,
	rooms roomRepo,
	codes codeRepo,
	queue queueRepo,
) *RoomService {
	return &RoomService{
		logger: logger.With("component", "room_service"),
		conf:   conf,
		random: random,

		rooms: rooms,
		codes: codes,
		queue: queue,
	}
}

// CreateInviteRoom creates a room joined by invite codes. The spectator code is issued only when spectators are allowed.
func (that *RoomService) CreateInviteRoom(ctx context.Context, roomConfig InviteRoomConfig) (*entity.Room, error) {
	log := that.logger.With("method", "CreateInviteRoom")

	roomID := pkg.GenerateRoomID()

	playerCode, err := that.issueCode(ctx, entity.RolePlayer, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue player code: %w", err)
	}

	settings := entity.InviteSettings{
		PlayerCode:        playerCode,
		AllowSpectators:   roomConfig.AllowSpectators,
		SpectatorChat:     roomConfig.SpectatorChat,
		SpectatorCapacity: that.spectatorCapacity(roomConfig.SpectatorCapacity),
		HostColor:         roomConfig.HostColor,
	}

	if roomConfig.AllowSpectators {
		if settings.SpectatorCode, err = that.issueCode(ctx, entity.RoleSpectator, roomID); err != nil {
			return nil, fmt.Errorf("failed to issue spectator code: %w", err)
		}
	}

	room := entity.NewInviteRoom(roomID, time.Now().UTC(), settings, roomConfig.Handicap, that.lifetime(roomConfig.Lifetime))
	if err = that.rooms.Create(ctx, room, that.conf.WaitingTTL); err != nil {
		return nil, fmt.Errorf("failed to create room: %w", err)
	}

	log.Info("invite room created", "room", roomID, "spectators", settings.AllowSpectators)

	return room, nil
}

// CreateBotRoom creates a room for one human against the AI.
func (that *RoomService) CreateBotRoom(ctx context.Context, roomConfig BotRoomConfig) (*entity.Room, error) {
	log := that.logger.With("method", "CreateBotRoom")

	settings := entity.BotSettings{
		Level:      roomConfig.Level,
		HumanColor: roomConfig.HumanColor,
	}

	room := entity.NewBotRoom(pkg.GenerateRoomID(), time.Now().UTC(), settings, roomConfig.Handicap, that.lifetime(roomConfig.Lifetime))
	if err := that.rooms.Create(ctx, room, that.conf.WaitingTTL); err != nil {
		return nil, fmt.Errorf("failed to create room: %w", err)
	}

	log.Info("bot room created", "room", room.ID, "level", settings.Level)

	return room, nil
}

// CreateMatchRoom creates a public room and puts it in the matchmaking queue.
func (that *RoomService) CreateMatchRoom(ctx context.Context) (*entity.Room, error) {
	room := entity.NewMatchRoom(pkg.GenerateRoomID(), time.Now().UTC(), that.lifetime(Lifetime{AutoDestroy: true}))
	if err := that.rooms.Create(ctx, room, that.conf.WaitingTTL); err != nil {
		return nil, fmt.Errorf("failed to create room: %w", err)
	}

	if err := that.queue.Push(ctx, room.ID); err != nil {
		return nil, fmt.Errorf("failed to enqueue room: %w", err)
	}

	return room, nil
}

// FindOrCreateMatch pops waiting rooms until one can take token. Stale entries are dropped.
// A room already holding token is put back and returned when nothing better turns up.
func (that *RoomService) FindOrCreateMatch(ctx context.Context, token string) (*entity.Room, error) {
	log := that.logger.With("method", "FindOrCreateMatch")

	var own *entity.Room

	for range that.conf.MatchAttempts {
		roomID, ok, err := that.queue.Pop(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to pop match queue: %w", err)
		}

		if !ok {
			break
		}

		room, err := that.rooms.GetByID(ctx, roomID)
		if errors.Is(err, apperror.ErrRoomNotFound) {
			log.Debug("dropped expired room from queue", "room", roomID)
			continue
		}

		if err != nil {
			return nil, fmt.Errorf("failed to get room: %w", err)
		}

		switch {
		case room.Mode != entity.ModeMatch || room.IsPlayable():
			log.Debug("dropped unusable room from queue", "room", roomID)
		case room.RoleOf(token) == entity.RolePlayer:
			own = room
		default:
			return room, nil
		}
	}

	if own != nil {
		if err := that.queue.PushFront(ctx, own.ID); err != nil {
			return nil, fmt.Errorf("failed to requeue room: %w", err)
		}

		return own, nil
	}

	room, err := that.CreateMatchRoom(ctx)
	if err != nil {
		return nil, err
	}

	log.Info("match room created", "room", room.ID)

	return room, nil
}

// ResolveCode maps an invite code to a room. Player codes are tried before spectator codes.
func (that *RoomService) ResolveCode(ctx context.Context, rawCode string) (*entity.CodeResolution, error) {
	code := pkg.NormalizeCode(rawCode)
	if !pkg.IsValidCode(code) {
		return nil, apperror.ErrInviteCodeInvalid
	}

	roomID, err := that.codes.Resolve(ctx, entity.RolePlayer, code)
	if err == nil {
		if _, err = that.rooms.GetByID(ctx, roomID); err != nil {
			return nil, fmt.Errorf("failed to get room: %w", err)
		}

		return &entity.CodeResolution{RoomID: roomID, Role: entity.RolePlayer}, nil
	}

	if !errors.Is(err, repository.ErrCodeNotFound) {
		return nil, fmt.Errorf("failed to resolve player code: %w", err)
	}

	roomID, err = that.codes.Resolve(ctx, entity.RoleSpectator, code)
	if errors.Is(err, repository.ErrCodeNotFound) {
		return nil, apperror.ErrRoomNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to resolve spectator code: %w", err)
	}

	room, err := that.rooms.GetByID(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}

	if room.SpectatorCapacity() == 0 {
		return nil, apperror.ErrSpectatorsNotAllowed
	}

	if len(room.Spectators) >= room.SpectatorCapacity() {
		return nil, apperror.ErrSpectatorSlotsFull
	}

	return &entity.CodeResolution{RoomID: roomID, Role: entity.RoleSpectator}, nil
}

// Admit puts token into the room and applies the TTL policy. The returned room reflects the admission.
func (that *RoomService) Admit(ctx context.Context, roomID, token, rawCode string) (*entity.Room, entity.Role, error) {
	log := that.logger.With("method", "Admit")

	code := pkg.NormalizeCode(rawCode)

	var (
		role    entity.Role
		reached bool
	)

	room, err := that.rooms.Update(ctx, roomID, func(room *entity.Room) (bool, error) {
		wasPlayable := room.IsPlayable()

		admitted, changed, err := room.Admit(token, code)
		if err != nil {
			return false, err
		}

		role = admitted
		reached = !wasPlayable && room.IsPlayable()

		return changed, nil
	})
	if err != nil {
		return nil, entity.RoleNone, fmt.Errorf("failed to admit: %w", err)
	}

	switch {
	case reached:
		if err = that.rooms.ApplyTTL(ctx, room, that.playingTTL(room)); err != nil {
			return nil, entity.RoleNone, err
		}

		log.Info("room became playable", "room", roomID, "auto_destroy", room.Lifetime != nil)
	case !room.IsPlayable():
		if err = that.refreshWaiting(ctx, room); err != nil {
			return nil, entity.RoleNone, err
		}
	}

	return room, role, nil
}

// Destroy deletes the room. Only players may do it.
func (that *RoomService) Destroy(ctx context.Context, roomID, token string) error {
	err := that.rooms.Destroy(ctx, roomID, func(room *entity.Room) error {
		if room.RoleOf(token) != entity.RolePlayer {
			return apperror.ErrForbidden
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to destroy room: %w", err)
	}

	that.logger.Info("room destroyed", "room", roomID)

	return nil
}

func (that *RoomService) GetByID(ctx context.Context, roomID string) (*entity.Room, error) {
	return that.rooms.GetByID(ctx, roomID)
}

// RoleOf returns the room and the role token holds in it.
func (that *RoomService) RoleOf(ctx context.Context, roomID, token string) (*entity.Room, entity.Role, error) {
	room, err := that.rooms.GetByID(ctx, roomID)
	if err != nil {
		return nil, entity.RoleNone, err
	}

	return room, room.RoleOf(token), nil
}

// Describe builds the admission result. Invite codes are shown to players only.
func (that *RoomService) Describe(ctx context.Context, room *entity.Room, role entity.Role) (*entity.Admission, error) {
	admission := &entity.Admission{
		RoomID:            room.ID,
		Role:              role,
		Mode:              room.Mode,
		Spectators:        len(room.Spectators),
		SpectatorCapacity: room.SpectatorCapacity(),
		AutoDestroy:       room.Lifetime != nil,
	}

	if role == entity.RolePlayer && room.Invite != nil {
		admission.PlayerCode = room.Invite.PlayerCode
		admission.SpectatorCode = room.Invite.SpectatorCode
	}

	ttl, err := that.rooms.TTL(ctx, room.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get room ttl: %w", err)
	}

	if ttl > 0 {
		admission.RemainingSeconds = int64(ttl / time.Second)
	}

	return admission, nil
}

// refreshWaiting restores the waiting countdown of a room that lost it before becoming playable.
func (that *RoomService) refreshWaiting(ctx context.Context, room *entity.Room) error {
	ttl, err := that.rooms.TTL(ctx, room.ID)
	if err != nil {
		return fmt.Errorf("failed to get room ttl: %w", err)
	}

	if ttl > 0 {
		return nil
	}

	if err = that.rooms.ApplyTTL(ctx, room, that.conf.WaitingTTL); err != nil {
		return fmt.Errorf("failed to refresh waiting ttl: %w", err)
	}

	return nil
}

// playingTTL is the countdown of a playable room, zero when it never expires.
func (that *RoomService) playingTTL(room *entity.Room) time.Duration {
	if room.Lifetime == nil {
		return 0
	}

	return *room.Lifetime
}

func (that *RoomService) lifetime(requested Lifetime) *time.Duration {
	if !requested.AutoDestroy {
		return nil
	}

	lifetime := that.conf.DefaultTTL
	if requested.Seconds > 0 {
		lifetime = time.Duration(requested.Seconds) * time.Second
	}

	return &lifetime
}

func (that *RoomService) spectatorCapacity(requested int) int {
	if requested <= 0 || requested > that.conf.SpectatorCapacity {
		return that.conf.SpectatorCapacity
	}

	return requested
}

// issueCode reserves a free code, accepting a collision once the attempts run out.
func (that *RoomService) issueCode(ctx context.Context, role entity.Role, roomID string) (string, error) {
	var code string

	for range that.conf.CodeAttempts {
		code = pkg.GenerateCode(that.random)

		ok, err := that.codes.Reserve(ctx, role, code, roomID, that.conf.WaitingTTL)
		if err != nil {
			return "", err
		}

		if ok {
			return code, nil
		}
	}

	code = pkg.GenerateCode(that.random)
	that.logger.Warn("invite code attempts exhausted, overwriting", "role", role, "room", roomID)

	if err := that.codes.Assign(ctx, role, code, roomID, that.conf.WaitingTTL); err != nil {
		return "", err
	}

	return code, nil
}
