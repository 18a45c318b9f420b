package entity

const (
	EventGameState     = "game.state"
	EventRoomDestroyed = "room.destroyed"
)

// Event is the envelope published on a room channel.
type Event struct {
	Name    string `json:"event"`
	Payload any    `json:"payload"`
}

type RoomDestroyed struct {
	RoomID string `json:"room_id"`
}

func NewGameStateEvent(game *Game) Event {
	return Event{Name: EventGameState, Payload: game.Public()}
}

func NewRoomDestroyedEvent(roomID string) Event {
	return Event{Name: EventRoomDestroyed, Payload: RoomDestroyed{RoomID: roomID}}
}

// Admission is what a caller learns about a room after joining it.
type Admission struct {
	RoomID            string `json:"room_id"`
	Role              Role   `json:"role"`
	Mode              Mode   `json:"mode"`
	PlayerCode        string `json:"player_code,omitempty"`
	SpectatorCode     string `json:"spectator_code,omitempty"`
	Spectators        int    `json:"spectators"`
	SpectatorCapacity int    `json:"spectator_capacity"`
	AutoDestroy       bool   `json:"auto_destroy"`
	RemainingSeconds  int64  `json:"remaining_seconds"`
}

// CodeResolution is the room and role an invite code leads to.
type CodeResolution struct {
	RoomID string `json:"room_id"`
	Role   Role   `json:"role"`
}
