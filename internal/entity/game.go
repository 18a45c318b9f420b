package entity

import (
	"errors"
	"fmt"
	"time"

	"github.com/rocketscienceinc/othello-rooms/internal/apperror"
	"github.com/rocketscienceinc/othello-rooms/internal/othello"
)

type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
)

type Color string

const (
	ColorBlack  Color = "black"
	ColorWhite  Color = "white"
	ColorRandom Color = "random"
)

// WinnerDraw is the winner of a game that ended with equal disc counts.
const WinnerDraw = "draw"

// BotToken takes the place of a player token for the AI side.
const BotToken = "~bot"

var ErrUnknownGameStatus = errors.New("unknown game status")

// IsSide reports whether the color names one of the two sides.
func (that Color) IsSide() bool {
	return that == ColorBlack || that == ColorWhite
}

func (that Color) Opponent() Color {
	switch that {
	case ColorBlack:
		return ColorWhite
	case ColorWhite:
		return ColorBlack
	default:
		return ""
	}
}

func (that Color) Cell() othello.Cell {
	switch that {
	case ColorBlack:
		return othello.Black
	case ColorWhite:
		return othello.White
	default:
		return othello.Empty
	}
}

func ColorOfCell(cell othello.Cell) Color {
	switch cell {
	case othello.Black:
		return ColorBlack
	case othello.White:
		return ColorWhite
	default:
		return ""
	}
}

type Move struct {
	X     int   `json:"x"`
	Y     int   `json:"y"`
	Color Color `json:"color"`
}

type Game struct {
	RoomID     string        `json:"room_id"`
	Board      othello.Board `json:"board"`
	Status     Status        `json:"status"`
	Turn       Color         `json:"turn,omitempty"`
	Passes     int           `json:"passes"`
	Winner     string        `json:"winner,omitempty"`
	BlackToken string        `json:"black_token,omitempty"`
	WhiteToken string        `json:"white_token,omitempty"`
	LastMove   *Move         `json:"last_move,omitempty"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

func NewGame(roomID string, board othello.Board, now time.Time) *Game {
	return &Game{
		RoomID:    roomID,
		Board:     board,
		Status:    StatusWaiting,
		UpdatedAt: now,
	}
}

// Start binds both sides and hands the first turn to black.
func (that *Game) Start(blackToken, whiteToken string, now time.Time) {
	that.BlackToken = blackToken
	that.WhiteToken = whiteToken
	that.Status = StatusPlaying
	that.Turn = ColorBlack
	that.Passes = 0
	that.UpdatedAt = now

	that.settle()
}

func (that *Game) IsWaiting() bool {
	return that.Status == StatusWaiting
}

func (that *Game) IsPlaying() bool {
	return that.Status == StatusPlaying
}

func (that *Game) IsFinished() bool {
	return that.Status == StatusFinished
}

func (that *Game) ConfirmPlaying() error {
	switch that.Status {
	case StatusWaiting:
		return apperror.ErrGameIsNotStarted
	case StatusFinished:
		return apperror.ErrGameFinished
	case StatusPlaying:
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnknownGameStatus, that.Status)
	}
}

// ColorOf returns the side bound to token, or an empty color.
func (that *Game) ColorOf(token string) Color {
	switch {
	case token == "":
		return ""
	case token == that.BlackToken:
		return ColorBlack
	case token == that.WhiteToken:
		return ColorWhite
	default:
		return ""
	}
}

func (that *Game) TokenOf(color Color) string {
	switch color {
	case ColorBlack:
		return that.BlackToken
	case ColorWhite:
		return that.WhiteToken
	default:
		return ""
	}
}

func (that *Game) IsBotTurn() bool {
	return that.IsPlaying() && that.TokenOf(that.Turn) == BotToken
}

func (that *Game) turnOwner(token string) (Color, error) {
	if err := that.ConfirmPlaying(); err != nil {
		return "", err
	}

	color := that.ColorOf(token)
	if color == "" {
		return "", apperror.ErrNotAPlayer
	}

	if color != that.Turn {
		return "", apperror.ErrNotYourTurn
	}

	return color, nil
}

// PlaceDisc plays token's disc at (x, y).
func (that *Game) PlaceDisc(token string, x, y int, now time.Time) error {
	color, err := that.turnOwner(token)
	if err != nil {
		return err
	}

	if !othello.IsLegal(that.Board, x, y, color.Cell()) {
		return fmt.Errorf("%w: (%d, %d)", apperror.ErrIllegalMove, x, y)
	}

	that.Board = othello.Apply(that.Board, x, y, color.Cell())
	that.LastMove = &Move{X: x, Y: y, Color: color}
	that.Passes = 0
	that.Turn = color.Opponent()
	that.UpdatedAt = now

	that.settle()

	return nil
}

// Pass hands the turn over. It is only allowed when token's side has no legal move.
func (that *Game) Pass(token string, now time.Time) error {
	color, err := that.turnOwner(token)
	if err != nil {
		return err
	}

	if othello.HasAnyLegalMove(that.Board, color.Cell()) {
		return apperror.ErrPassNotAllowed
	}

	that.Turn = color.Opponent()
	that.Passes++
	that.UpdatedAt = now

	that.settle()

	return nil
}

// settle finishes the game after two passes in a row, on a full board or when neither side can move.
func (that *Game) settle() {
	if !that.IsPlaying() {
		return
	}

	stuck := !othello.HasAnyLegalMove(that.Board, othello.Black) && !othello.HasAnyLegalMove(that.Board, othello.White)
	if that.Passes < 2 && !othello.IsFull(that.Board) && !stuck {
		return
	}

	that.Status = StatusFinished
	that.Turn = ""

	winner := ColorOfCell(othello.Winner(that.Board))
	if winner == "" {
		that.Winner = WinnerDraw
	} else {
		that.Winner = string(winner)
	}
}

// PublicGame is the game as every room member may see it, without tokens.
type PublicGame struct {
	Board      othello.Board `json:"board"`
	Status     Status        `json:"status"`
	Turn       *Color        `json:"turn"`
	Passes     int           `json:"passes"`
	Winner     *string       `json:"winner"`
	BlackCount int           `json:"black_count"`
	WhiteCount int           `json:"white_count"`
	LastMove   *Move         `json:"last_move"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

func (that *Game) Public() PublicGame {
	black, white := othello.Count(that.Board)

	public := PublicGame{
		Board:      that.Board,
		Status:     that.Status,
		Passes:     that.Passes,
		BlackCount: black,
		WhiteCount: white,
		UpdatedAt:  that.UpdatedAt,
	}

	if that.Turn != "" {
		turn := that.Turn
		public.Turn = &turn
	}

	if that.Winner != "" {
		winner := that.Winner
		public.Winner = &winner
	}

	if that.LastMove != nil {
		move := *that.LastMove
		public.LastMove = &move
	}

	return public
}

// Snapshot is the game as seen by one caller.
type Snapshot struct {
	Me    *Color     `json:"me"`
	State PublicGame `json:"state"`
}

func (that *Game) SnapshotFor(token string) Snapshot {
	snapshot := Snapshot{State: that.Public()}

	if color := that.ColorOf(token); color != "" && token != BotToken {
		snapshot.Me = &color
	}

	return snapshot
}
