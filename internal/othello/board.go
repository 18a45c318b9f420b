package othello

// Size is the number of rows and columns of the board.
const Size = 8

// Cells is the total number of cells on the board.
const Cells = Size * Size

type Cell uint8

const (
	Empty Cell = iota
	Black
	White
)

// Opponent returns the other color. Empty has no opponent.
func (that Cell) Opponent() Cell {
	switch that {
	case Black:
		return White
	case White:
		return Black
	default:
		return Empty
	}
}

// Board is a row-major 8x8 grid, cell index = y*Size + x.
type Board [Cells]Cell

type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (that Point) Index() int {
	return that.Y*Size + that.X
}

func PointOf(index int) Point {
	return Point{X: index % Size, Y: index / Size}
}

func InBounds(x, y int) bool {
	return x >= 0 && x < Size && y >= 0 && y < Size
}

var directions = [8][2]int{
	{-1, -1}, {0, -1}, {1, -1},
	{-1, 0}, {1, 0},
	{-1, 1}, {0, 1}, {1, 1},
}

// startingDiscs are the four fixed discs of the standard opening.
var startingDiscs = map[int]Cell{
	3*Size + 3: White,
	3*Size + 4: Black,
	4*Size + 3: Black,
	4*Size + 4: White,
}

// NewBoard returns the standard starting position.
func NewBoard() Board {
	var board Board
	for index, cell := range startingDiscs {
		board[index] = cell
	}

	return board
}

// WithHandicap stamps handicap discs onto empty cells. Black is stamped first,
// so a cell requested by both sides stays black. Starting discs are never overridden.
func (that Board) WithHandicap(black, white []int) Board {
	stamp := func(indexes []int, cell Cell) {
		for _, index := range indexes {
			if index < 0 || index >= Cells {
				continue
			}
			if _, fixed := startingDiscs[index]; fixed {
				continue
			}
			if that[index] == Empty {
				that[index] = cell
			}
		}
	}

	stamp(black, Black)
	stamp(white, White)

	return that
}

// Flips returns the indexes captured by placing player at (x, y), or nil if the move is illegal.
func Flips(board Board, x, y int, player Cell) []int {
	if !InBounds(x, y) || board[y*Size+x] != Empty {
		return nil
	}

	opponent := player.Opponent()
	if opponent == Empty {
		return nil
	}

	var flips []int
	for _, dir := range directions {
		var run []int

		cx, cy := x+dir[0], y+dir[1]
		for InBounds(cx, cy) && board[cy*Size+cx] == opponent {
			run = append(run, cy*Size+cx)
			cx, cy = cx+dir[0], cy+dir[1]
		}

		if len(run) > 0 && InBounds(cx, cy) && board[cy*Size+cx] == player {
			flips = append(flips, run...)
		}
	}

	return flips
}

func IsLegal(board Board, x, y int, player Cell) bool {
	return len(Flips(board, x, y, player)) > 0
}

// LegalMoves returns every legal placement for player in ascending cell order.
func LegalMoves(board Board, player Cell) []Point {
	var moves []Point
	for index := range board {
		point := PointOf(index)
		if IsLegal(board, point.X, point.Y, player) {
			moves = append(moves, point)
		}
	}

	return moves
}

func HasAnyLegalMove(board Board, player Cell) bool {
	for index := range board {
		point := PointOf(index)
		if IsLegal(board, point.X, point.Y, player) {
			return true
		}
	}

	return false
}

// Apply places player at (x, y) and flips captured discs. Illegal moves return the board unchanged.
func Apply(board Board, x, y int, player Cell) Board {
	flips := Flips(board, x, y, player)
	if len(flips) == 0 {
		return board
	}

	board[y*Size+x] = player
	for _, index := range flips {
		board[index] = player
	}

	return board
}

func IsFull(board Board) bool {
	for _, cell := range board {
		if cell == Empty {
			return false
		}
	}

	return true
}

// Count returns the number of black and white discs.
func Count(board Board) (int, int) {
	var black, white int
	for _, cell := range board {
		switch cell {
		case Black:
			black++
		case White:
			white++
		}
	}

	return black, white
}

// Winner returns the color holding a strict majority of discs, Empty on a draw.
func Winner(board Board) Cell {
	black, white := Count(board)

	switch {
	case black > white:
		return Black
	case white > black:
		return White
	default:
		return Empty
	}
}
