package bot

import "github.com/rocketscienceinc/othello-rooms/internal/othello"

// lateGamePhase is the disc count from which material outweighs mobility.
const lateGamePhase = 44

const (
	earlyMaterialWeight = 1
	lateMaterialWeight  = 10
	earlyMobilityWeight = 10
	lateMobilityWeight  = 2
	cornerWeight        = 100
	dangerWeight        = 8

	// terminalWeight scales the final disc differential so any won ending outranks every heuristic score.
	terminalWeight = 10_000
)

var corners = [4]int{0, 7, 56, 63}

// xSquares touch a corner diagonally.
var xSquares = [4]int{9, 14, 49, 54}

// cSquares touch a corner along an edge.
var cSquares = [8]int{1, 8, 6, 15, 48, 57, 55, 62}

// Evaluate scores the board from perspective's point of view, higher is better.
func Evaluate(board othello.Board, perspective othello.Cell) int {
	opponent := perspective.Opponent()

	black, white := othello.Count(board)
	own, opp := black, white
	if perspective == othello.White {
		own, opp = white, black
	}

	materialWeight, mobilityWeight := earlyMaterialWeight, earlyMobilityWeight
	if black+white >= lateGamePhase {
		materialWeight, mobilityWeight = lateMaterialWeight, lateMobilityWeight
	}

	mobility := len(othello.LegalMoves(board, perspective)) - len(othello.LegalMoves(board, opponent))

	cornerDiff := 0
	for _, index := range corners {
		switch board[index] {
		case perspective:
			cornerDiff++
		case opponent:
			cornerDiff--
		}
	}

	// X squares count double: they hand over the corner more often than C squares.
	danger := 0
	for _, index := range xSquares {
		switch board[index] {
		case perspective:
			danger -= 2
		case opponent:
			danger += 2
		}
	}
	for _, index := range cSquares {
		switch board[index] {
		case perspective:
			danger--
		case opponent:
			danger++
		}
	}

	return materialWeight*(own-opp) +
		mobilityWeight*mobility +
		cornerWeight*cornerDiff +
		dangerWeight*danger
}

// terminalScore scores a position where neither side can move.
func terminalScore(board othello.Board, perspective othello.Cell) int {
	black, white := othello.Count(board)

	diff := black - white
	if perspective == othello.White {
		diff = -diff
	}

	switch {
	case diff > 0:
		return terminalWeight + diff
	case diff < 0:
		return -terminalWeight + diff
	default:
		return 0
	}
}
