package bot

import (
	"github.com/rocketscienceinc/othello-rooms/internal/othello"
	"github.com/rocketscienceinc/othello-rooms/internal/pkg"
)

const (
	LevelRandom = iota
	LevelEasy
	LevelMedium
	LevelHard
)

const infiniteScore = 1_000_000_000

// searchDepths holds the plies searched after the candidate move, per level.
var searchDepths = map[int]int{
	LevelEasy:   1,
	LevelMedium: 3,
	LevelHard:   5,
}

// ClampLevel forces a level into the supported range.
func ClampLevel(level int) int {
	switch {
	case level < LevelRandom:
		return LevelRandom
	case level > LevelHard:
		return LevelHard
	default:
		return level
	}
}

// ChooseMove picks a move for side. It returns false only when side has no legal move.
func ChooseMove(board othello.Board, side othello.Cell, level int, random pkg.Random) (othello.Point, bool) {
	moves := othello.LegalMoves(board, side)
	if len(moves) == 0 {
		return othello.Point{}, false
	}

	level = ClampLevel(level)
	if level == LevelRandom {
		return moves[random.Intn(len(moves))], true
	}

	depth := searchDepths[level]

	best := moves[0]
	bestScore := -infiniteScore
	alpha := -infiniteScore

	for _, move := range moves {
		next := othello.Apply(board, move.X, move.Y, side)

		score := search(next, side.Opponent(), depth, alpha, infiniteScore, side)
		if score > bestScore {
			bestScore = score
			best = move
		}
		if bestScore > alpha {
			alpha = bestScore
		}
	}

	return best, true
}

// search is a depth-limited minimax with alpha-beta pruning. toMove is the side to play on board.
func search(board othello.Board, toMove othello.Cell, depth, alpha, beta int, maximizer othello.Cell) int {
	if depth == 0 {
		return Evaluate(board, maximizer)
	}

	moves := othello.LegalMoves(board, toMove)
	if len(moves) == 0 {
		if !othello.HasAnyLegalMove(board, toMove.Opponent()) {
			return terminalScore(board, maximizer)
		}

		return search(board, toMove.Opponent(), depth-1, alpha, beta, maximizer)
	}

	if toMove == maximizer {
		bestScore := -infiniteScore
		for _, move := range moves {
			next := othello.Apply(board, move.X, move.Y, toMove)

			score := search(next, toMove.Opponent(), depth-1, alpha, beta, maximizer)
			if score > bestScore {
				bestScore = score
			}
			if bestScore > alpha {
				alpha = bestScore
			}
			if beta <= alpha {
				break
			}
		}

		return bestScore
	}

	bestScore := infiniteScore
	for _, move := range moves {
		next := othello.Apply(board, move.X, move.Y, toMove)

		score := search(next, toMove.Opponent(), depth-1, alpha, beta, maximizer)
		if score < bestScore {
			bestScore = score
		}
		if bestScore < beta {
			beta = bestScore
		}
		if beta <= alpha {
			break
		}
	}

	return bestScore
}
