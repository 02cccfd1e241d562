package search

import (
	"math"
	"sort"

	"github.com/park285/chess-arena/internal/rules"
)

// Suggestion ranks a single legal move by the evaluation one ply deep.
type Suggestion struct {
	Move string
	SAN  string
	Eval int
}

// BestMove runs fixed-depth alpha-beta from the current position and
// returns the chosen move in UCI form, or "" when no legal move exists.
// Black picks the maximum evaluation, White the minimum; ties go to the
// move encountered first.
func BestMove(pos Position, depth int) string {
	moves := pos.LegalMoves()
	if len(moves) == 0 {
		return ""
	}
	if depth < 1 {
		depth = 1
	}

	maximizing := pos.SideToMove() == rules.Black
	best := moves[0]
	bestValue := math.MinInt
	if !maximizing {
		bestValue = math.MaxInt
	}

	for _, mv := range moves {
		if _, err := pos.ApplyMove(mv); err != nil {
			continue
		}
		value := minimax(pos, depth-1, math.MinInt, math.MaxInt, !maximizing)
		_ = pos.UndoLastMove()

		if maximizing && value > bestValue {
			bestValue = value
			best = mv
		} else if !maximizing && value < bestValue {
			bestValue = value
			best = mv
		}
	}
	return best
}

// minimax returns the alpha-beta value of the position. The maximizing
// flag tracks whose turn the node belongs to: Black maximizes because
// Evaluate is positive in Black's favor.
func minimax(pos Position, depth, alpha, beta int, maximizing bool) int {
	if depth == 0 || pos.IsTerminal() {
		return Evaluate(pos)
	}

	moves := pos.LegalMoves()
	if maximizing {
		value := math.MinInt
		for _, mv := range moves {
			if _, err := pos.ApplyMove(mv); err != nil {
				continue
			}
			child := minimax(pos, depth-1, alpha, beta, false)
			_ = pos.UndoLastMove()
			if child > value {
				value = child
			}
			if child > alpha {
				alpha = child
			}
			if beta <= alpha {
				break
			}
		}
		return value
	}

	value := math.MaxInt
	for _, mv := range moves {
		if _, err := pos.ApplyMove(mv); err != nil {
			continue
		}
		child := minimax(pos, depth-1, alpha, beta, true)
		_ = pos.UndoLastMove()
		if child < value {
			value = child
		}
		if child < beta {
			beta = child
		}
		if beta <= alpha {
			break
		}
	}
	return value
}

// Minimax exposes the unpruned tree value at the same depth. It exists so
// pruning correctness can be checked against it; production paths use
// BestMove.
func Minimax(pos Position, depth int, maximizing bool) int {
	if depth == 0 || pos.IsTerminal() {
		return Evaluate(pos)
	}
	moves := pos.LegalMoves()
	if maximizing {
		value := math.MinInt
		for _, mv := range moves {
			if _, err := pos.ApplyMove(mv); err != nil {
				continue
			}
			child := Minimax(pos, depth-1, false)
			_ = pos.UndoLastMove()
			if child > value {
				value = child
			}
		}
		return value
	}
	value := math.MaxInt
	for _, mv := range moves {
		if _, err := pos.ApplyMove(mv); err != nil {
			continue
		}
		child := Minimax(pos, depth-1, true)
		_ = pos.UndoLastMove()
		if child < value {
			value = child
		}
	}
	return value
}

// Suggestions evaluates every legal move one ply deep and returns the
// top n for the side to move.
func Suggestions(pos Position, n int) []Suggestion {
	moves := pos.LegalMoves()
	out := make([]Suggestion, 0, len(moves))
	for _, mv := range moves {
		rec, err := pos.ApplyMove(mv)
		if err != nil {
			continue
		}
		eval := Evaluate(pos)
		_ = pos.UndoLastMove()
		out = append(out, Suggestion{Move: mv, SAN: rec.SAN, Eval: eval})
	}

	blackToMove := pos.SideToMove() == rules.Black
	sort.SliceStable(out, func(i, j int) bool {
		if blackToMove {
			return out[i].Eval > out[j].Eval
		}
		return out[i].Eval < out[j].Eval
	})

	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
