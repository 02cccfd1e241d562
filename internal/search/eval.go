// Package search is the built-in move selector: a material/positional
// evaluation plus bounded alpha-beta minimax. It serves as the fallback
// when the external engine is unavailable and as the whole brain for the
// lowest difficulty tiers.
package search

import "github.com/park285/chess-arena/internal/rules"

// Scores are centipawns with the classic 1/3/3/5/9 ratios. The sign
// convention is fixed: positive always favors Black, so a single Evaluate
// serves both minimax branches without color juggling.
const (
	pawnValue   = 100
	knightValue = 300
	bishopValue = 300
	rookValue   = 500
	queenValue  = 900

	// MateScore dominates any material total (max imbalance is 3900).
	MateScore = 9999
)

var pieceValues = map[rules.PieceKind]int{
	rules.Pawn:   pawnValue,
	rules.Knight: knightValue,
	rules.Bishop: bishopValue,
	rules.Rook:   rookValue,
	rules.Queen:  queenValue,
	rules.King:   0,
}

// Piece-square tables reward development. Row 0 is the side's own back
// rank; the table is mirrored by rank for the other color.
var pawnTable = [8][8]int{
	{0, 0, 0, 0, 0, 0, 0, 0},
	{5, 10, 10, -20, -20, 10, 10, 5},
	{5, -5, -10, 0, 0, -10, -5, 5},
	{0, 0, 0, 20, 20, 0, 0, 0},
	{5, 5, 10, 25, 25, 10, 5, 5},
	{10, 10, 20, 30, 30, 20, 10, 10},
	{50, 50, 50, 50, 50, 50, 50, 50},
	{0, 0, 0, 0, 0, 0, 0, 0},
}

var knightTable = [8][8]int{
	{-50, -40, -30, -30, -30, -30, -40, -50},
	{-40, -20, 0, 5, 5, 0, -20, -40},
	{-30, 5, 10, 15, 15, 10, 5, -30},
	{-30, 0, 15, 20, 20, 15, 0, -30},
	{-30, 5, 15, 20, 20, 15, 5, -30},
	{-30, 0, 10, 15, 15, 10, 0, -30},
	{-40, -20, 0, 0, 0, 0, -20, -40},
	{-50, -40, -30, -30, -30, -30, -40, -50},
}

// Position is the slice of the rules contract the search needs.
type Position interface {
	ApplyMove(input string) (rules.MoveRecord, error)
	UndoLastMove() error
	LegalMoves() []string
	SideToMove() rules.Color
	IsTerminal() bool
	TerminalReason() rules.TerminalReason
	Pieces() []rules.PlacedPiece
}

// Evaluate scores the position. Checkmate resolves for the opponent of the
// side to move; every drawn terminal position is 0.
func Evaluate(pos Position) int {
	if pos.IsTerminal() {
		switch pos.TerminalReason() {
		case rules.ReasonCheckmate:
			if pos.SideToMove() == rules.White {
				return MateScore
			}
			return -MateScore
		default:
			return 0
		}
	}

	score := 0
	for _, p := range pos.Pieces() {
		value := pieceValues[p.Kind] + squareBonus(p)
		if p.Color == rules.White {
			score -= value
		} else {
			score += value
		}
	}
	return score
}

func squareBonus(p rules.PlacedPiece) int {
	// Table rows are written from the side's own back rank outward.
	row := p.Rank
	if p.Color == rules.Black {
		row = 7 - p.Rank
	}
	switch p.Kind {
	case rules.Pawn:
		return pawnTable[row][p.File]
	case rules.Knight:
		return knightTable[row][p.File]
	default:
		return 0
	}
}
