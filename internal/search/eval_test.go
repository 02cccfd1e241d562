package search

import (
	"testing"

	"github.com/park285/chess-arena/internal/rules"
)

func mustBoard(t *testing.T, fen string) *rules.Board {
	t.Helper()
	b, err := rules.NewBoardFromFEN(fen)
	if err != nil {
		t.Fatalf("NewBoardFromFEN(%q): %v", fen, err)
	}
	return b
}

func TestEvaluateInitialPositionIsBalanced(t *testing.T) {
	if got := Evaluate(mustBoard(t, "")); got != 0 {
		t.Fatalf("initial position should evaluate to 0, got %d", got)
	}
}

func TestEvaluateMaterialSign(t *testing.T) {
	// White up a queen: negative (positive favors black).
	whiteUp := mustBoard(t, "k7/8/8/8/8/8/8/KQ6 b - - 0 1")
	if got := Evaluate(whiteUp); got != -queenValue {
		t.Fatalf("white extra queen: expected %d, got %d", -queenValue, got)
	}
	// The color-swapped mirror must be exactly antisymmetric.
	blackUp := mustBoard(t, "kq6/8/8/8/8/8/8/K7 w - - 0 1")
	if got := Evaluate(blackUp); got != queenValue {
		t.Fatalf("black extra queen: expected %d, got %d", queenValue, got)
	}
}

func TestEvaluateSquareBonusMirrors(t *testing.T) {
	// Pawns on e4 and e5 sit on mirrored table squares; the position is
	// symmetric and must evaluate to zero.
	pos := mustBoard(t, "4k3/8/8/4p3/4P3/8/8/4K3 w - - 0 1")
	if got := Evaluate(pos); got != 0 {
		t.Fatalf("mirrored pawns should cancel, got %d", got)
	}

	// Knights on b1 and b8 likewise.
	pos = mustBoard(t, "1n2k3/8/8/8/8/8/8/1N2K3 w - - 0 1")
	if got := Evaluate(pos); got != 0 {
		t.Fatalf("mirrored knights should cancel, got %d", got)
	}
}

func TestEvaluateCheckmate(t *testing.T) {
	// Fool's mate: white to move and mated, so the score favors black.
	mated := mustBoard(t, "rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3")
	if !mated.IsTerminal() {
		t.Fatal("expected terminal position")
	}
	if got := Evaluate(mated); got != MateScore {
		t.Fatalf("white mated: expected %d, got %d", MateScore, got)
	}

	// Scholar's mate leaves black to move and mated.
	b := mustBoard(t, "")
	for _, mv := range []string{"e2e4", "e7e5", "d1h5", "b8c6", "f1c4", "g8f6", "h5f7"} {
		if _, err := b.ApplyMove(mv); err != nil {
			t.Fatalf("ApplyMove(%s): %v", mv, err)
		}
	}
	if got := Evaluate(b); got != -MateScore {
		t.Fatalf("black mated: expected %d, got %d", -MateScore, got)
	}
}

func TestEvaluateDrawIsZero(t *testing.T) {
	stalemate := mustBoard(t, "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1")
	if got := Evaluate(stalemate); got != 0 {
		t.Fatalf("stalemate should evaluate to 0, got %d", got)
	}
}

func TestMateScoreDominatesMaterial(t *testing.T) {
	// Largest possible material swing stays below the mate score.
	maxMaterial := 9*queenValue + 2*rookValue + 2*bishopValue + 2*knightValue
	if maxMaterial >= MateScore {
		t.Fatalf("mate score %d does not dominate material %d", MateScore, maxMaterial)
	}
}
