package search

import (
	"math"
	"testing"

	"github.com/park285/chess-arena/internal/rules"
)

func TestPruningMatchesUnprunedValue(t *testing.T) {
	fens := []string{
		"",
		"k6r/8/8/8/7Q/8/8/K7 b - - 0 1",
		"r1bqkbnr/pppp1ppp/2n5/4p3/2B1P3/5N2/PPPP1PPP/RNBQK2R b KQkq - 3 3",
	}
	for _, fen := range fens {
		for depth := 1; depth <= 3; depth++ {
			for _, maximizing := range []bool{true, false} {
				pruned := minimax(mustBoard(t, fen), depth, math.MinInt, math.MaxInt, maximizing)
				plain := Minimax(mustBoard(t, fen), depth, maximizing)
				if pruned != plain {
					t.Fatalf("fen=%q depth=%d max=%v: pruned %d != unpruned %d",
						fen, depth, maximizing, pruned, plain)
				}
			}
		}
	}
}

func TestBestMoveTakesHangingPiece(t *testing.T) {
	// Black rook on h8, undefended white queen on h4.
	pos := mustBoard(t, "k6r/8/8/8/7Q/8/8/K7 b - - 0 1")
	if got := BestMove(pos, 1); got != "h8h4" {
		t.Fatalf("black should capture the queen, got %s", got)
	}

	// Mirrored: white rook on h1, black queen on h5; white minimizes.
	pos = mustBoard(t, "k7/8/8/7q/8/8/8/K6R w - - 0 1")
	if got := BestMove(pos, 1); got != "h1h5" {
		t.Fatalf("white should capture the queen, got %s", got)
	}
}

func TestBestMoveFindsMateInOne(t *testing.T) {
	// Several mates are available; at depth 1 only an immediate mate
	// scores the mate value, so whichever is chosen must deliver it.
	pos := mustBoard(t, "6k1/8/8/8/8/1q6/2r5/K7 b - - 0 1")
	mv := BestMove(pos, 1)
	if mv == "" {
		t.Fatal("no move chosen")
	}
	if _, err := pos.ApplyMove(mv); err != nil {
		t.Fatalf("chosen move %s illegal: %v", mv, err)
	}
	if !pos.IsTerminal() || pos.TerminalReason() != rules.ReasonCheckmate {
		t.Fatalf("%s does not deliver mate", mv)
	}
}

func TestBestMoveEmptyWhenNoLegalMoves(t *testing.T) {
	stalemate := mustBoard(t, "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1")
	if got := BestMove(stalemate, 2); got != "" {
		t.Fatalf("expected no move in stalemate, got %q", got)
	}
}

func TestBestMoveDoesNotMutatePosition(t *testing.T) {
	pos := mustBoard(t, "")
	before := pos.FEN()
	_ = BestMove(pos, 2)
	if pos.FEN() != before {
		t.Fatalf("search mutated the position: %s", pos.FEN())
	}
}

func TestSuggestionsRankForSideToMove(t *testing.T) {
	pos := mustBoard(t, "k6r/8/8/8/7Q/8/8/K7 b - - 0 1")
	sugg := Suggestions(pos, 3)
	if len(sugg) == 0 || len(sugg) > 3 {
		t.Fatalf("unexpected suggestion count: %d", len(sugg))
	}
	if sugg[0].Move != "h8h4" {
		t.Fatalf("top suggestion should be the queen capture, got %+v", sugg[0])
	}
	for i := 1; i < len(sugg); i++ {
		if sugg[i].Eval > sugg[i-1].Eval {
			t.Fatalf("suggestions out of order for black: %+v", sugg)
		}
	}

	all := Suggestions(mustBoard(t, ""), 0)
	if len(all) != 20 {
		t.Fatalf("expected every opening move ranked, got %d", len(all))
	}
}
