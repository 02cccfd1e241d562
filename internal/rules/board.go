package rules

import (
	"errors"
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

// Board adapts github.com/corentings/chess/v2 to the Engine contract.
// Undo is implemented with clone snapshots so search can walk the tree
// with plain apply/undo pairs.
type Board struct {
	game *nchess.Game
	undo []*nchess.Game
}

var _ Engine = (*Board)(nil)

func NewBoard() *Board {
	return &Board{game: nchess.NewGame()}
}

// NewBoardFromFEN starts from an arbitrary position. "" and "startpos"
// mean the initial position.
func NewBoardFromFEN(fen string) (*Board, error) {
	fen = strings.TrimSpace(fen)
	if fen == "" || fen == "startpos" {
		return NewBoard(), nil
	}
	opt, err := nchess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("parse fen: %w", err)
	}
	return &Board{game: nchess.NewGame(opt)}, nil
}

// Replay rebuilds a position by applying a stored move sequence from the
// given base position.
func Replay(fen string, moves []string) (*Board, error) {
	b, err := NewBoardFromFEN(fen)
	if err != nil {
		return nil, err
	}
	for _, mv := range moves {
		if _, err := b.ApplyMove(mv); err != nil {
			return nil, fmt.Errorf("replay %q: %w", mv, err)
		}
	}
	// Snapshots from the replay are history, not undoable search state.
	b.undo = nil
	return b, nil
}

func (b *Board) ApplyMove(input string) (MoveRecord, error) {
	text := strings.TrimSpace(input)
	if text == "" {
		return MoveRecord{}, ErrIllegalMove
	}

	pos := b.game.Position()
	mover := colorFrom(pos.Turn())
	snapshot := b.game.Clone()

	var mv *nchess.Move
	notationUCI := nchess.UCINotation{}
	if decoded, err := notationUCI.Decode(pos, strings.ToLower(text)); err == nil {
		mv = decoded
		if err := b.game.Move(mv, nil); err != nil {
			return MoveRecord{}, fmt.Errorf("%w: %s", ErrIllegalMove, text)
		}
	} else {
		if err := b.game.PushNotationMove(text, nchess.AlgebraicNotation{}, nil); err != nil {
			return MoveRecord{}, fmt.Errorf("%w: %s", ErrIllegalMove, text)
		}
		all := b.game.Moves()
		if len(all) == 0 {
			return MoveRecord{}, fmt.Errorf("%w: %s", ErrIllegalMove, text)
		}
		mv = all[len(all)-1]
	}

	san := nchess.AlgebraicNotation{}.Encode(pos, mv)
	b.undo = append(b.undo, snapshot)

	return MoveRecord{
		SAN:       san,
		UCI:       mv.String(),
		From:      mv.S1().String(),
		To:        mv.S2().String(),
		Color:     mover,
		FEN:       b.game.FEN(),
		Capture:   mv.HasTag(nchess.Capture) || mv.HasTag(nchess.EnPassant),
		Check:     strings.ContainsAny(san, "+#"),
		Castle:    strings.HasPrefix(san, "O-O"),
		Promotion: strings.Contains(san, "="),
	}, nil
}

func (b *Board) UndoLastMove() error {
	if len(b.undo) == 0 {
		return errors.New("no move to undo")
	}
	b.game = b.undo[len(b.undo)-1]
	b.undo = b.undo[:len(b.undo)-1]
	return nil
}

// LegalMoves returns every legal move as a UCI token.
func (b *Board) LegalMoves() []string {
	valid := b.game.ValidMoves()
	out := make([]string, 0, len(valid))
	for i := range valid {
		out = append(out, valid[i].String())
	}
	return out
}

func (b *Board) SideToMove() Color {
	return colorFrom(b.game.Position().Turn())
}

func (b *Board) IsTerminal() bool {
	return b.game.Outcome() != nchess.NoOutcome
}

func (b *Board) TerminalReason() TerminalReason {
	if b.game.Outcome() == nchess.NoOutcome {
		return ReasonNone
	}
	switch b.game.Method() {
	case nchess.Checkmate:
		return ReasonCheckmate
	case nchess.Stalemate:
		return ReasonStalemate
	case nchess.ThreefoldRepetition, nchess.FivefoldRepetition:
		return ReasonRepetition
	case nchess.InsufficientMaterial:
		return ReasonInsufficientMaterial
	default:
		return ReasonDraw
	}
}

func (b *Board) FEN() string {
	return b.game.FEN()
}

func (b *Board) Pieces() []PlacedPiece {
	squares := b.game.Position().Board().SquareMap()
	out := make([]PlacedPiece, 0, len(squares))
	for sq, piece := range squares {
		out = append(out, PlacedPiece{
			Kind:  kindFrom(piece.Type()),
			Color: colorFrom(piece.Color()),
			File:  int(sq.File()),
			Rank:  int(sq.Rank()),
		})
	}
	return out
}

func colorFrom(c nchess.Color) Color {
	if c == nchess.White {
		return White
	}
	return Black
}

func kindFrom(t nchess.PieceType) PieceKind {
	switch t {
	case nchess.Pawn:
		return Pawn
	case nchess.Knight:
		return Knight
	case nchess.Bishop:
		return Bishop
	case nchess.Rook:
		return Rook
	case nchess.Queen:
		return Queen
	default:
		return King
	}
}
