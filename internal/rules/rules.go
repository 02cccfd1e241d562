// Package rules is the boundary to the chess rule library. Everything the
// rest of the system knows about move legality, turn order and terminal
// positions comes through the Engine interface; any compliant
// implementation can be swapped in without touching session or search code.
package rules

import (
	"errors"
	"time"
)

// ErrIllegalMove is returned when the rule library rejects a move. The
// position is left untouched in that case.
var ErrIllegalMove = errors.New("illegal move")

type Color string

const (
	White Color = "white"
	Black Color = "black"
)

func (c Color) Opponent() Color {
	if c == White {
		return Black
	}
	return White
}

// TerminalReason explains why a position is final.
type TerminalReason string

const (
	ReasonNone                 TerminalReason = "none"
	ReasonCheckmate            TerminalReason = "checkmate"
	ReasonStalemate            TerminalReason = "stalemate"
	ReasonRepetition           TerminalReason = "repetition"
	ReasonInsufficientMaterial TerminalReason = "insufficient-material"
	ReasonDraw                 TerminalReason = "draw"
)

// MoveRecord is the immutable outcome of a successful move application.
type MoveRecord struct {
	SAN       string    `json:"san"`
	UCI       string    `json:"uci"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Color     Color     `json:"color"`
	FEN       string    `json:"fen"`
	Capture   bool      `json:"capture"`
	Check     bool      `json:"check"`
	Castle    bool      `json:"castle"`
	Promotion bool      `json:"promotion"`
	ByEngine  bool      `json:"by_engine"`
	Timestamp time.Time `json:"timestamp"`
}

type PieceKind int

const (
	Pawn PieceKind = iota
	Knight
	Bishop
	Rook
	Queen
	King
)

// PlacedPiece reports one occupied square. File and Rank are zero-based
// from white's point of view (a1 is 0,0).
type PlacedPiece struct {
	Kind  PieceKind
	Color Color
	File  int
	Rank  int
}

// Engine is the rule-library contract consumed by session and search.
// ApplyMove accepts UCI first and falls back to SAN. Moves applied through
// ApplyMove are reversible via UndoLastMove.
type Engine interface {
	ApplyMove(input string) (MoveRecord, error)
	UndoLastMove() error
	LegalMoves() []string
	SideToMove() Color
	IsTerminal() bool
	TerminalReason() TerminalReason
	FEN() string
	Pieces() []PlacedPiece
}
