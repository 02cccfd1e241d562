// Package session is the authoritative registry of live games: seat
// assignment, reconnection matching, move arbitration, lifecycle state and
// the disconnect grace timer. All mutation goes through Store methods;
// nothing outside the package touches a Game directly.
package session

import (
	"time"

	"github.com/park285/chess-arena/internal/difficulty"
	"github.com/park285/chess-arena/internal/rules"
)

type State string

const (
	StateWaiting      State = "waiting"
	StatePlaying      State = "playing"
	StateDisconnected State = "disconnected"
	StateFinished     State = "finished"
)

// EndReason records why a finished game ended.
type EndReason string

const (
	EndNone                 EndReason = ""
	EndCheckmate            EndReason = "checkmate"
	EndStalemate            EndReason = "stalemate"
	EndRepetition           EndReason = "repetition"
	EndInsufficientMaterial EndReason = "insufficient-material"
	EndDraw                 EndReason = "draw"
	EndTimeout              EndReason = "timeout"
	EndAbandoned            EndReason = "abandoned"
)

func endReasonFrom(r rules.TerminalReason) EndReason {
	switch r {
	case rules.ReasonCheckmate:
		return EndCheckmate
	case rules.ReasonStalemate:
		return EndStalemate
	case rules.ReasonRepetition:
		return EndRepetition
	case rules.ReasonInsufficientMaterial:
		return EndInsufficientMaterial
	default:
		return EndDraw
	}
}

// Player occupies one seat. Replaced wholesale on reassignment.
type Player struct {
	ConnID string
	Name   string
	Rating int
	IsAI   bool
}

// GameStats counters are derived solely from the applied move stream.
type GameStats struct {
	Moves      int
	Captures   int
	Checks     int
	Castles    int
	Promotions int
}

func (s *GameStats) record(rec rules.MoveRecord) {
	s.Moves++
	if rec.Capture {
		s.Captures++
	}
	if rec.Check {
		s.Checks++
	}
	if rec.Castle {
		s.Castles++
	}
	if rec.Promotion {
		s.Promotions++
	}
}

const chatLimit = 100

type ChatMessage struct {
	ID     string
	Sender string
	Text   string
	SentAt time.Time
}

// Game is one live session. Guarded by the owning Store's lock.
type Game struct {
	ID    string
	board *rules.Board

	White      *Player
	Black      *Player
	Spectators map[string]struct{}

	Moves    []rules.MoveRecord
	MovesUCI []string
	Stats    GameStats
	Chat     []ChatMessage

	State     State
	EndReason EndReason

	CreatedAt      time.Time
	StartedAt      time.Time
	EndedAt        time.Time
	DisconnectedAt time.Time

	AIGame  bool
	Profile difficulty.Profile

	// graceGen invalidates a pending grace timer when a reconnection or a
	// later disconnect supersedes it; the timer re-checks it at fire time.
	graceGen int
}

func (g *Game) seatOf(connID string) (rules.Color, *Player) {
	if g.White != nil && g.White.ConnID == connID {
		return rules.White, g.White
	}
	if g.Black != nil && g.Black.ConnID == connID {
		return rules.Black, g.Black
	}
	return "", nil
}

func (g *Game) seatByName(name string) (rules.Color, *Player) {
	if g.White != nil && !g.White.IsAI && g.White.Name == name {
		return rules.White, g.White
	}
	if g.Black != nil && !g.Black.IsAI && g.Black.Name == name {
		return rules.Black, g.Black
	}
	return "", nil
}

// FinishedGame is the snapshot handed to the finish hook for archival.
type FinishedGame struct {
	ID        string
	White     string
	Black     string
	AIGame    bool
	Level     int
	EndReason EndReason
	FEN       string
	MovesUCI  []string
	Stats     GameStats
	StartedAt time.Time
	EndedAt   time.Time
}
