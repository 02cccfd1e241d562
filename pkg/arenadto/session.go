package arenadto

import "time"

type Role string

const (
	RoleWhite     Role = "white"
	RoleBlack     Role = "black"
	RoleSpectator Role = "spectator"
)

// PlayerInfo is the identity a connection presents when joining.
type PlayerInfo struct {
	Name   string
	Rating int
}

// JoinResult reports the outcome of a join or AI-game creation.
type JoinResult struct {
	GameID      string
	Role        Role
	Reconnected bool
	State       string
	FEN         string
	White       string
	Black       string
}

// Departure identifies the seat a dropped connection held, for
// notifying the remaining player.
type Departure struct {
	GameID string
	Role   Role
	Name   string
}

// GameSummary is one row of the open-games listing.
type GameSummary struct {
	GameID     string
	State      string
	White      string
	Black      string
	Spectators int
	MoveCount  int
	AIGame     bool
	Difficulty int
	CreatedAt  time.Time
	StartedAt  time.Time
}

// ChatEntry is one message of a game's bounded chat log.
type ChatEntry struct {
	ID     string
	Sender string
	Text   string
	SentAt time.Time
}
