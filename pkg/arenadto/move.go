package arenadto

import "time"

// Stats are the per-game counters derived from the move stream.
type Stats struct {
	Moves      int
	Captures   int
	Checks     int
	Castles    int
	Promotions int
}

// MoveDetail is one applied move as seen by clients.
type MoveDetail struct {
	SAN       string
	UCI       string
	From      string
	To        string
	Color     string
	FEN       string
	Capture   bool
	Check     bool
	Castle    bool
	Promotion bool
	ByEngine  bool
	PlayedAt  time.Time
}

// MoveResult reports one successfully applied move.
type MoveResult struct {
	GameID    string
	Move      MoveDetail
	Stats     Stats
	GameOver  bool
	EndReason string
	// Source is set on AI moves: "engine" or "fallback".
	Source string
}

// AnalysisReport is the full post-hoc view of a game.
type AnalysisReport struct {
	GameID    string
	State     string
	EndReason string
	FEN       string
	Stats     Stats
	Moves     []MoveDetail
	Chat      []ChatEntry
	StartedAt time.Time
	EndedAt   time.Time
	Duration  time.Duration
}

// MoveSuggestion ranks one candidate move of a position.
type MoveSuggestion struct {
	Move string
	SAN  string
	Eval int
}

// PositionReport is a standalone evaluation of an arbitrary position.
type PositionReport struct {
	FEN         string
	SideToMove  string
	Eval        int
	GameOver    bool
	EndReason   string
	Suggestions []MoveSuggestion
}
