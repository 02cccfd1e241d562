package session

import (
	"sort"

	"github.com/park285/chess-arena/internal/rules"
	"github.com/park285/chess-arena/pkg/arenadto"
)

func roleOf(c rules.Color) arenadto.Role {
	if c == rules.White {
		return arenadto.RoleWhite
	}
	return arenadto.RoleBlack
}

func joinResult(g *Game, role arenadto.Role, reconnected bool) arenadto.JoinResult {
	res := arenadto.JoinResult{
		GameID:      g.ID,
		Role:        role,
		Reconnected: reconnected,
		State:       string(g.State),
		FEN:         g.board.FEN(),
	}
	if g.White != nil {
		res.White = g.White.Name
	}
	if g.Black != nil {
		res.Black = g.Black.Name
	}
	return res
}

func moveDetail(rec rules.MoveRecord) arenadto.MoveDetail {
	return arenadto.MoveDetail{
		SAN:       rec.SAN,
		UCI:       rec.UCI,
		From:      rec.From,
		To:        rec.To,
		Color:     string(rec.Color),
		FEN:       rec.FEN,
		Capture:   rec.Capture,
		Check:     rec.Check,
		Castle:    rec.Castle,
		Promotion: rec.Promotion,
		ByEngine:  rec.ByEngine,
		PlayedAt:  rec.Timestamp,
	}
}

func statsDTO(s GameStats) arenadto.Stats {
	return arenadto.Stats{
		Moves:      s.Moves,
		Captures:   s.Captures,
		Checks:     s.Checks,
		Castles:    s.Castles,
		Promotions: s.Promotions,
	}
}

func chatDTO(m ChatMessage) arenadto.ChatEntry {
	return arenadto.ChatEntry{ID: m.ID, Sender: m.Sender, Text: m.Text, SentAt: m.SentAt}
}

func summaryDTO(g *Game) arenadto.GameSummary {
	out := arenadto.GameSummary{
		GameID:     g.ID,
		State:      string(g.State),
		Spectators: len(g.Spectators),
		MoveCount:  g.Stats.Moves,
		AIGame:     g.AIGame,
		Difficulty: g.Profile.Level,
		CreatedAt:  g.CreatedAt,
		StartedAt:  g.StartedAt,
	}
	if g.White != nil {
		out.White = g.White.Name
	}
	if g.Black != nil {
		out.Black = g.Black.Name
	}
	return out
}

func analysisDTO(g *Game) arenadto.AnalysisReport {
	rep := arenadto.AnalysisReport{
		GameID:    g.ID,
		State:     string(g.State),
		EndReason: string(g.EndReason),
		FEN:       g.board.FEN(),
		Stats:     statsDTO(g.Stats),
		Moves:     make([]arenadto.MoveDetail, 0, len(g.Moves)),
		Chat:      make([]arenadto.ChatEntry, 0, len(g.Chat)),
		StartedAt: g.StartedAt,
		EndedAt:   g.EndedAt,
	}
	if !g.StartedAt.IsZero() && !g.EndedAt.IsZero() {
		rep.Duration = g.EndedAt.Sub(g.StartedAt)
	}
	for _, rec := range g.Moves {
		rep.Moves = append(rep.Moves, moveDetail(rec))
	}
	for _, msg := range g.Chat {
		rep.Chat = append(rep.Chat, chatDTO(msg))
	}
	return rep
}

func sortSummaries(items []arenadto.GameSummary) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
}
