package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/chess-arena/internal/difficulty"
	"github.com/park285/chess-arena/internal/rules"
	"github.com/park285/chess-arena/pkg/arenadto"
)

const (
	defaultGracePeriod = 5 * time.Minute
	defaultRetention   = 24 * time.Hour
)

// Store owns the game registry and the connection→game index. Every
// mutation funnels through its methods under one lock; the grace timer and
// the cleanup sweep re-validate state under the same lock before acting.
type Store struct {
	logger   *zap.Logger
	profiles *difficulty.Table

	mu    sync.Mutex
	games map[string]*Game
	conns map[string]string

	now       func() time.Time
	grace     time.Duration
	retention time.Duration
	schedule  func(d time.Duration, f func())

	onFinish func(FinishedGame)
}

type Option func(*Store)

// WithClock replaces the wall clock; tests use it to age games.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithGracePeriod(d time.Duration) Option {
	return func(s *Store) { s.grace = d }
}

func WithRetention(d time.Duration) Option {
	return func(s *Store) { s.retention = d }
}

// WithScheduler replaces the deferred-task runner; tests fire the grace
// timer by hand instead of sleeping.
func WithScheduler(schedule func(d time.Duration, f func())) Option {
	return func(s *Store) { s.schedule = schedule }
}

// WithFinishHook registers a callback invoked once per game, after it
// reaches the finished state. Called outside the store lock.
func WithFinishHook(fn func(FinishedGame)) Option {
	return func(s *Store) { s.onFinish = fn }
}

func NewStore(logger *zap.Logger, profiles *difficulty.Table, opts ...Option) *Store {
	s := &Store{
		logger:    logger,
		profiles:  profiles,
		games:     make(map[string]*Game),
		conns:     make(map[string]string),
		now:       time.Now,
		grace:     defaultGracePeriod,
		retention: defaultRetention,
	}
	s.schedule = func(d time.Duration, f func()) { time.AfterFunc(d, f) }
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateGame allocates an empty waiting game. The caller picks the id and
// is responsible for collision avoidance beyond the existence check here.
func (s *Store) CreateGame(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.games[id]; ok {
		return fmt.Errorf("%w: %s", ErrGameExists, id)
	}
	s.games[id] = s.newGame(id)
	s.logger.Info("game_created", zap.String("game_id", id))
	return nil
}

func (s *Store) newGame(id string) *Game {
	return &Game{
		ID:         id,
		board:      rules.NewBoard(),
		Spectators: make(map[string]struct{}),
		State:      StateWaiting,
		CreatedAt:  s.now(),
	}
}

// CreateAIGame allocates a game already in playing state: the human takes
// white, a synthetic identity takes black. The computer never moves first,
// so nothing happens until the human's first move.
func (s *Store) CreateAIGame(connID, id string, info arenadto.PlayerInfo, level int) (arenadto.JoinResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.games[id]; ok {
		return arenadto.JoinResult{}, fmt.Errorf("%w: %s", ErrGameExists, id)
	}

	profile := s.profiles.Get(level)
	g := s.newGame(id)
	g.AIGame = true
	g.Profile = profile
	g.White = &Player{ConnID: connID, Name: info.Name, Rating: info.Rating}
	g.Black = &Player{
		ConnID: "ai:" + uuid.NewString(),
		Name:   fmt.Sprintf("Computer (%s)", profile.Label),
		Rating: profile.Elo,
		IsAI:   true,
	}
	g.State = StatePlaying
	g.StartedAt = s.now()

	s.games[id] = g
	s.conns[connID] = id
	s.logger.Info("ai_game_created",
		zap.String("game_id", id),
		zap.String("player", info.Name),
		zap.Int("level", profile.Level),
	)
	return joinResult(g, arenadto.RoleWhite, false), nil
}

// JoinGame seats or re-seats a connection. A missing game is created on the
// fly. An occupied seat whose stored name equals the joining name is a
// reconnection: the seat keeps its color, rating and history and only the
// connection id is rebound. Matching is by display name alone, with no
// authentication. With both seats taken and no name match the connection
// becomes a spectator.
func (s *Store) JoinGame(connID, id string, info arenadto.PlayerInfo) (arenadto.JoinResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.games[id]
	if !ok {
		g = s.newGame(id)
		s.games[id] = g
		s.logger.Info("game_created", zap.String("game_id", id))
	}

	if color, seat := g.seatByName(info.Name); seat != nil {
		delete(s.conns, seat.ConnID)
		seat.ConnID = connID
		s.conns[connID] = id
		if g.State == StateDisconnected {
			g.State = StatePlaying
			g.DisconnectedAt = time.Time{}
			g.graceGen++
		}
		s.logger.Info("player_reconnected",
			zap.String("game_id", id),
			zap.String("name", info.Name),
			zap.String("color", string(color)),
		)
		return joinResult(g, roleOf(color), true), nil
	}

	if g.White == nil {
		g.White = &Player{ConnID: connID, Name: info.Name, Rating: info.Rating}
		s.conns[connID] = id
		return joinResult(g, arenadto.RoleWhite, false), nil
	}
	if g.Black == nil {
		g.Black = &Player{ConnID: connID, Name: info.Name, Rating: info.Rating}
		s.conns[connID] = id
		if g.State == StateWaiting {
			g.State = StatePlaying
			g.StartedAt = s.now()
			s.logger.Info("game_started", zap.String("game_id", id))
		}
		return joinResult(g, arenadto.RoleBlack, false), nil
	}

	g.Spectators[connID] = struct{}{}
	s.conns[connID] = id
	return joinResult(g, arenadto.RoleSpectator, false), nil
}

// MakeMove applies a human move. The connection must own the seat whose
// color is on turn; legality belongs to the rules engine. A rejected move
// leaves the game untouched.
func (s *Store) MakeMove(connID, id, input string) (arenadto.MoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.games[id]
	if !ok {
		return arenadto.MoveResult{}, fmt.Errorf("%w: %s", ErrGameNotFound, id)
	}
	if g.State != StatePlaying {
		return arenadto.MoveResult{}, fmt.Errorf("%w: %s is %s", ErrGameNotActive, id, g.State)
	}

	turn := g.board.SideToMove()
	color, seat := g.seatOf(connID)
	if seat == nil || color != turn || seat.IsAI {
		return arenadto.MoveResult{}, ErrSeatMismatch
	}

	return s.applyLocked(g, input, false)
}

// MakeAIMove applies a move already chosen for the computer seat. Seat
// ownership is not checked; the game must have been created as an AI game.
func (s *Store) MakeAIMove(id, input string) (arenadto.MoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.games[id]
	if !ok {
		return arenadto.MoveResult{}, fmt.Errorf("%w: %s", ErrGameNotFound, id)
	}
	if !g.AIGame {
		return arenadto.MoveResult{}, fmt.Errorf("%w: %s", ErrNotAnAIGame, id)
	}
	if g.State != StatePlaying {
		return arenadto.MoveResult{}, fmt.Errorf("%w: %s is %s", ErrGameNotActive, id, g.State)
	}
	return s.applyLocked(g, input, true)
}

func (s *Store) applyLocked(g *Game, input string, byEngine bool) (arenadto.MoveResult, error) {
	rec, err := g.board.ApplyMove(input)
	if err != nil {
		return arenadto.MoveResult{}, err
	}
	rec.ByEngine = byEngine
	rec.Timestamp = s.now()

	g.Moves = append(g.Moves, rec)
	g.MovesUCI = append(g.MovesUCI, rec.UCI)
	g.Stats.record(rec)

	res := arenadto.MoveResult{
		GameID: g.ID,
		Move:   moveDetail(rec),
		Stats:  statsDTO(g.Stats),
	}
	if g.board.IsTerminal() {
		s.finishLocked(g, endReasonFrom(g.board.TerminalReason()))
		res.GameOver = true
		res.EndReason = string(g.EndReason)
	}
	return res, nil
}

// RemovePlayer handles a dropped connection. A seated player is not
// vacated: the game enters disconnected and a grace timer is armed; a
// same-named rejoin within the window restores play. Spectators are
// removed outright. Returns nil when the connection held no seat.
func (s *Store) RemovePlayer(connID string) *arenadto.Departure {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.conns[connID]
	if !ok {
		return nil
	}
	delete(s.conns, connID)

	g, ok := s.games[id]
	if !ok {
		return nil
	}
	if _, spectating := g.Spectators[connID]; spectating {
		delete(g.Spectators, connID)
		return nil
	}

	color, seat := g.seatOf(connID)
	if seat == nil {
		return nil
	}
	dep := &arenadto.Departure{GameID: id, Role: roleOf(color), Name: seat.Name}

	switch g.State {
	case StateWaiting:
		// Nobody to wait for yet; free the seat.
		if color == rules.White {
			g.White = nil
		} else {
			g.Black = nil
		}
	case StatePlaying:
		g.State = StateDisconnected
		g.DisconnectedAt = s.now()
		g.graceGen++
		gen := g.graceGen
		s.schedule(s.grace, func() { s.expireGrace(id, gen) })
		s.logger.Info("player_disconnected",
			zap.String("game_id", id),
			zap.String("name", seat.Name),
			zap.String("color", string(color)),
		)
	}
	return dep
}

// expireGrace is the grace timer body. It re-validates under the lock: a
// reconnection or a newer disconnect bumps graceGen and turns a late fire
// into a no-op.
func (s *Store) expireGrace(id string, gen int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.games[id]
	if !ok || g.State != StateDisconnected || g.graceGen != gen {
		return
	}
	s.logger.Info("grace_period_expired", zap.String("game_id", id))
	s.finishLocked(g, EndTimeout)
}

func (s *Store) finishLocked(g *Game, reason EndReason) {
	g.State = StateFinished
	g.EndReason = reason
	g.EndedAt = s.now()
	s.logger.Info("game_finished",
		zap.String("game_id", g.ID),
		zap.String("reason", string(reason)),
		zap.Int("moves", g.Stats.Moves),
	)
	if s.onFinish != nil {
		go s.onFinish(finishedSnapshot(g))
	}
}

func finishedSnapshot(g *Game) FinishedGame {
	f := FinishedGame{
		ID:        g.ID,
		AIGame:    g.AIGame,
		Level:     g.Profile.Level,
		EndReason: g.EndReason,
		FEN:       g.board.FEN(),
		MovesUCI:  append([]string(nil), g.MovesUCI...),
		Stats:     g.Stats,
		StartedAt: g.StartedAt,
		EndedAt:   g.EndedAt,
	}
	if g.White != nil {
		f.White = g.White.Name
	}
	if g.Black != nil {
		f.Black = g.Black.Name
	}
	return f
}

// AddChat appends to the game's chat log, dropping the oldest entry past
// the cap.
func (s *Store) AddChat(id, sender, text string) (arenadto.ChatEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.games[id]
	if !ok {
		return arenadto.ChatEntry{}, fmt.Errorf("%w: %s", ErrGameNotFound, id)
	}
	msg := ChatMessage{
		ID:     uuid.NewString(),
		Sender: sender,
		Text:   text,
		SentAt: s.now(),
	}
	g.Chat = append(g.Chat, msg)
	if len(g.Chat) > chatLimit {
		g.Chat = g.Chat[len(g.Chat)-chatLimit:]
	}
	return chatDTO(msg), nil
}

// AITurn describes what the move selector needs for the computer's reply.
type AITurn struct {
	MovesUCI []string
	FEN      string
	Profile  difficulty.Profile
	Turn     rules.Color
	AITurn   bool
}

// AITurnState snapshots an AI game for the engine bridge. AITurn is false
// when it is still the human's move.
func (s *Store) AITurnState(id string) (AITurn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.games[id]
	if !ok {
		return AITurn{}, fmt.Errorf("%w: %s", ErrGameNotFound, id)
	}
	if !g.AIGame {
		return AITurn{}, fmt.Errorf("%w: %s", ErrNotAnAIGame, id)
	}
	if g.State != StatePlaying {
		return AITurn{}, fmt.Errorf("%w: %s is %s", ErrGameNotActive, id, g.State)
	}
	turn := g.board.SideToMove()
	return AITurn{
		MovesUCI: append([]string(nil), g.MovesUCI...),
		FEN:      g.board.FEN(),
		Profile:  g.Profile,
		Turn:     turn,
		AITurn:   g.Black != nil && g.Black.IsAI && turn == rules.Black,
	}, nil
}

// Has reports whether a game id is registered.
func (s *Store) Has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.games[id]
	return ok
}

// Count returns the number of registered games.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.games)
}

// Summaries lists every registered game, newest first.
func (s *Store) Summaries() []arenadto.GameSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]arenadto.GameSummary, 0, len(s.games))
	for _, g := range s.games {
		out = append(out, summaryDTO(g))
	}
	sortSummaries(out)
	return out
}

// Analysis returns the full move history, stats and chat of one game.
func (s *Store) Analysis(id string) (arenadto.AnalysisReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.games[id]
	if !ok {
		return arenadto.AnalysisReport{}, fmt.Errorf("%w: %s", ErrGameNotFound, id)
	}
	return analysisDTO(g), nil
}

// CleanupOldGames drops games past the retention window, measured from end
// time, else start time. Games that never started are kept.
func (s *Store) CleanupOldGames() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.retention)
	removed := 0
	for id, g := range s.games {
		ref := g.EndedAt
		if ref.IsZero() {
			ref = g.StartedAt
		}
		if ref.IsZero() || ref.After(cutoff) {
			continue
		}
		delete(s.games, id)
		removed++
		for conn, gameID := range s.conns {
			if gameID == id {
				delete(s.conns, conn)
			}
		}
	}
	if removed > 0 {
		s.logger.Info("cleanup_swept", zap.Int("removed", removed))
	}
	return removed
}
