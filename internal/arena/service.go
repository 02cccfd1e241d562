// Package arena is the orchestrator-facing surface of the system. It owns
// the session store, one engine bridge per active AI game, the optional
// finished-game archive and the periodic cleanup loop. Transport code
// calls these methods and broadcasts the returned values; nothing here
// knows how events reach clients.
package arena

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/chess-arena/internal/archive"
	"github.com/park285/chess-arena/internal/difficulty"
	"github.com/park285/chess-arena/internal/engine"
	"github.com/park285/chess-arena/internal/rules"
	"github.com/park285/chess-arena/internal/search"
	"github.com/park285/chess-arena/internal/session"
	"github.com/park285/chess-arena/pkg/arenadto"
)

const suggestionCount = 5

var (
	ErrNotAITurn    = errors.New("not the computer's turn")
	ErrTooManyGames = errors.New("too many concurrent games")
)

type Service struct {
	logger   *zap.Logger
	store    *session.Store
	profiles *difficulty.Table
	arch     *archive.Archive

	enginePath string
	maxGames   int

	mu      sync.Mutex
	bridges map[string]*engine.Bridge
}

type Options struct {
	EnginePath  string
	GracePeriod time.Duration
	Retention   time.Duration
	MaxGames    int
	Archive     *archive.Archive
}

func New(logger *zap.Logger, profiles *difficulty.Table, opts Options) *Service {
	s := &Service{
		logger:     logger,
		profiles:   profiles,
		arch:       opts.Archive,
		enginePath: opts.EnginePath,
		maxGames:   opts.MaxGames,
		bridges:    make(map[string]*engine.Bridge),
	}

	storeOpts := []session.Option{session.WithFinishHook(s.onGameFinished)}
	if opts.GracePeriod > 0 {
		storeOpts = append(storeOpts, session.WithGracePeriod(opts.GracePeriod))
	}
	if opts.Retention > 0 {
		storeOpts = append(storeOpts, session.WithRetention(opts.Retention))
	}
	s.store = session.NewStore(logger, profiles, storeOpts...)
	return s
}

// Join seats a connection in the named game, creating the game if needed.
func (s *Service) Join(connID, gameID string, info arenadto.PlayerInfo) (arenadto.JoinResult, error) {
	if gameID == "" {
		gameID = uuid.NewString()
	}
	if err := s.admit(gameID); err != nil {
		return arenadto.JoinResult{}, err
	}
	return s.store.JoinGame(connID, gameID, info)
}

// CreateAIGame starts a game against the computer at the given difficulty.
// The human plays white and moves first.
func (s *Service) CreateAIGame(connID, gameID string, info arenadto.PlayerInfo, level int) (arenadto.JoinResult, error) {
	if gameID == "" {
		gameID = uuid.NewString()
	}
	if err := s.admit(gameID); err != nil {
		return arenadto.JoinResult{}, err
	}
	return s.store.CreateAIGame(connID, gameID, info, level)
}

func (s *Service) admit(gameID string) error {
	if s.maxGames > 0 && !s.store.Has(gameID) && s.store.Count() >= s.maxGames {
		return ErrTooManyGames
	}
	return nil
}

// SubmitMove applies a human move.
func (s *Service) SubmitMove(connID, gameID, input string) (arenadto.MoveResult, error) {
	return s.store.MakeMove(connID, gameID, input)
}

// PlayAITurn computes and applies the computer's reply. The orchestrator
// calls it after a human move in an AI game once the turn has passed to
// the computer side; engine trouble is absorbed by the built-in search and
// surfaces only in the result's Source field.
func (s *Service) PlayAITurn(ctx context.Context, gameID string) (arenadto.MoveResult, error) {
	st, err := s.store.AITurnState(gameID)
	if err != nil {
		return arenadto.MoveResult{}, err
	}
	if !st.AITurn {
		return arenadto.MoveResult{}, fmt.Errorf("%w: %s", ErrNotAITurn, gameID)
	}

	bridge := s.bridgeFor(ctx, gameID, st.Profile)
	move, source, err := bridge.SelectMove(ctx, "", st.MovesUCI)
	if err != nil {
		return arenadto.MoveResult{}, err
	}

	res, err := s.store.MakeAIMove(gameID, move)
	if err != nil {
		return arenadto.MoveResult{}, err
	}
	res.Source = string(source)
	return res, nil
}

func (s *Service) bridgeFor(ctx context.Context, gameID string, profile difficulty.Profile) *engine.Bridge {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b, ok := s.bridges[gameID]; ok {
		return b
	}
	logger := s.logger.With(zap.String("game_id", gameID))
	var b *engine.Bridge
	if s.enginePath == "" {
		b = engine.NewFallbackBridge(profile, logger)
	} else {
		b = engine.NewBridge(ctx, s.enginePath, profile, logger)
	}
	s.bridges[gameID] = b
	return b
}

func (s *Service) closeBridge(gameID string) {
	s.mu.Lock()
	b, ok := s.bridges[gameID]
	delete(s.bridges, gameID)
	s.mu.Unlock()
	if ok {
		_ = b.Close()
	}
}

// RemoveConnection handles a transport-level disconnect.
func (s *Service) RemoveConnection(connID string) *arenadto.Departure {
	return s.store.RemovePlayer(connID)
}

// Chat appends a message to a game's chat log.
func (s *Service) Chat(gameID, sender, text string) (arenadto.ChatEntry, error) {
	return s.store.AddChat(gameID, sender, text)
}

// Games lists every registered game.
func (s *Service) Games() []arenadto.GameSummary {
	return s.store.Summaries()
}

// Analysis returns the move history, stats and chat of one game.
func (s *Service) Analysis(gameID string) (arenadto.AnalysisReport, error) {
	return s.store.Analysis(gameID)
}

// AnalyzePosition evaluates an arbitrary position and ranks its candidate
// moves, independent of any live game.
func (s *Service) AnalyzePosition(fen string) (arenadto.PositionReport, error) {
	board, err := rules.NewBoardFromFEN(fen)
	if err != nil {
		return arenadto.PositionReport{}, err
	}

	report := arenadto.PositionReport{
		FEN:        board.FEN(),
		SideToMove: string(board.SideToMove()),
		Eval:       search.Evaluate(board),
	}
	if board.IsTerminal() {
		report.GameOver = true
		report.EndReason = string(board.TerminalReason())
		return report, nil
	}
	for _, sg := range search.Suggestions(board, suggestionCount) {
		report.Suggestions = append(report.Suggestions, arenadto.MoveSuggestion{
			Move: sg.Move,
			SAN:  sg.SAN,
			Eval: sg.Eval,
		})
	}
	return report, nil
}

// Cleanup sweeps expired games immediately and reports how many were
// removed.
func (s *Service) Cleanup() int {
	return s.store.CleanupOldGames()
}

// RunCleanup sweeps expired games on the given interval until ctx ends.
func (s *Service) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.store.CleanupOldGames()
		}
	}
}

// onGameFinished runs once per game, off the store lock.
func (s *Service) onGameFinished(f session.FinishedGame) {
	s.closeBridge(f.ID)

	if s.arch == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rec := archive.Record{
		ID:        f.ID,
		White:     f.White,
		Black:     f.Black,
		AIGame:    f.AIGame,
		Level:     f.Level,
		EndReason: string(f.EndReason),
		FEN:       f.FEN,
		MovesUCI:  f.MovesUCI,
		Moves:     f.Stats.Moves,
		Captures:  f.Stats.Captures,
		Checks:    f.Stats.Checks,
		StartedAt: f.StartedAt,
		EndedAt:   f.EndedAt,
	}
	if err := s.arch.Save(ctx, rec); err != nil {
		s.logger.Warn("archive_save_failed", zap.String("game_id", f.ID), zap.Error(err))
	}
}

// ArchivedGame loads a finished game from the archive, if configured.
func (s *Service) ArchivedGame(ctx context.Context, gameID string) (*archive.Record, error) {
	return s.arch.Get(ctx, gameID)
}

// Close shuts down every live engine process and the archive connection.
func (s *Service) Close() {
	s.mu.Lock()
	bridges := make([]*engine.Bridge, 0, len(s.bridges))
	for id, b := range s.bridges {
		bridges = append(bridges, b)
		delete(s.bridges, id)
	}
	s.mu.Unlock()

	for _, b := range bridges {
		_ = b.Close()
	}
	if err := s.arch.Close(); err != nil {
		s.logger.Warn("archive_close_failed", zap.Error(err))
	}
}

// ErrorDTO maps internal failures to the transport error shape.
func ErrorDTO(err error) arenadto.DomainError {
	code := arenadto.CodeInternal
	switch {
	case errors.Is(err, session.ErrGameExists):
		code = arenadto.CodeGameExists
	case errors.Is(err, session.ErrGameNotFound):
		code = arenadto.CodeGameNotFound
	case errors.Is(err, session.ErrGameNotActive):
		code = arenadto.CodeGameNotActive
	case errors.Is(err, session.ErrSeatMismatch):
		code = arenadto.CodeSeatMismatch
	case errors.Is(err, session.ErrNotAnAIGame):
		code = arenadto.CodeNotAnAIGame
	case errors.Is(err, rules.ErrIllegalMove):
		code = arenadto.CodeIllegalMove
	}
	return arenadto.DomainError{Code: code, Message: err.Error()}
}
