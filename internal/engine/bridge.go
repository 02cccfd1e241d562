// Package engine selects moves for the computer side of an AI game. It
// prefers the external UCI process and falls back to the built-in search
// whenever the process is missing, slow, or talking nonsense. Engine
// trouble is never surfaced to players; the fallback answer is.
package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/park285/chess-arena/internal/difficulty"
	"github.com/park285/chess-arena/internal/engine/uci"
	"github.com/park285/chess-arena/internal/rules"
	"github.com/park285/chess-arena/internal/search"
)

// Diagnostic reasons for falling back. Logged, never returned to callers.
var (
	ErrEngineUnavailable = errors.New("engine unavailable")
	ErrEngineTimeout     = errors.New("engine timeout")
	ErrEngineMalformed   = errors.New("engine malformed response")
	ErrEngineBusy        = errors.New("engine busy")
)

// Source reports which component produced a move.
type Source string

const (
	SourceEngine   Source = "engine"
	SourceFallback Source = "fallback"
)

// Searcher is the slice of the uci client the bridge uses; tests stub it.
type Searcher interface {
	Search(ctx context.Context, fen string, moves []string, depth, movetimeMillis int) (string, uci.Info, error)
	Close() error
}

// Bridge owns move selection for one AI game.
type Bridge struct {
	profile difficulty.Profile
	logger  *zap.Logger

	mu      sync.Mutex
	client  Searcher
	healthy bool

	inFlight atomic.Bool
}

// NewBridge spawns the external process for one game. A spawn failure is
// not an error: the bridge starts disabled and every request uses the
// fallback.
func NewBridge(ctx context.Context, binaryPath string, profile difficulty.Profile, logger *zap.Logger) *Bridge {
	b := &Bridge{profile: profile, logger: logger}

	client, err := uci.NewClient(ctx, binaryPath, uci.Config{
		SkillLevel: profile.SkillLevel,
		Elo:        profile.Elo,
	})
	if err != nil {
		logger.Warn("engine_spawn_failed", zap.Error(err), zap.Int("level", profile.Level))
		return b
	}
	b.client = client
	b.healthy = true
	return b
}

// NewFallbackBridge builds a bridge with no external process at all, for
// tests and for deployments without an engine binary.
func NewFallbackBridge(profile difficulty.Profile, logger *zap.Logger) *Bridge {
	return &Bridge{profile: profile, logger: logger}
}

// newBridgeWith injects a Searcher; test seam.
func newBridgeWith(client Searcher, profile difficulty.Profile, logger *zap.Logger) *Bridge {
	return &Bridge{profile: profile, logger: logger, client: client, healthy: client != nil}
}

type outcome struct {
	move string
	err  error
}

// SelectMove picks the move for the side to move of the position described
// by fen+moves. The returned move is always legal in that position.
//
// At most one external request is in flight per bridge; a second caller is
// served by the fallback immediately. Each logical request resolves
// exactly once: the external result is delivered through a single-slot
// channel and abandoned wholesale on timeout.
func (b *Bridge) SelectMove(ctx context.Context, fen string, moves []string) (string, Source, error) {
	if !b.enabled() {
		return b.fallback(fen, moves, ErrEngineUnavailable)
	}
	if !b.inFlight.CompareAndSwap(false, true) {
		return b.fallback(fen, moves, ErrEngineBusy)
	}
	defer b.inFlight.Store(false)

	reqCtx, cancel := context.WithTimeout(ctx, b.profile.Budget())
	defer cancel()

	resultCh := make(chan outcome, 1)
	go func() {
		move, _, err := b.clientRef().Search(reqCtx, fen, moves, b.profile.Depth, b.profile.MoveTimeMillis)
		resultCh <- outcome{move: move, err: err}
	}()

	select {
	case <-reqCtx.Done():
		// The search goroutine observes the same ctx, sends stop, and
		// parks its late result in the buffered channel.
		return b.fallback(fen, moves, ErrEngineTimeout)
	case res := <-resultCh:
		if res.err != nil {
			if errors.Is(res.err, context.DeadlineExceeded) {
				return b.fallback(fen, moves, ErrEngineTimeout)
			}
			if errors.Is(res.err, uci.ErrNoMove) {
				return b.fallback(fen, moves, ErrEngineMalformed)
			}
			// I/O failure usually means the process died; stop asking.
			b.disable(res.err)
			return b.fallback(fen, moves, ErrEngineUnavailable)
		}
		if !b.moveIsLegal(fen, moves, res.move) {
			return b.fallback(fen, moves, ErrEngineMalformed)
		}
		return res.move, SourceEngine, nil
	}
}

// fallback answers with the built-in search. reason is diagnostic only.
func (b *Bridge) fallback(fen string, moves []string, reason error) (string, Source, error) {
	if !errors.Is(reason, ErrEngineUnavailable) || b.enabled() {
		b.logger.Warn("engine_fallback",
			zap.NamedError("reason", reason),
			zap.Int("level", b.profile.Level),
		)
	}

	board, err := rules.Replay(fen, moves)
	if err != nil {
		return "", SourceFallback, err
	}
	start := time.Now()
	move := search.BestMove(board, b.profile.FallbackDepth)
	if move == "" {
		return "", SourceFallback, errors.New("no legal move available")
	}
	b.logger.Debug("fallback_move",
		zap.String("move", move),
		zap.Duration("took", time.Since(start)),
	)
	return move, SourceFallback, nil
}

func (b *Bridge) moveIsLegal(fen string, moves []string, candidate string) bool {
	board, err := rules.Replay(fen, moves)
	if err != nil {
		return false
	}
	if _, err := board.ApplyMove(candidate); err != nil {
		b.logger.Warn("engine_illegal_bestmove", zap.String("move", candidate))
		return false
	}
	return true
}

func (b *Bridge) enabled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.healthy && b.client != nil
}

func (b *Bridge) clientRef() Searcher {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.client
}

func (b *Bridge) disable(cause error) {
	b.mu.Lock()
	wasHealthy := b.healthy
	b.healthy = false
	client := b.client
	b.client = nil
	b.mu.Unlock()

	if wasHealthy {
		b.logger.Warn("engine_disabled", zap.Error(cause), zap.Int("level", b.profile.Level))
	}
	if client != nil {
		go client.Close()
	}
}

// Close terminates the external process if one is still running.
func (b *Bridge) Close() error {
	b.mu.Lock()
	client := b.client
	b.client = nil
	b.healthy = false
	b.mu.Unlock()

	if client == nil {
		return nil
	}
	return client.Close()
}
