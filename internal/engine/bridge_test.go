package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/park285/chess-arena/internal/difficulty"
	"github.com/park285/chess-arena/internal/engine/uci"
	"github.com/park285/chess-arena/internal/rules"
)

type stubSearcher struct {
	searchFn func(ctx context.Context, fen string, moves []string, depth, movetimeMillis int) (string, uci.Info, error)
	calls    atomic.Int32
}

func (s *stubSearcher) Search(ctx context.Context, fen string, moves []string, depth, movetimeMillis int) (string, uci.Info, error) {
	s.calls.Add(1)
	return s.searchFn(ctx, fen, moves, depth, movetimeMillis)
}

func (s *stubSearcher) Close() error { return nil }

func testProfile() difficulty.Profile {
	return difficulty.Profile{
		Level: 1, SkillLevel: 0, Elo: 600,
		Depth: 2, MoveTimeMillis: 200, TimeoutMarginMillis: 800,
		FallbackDepth: 1, Label: "test",
	}
}

func assertLegal(t *testing.T, fen string, moves []string, candidate string) {
	t.Helper()
	board, err := rules.Replay(fen, moves)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if _, err := board.ApplyMove(candidate); err != nil {
		t.Fatalf("returned move %q is illegal: %v", candidate, err)
	}
}

func TestSelectMoveWithoutEngineUsesFallback(t *testing.T) {
	b := NewFallbackBridge(testProfile(), zap.NewNop())

	move, source, err := b.SelectMove(context.Background(), "", nil)
	if err != nil {
		t.Fatalf("SelectMove: %v", err)
	}
	if source != SourceFallback {
		t.Fatalf("expected fallback source, got %s", source)
	}
	assertLegal(t, "", nil, move)
}

func TestSelectMoveTrustsValidEngineMove(t *testing.T) {
	stub := &stubSearcher{searchFn: func(context.Context, string, []string, int, int) (string, uci.Info, error) {
		return "e2e4", uci.Info{Depth: 2}, nil
	}}
	b := newBridgeWith(stub, testProfile(), zap.NewNop())

	move, source, err := b.SelectMove(context.Background(), "", nil)
	if err != nil {
		t.Fatalf("SelectMove: %v", err)
	}
	if source != SourceEngine || move != "e2e4" {
		t.Fatalf("expected engine move e2e4, got %s from %s", move, source)
	}
}

func TestSelectMoveRejectsIllegalEngineMove(t *testing.T) {
	stub := &stubSearcher{searchFn: func(context.Context, string, []string, int, int) (string, uci.Info, error) {
		return "e2e5", uci.Info{}, nil
	}}
	b := newBridgeWith(stub, testProfile(), zap.NewNop())

	move, source, err := b.SelectMove(context.Background(), "", nil)
	if err != nil {
		t.Fatalf("SelectMove: %v", err)
	}
	if source != SourceFallback {
		t.Fatalf("expected fallback after illegal engine move, got %s", source)
	}
	assertLegal(t, "", nil, move)
}

func TestSelectMoveNoMoveKeepsEngineEnabled(t *testing.T) {
	stub := &stubSearcher{searchFn: func(context.Context, string, []string, int, int) (string, uci.Info, error) {
		return "", uci.Info{}, uci.ErrNoMove
	}}
	b := newBridgeWith(stub, testProfile(), zap.NewNop())

	for i := 0; i < 2; i++ {
		move, source, err := b.SelectMove(context.Background(), "", nil)
		if err != nil {
			t.Fatalf("SelectMove: %v", err)
		}
		if source != SourceFallback {
			t.Fatalf("expected fallback, got %s", source)
		}
		assertLegal(t, "", nil, move)
	}
	if got := stub.calls.Load(); got != 2 {
		t.Fatalf("engine should stay enabled after a no-move reply, calls=%d", got)
	}
}

func TestSelectMoveIOErrorDisablesEngine(t *testing.T) {
	stub := &stubSearcher{searchFn: func(context.Context, string, []string, int, int) (string, uci.Info, error) {
		return "", uci.Info{}, errors.New("broken pipe")
	}}
	b := newBridgeWith(stub, testProfile(), zap.NewNop())

	if _, source, err := b.SelectMove(context.Background(), "", nil); err != nil || source != SourceFallback {
		t.Fatalf("first call: source=%s err=%v", source, err)
	}
	if _, source, err := b.SelectMove(context.Background(), "", nil); err != nil || source != SourceFallback {
		t.Fatalf("second call: source=%s err=%v", source, err)
	}
	if got := stub.calls.Load(); got != 1 {
		t.Fatalf("disabled engine should not be queried again, calls=%d", got)
	}
}

func TestSelectMoveTimeoutFallsBack(t *testing.T) {
	profile := testProfile()
	profile.MoveTimeMillis = 10
	profile.TimeoutMarginMillis = 30

	stub := &stubSearcher{searchFn: func(ctx context.Context, _ string, _ []string, _, _ int) (string, uci.Info, error) {
		<-ctx.Done()
		return "", uci.Info{}, ctx.Err()
	}}
	b := newBridgeWith(stub, profile, zap.NewNop())

	start := time.Now()
	move, source, err := b.SelectMove(context.Background(), "", nil)
	if err != nil {
		t.Fatalf("SelectMove: %v", err)
	}
	if source != SourceFallback {
		t.Fatalf("expected fallback after timeout, got %s", source)
	}
	assertLegal(t, "", nil, move)
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("timed-out request took too long: %s", elapsed)
	}

	// A deadline is not a process failure; the next request tries again.
	if _, _, err := b.SelectMove(context.Background(), "", nil); err != nil {
		t.Fatalf("SelectMove after timeout: %v", err)
	}
	if got := stub.calls.Load(); got != 2 {
		t.Fatalf("engine should stay enabled after timeout, calls=%d", got)
	}
}

func TestSelectMoveConcurrentRequestServedByFallback(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	stub := &stubSearcher{searchFn: func(ctx context.Context, _ string, _ []string, _, _ int) (string, uci.Info, error) {
		close(entered)
		select {
		case <-release:
		case <-ctx.Done():
		}
		return "e2e4", uci.Info{}, nil
	}}
	b := newBridgeWith(stub, testProfile(), zap.NewNop())

	type result struct {
		move   string
		source Source
		err    error
	}
	first := make(chan result, 1)
	go func() {
		mv, src, err := b.SelectMove(context.Background(), "", nil)
		first <- result{mv, src, err}
	}()

	<-entered
	move, source, err := b.SelectMove(context.Background(), "", nil)
	if err != nil {
		t.Fatalf("concurrent SelectMove: %v", err)
	}
	if source != SourceFallback {
		t.Fatalf("concurrent request should use fallback, got %s", source)
	}
	assertLegal(t, "", nil, move)

	close(release)
	res := <-first
	if res.err != nil || res.source != SourceEngine || res.move != "e2e4" {
		t.Fatalf("in-flight request: %+v", res)
	}
	if got := stub.calls.Load(); got != 1 {
		t.Fatalf("only the in-flight request should reach the engine, calls=%d", got)
	}
}
