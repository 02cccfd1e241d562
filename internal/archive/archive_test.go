package archive

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func newTestArchive(t *testing.T) (*Archive, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(func() { mr.Close() })
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewWithClient(rdb, 24*time.Hour, zap.NewNop()), mr
}

func TestSaveAndGetRoundtrip(t *testing.T) {
	a, mr := newTestArchive(t)
	ctx := context.Background()

	rec := Record{
		ID:        "g1",
		White:     "A",
		Black:     "Computer (club)",
		AIGame:    true,
		Level:     3,
		EndReason: "checkmate",
		FEN:       "rnb1kbnr/pppp1Qpp/2n5/4p3/2B1P3/8/PPPP1PPP/RNB1K1NR b KQkq - 0 4",
		MovesUCI:  []string{"e2e4", "e7e5", "d1h5", "b8c6", "f1c4", "g8f6", "h5f7"},
		Moves:     7,
		Captures:  1,
		Checks:    1,
		StartedAt: time.Now().Add(-time.Minute).UTC(),
		EndedAt:   time.Now().UTC(),
	}
	if err := a.Save(ctx, rec); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := a.Get(ctx, "g1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil || got.ID != "g1" || got.Level != 3 || len(got.MovesUCI) != 7 {
		t.Fatalf("unexpected record: %+v", got)
	}

	if ttl := mr.TTL(gameKey("g1")); ttl <= 0 || ttl > 24*time.Hour {
		t.Fatalf("expected a retention TTL, got %s", ttl)
	}
}

func TestGetMissingReturnsNil(t *testing.T) {
	a, _ := newTestArchive(t)
	got, err := a.Get(context.Background(), "absent")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for absent record, got %+v", got)
	}
}

func TestRecordExpires(t *testing.T) {
	a, mr := newTestArchive(t)
	ctx := context.Background()

	if err := a.Save(ctx, Record{ID: "g1"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	mr.FastForward(25 * time.Hour)

	got, err := a.Get(ctx, "g1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Fatalf("expected expired record to be gone, got %+v", got)
	}
}

func TestNilArchiveIsNoop(t *testing.T) {
	var a *Archive
	ctx := context.Background()

	if err := a.Save(ctx, Record{ID: "g1"}); err != nil {
		t.Fatalf("nil Save: %v", err)
	}
	got, err := a.Get(ctx, "g1")
	if err != nil || got != nil {
		t.Fatalf("nil Get: %v %v", got, err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("nil Close: %v", err)
	}
}

func TestNewRejectsBadURL(t *testing.T) {
	if _, err := New("http://localhost:6379", time.Hour, zap.NewNop()); err == nil {
		t.Fatal("expected unsupported scheme to be rejected")
	}
	a, err := New("", time.Hour, zap.NewNop())
	if err != nil || a != nil {
		t.Fatalf("empty URL should disable the archive: %v %v", a, err)
	}
}
