// Package archive persists finished games to Redis so results survive
// short outages and can be browsed after the live session is purged.
// Records carry the same retention window as the in-memory sweep; Redis
// expiry does the purging. The archive is optional: a nil *Archive is a
// no-op everywhere.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Record is the stored shape of one finished game.
type Record struct {
	ID        string    `json:"id"`
	White     string    `json:"white"`
	Black     string    `json:"black"`
	AIGame    bool      `json:"ai_game"`
	Level     int       `json:"level,omitempty"`
	EndReason string    `json:"end_reason"`
	FEN       string    `json:"fen"`
	MovesUCI  []string  `json:"moves_uci"`
	Moves     int       `json:"moves"`
	Captures  int       `json:"captures"`
	Checks    int       `json:"checks"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
}

type Archive struct {
	rdb       *redis.Client
	logger    *zap.Logger
	retention time.Duration
}

// New connects to Redis at the given URL. An empty URL disables the
// archive; callers get a nil *Archive back with no error.
func New(redisURL string, retention time.Duration, logger *zap.Logger) (*Archive, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, nil
	}
	opts, err := parseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Archive{rdb: rdb, logger: logger, retention: retention}, nil
}

// NewWithClient wraps an existing client; tests pair it with miniredis.
func NewWithClient(rdb *redis.Client, retention time.Duration, logger *zap.Logger) *Archive {
	return &Archive{rdb: rdb, logger: logger, retention: retention}
}

func gameKey(id string) string { return "arena:game:" + strings.TrimSpace(id) }

// Save stores one finished game under its retention TTL.
func (a *Archive) Save(ctx context.Context, rec Record) error {
	if a == nil {
		return nil
	}
	raw, err := json.Marshal(&rec)
	if err != nil {
		return err
	}
	if err := a.rdb.Set(ctx, gameKey(rec.ID), raw, a.retention).Err(); err != nil {
		return fmt.Errorf("archive save: %w", err)
	}
	a.logger.Debug("game_archived", zap.String("game_id", rec.ID))
	return nil
}

// Get loads an archived game; (nil, nil) when absent or expired.
func (a *Archive) Get(ctx context.Context, id string) (*Record, error) {
	if a == nil {
		return nil, nil
	}
	raw, err := a.rdb.Get(ctx, gameKey(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Close releases the Redis connection.
func (a *Archive) Close() error {
	if a == nil {
		return nil
	}
	return a.rdb.Close()
}

func parseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			db = n
		}
	}
	pass, _ := u.User.Password()
	return &redis.Options{Addr: u.Host, Password: pass, DB: db}, nil
}
