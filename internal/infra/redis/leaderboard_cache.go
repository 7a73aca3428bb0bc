package redis

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"footy-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

const leaderboardKey = "leaderboard:global"

// LeaderboardCache shares the computed leaderboard across instances.
type LeaderboardCache struct {
	client *redis.Client
	log    *slog.Logger
}

func NewLeaderboardCache(client *redis.Client, log *slog.Logger) *LeaderboardCache {
	if log == nil {
		log = slog.Default()
	}
	return &LeaderboardCache{client: client, log: log.With("component", "leaderboard_cache")}
}

func (c *LeaderboardCache) Get(ctx context.Context) ([]domain.LeaderboardEntry, bool) {
	raw, err := c.client.Get(ctx, leaderboardKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn("read leaderboard failed", "err", err)
		}
		return nil, false
	}
	var entries []domain.LeaderboardEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, false
	}
	return entries, true
}

func (c *LeaderboardCache) Set(ctx context.Context, entries []domain.LeaderboardEntry, ttl time.Duration) {
	raw, err := json.Marshal(entries)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, leaderboardKey, raw, ttl).Err(); err != nil {
		c.log.Warn("write leaderboard failed", "err", err)
	}
}
