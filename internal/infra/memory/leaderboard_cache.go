package memory

import (
	"context"
	"sync"
	"time"

	"footy-quiz-service/internal/domain"
)

// LeaderboardCache keeps the last computed leaderboard in process.
type LeaderboardCache struct {
	clock func() time.Time

	mu        sync.RWMutex
	entries   []domain.LeaderboardEntry
	expiresAt time.Time
}

func NewLeaderboardCache() *LeaderboardCache {
	return &LeaderboardCache{clock: time.Now}
}

func (c *LeaderboardCache) Get(context.Context) ([]domain.LeaderboardEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.entries == nil || !c.expiresAt.After(c.clock()) {
		return nil, false
	}
	return c.entries, true
}

func (c *LeaderboardCache) Set(_ context.Context, entries []domain.LeaderboardEntry, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append([]domain.LeaderboardEntry{}, entries...)
	c.expiresAt = c.clock().Add(ttl)
}
