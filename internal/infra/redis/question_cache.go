package redis

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"footy-quiz-service/internal/domain"
	"footy-quiz-service/internal/engine"
	"footy-quiz-service/internal/infra/memory"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// QuestionCache caches question sets in Redis as JSON and falls back to a
// loader on cache miss. Keys look like questions:{sorted category ids}:{limit}.
type QuestionCache struct {
	client *redis.Client
	loader engine.QuestionLoader
	ttl    time.Duration
	log    *slog.Logger
	sf     singleflight.Group
	rndMu  sync.Mutex
	rnd    *rand.Rand
}

func NewQuestionCache(client *redis.Client, loader engine.QuestionLoader, ttl time.Duration, log *slog.Logger) *QuestionCache {
	if log == nil {
		log = slog.Default()
	}
	return &QuestionCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		log:    log.With("component", "question_cache"),
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuestionCache) LoadQuestions(ctx context.Context, categoryIDs []string, limit int) ([]domain.Question, error) {
	key := "questions:" + memory.QuestionSetKey(categoryIDs, limit)

	if qs, ok := c.lookup(ctx, key); ok {
		return qs, nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if qs, ok := c.lookup(ctx, key); ok {
			return qs, nil
		}

		qs, err := c.loader.LoadQuestions(ctx, categoryIDs, limit)
		if err != nil {
			return nil, err
		}
		if len(qs) == 0 || c.ttl <= 0 {
			return qs, nil
		}
		raw, err := json.Marshal(qs)
		if err != nil {
			return qs, nil
		}
		if err := c.client.Set(ctx, key, raw, c.ttlWithJitter()).Err(); err != nil {
			// best-effort; the loaded set is still good
			c.log.Warn("cache questions failed", "key", key, "err", err)
		}
		return qs, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (c *QuestionCache) lookup(ctx context.Context, key string) ([]domain.Question, bool) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn("read cached questions failed", "key", key, "err", err)
		}
		return nil, false
	}
	var qs []domain.Question
	if err := json.Unmarshal(raw, &qs); err != nil || len(qs) == 0 {
		return nil, false
	}
	return qs, true
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
