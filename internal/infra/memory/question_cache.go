package memory

import (
	"context"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"footy-quiz-service/internal/domain"
	"footy-quiz-service/internal/engine"
	"golang.org/x/sync/singleflight"
)

// QuestionCache caches question sets with TTL to avoid repeated DB hits.
type QuestionCache struct {
	loader engine.QuestionLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex

	mu    sync.RWMutex
	cache map[string]cachedQuestions
}

type cachedQuestions struct {
	questions []domain.Question
	expiresAt time.Time
}

func NewQuestionCache(loader engine.QuestionLoader, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedQuestions),
	}
}

// LoadQuestions serves from cache when fresh. Callers must not modify the
// returned slice.
func (c *QuestionCache) LoadQuestions(ctx context.Context, categoryIDs []string, limit int) ([]domain.Question, error) {
	key := QuestionSetKey(categoryIDs, limit)

	if qs, ok := c.lookup(key); ok {
		return qs, nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		if qs, ok := c.lookup(key); ok {
			return qs, nil
		}

		qs, err := c.loader.LoadQuestions(ctx, categoryIDs, limit)
		if err != nil {
			return nil, err
		}
		// Empty sets are not cached so newly added questions show up at once.
		if len(qs) > 0 && c.ttl > 0 {
			c.mu.Lock()
			c.cache[key] = cachedQuestions{questions: qs, expiresAt: c.clock().Add(c.ttlWithJitter())}
			c.mu.Unlock()
		}
		return qs, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (c *QuestionCache) lookup(key string) ([]domain.Question, bool) {
	now := c.clock()
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.cache[key]
	if !ok || !entry.expiresAt.After(now) {
		return nil, false
	}
	return entry.questions, true
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

// QuestionSetKey identifies a question set independent of category order.
func QuestionSetKey(categoryIDs []string, limit int) string {
	ids := append([]string(nil), categoryIDs...)
	sort.Strings(ids)
	return strings.Join(ids, ",") + ":" + strconv.Itoa(limit)
}
