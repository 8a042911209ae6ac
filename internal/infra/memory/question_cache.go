package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"ctscan-quiz/internal/app"
	"ctscan-quiz/internal/domain"
)

const bankKey = "bank"

// QuestionCache caches the bank with a TTL to avoid repeated DB hits.
type QuestionCache struct {
	source app.QuestionRepository
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu        sync.RWMutex
	bank      []domain.Question
	expiresAt time.Time
}

func NewQuestionCache(source app.QuestionRepository, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		source: source,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuestionCache) Load(ctx context.Context) ([]domain.Question, error) {
	if bank, ok := c.cached(c.clock()); ok {
		return bank, nil
	}

	result, err, _ := c.sf.Do(bankKey, func() (interface{}, error) {
		now := c.clock()
		if bank, ok := c.cached(now); ok {
			return bank, nil
		}

		bank, err := c.source.Load(ctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.bank = bank
		c.expiresAt = now.Add(c.ttlWithJitter())
		c.mu.Unlock()
		return cloneBank(bank), nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

// Save writes through to the source and drops the cached copy.
func (c *QuestionCache) Save(ctx context.Context, questions []domain.Question) error {
	if err := c.source.Save(ctx, questions); err != nil {
		return err
	}
	c.mu.Lock()
	c.bank = nil
	c.expiresAt = time.Time{}
	c.mu.Unlock()
	return nil
}

func (c *QuestionCache) cached(now time.Time) ([]domain.Question, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.bank == nil || !c.expiresAt.After(now) {
		return nil, false
	}
	return cloneBank(c.bank), true
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
