package redis

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"ctscan-quiz/internal/app"
	"ctscan-quiz/internal/domain"
)

const questionsKey = "quiz:questions"

// QuestionCache keeps the JSON encoded bank in a single Redis key and falls
// back to the source on a miss. Stored as: SET quiz:questions <json> EX <ttl>
type QuestionCache struct {
	client *redis.Client
	source app.QuestionRepository
	ttl    time.Duration
	log    *zap.Logger
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewQuestionCache(client *redis.Client, source app.QuestionRepository, ttl time.Duration, log *zap.Logger) *QuestionCache {
	if log == nil {
		log = zap.NewNop()
	}
	return &QuestionCache{
		client: client,
		source: source,
		ttl:    ttl,
		log:    log,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuestionCache) Load(ctx context.Context) ([]domain.Question, error) {
	if bank, ok := c.cached(ctx); ok {
		return bank, nil
	}

	result, err, _ := c.sf.Do(questionsKey, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if bank, ok := c.cached(ctx); ok {
			return bank, nil
		}

		bank, err := c.source.Load(ctx)
		if err != nil {
			return nil, err
		}

		payload, err := json.Marshal(bank)
		if err != nil {
			return nil, err
		}
		if err := c.client.Set(ctx, questionsKey, payload, c.ttlWithJitter()).Err(); err != nil {
			c.log.Warn("cache question bank", zap.Error(err))
		}
		return bank, nil
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
	return c.client.Del(ctx, questionsKey).Err()
}

func (c *QuestionCache) cached(ctx context.Context) ([]domain.Question, bool) {
	payload, err := c.client.Get(ctx, questionsKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("read cached question bank", zap.Error(err))
		}
		return nil, false
	}
	var bank []domain.Question
	if err := json.Unmarshal(payload, &bank); err != nil {
		c.log.Warn("decode cached question bank", zap.Error(err))
		return nil, false
	}
	return bank, true
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
