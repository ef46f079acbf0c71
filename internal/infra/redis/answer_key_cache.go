package redis

import (
	"context"
	"math/rand"
	"strconv"
	"time"

	"quiz-session-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// KeyLoader fetches a question's answer key from a backing store.
type KeyLoader interface {
	LoadAnswerKey(ctx context.Context, questionID int64) (domain.AnswerKey, error)
}

// AnswerKeyCache caches answer keys in Redis and falls back to a loader on
// cache miss. Keys are stored as:
//
//	HSET question:{id}:options {optionID} {0|1}   (is_correct per option)
//	HSET question:{id}:meta    quiz_id {quizID} points {points}
//
// An option absent from the hash does not belong to the question, so the
// option-belongs-to-question check works entirely off the cached hash.
type AnswerKeyCache struct {
	client *redis.Client
	loader KeyLoader
	ttl    time.Duration
	sf     singleflight.Group
}

func NewAnswerKeyCache(client *redis.Client, loader KeyLoader, ttl time.Duration) *AnswerKeyCache {
	return &AnswerKeyCache{
		client: client,
		loader: loader,
		ttl:    ttl,
	}
}

func (c *AnswerKeyCache) AnswerKey(ctx context.Context, questionID int64) (domain.AnswerKey, error) {
	optionsKey := c.optionsKey(questionID)
	metaKey := c.metaKey(questionID)

	// Both hashes must be present; an options hash that outlived its meta
	// hash is a miss, otherwise the key would decode with quiz_id 0.
	options, err := c.client.HGetAll(ctx, optionsKey).Result()
	if err == nil && len(options) > 0 {
		meta, err := c.client.HGetAll(ctx, metaKey).Result()
		if err == nil && len(meta) > 0 {
			return buildKeyFromCache(questionID, options, meta), nil
		}
	}

	result, err, _ := c.sf.Do(strconv.FormatInt(questionID, 10), func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		options, err := c.client.HGetAll(ctx, optionsKey).Result()
		if err == nil && len(options) > 0 {
			meta, err := c.client.HGetAll(ctx, metaKey).Result()
			if err == nil && len(meta) > 0 {
				return buildKeyFromCache(questionID, options, meta), nil
			}
		}

		key, err := c.loader.LoadAnswerKey(ctx, questionID)
		if err != nil {
			return domain.AnswerKey{}, err
		}

		ttl := c.ttlWithJitter()
		pipe := c.client.Pipeline()
		for optionID, correct := range key.Correct {
			flag := "0"
			if correct {
				flag = "1"
			}
			pipe.HSet(ctx, optionsKey, strconv.FormatInt(optionID, 10), flag)
		}
		pipe.HSet(ctx, metaKey, "quiz_id", key.QuizID, "points", key.Points)
		if ttl > 0 {
			pipe.Expire(ctx, optionsKey, ttl)
			pipe.Expire(ctx, metaKey, ttl)
		}
		_, _ = pipe.Exec(ctx)

		return key, nil
	})
	if err != nil {
		return domain.AnswerKey{}, err
	}
	return result.(domain.AnswerKey), nil
}

func (c *AnswerKeyCache) optionsKey(questionID int64) string {
	return "question:" + strconv.FormatInt(questionID, 10) + ":options"
}

func (c *AnswerKeyCache) metaKey(questionID int64) string {
	return "question:" + strconv.FormatInt(questionID, 10) + ":meta"
}

func buildKeyFromCache(questionID int64, options, meta map[string]string) domain.AnswerKey {
	key := domain.AnswerKey{
		QuestionID: questionID,
		Correct:    make(map[int64]bool, len(options)),
	}
	for rawID, flag := range options {
		optionID, err := strconv.ParseInt(rawID, 10, 64)
		if err != nil {
			continue
		}
		key.Correct[optionID] = flag == "1"
	}
	if raw, ok := meta["quiz_id"]; ok {
		if quizID, err := strconv.ParseInt(raw, 10, 64); err == nil {
			key.QuizID = quizID
		}
	}
	if raw, ok := meta["points"]; ok {
		if points, err := strconv.Atoi(raw); err == nil {
			key.Points = points
		}
	}
	return key
}

func (c *AnswerKeyCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(rand.Int63n(jitterMax+1))
}
