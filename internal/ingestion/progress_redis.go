package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/18061718791/AITestCraft-sub000/internal/domain"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "testcraft:import:"

// RedisProgressStore shares job progress between API instances. Each job is
// a JSON value that expires after the TTL.
type RedisProgressStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedisProgressStore stores jobs through client.
func NewRedisProgressStore(client redis.Cmdable, ttl time.Duration) *RedisProgressStore {
	if ttl <= 0 {
		ttl = defaultProgressTTL
	}
	return &RedisProgressStore{client: client, ttl: ttl}
}

func redisKey(id string) string {
	return redisKeyPrefix + id
}

func (s *RedisProgressStore) Save(ctx context.Context, job domain.ImportJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to encode job %s: %w", job.ID, err)
	}
	if err := s.client.Set(ctx, redisKey(job.ID), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save job %s: %w", job.ID, err)
	}
	return nil
}

func (s *RedisProgressStore) Get(ctx context.Context, id string) (domain.ImportJob, error) {
	payload, err := s.client.Get(ctx, redisKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.ImportJob{}, ErrJobNotFound
	}
	if err != nil {
		return domain.ImportJob{}, fmt.Errorf("failed to load job %s: %w", id, err)
	}

	var job domain.ImportJob
	if err := json.Unmarshal(payload, &job); err != nil {
		return domain.ImportJob{}, fmt.Errorf("failed to decode job %s: %w", id, err)
	}
	if job.Errors == nil {
		job.Errors = []domain.ImportError{}
	}
	return job, nil
}
