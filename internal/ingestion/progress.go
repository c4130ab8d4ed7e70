package ingestion

import (
	"context"
	"errors"
	"time"

	"github.com/18061718791/AITestCraft-sub000/internal/domain"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// ErrJobNotFound is returned for unknown or expired job ids.
var ErrJobNotFound = errors.New("import job not found")

// ProgressStore keeps the latest snapshot of each import job. Save and Get
// exchange copies, so a caller never shares memory with the store.
type ProgressStore interface {
	Save(ctx context.Context, job domain.ImportJob) error
	Get(ctx context.Context, id string) (domain.ImportJob, error)
}

const (
	defaultProgressCapacity = 1000
	defaultProgressTTL      = 24 * time.Hour
)

// MemoryProgressStore is a bounded in-process store. Jobs are evicted once
// they are older than the TTL or when capacity is exceeded, least recently
// used first.
type MemoryProgressStore struct {
	cache *expirable.LRU[string, domain.ImportJob]
}

// NewMemoryProgressStore creates a store holding at most capacity jobs for ttl.
func NewMemoryProgressStore(capacity int, ttl time.Duration) *MemoryProgressStore {
	if capacity <= 0 {
		capacity = defaultProgressCapacity
	}
	if ttl <= 0 {
		ttl = defaultProgressTTL
	}
	return &MemoryProgressStore{cache: expirable.NewLRU[string, domain.ImportJob](capacity, nil, ttl)}
}

func (s *MemoryProgressStore) Save(_ context.Context, job domain.ImportJob) error {
	s.cache.Add(job.ID, job.Clone())
	return nil
}

func (s *MemoryProgressStore) Get(_ context.Context, id string) (domain.ImportJob, error) {
	job, ok := s.cache.Get(id)
	if !ok {
		return domain.ImportJob{}, ErrJobNotFound
	}
	return job.Clone(), nil
}

// Len reports the number of retained jobs.
func (s *MemoryProgressStore) Len() int {
	return s.cache.Len()
}
