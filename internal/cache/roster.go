package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/d60-Lab/course-forum/internal/repository"
)

// RosterCache fronts ParticipantRepository.ListNotifiable with a per-course
// Redis cache. The worker reloads the roster on every job; rosters change far
// less often than messages arrive, so a short TTL absorbs most of the reads.
// A nil client degrades to plain DB reads.
type RosterCache struct {
	repo  repository.ParticipantRepository
	cache *redis.Client
	ttl   time.Duration
}

func NewRosterCache(repo repository.ParticipantRepository, cache *redis.Client, ttl time.Duration) *RosterCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RosterCache{repo: repo, cache: cache, ttl: ttl}
}

func rosterKey(courseID string) string { return fmt.Sprintf("roster:%s", courseID) }

// ListNotifiable returns the course's notifiable roster, cache-first.
// Cache errors fall through to the DB; staleness is bounded by the TTL and
// the explicit Invalidate hook on enrollment changes.
func (c *RosterCache) ListNotifiable(ctx context.Context, courseID string) ([]repository.NotifiableParticipant, error) {
	if c.cache == nil {
		return c.repo.ListNotifiable(ctx, courseID)
	}

	key := rosterKey(courseID)
	if data, err := c.cache.Get(ctx, key).Bytes(); err == nil {
		var out []repository.NotifiableParticipant
		if uErr := json.Unmarshal(data, &out); uErr == nil {
			return out, nil
		}
	}

	rows, err := c.repo.ListNotifiable(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if payload, err := json.Marshal(rows); err == nil {
		_ = c.cache.Set(ctx, key, payload, c.ttl).Err()
	}
	return rows, nil
}

// Invalidate drops the cached roster for a course (enrollment or preference
// change).
func (c *RosterCache) Invalidate(ctx context.Context, courseID string) error {
	if c.cache == nil {
		return nil
	}
	return c.cache.Del(ctx, rosterKey(courseID)).Err()
}
