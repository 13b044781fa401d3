// Package cache keeps a read-through copy of per-day schedules in Redis so
// reconciliation passes and checkouts do not hit Postgres for every device.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"Gin_postgres_redis_device_tracker/logger"
	"Gin_postgres_redis_device_tracker/metrics"
	"Gin_postgres_redis_device_tracker/models"
	"Gin_postgres_redis_device_tracker/tracker"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var _ tracker.ScheduleLookup = (*ScheduleCache)(nil)

type ScheduleCache struct {
	next tracker.ScheduleLookup
	rdb  redis.Cmdable
	ttl  time.Duration
	log  zerolog.Logger
}

// NewScheduleCache wraps next. A ttl of zero or a nil client disables caching.
func NewScheduleCache(next tracker.ScheduleLookup, rdb redis.Cmdable, ttl time.Duration) *ScheduleCache {
	return &ScheduleCache{next: next, rdb: rdb, ttl: ttl, log: logger.WithComponent("schedule-cache")}
}

func scheduleKey(holderID string, day models.Weekday) string {
	return fmt.Sprintf("sched:%s:%s", holderID, day)
}

func (c *ScheduleCache) enabled() bool { return c.rdb != nil && c.ttl > 0 }

// SessionsForHolderOnDay serves from Redis when it can. Redis failures fall
// back to the underlying lookup; only that lookup's errors are returned.
func (c *ScheduleCache) SessionsForHolderOnDay(ctx context.Context, holderID string, day models.Weekday) ([]models.ScheduleSession, error) {
	if !c.enabled() {
		return c.next.SessionsForHolderOnDay(ctx, holderID, day)
	}
	key := scheduleKey(holderID, day)

	b, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var ss []models.ScheduleSession
		if jerr := json.Unmarshal(b, &ss); jerr == nil {
			metrics.ScheduleCacheLookups.WithLabelValues("hit").Inc()
			return ss, nil
		}
		metrics.ScheduleCacheLookups.WithLabelValues("error").Inc()
		c.log.Warn().Str("key", key).Msg("discarding undecodable cache entry")
	case errors.Is(err, redis.Nil):
		metrics.ScheduleCacheLookups.WithLabelValues("miss").Inc()
	default:
		metrics.ScheduleCacheLookups.WithLabelValues("error").Inc()
		c.log.Warn().Err(err).Str("key", key).Msg("redis get failed, reading through")
	}

	ss, err := c.next.SessionsForHolderOnDay(ctx, holderID, day)
	if err != nil {
		return nil, err
	}
	if ss == nil {
		ss = []models.ScheduleSession{}
	}
	b, _ = json.Marshal(ss)
	if err := c.rdb.Set(ctx, key, b, c.ttl).Err(); err != nil {
		c.log.Debug().Err(err).Str("key", key).Msg("redis set failed")
	}
	return ss, nil
}

// Invalidate drops the cached days of one holder. With no days given every
// weekday is dropped.
func (c *ScheduleCache) Invalidate(ctx context.Context, holderID string, days ...models.Weekday) error {
	if c.rdb == nil {
		return nil
	}
	if len(days) == 0 {
		days = models.Weekdays()
	}
	keys := make([]string, 0, len(days))
	for _, d := range days {
		keys = append(keys, scheduleKey(holderID, d))
	}
	return c.rdb.Del(ctx, keys...).Err()
}
