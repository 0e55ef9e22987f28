package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"checkin-queue/internal/models"
)

const generationKey = "analytics:generation"

// ReportSource computes a report for a window of days.
type ReportSource interface {
	Report(ctx context.Context, days int) (models.AnalyticsReport, error)
}

// Cache keeps computed reports in Redis. Completions bump a generation
// counter so older entries are never read again and expire on their own.
type Cache struct {
	next ReportSource
	rdb  *redis.Client
	ttl  time.Duration
}

func NewCache(next ReportSource, rdb *redis.Client, ttl time.Duration) *Cache {
	return &Cache{next: next, rdb: rdb, ttl: ttl}
}

func reportKey(generation int64, days int) string {
	return fmt.Sprintf("analytics:g%d:days:%d", generation, days)
}

func (c *Cache) Report(ctx context.Context, days int) (models.AnalyticsReport, error) {
	gen, err := c.rdb.Get(ctx, generationKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		log.Printf("[analytics] cache generation unavailable: %v", err)
		return c.next.Report(ctx, days)
	}

	key := reportKey(gen, days)
	cached, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var report models.AnalyticsReport
		if err := json.Unmarshal(cached, &report); err == nil {
			return report, nil
		}
		log.Printf("[analytics] discarding unreadable cache entry %s", key)
	case !errors.Is(err, redis.Nil):
		log.Printf("[analytics] cache read %s: %v", key, err)
	}

	report, err := c.next.Report(ctx, days)
	if err != nil {
		return models.AnalyticsReport{}, err
	}

	data, err := json.Marshal(report)
	if err != nil {
		return report, nil
	}
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		log.Printf("[analytics] cache write %s: %v", key, err)
	}
	return report, nil
}

// Invalidate makes every cached report stale.
func (c *Cache) Invalidate(ctx context.Context) {
	if err := c.rdb.Incr(ctx, generationKey).Err(); err != nil {
		log.Printf("[analytics] cache invalidate: %v", err)
	}
}
