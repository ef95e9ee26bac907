// internal/server/ratelimit.go
package server

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter bounds chat usage per caller with Redis counters over a
// per-minute and a per-day window. Redis trouble fails open: the chat stays
// available without limiting rather than going dark with it.
type RateLimiter struct {
	rdb       *redis.Client
	perMinute int
	daily     int
	logger    Logger
}

func NewRateLimiter(rdb *redis.Client, perMinute, daily int, log Logger) *RateLimiter {
	return &RateLimiter{
		rdb:       rdb,
		perMinute: perMinute,
		daily:     daily,
		logger:    log.With(map[string]interface{}{"component": "rate-limiter"}),
	}
}

// Allow reports whether the caller may ask one more question now. Keys are
// window-scoped, so the TTL only garbage-collects stale counters. A daily
// cap of zero disables the day window.
func (l *RateLimiter) Allow(ctx context.Context, caller string, now time.Time) bool {
	minuteKey := fmt.Sprintf("chat:ratelimit:minute:%s:%s", caller, now.UTC().Format("200601021504"))
	n, err := l.rdb.Incr(ctx, minuteKey).Result()
	if err != nil {
		l.logger.Warn("Rate limiter unavailable, allowing request", map[string]interface{}{
			"caller": caller,
			"error":  err.Error(),
		})
		return true
	}
	if n == 1 {
		l.rdb.Expire(ctx, minuteKey, 2*time.Minute)
	}
	if n > int64(l.perMinute) {
		return false
	}

	if l.daily <= 0 {
		return true
	}
	dayKey := fmt.Sprintf("chat:ratelimit:day:%s:%s", caller, now.UTC().Format("20060102"))
	d, err := l.rdb.Incr(ctx, dayKey).Result()
	if err != nil {
		l.logger.Warn("Rate limiter unavailable, allowing request", map[string]interface{}{
			"caller": caller,
			"error":  err.Error(),
		})
		return true
	}
	if d == 1 {
		l.rdb.Expire(ctx, dayKey, 25*time.Hour)
	}
	return d <= int64(l.daily)
}