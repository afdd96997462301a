package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
)

// SumCache stores today's protein total per user and day.
//
// Every mutation bumps a per-user version counter; sum keys embed the version, so old
// sums simply stop being read and expire on their own TTL. Get reports the version it
// read and Set writes under that version, never the current one: a sum computed before
// a concurrent mutation lands under a version nobody reads anymore.
type SumCache struct {
	client *redisv9.Client
	ttl    time.Duration
}

func NewSumCache(client *redisv9.Client, ttl time.Duration) *SumCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &SumCache{client: client, ttl: ttl}
}

func (c *SumCache) Get(ctx context.Context, userID int, dayStart time.Time) (sum float64, ver int64, ok bool, err error) {
	ver, err = c.version(ctx, userID)
	if err != nil {
		return 0, 0, false, err
	}
	raw, err := c.client.Get(ctx, sumKey(userID, ver, dayStart)).Result()
	if err == redisv9.Nil {
		return 0, ver, false, nil
	}
	if err != nil {
		return 0, ver, false, fmt.Errorf("redis get sum failed: %w", err)
	}
	sum, err = strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, ver, false, fmt.Errorf("parse cached sum failed: %w", err)
	}
	return sum, ver, true, nil
}

// Set stores sum under ver, the version returned by the Get that missed.
func (c *SumCache) Set(ctx context.Context, userID int, ver int64, dayStart time.Time, sum float64) error {
	val := strconv.FormatFloat(sum, 'f', -1, 64)
	if err := c.client.Set(ctx, sumKey(userID, ver, dayStart), val, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set sum failed: %w", err)
	}
	return nil
}

func (c *SumCache) Invalidate(ctx context.Context, userID int) error {
	if err := c.client.Incr(ctx, versionKey(userID)).Err(); err != nil {
		return fmt.Errorf("redis bump entries version failed: %w", err)
	}
	return nil
}

func (c *SumCache) version(ctx context.Context, userID int) (int64, error) {
	ver, err := c.client.Get(ctx, versionKey(userID)).Int64()
	if err == redisv9.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get entries version failed: %w", err)
	}
	return ver, nil
}

func versionKey(userID int) string {
	return fmt.Sprintf("icarus:entries:ver:%d", userID)
}

func sumKey(userID int, ver int64, dayStart time.Time) string {
	return fmt.Sprintf("icarus:sum:%d:%d:%d", userID, ver, dayStart.Unix())
}
