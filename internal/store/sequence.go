package store

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/piwi3910/SubTrack/internal/selection"
	"github.com/redis/go-redis/v9"
)

// SourceIDKey is the Redis counter behind generated inventory source IDs.
const SourceIDKey = "subtrack:inventory:source_id"

// ConnectRedis connects to addr and checks it answers.
func ConnectRedis(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: "",
		DB:       0,
		PoolSize: 20,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// RedisSequence allocates source IDs from a Redis counter so they stay
// unique across processes. The counter is seeded from the clock the first
// time it is used. With a nil client it falls back to an in-process
// clock-seeded counter.
type RedisSequence struct {
	rdb      *redis.Client
	key      string
	now      func() time.Time
	seeded   atomic.Bool
	fallback *selection.ClockSequence
}

var _ selection.Sequence = (*RedisSequence)(nil)

// NewRedisSequence creates a sequence on key (SourceIDKey when empty).
func NewRedisSequence(rdb *redis.Client, key string) *RedisSequence {
	if key == "" {
		key = SourceIDKey
	}
	return &RedisSequence{
		rdb:      rdb,
		key:      key,
		now:      time.Now,
		fallback: selection.NewClockSequence(time.Now()),
	}
}

// Next returns the next ID.
func (s *RedisSequence) Next(ctx context.Context) (string, error) {
	if s.rdb == nil {
		return s.fallback.Next(ctx)
	}
	if !s.seeded.Load() {
		if err := s.rdb.SetNX(ctx, s.key, s.now().UnixMilli(), 0).Err(); err != nil {
			return "", err
		}
		s.seeded.Store(true)
	}
	n, err := s.rdb.Incr(ctx, s.key).Result()
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n, 10), nil
}
