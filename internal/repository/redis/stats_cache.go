package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	StatsTTL = 30 * time.Second
	StatsKey = "metrico:stats" // row counts per table, JSON encoded
)

// StatsCacheRepository caches the per-table row counts so the stats endpoint
// does not hit eight COUNT(*) queries on every poll.
type StatsCacheRepository struct {
	ttl time.Duration
}

func NewStatsCacheRepository() *StatsCacheRepository {
	return &StatsCacheRepository{ttl: StatsTTL}
}

// Get returns the cached counts, or (nil, nil) on a miss.
func (r *StatsCacheRepository) Get(ctx context.Context) (map[string]int64, error) {
	raw, err := Client.Get(ctx, StatsKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var stats map[string]int64
	if err := json.Unmarshal(raw, &stats); err != nil {
		return nil, err
	}
	return stats, nil
}

func (r *StatsCacheRepository) Set(ctx context.Context, stats map[string]int64) error {
	raw, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	return Client.Set(ctx, StatsKey, raw, r.ttl).Err()
}
