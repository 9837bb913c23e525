package campaign

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/wecr8/damp-backend/pkg/redis"
)

// counterStore is the slice of *redis.Client the campaign counters use.
type counterStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	IncrBy(ctx context.Context, key string, delta int64) (int64, error)
	HIncrBy(ctx context.Context, key, field string, delta int64) (int64, error)
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	SAdd(ctx context.Context, key string, members ...any) (int64, error)
	SMembers(ctx context.Context, key string) ([]string, error)
	CampaignKey(parts ...string) string
}

var _ counterStore = (*redis.Client)(nil)

const dayLayout = "2006-01-02"

type redisCounters struct {
	kv counterStore
}

func (r redisCounters) totalKey() string      { return r.kv.CampaignKey("total") }
func (r redisCounters) dailyKey() string      { return r.kv.CampaignKey("daily") }
func (r redisCounters) updatedKey() string    { return r.kv.CampaignKey("updated_at") }
func (r redisCounters) milestonesKey() string { return r.kv.CampaignKey("milestones") }

func (r redisCounters) milestoneKey(count int64) string {
	return r.kv.CampaignKey("milestone", strconv.FormatInt(count, 10))
}

func (r redisCounters) add(ctx context.Context, delta int64, now time.Time, daily bool) (int64, error) {
	total, err := r.kv.IncrBy(ctx, r.totalKey(), delta)
	if err != nil {
		return 0, fmt.Errorf("increment campaign total: %w", err)
	}
	if daily {
		if _, err := r.kv.HIncrBy(ctx, r.dailyKey(), now.UTC().Format(dayLayout), delta); err != nil {
			return total, fmt.Errorf("increment daily count: %w", err)
		}
	}
	if err := r.kv.Set(ctx, r.updatedKey(), now.UTC().Format(time.RFC3339Nano), 0); err != nil {
		return total, fmt.Errorf("stamp campaign update: %w", err)
	}
	return total, nil
}

// markMilestone reports true only for the first caller to reach count.
func (r redisCounters) markMilestone(ctx context.Context, count int64, now time.Time) (bool, error) {
	first, err := r.kv.SetNX(ctx, r.milestoneKey(count), now.UTC().Format(time.RFC3339Nano), 0)
	if err != nil || !first {
		return false, err
	}
	if _, err := r.kv.SAdd(ctx, r.milestonesKey(), strconv.FormatInt(count, 10)); err != nil {
		return true, err
	}
	return true, nil
}

func (r redisCounters) load(ctx context.Context) (Counts, error) {
	counts := Counts{Daily: map[string]int64{}, Reached: map[int64]time.Time{}}

	raw, err := r.kv.Get(ctx, r.totalKey())
	switch {
	case errors.Is(err, redis.Nil):
	case err != nil:
		return counts, fmt.Errorf("read campaign total: %w", err)
	default:
		if counts.Total, err = strconv.ParseInt(raw, 10, 64); err != nil {
			return counts, fmt.Errorf("parse campaign total: %w", err)
		}
	}

	daily, err := r.kv.HGetAll(ctx, r.dailyKey())
	if err != nil {
		return counts, fmt.Errorf("read daily counts: %w", err)
	}
	for day, v := range daily {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			counts.Daily[day] = n
		}
	}

	members, err := r.kv.SMembers(ctx, r.milestonesKey())
	if err != nil {
		return counts, fmt.Errorf("read milestones: %w", err)
	}
	for _, m := range members {
		n, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		at, err := r.kv.Get(ctx, r.milestoneKey(n))
		if err != nil {
			continue
		}
		if ts, err := time.Parse(time.RFC3339Nano, at); err == nil {
			counts.Reached[n] = ts
		}
	}

	if raw, err := r.kv.Get(ctx, r.updatedKey()); err == nil {
		if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			counts.LastUpdated = ts
		}
	}
	return counts, nil
}
