// Package redis is the backend's single Redis surface: carts, campaign
// counters, rate-limit windows and idempotency claims all go through Client.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wecr8/damp-backend/pkg/config"
	"github.com/wecr8/damp-backend/pkg/logger"
)

var errNotInitialized = errors.New("redis: client not initialized")

// Nil is returned by Get when the key does not exist.
var Nil = redis.Nil

// cmdable is the command subset the backend issues. *redis.Client and
// MemoryCmdable both satisfy it.
type cmdable interface {
	Ping(ctx context.Context) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
	IncrBy(ctx context.Context, key string, delta int64) *redis.IntCmd
	ExpireNX(ctx context.Context, key string, ttl time.Duration) *redis.BoolCmd
	HIncrBy(ctx context.Context, key, field string, delta int64) *redis.IntCmd
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
	SAdd(ctx context.Context, key string, members ...any) *redis.IntCmd
	SMembers(ctx context.Context, key string) *redis.StringSliceCmd
}

type Client struct {
	cmds cmdable
	conn *redis.Client
}

// IdempotencyStore is what the HTTP idempotency middleware and event
// guards need from Redis.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	IdempotencyKey(scope, id string) string
	Del(ctx context.Context, keys ...string) error
}

// New dials Redis and fails unless PING succeeds.
func New(ctx context.Context, cfg config.RedisConfig, logg *logger.Logger) (*Client, error) {
	opts, err := options(cfg)
	if err != nil {
		return nil, err
	}
	conn := redis.NewClient(opts)
	if err := conn.Ping(ctx).Err(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", opts.Addr, err)
	}
	logg.Info(logg.WithFields(ctx, map[string]any{"redis_addr": opts.Addr, "redis_db": opts.DB}), "redis connected")
	return &Client{cmds: conn, conn: conn}, nil
}

// options prefers REDIS_URL; explicit pool and timeout settings override
// whatever the URL carried only when they are set.
func options(cfg config.RedisConfig) (*redis.Options, error) {
	var opts *redis.Options
	switch {
	case cfg.URL != "":
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("redis: parse url: %w", err)
		}
		opts = parsed
		if cfg.DB != 0 {
			opts.DB = cfg.DB
		}
	case cfg.Address != "":
		opts = &redis.Options{Addr: cfg.Address, Password: cfg.Password, DB: cfg.DB}
	default:
		return nil, errors.New("redis: url or address is required")
	}

	overrideInt(&opts.PoolSize, cfg.PoolSize)
	overrideInt(&opts.MinIdleConns, cfg.MinIdleConns)
	overrideDuration(&opts.DialTimeout, cfg.DialTimeout)
	overrideDuration(&opts.ReadTimeout, cfg.ReadTimeout)
	overrideDuration(&opts.WriteTimeout, cfg.WriteTimeout)
	return opts, nil
}

func overrideInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}

func overrideDuration(dst *time.Duration, v time.Duration) {
	if v > 0 {
		*dst = v
	}
}

// call guards every command against a nil or zero Client.
func call[T any](c *Client, fn func(cmdable) (T, error)) (T, error) {
	if c == nil || c.cmds == nil {
		var zero T
		return zero, errNotInitialized
	}
	return fn(c.cmds)
}

func (c *Client) Ping(ctx context.Context) error {
	_, err := call(c, func(r cmdable) (string, error) { return r.Ping(ctx).Result() })
	return err
}

// Get returns Nil when key is missing.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	return call(c, func(r cmdable) (string, error) { return r.Get(ctx, key).Result() })
}

func (c *Client) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	_, err := call(c, func(r cmdable) (string, error) { return r.Set(ctx, key, value, ttl).Result() })
	return err
}

func (c *Client) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	return call(c, func(r cmdable) (bool, error) { return r.SetNX(ctx, key, value, ttl).Result() })
}

func (c *Client) Del(ctx context.Context, keys ...string) error {
	_, err := call(c, func(r cmdable) (int64, error) { return r.Del(ctx, keys...).Result() })
	return err
}

// IncrBy accepts negative deltas.
func (c *Client) IncrBy(ctx context.Context, key string, delta int64) (int64, error) {
	return call(c, func(r cmdable) (int64, error) { return r.IncrBy(ctx, key, delta).Result() })
}

// IncrWithTTL bumps a window counter. The TTL is applied with EXPIRE NX on
// every call, so a counter that lost its expiry still ages out.
func (c *Client) IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	return call(c, func(r cmdable) (int64, error) {
		n, err := r.Incr(ctx, key).Result()
		if err != nil || ttl <= 0 {
			return n, err
		}
		if err := r.ExpireNX(ctx, key, ttl).Err(); err != nil {
			return n, fmt.Errorf("redis: expire %s: %w", key, err)
		}
		return n, nil
	})
}

func (c *Client) HIncrBy(ctx context.Context, key, field string, delta int64) (int64, error) {
	return call(c, func(r cmdable) (int64, error) { return r.HIncrBy(ctx, key, field, delta).Result() })
}

// HGetAll returns an empty map for a missing hash.
func (c *Client) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	return call(c, func(r cmdable) (map[string]string, error) { return r.HGetAll(ctx, key).Result() })
}

// SAdd reports how many members were new.
func (c *Client) SAdd(ctx context.Context, key string, members ...any) (int64, error) {
	return call(c, func(r cmdable) (int64, error) { return r.SAdd(ctx, key, members...).Result() })
}

func (c *Client) SMembers(ctx context.Context, key string) ([]string, error) {
	return call(c, func(r cmdable) ([]string, error) { return r.SMembers(ctx, key).Result() })
}

func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	return c.conn.Close()
}
