package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/wecr8/damp-backend/pkg/redis"
)

// Store persists carts between requests.
type Store interface {
	Load(ctx context.Context, id string) (*Cart, error)
	Save(ctx context.Context, c *Cart) error
	Delete(ctx context.Context, id string) error
}

type kv interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CartKey(cartID string) string
}

// RedisStore keeps each cart as a JSON string with a sliding TTL.
type RedisStore struct {
	kv  kv
	ttl time.Duration
}

func NewRedisStore(client kv, ttl time.Duration) *RedisStore {
	return &RedisStore{kv: client, ttl: ttl}
}

func (s *RedisStore) Load(ctx context.Context, id string) (*Cart, error) {
	raw, err := s.kv.Get(ctx, s.kv.CartKey(id))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("load cart: %w", err)
	}
	var c Cart
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	if c.Items == nil {
		c.Items = []Item{}
	}
	return &c, nil
}

func (s *RedisStore) Save(ctx context.Context, c *Cart) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := s.kv.Set(ctx, s.kv.CartKey(c.ID), payload, s.ttl); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.kv.Del(ctx, s.kv.CartKey(id)); err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	return nil
}
