package redis

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewWithCmdable wraps an arbitrary command surface. Tests pair it with NewMemoryCmdable.
func NewWithCmdable(store cmdable) *Client {
	return &Client{cmds: store}
}

// MemoryCmdable is an in-process stand-in for the redis commands the backend uses.
// TTLs are recorded but never enforced.
type MemoryCmdable struct {
	mu          sync.Mutex
	data        map[string]string
	hashes      map[string]map[string]string
	sets        map[string]map[string]struct{}
	ttls        map[string]time.Duration
	// Err, when set, is returned by every command.
	Err error
}

// NewMemoryCmdable returns an empty in-memory store.
func NewMemoryCmdable() *MemoryCmdable {
	return &MemoryCmdable{
		data:   make(map[string]string),
		hashes: make(map[string]map[string]string),
		sets:   make(map[string]map[string]struct{}),
		ttls:   make(map[string]time.Duration),
	}
}

func (m *MemoryCmdable) Ping(context.Context) *redis.StatusCmd {
	if m.Err != nil {
		return redis.NewStatusResult("", m.Err)
	}
	return redis.NewStatusResult("PONG", nil)
}

func (m *MemoryCmdable) Set(_ context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	if m.Err != nil {
		return redis.NewStatusResult("", m.Err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = stringify(value)
	return redis.NewStatusResult("OK", nil)
}

func (m *MemoryCmdable) Get(_ context.Context, key string) *redis.StringCmd {
	if m.Err != nil {
		return redis.NewStringResult("", m.Err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *MemoryCmdable) SetNX(_ context.Context, key string, value any, _ time.Duration) *redis.BoolCmd {
	if m.Err != nil {
		return redis.NewBoolResult(false, m.Err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.data[key]; exists {
		return redis.NewBoolResult(false, nil)
	}
	m.data[key] = stringify(value)
	return redis.NewBoolResult(true, nil)
}

func (m *MemoryCmdable) Incr(ctx context.Context, key string) *redis.IntCmd {
	return m.IncrBy(ctx, key, 1)
}

func (m *MemoryCmdable) IncrBy(_ context.Context, key string, delta int64) *redis.IntCmd {
	if m.Err != nil {
		return redis.NewIntResult(0, m.Err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	current, _ := strconv.ParseInt(m.data[key], 10, 64)
	current += delta
	m.data[key] = strconv.FormatInt(current, 10)
	return redis.NewIntResult(current, nil)
}

func (m *MemoryCmdable) HIncrBy(_ context.Context, key, field string, delta int64) *redis.IntCmd {
	if m.Err != nil {
		return redis.NewIntResult(0, m.Err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	hash, ok := m.hashes[key]
	if !ok {
		hash = make(map[string]string)
		m.hashes[key] = hash
	}
	current, _ := strconv.ParseInt(hash[field], 10, 64)
	current += delta
	hash[field] = strconv.FormatInt(current, 10)
	return redis.NewIntResult(current, nil)
}

func (m *MemoryCmdable) HGetAll(_ context.Context, key string) *redis.MapStringStringCmd {
	if m.Err != nil {
		return redis.NewMapStringStringResult(nil, m.Err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.hashes[key]))
	for k, v := range m.hashes[key] {
		out[k] = v
	}
	return redis.NewMapStringStringResult(out, nil)
}

func (m *MemoryCmdable) SAdd(_ context.Context, key string, members ...any) *redis.IntCmd {
	if m.Err != nil {
		return redis.NewIntResult(0, m.Err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.sets[key]
	if !ok {
		set = make(map[string]struct{})
		m.sets[key] = set
	}
	var added int64
	for _, member := range members {
		s := stringify(member)
		if _, exists := set[s]; exists {
			continue
		}
		set[s] = struct{}{}
		added++
	}
	return redis.NewIntResult(added, nil)
}

func (m *MemoryCmdable) SMembers(_ context.Context, key string) *redis.StringSliceCmd {
	if m.Err != nil {
		return redis.NewStringSliceResult(nil, m.Err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.sets[key]))
	for member := range m.sets[key] {
		out = append(out, member)
	}
	return redis.NewStringSliceResult(out, nil)
}

// ExpireNX only records the first TTL set on a key.
func (m *MemoryCmdable) ExpireNX(_ context.Context, key string, ttl time.Duration) *redis.BoolCmd {
	if m.Err != nil {
		return redis.NewBoolResult(false, m.Err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.ttls[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	m.ttls[key] = ttl
	return redis.NewBoolResult(true, nil)
}

// RecordedTTL reports the expiry recorded for key, or zero.
func (m *MemoryCmdable) RecordedTTL(key string) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ttls[key]
}

func (m *MemoryCmdable) Del(_ context.Context, keys ...string) *redis.IntCmd {
	if m.Err != nil {
		return redis.NewIntResult(0, m.Err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var removed int64
	for _, key := range keys {
		if _, ok := m.data[key]; ok {
			removed++
		}
		delete(m.data, key)
		delete(m.hashes, key)
		delete(m.sets, key)
		delete(m.ttls, key)
	}
	return redis.NewIntResult(removed, nil)
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}
