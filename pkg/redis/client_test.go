package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wecr8/damp-backend/pkg/config"
)

func TestIncrWithTTLSetsExpiryOnce(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryCmdable()
	client := NewWithCmdable(mem)
	key := client.RateLimitKey("votes:ip:203.0.113.9")

	for want := int64(1); want <= 3; want++ {
		n, err := client.IncrWithTTL(ctx, key, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}
	assert.Equal(t, time.Minute, mem.RecordedTTL(key))

	_, err := client.IncrWithTTL(ctx, key, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, mem.RecordedTTL(key), "NX keeps the first window")
}

func TestIncrWithTTLSurfacesErrors(t *testing.T) {
	mem := NewMemoryCmdable()
	mem.Err = errors.New("connection reset")

	_, err := NewWithCmdable(mem).IncrWithTTL(context.Background(), "k", time.Minute)
	assert.ErrorIs(t, err, mem.Err)
}

func TestCampaignCounters(t *testing.T) {
	ctx := context.Background()
	client := NewWithCmdable(NewMemoryCmdable())

	total := client.CampaignKey("total")
	n, err := client.IncrBy(ctx, total, 3)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
	n, err = client.IncrBy(ctx, total, -1)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	raw, err := client.Get(ctx, total)
	require.NoError(t, err)
	assert.Equal(t, "2", raw)

	daily := client.CampaignKey("daily")
	_, err = client.HIncrBy(ctx, daily, "2026-10-17", 2)
	require.NoError(t, err)
	fields, err := client.HGetAll(ctx, daily)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"2026-10-17": "2"}, fields)

	milestones := client.CampaignKey("milestones")
	added, err := client.SAdd(ctx, milestones, "100")
	require.NoError(t, err)
	assert.EqualValues(t, 1, added)
	added, err = client.SAdd(ctx, milestones, "100", "200")
	require.NoError(t, err)
	assert.EqualValues(t, 1, added)
	members, err := client.SMembers(ctx, milestones)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"100", "200"}, members)
}

func TestSetNXAndDel(t *testing.T) {
	ctx := context.Background()
	client := NewWithCmdable(NewMemoryCmdable())
	key := client.IdempotencyKey("stripe", "evt_1")

	ok, err := client.SetNX(ctx, key, "claimed", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = client.SetNX(ctx, key, "claimed", time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, client.Del(ctx, key))
	_, err = client.Get(ctx, key)
	assert.ErrorIs(t, err, Nil)
}

func TestNilClient(t *testing.T) {
	var client *Client
	ctx := context.Background()

	assert.ErrorIs(t, client.Ping(ctx), errNotInitialized)
	_, err := client.Get(ctx, "k")
	assert.ErrorIs(t, err, errNotInitialized)
	_, err = client.IncrWithTTL(ctx, "k", time.Second)
	assert.ErrorIs(t, err, errNotInitialized)
	assert.NoError(t, client.Close())
}

func TestKeys(t *testing.T) {
	var c Client
	assert.Equal(t, "damp:idempotency:scope:id", c.IdempotencyKey("scope", "id"))
	assert.Equal(t, "damp:rate_limit:auth:ip:1.2.3.4", c.RateLimitKey("auth:ip:1.2.3.4"))
	assert.Equal(t, "damp:cart:c1", c.CartKey(" c1 "))
	assert.Equal(t, "damp:campaign:daily", c.CampaignKey("daily", ""))
}

func TestOptions(t *testing.T) {
	_, err := options(config.RedisConfig{})
	require.Error(t, err)

	opts, err := options(config.RedisConfig{URL: "redis://:pw@cache.internal:6380/2", PoolSize: 25, DialTimeout: 3 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, "cache.internal:6380", opts.Addr)
	assert.Equal(t, "pw", opts.Password)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 25, opts.PoolSize)
	assert.Equal(t, 3*time.Second, opts.DialTimeout)

	opts, err = options(config.RedisConfig{Address: "localhost:6379", DB: 4})
	require.NoError(t, err)
	assert.Equal(t, &redis.Options{Addr: "localhost:6379", DB: 4}, opts)

	_, err = options(config.RedisConfig{URL: "http://nope"})
	require.Error(t, err)
}
