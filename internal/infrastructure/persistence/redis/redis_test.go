package redis

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vidassist-api/internal/config"
	"vidassist-api/internal/domain/entity"
)

func setupTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewClientFromRedis(rdb), mr
}

type countingDetails struct {
	calls atomic.Int32
	err   error
}

func (p *countingDetails) GetVideoDetails(_ context.Context, videoID string) (*entity.VideoDetails, error) {
	p.calls.Add(1)
	time.Sleep(5 * time.Millisecond)
	if p.err != nil {
		return nil, p.err
	}
	return &entity.VideoDetails{VideoID: videoID, Title: "How to Bake", ChannelTitle: "Kitchen", Views: 42}, nil
}

func TestVideoDetailsCache_ReadThrough(t *testing.T) {
	client, mr := setupTestClient(t)
	provider := &countingDetails{}
	cache := NewVideoDetailsCache(NewCache(client), provider, time.Minute)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			details, err := cache.GetVideoDetails(ctx, "V1")
			assert.NoError(t, err)
			assert.Equal(t, "How to Bake", details.Title)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), provider.calls.Load())
	assert.True(t, mr.Exists("cache:video:details:V1"))

	details, err := cache.GetVideoDetails(ctx, "V1")
	require.NoError(t, err)
	assert.Equal(t, int64(42), details.Views)
	assert.Equal(t, int32(1), provider.calls.Load())

	mr.FastForward(2 * time.Minute)
	_, err = cache.GetVideoDetails(ctx, "V1")
	require.NoError(t, err)
	assert.Equal(t, int32(2), provider.calls.Load())

	require.NoError(t, cache.Forget(ctx, "V1"))
	assert.False(t, mr.Exists("cache:video:details:V1"))
}

func TestVideoDetailsCache_CorruptEntryReloads(t *testing.T) {
	client, mr := setupTestClient(t)
	provider := &countingDetails{}
	cache := NewVideoDetailsCache(NewCache(client), provider, time.Minute)
	require.NoError(t, mr.Set("cache:video:details:V4", "not-json"))

	details, err := cache.GetVideoDetails(context.Background(), "V4")
	require.NoError(t, err)
	assert.Equal(t, "How to Bake", details.Title)
	assert.Equal(t, int32(1), provider.calls.Load())
}

func TestVideoDetailsCache_ErrorsNotCached(t *testing.T) {
	client, mr := setupTestClient(t)
	provider := &countingDetails{err: errors.New("upstream 503")}
	cache := NewVideoDetailsCache(NewCache(client), provider, time.Minute)

	_, err := cache.GetVideoDetails(context.Background(), "V2")
	require.Error(t, err)
	assert.False(t, mr.Exists("cache:video:details:V2"))
}

func TestVideoDetailsCache_RedisDownFallsBackToProvider(t *testing.T) {
	client, mr := setupTestClient(t)
	provider := &countingDetails{}
	cache := NewVideoDetailsCache(NewCache(client), provider, time.Minute)
	mr.Close()

	details, err := cache.GetVideoDetails(context.Background(), "V3")
	require.NoError(t, err)
	assert.Equal(t, "V3", details.VideoID)
}

func TestRateLimiter_Allow(t *testing.T) {
	client, _ := setupTestClient(t)
	limiter := NewRateLimiter(client)
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }
	ctx := context.Background()
	key := BuildRateLimitKey("U1", "/api/chat")

	for i := 0; i < 3; i++ {
		ok, err := limiter.Allow(ctx, key, 3, time.Second)
		require.NoError(t, err)
		assert.True(t, ok, "request %d", i)
	}
	ok, err := limiter.Allow(ctx, key, 3, time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	remaining, err := limiter.Remaining(ctx, key, 3, time.Second)
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)

	now = now.Add(1500 * time.Millisecond)
	ok, err = limiter.Allow(ctx, key, 3, time.Second)
	require.NoError(t, err)
	assert.True(t, ok, "window slid")
}

func TestRedisOptions(t *testing.T) {
	opts, err := options(&config.RedisConfig{Host: "cache", Port: 6380, DB: 2, PoolSize: 7})
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 7, opts.PoolSize)

	opts, err = options(&config.RedisConfig{URL: "rediss://:secret@managed.example.com:6379/1", Host: "ignored", PoolSize: 3})
	require.NoError(t, err)
	assert.Equal(t, "managed.example.com:6379", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 1, opts.DB)
	assert.NotNil(t, opts.TLSConfig)
	assert.Equal(t, 3, opts.PoolSize)

	_, err = options(&config.RedisConfig{URL: "http://nope"})
	assert.Error(t, err)
}

func TestSessionStore(t *testing.T) {
	client, mr := setupTestClient(t)
	store := NewSessionStore(client, time.Hour)
	ctx := context.Background()

	_, ok := store.Get(ctx, "s1")
	assert.False(t, ok)

	store.Put(ctx, "s1", "V1")
	got, ok := store.Get(ctx, "s1")
	assert.True(t, ok)
	assert.Equal(t, "V1", got)

	store.Put(ctx, "s1", "V2")
	got, _ = store.Get(ctx, "s1")
	assert.Equal(t, "V2", got)

	mr.FastForward(2 * time.Hour)
	_, ok = store.Get(ctx, "s1")
	assert.False(t, ok)

	mr.Close()
	_, ok = store.Get(ctx, "s1")
	assert.False(t, ok, "unreachable redis reads as a miss")
	store.Put(ctx, "s1", "V3")
}
