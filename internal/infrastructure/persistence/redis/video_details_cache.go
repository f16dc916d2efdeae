package redis

import (
	"context"
	"time"

	"vidassist-api/internal/domain/entity"
	"vidassist-api/internal/domain/service"
)

const defaultVideoDetailsTTL = 6 * time.Hour

// VideoDetailsCache 视频元信息的读穿缓存
type VideoDetailsCache struct {
	cache    *Cache
	provider service.VideoDetailsProvider
	ttl      time.Duration
}

// NewVideoDetailsCache 包装元信息提供方
func NewVideoDetailsCache(cache *Cache, provider service.VideoDetailsProvider, ttl time.Duration) *VideoDetailsCache {
	if ttl <= 0 {
		ttl = defaultVideoDetailsTTL
	}
	return &VideoDetailsCache{cache: cache, provider: provider, ttl: ttl}
}

// GetVideoDetails 实现 service.VideoDetailsProvider
func (c *VideoDetailsCache) GetVideoDetails(ctx context.Context, videoID string) (*entity.VideoDetails, error) {
	return ReadThrough(ctx, c.cache, "video_details", videoDetailsKey(videoID), c.ttl, func(ctx context.Context) (*entity.VideoDetails, error) {
		return c.provider.GetVideoDetails(ctx, videoID)
	})
}

// Forget 删除某个视频的缓存元信息
func (c *VideoDetailsCache) Forget(ctx context.Context, videoID string) error {
	return c.cache.Invalidate(ctx, videoDetailsKey(videoID))
}

func videoDetailsKey(videoID string) string {
	return "video:details:" + videoID
}
