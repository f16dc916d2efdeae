package repository

import (
	"context"
	"time"

	"vidassist-api/internal/domain/entity"
)

// ResourceStore 以资源键寻址的记录存储
// InsertIfAbsent 必须是原子的唯一插入：键已存在时返回 inserted=false 且不报错。
type ResourceStore[T any] interface {
	// Get 不存在时返回 (nil, nil)
	Get(ctx context.Context, key entity.ResourceKey) (*T, error)
	InsertIfAbsent(ctx context.Context, key entity.ResourceKey, record *T) (inserted bool, err error)
}

// VideoRepository 视频分析记录
type VideoRepository interface {
	ResourceStore[entity.Video]
	ListByOwner(ctx context.Context, ownerID string, limit int) ([]*entity.Video, error)
}

// TranscriptRepository 字幕缓存
type TranscriptRepository interface {
	ResourceStore[entity.Transcript]
}

// TitleRepository 生成的标题
type TitleRepository interface {
	ResourceStore[entity.Title]
	ListByVideo(ctx context.Context, ownerID, videoID string) ([]*entity.Title, error)
}

// ImageRepository 生成的图片
type ImageRepository interface {
	ResourceStore[entity.Image]
	ListByVideo(ctx context.Context, ownerID, videoID string) ([]*entity.Image, error)
	SetURL(ctx context.Context, id, url string) error
}

// UsageEventRepository 计量流水
type UsageEventRepository interface {
	Create(ctx context.Context, event *entity.UsageEvent) error
	CountSince(ctx context.Context, ownerID string, feature entity.Feature, since time.Time) (int64, error)
}

// OwnerRepository 计量身份登记
type OwnerRepository interface {
	// Upsert 幂等登记；已存在时不修改套餐
	Upsert(ctx context.Context, owner *entity.Owner) error
	Get(ctx context.Context, id string) (*entity.Owner, error)
}
