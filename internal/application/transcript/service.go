// Package transcript 提供带读穿缓存的字幕获取：先查已保存的字幕，真正未命中时才调用外部提供方并计费。
package transcript

import (
	"context"
	"fmt"

	"vidassist-api/internal/application/resource"
	"vidassist-api/internal/domain/entity"
	"vidassist-api/internal/domain/repository"
	"vidassist-api/internal/domain/service"
	apperrors "vidassist-api/pkg/errors"
	"vidassist-api/pkg/logger"
)

// 面向用户的缓存状态文案
const (
	CacheHit   = "This video has already been processed and is ready to use."
	CacheSaved = "Transcript saved to your library and tokens updated for this request."
)

// Result 字幕查询结果
type Result struct {
	Transcript []entity.TranscriptEntry `json:"transcript"`
	Cache      string                   `json:"cache"`
	IsNew      bool                     `json:"isNew"`
}

// Service 字幕服务
type Service struct {
	gate *resource.Gate[entity.Transcript]
}

// NewService 创建字幕服务
func NewService(store repository.TranscriptRepository, provider service.TranscriptProvider, limits resource.LimitChecker, usage resource.UsageRecorder) *Service {
	build := func(ctx context.Context, key entity.ResourceKey) (*entity.Transcript, error) {
		entries, err := provider.FetchTranscript(ctx, key.ResourceID)
		if err != nil {
			return nil, err
		}
		if len(entries) == 0 {
			return nil, apperrors.New(apperrors.KindResourceUnavailable, "")
		}
		return entity.NewTranscript(key, entries)
	}
	return &Service{
		gate: resource.NewGate[entity.Transcript](entity.FeatureTranscription, store, limits, usage, build),
	}
}

// Get 获取视频字幕
// 命中缓存不计费；未命中且 shouldProcess=false 时返回空结果；提供方没有字幕时返回 KindResourceUnavailable。
func (s *Service) Get(ctx context.Context, ownerID, videoID string, shouldProcess bool) (*Result, error) {
	key := entity.NewResourceKey(ownerID, videoID)

	record, created, err := s.gate.GetOrCreate(ctx, key, shouldProcess)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return &Result{Transcript: []entity.TranscriptEntry{}}, nil
	}

	entries, err := record.Entries()
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.KindUnknown, "").WithDetail(fmt.Sprintf("stored transcript %s is corrupt", key))
	}

	res := &Result{Transcript: entries, Cache: CacheHit, IsNew: created}
	if created {
		res.Cache = CacheSaved
		logger.Info(ctx, "transcript fetched and stored", "video_id", videoID, "segments", len(entries))
	}
	return res, nil
}
