package quota

import (
	"context"
	"fmt"
	"strings"

	"vidassist-api/internal/domain/entity"
	"vidassist-api/internal/domain/repository"
)

// UsagePublisher 计量事件的下游订阅流
type UsagePublisher interface {
	PublishUsage(ctx context.Context, event *entity.UsageEvent) error
}

// BackgroundRunner 尽力而为的后台任务
type BackgroundRunner interface {
	Go(ctx context.Context, task string, fn func(ctx context.Context) error)
}

// UsageRecorder 计量提供方：事件落库，身份登记为 owner 记录；订阅流发布在后台进行
type UsageRecorder struct {
	owners      repository.OwnerRepository
	usageRepo   repository.UsageEventRepository
	publisher   UsagePublisher
	background  BackgroundRunner
	defaultPlan string
}

// NewUsageRecorder 创建计量提供方；publisher 为 nil 时不发布
func NewUsageRecorder(owners repository.OwnerRepository, usageRepo repository.UsageEventRepository, publisher UsagePublisher, background BackgroundRunner, defaultPlan string) *UsageRecorder {
	if defaultPlan == "" {
		defaultPlan = "free"
	}
	return &UsageRecorder{
		owners:      owners,
		usageRepo:   usageRepo,
		publisher:   publisher,
		background:  background,
		defaultPlan: defaultPlan,
	}
}

// RecordUsage 追加一条计量事件
func (r *UsageRecorder) RecordUsage(ctx context.Context, event *entity.UsageEvent) error {
	if event == nil || strings.TrimSpace(event.OwnerID) == "" {
		return fmt.Errorf("usage event without owner")
	}
	if err := r.usageRepo.Create(ctx, event); err != nil {
		return err
	}

	if r.publisher != nil && r.background != nil {
		published := *event
		r.background.Go(ctx, "publish-usage", func(ctx context.Context) error {
			return r.publisher.PublishUsage(ctx, &published)
		})
	}
	return nil
}

// Identify 幂等登记 owner，已存在时保持原套餐
func (r *UsageRecorder) Identify(ctx context.Context, ownerID string) error {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return fmt.Errorf("identify: empty owner id")
	}
	return r.owners.Upsert(ctx, &entity.Owner{ID: ownerID, Plan: r.defaultPlan})
}
