// Package resource 实现幂等的 get-or-create 门：同一 (owner, resource) 只创建一次、只计费一次。
package resource

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"vidassist-api/internal/domain/entity"
	"vidassist-api/internal/domain/repository"
	apperrors "vidassist-api/pkg/errors"
	"vidassist-api/pkg/logger"
	"vidassist-api/pkg/metrics"
	"vidassist-api/pkg/tracer"
)

// LimitChecker 创建前的额度判定
type LimitChecker interface {
	CheckLimit(ctx context.Context, ownerID string, feature entity.Feature) (bool, error)
}

// UsageRecorder 创建成功后的计量上报
type UsageRecorder interface {
	RecordUsage(ctx context.Context, ownerID string, feature entity.Feature, resourceID string) error
}

// Builder 在确认需要创建时构造记录（可能调用外部提供方）
type Builder[T any] func(ctx context.Context, key entity.ResourceKey) (*T, error)

// 门的结果，用于指标
const (
	outcomeHit      = "hit"
	outcomeDeclined = "declined"
	outcomeCreated  = "created"
	outcomeLostRace = "lost_race"
	outcomeDenied   = "quota_exceeded"
	outcomeFailed   = "failed"
)

// Gate 幂等资源门
type Gate[T any] struct {
	feature entity.Feature
	store   repository.ResourceStore[T]
	limits  LimitChecker
	usage   UsageRecorder
	build   Builder[T]
}

// NewGate 创建资源门；limits/usage 为 nil 时跳过对应步骤
func NewGate[T any](feature entity.Feature, store repository.ResourceStore[T], limits LimitChecker, usage UsageRecorder, build Builder[T]) *Gate[T] {
	return &Gate[T]{
		feature: feature,
		store:   store,
		limits:  limits,
		usage:   usage,
		build:   build,
	}
}

// Feature 返回门对应的计量功能
func (g *Gate[T]) Feature() entity.Feature {
	return g.feature
}

// GetOrCreate 使用默认构造函数
func (g *Gate[T]) GetOrCreate(ctx context.Context, key entity.ResourceKey, shouldCreate bool) (*T, bool, error) {
	return g.GetOrCreateWith(ctx, key, shouldCreate, g.build)
}

// GetOrCreateWith 命中返回已有记录；未命中且 shouldCreate=false 返回 (nil, false, nil)；
// 否则检查额度、构造、原子插入，仅在真正插入后计量一次。
func (g *Gate[T]) GetOrCreateWith(ctx context.Context, key entity.ResourceKey, shouldCreate bool, build Builder[T]) (record *T, created bool, err error) {
	ctx, span := tracer.Start(ctx, "resource.Gate.GetOrCreate", trace.WithAttributes(
		attribute.String("feature", string(g.feature)),
		attribute.String("resource_id", key.ResourceID),
		attribute.Bool("should_create", shouldCreate),
	))
	defer span.End()

	outcome := outcomeFailed
	defer func() {
		metrics.GateOutcomeTotal.WithLabelValues(string(g.feature), outcome).Inc()
		span.SetAttributes(attribute.String("outcome", outcome))
		tracer.RecordError(span, err)
	}()

	if err := key.Validate(); err != nil {
		return nil, false, apperrors.Wrap(err, apperrors.KindInvalidInput, "")
	}

	existing, err := g.store.Get(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("get %s %s: %w", g.feature, key, err)
	}
	if existing != nil {
		outcome = outcomeHit
		return existing, false, nil
	}
	if !shouldCreate {
		outcome = outcomeDeclined
		return nil, false, nil
	}

	if g.limits != nil {
		allowed, err := g.limits.CheckLimit(ctx, key.OwnerID, g.feature)
		if err != nil {
			return nil, false, fmt.Errorf("check limit %s: %w", g.feature, err)
		}
		if !allowed {
			outcome = outcomeDenied
			return nil, false, apperrors.New(apperrors.KindQuotaExceeded, "")
		}
	}

	if build == nil {
		return nil, false, apperrors.New(apperrors.KindUnknown, "").WithDetail("no builder for " + string(g.feature))
	}
	record, err = build(ctx, key)
	if err != nil {
		return nil, false, err
	}

	// 插入和计量都不再受请求取消影响：插入是单条原子语句，要么未发生要么完整生效
	detached := context.WithoutCancel(ctx)
	inserted, err := g.store.InsertIfAbsent(detached, key, record)
	if err != nil {
		return nil, false, fmt.Errorf("insert %s %s: %w", g.feature, key, err)
	}
	if !inserted {
		winner, err := g.store.Get(detached, key)
		if err != nil {
			return nil, false, fmt.Errorf("re-read %s %s: %w", g.feature, key, err)
		}
		if winner == nil {
			return nil, false, apperrors.New(apperrors.KindUnknown, "").WithDetail("record vanished after conflicting insert")
		}
		outcome = outcomeLostRace
		return winner, false, nil
	}

	outcome = outcomeCreated
	if g.usage != nil {
		if uerr := g.usage.RecordUsage(detached, key.OwnerID, g.feature, key.ResourceID); uerr != nil {
			logger.Warn(ctx, "usage recording failed, resource kept",
				"feature", string(g.feature),
				"resource_id", key.ResourceID,
				"error", uerr.Error(),
			)
		}
	}
	return record, true, nil
}
