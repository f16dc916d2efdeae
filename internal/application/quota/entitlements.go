// Package quota 提供套餐权益判定与计量落库
package quota

import (
	"context"
	"fmt"
	"strings"
	"time"

	"vidassist-api/internal/config"
	"vidassist-api/internal/domain/entity"
	"vidassist-api/internal/domain/repository"
)

// Entitlements 基于配置套餐与 usage_events 计数的权益判定
type Entitlements struct {
	cfg    config.EntitlementsConfig
	owners repository.OwnerRepository
	usage  repository.UsageEventRepository
	now    func() time.Time
}

// NewEntitlements 创建权益判定器
func NewEntitlements(cfg config.EntitlementsConfig, owners repository.OwnerRepository, usage repository.UsageEventRepository) *Entitlements {
	if cfg.Period <= 0 {
		cfg.Period = 30 * 24 * time.Hour
	}
	return &Entitlements{
		cfg:    cfg,
		owners: owners,
		usage:  usage,
		now:    time.Now,
	}
}

// IsEnabled 套餐是否开放该功能
func (e *Entitlements) IsEnabled(ctx context.Context, ownerID string, feature entity.Feature) (bool, error) {
	fc, err := e.featureFor(ctx, ownerID, feature)
	if err != nil {
		return false, err
	}
	return fc.Enabled, nil
}

// CheckLimit 当前周期内是否还有额度；配置额度 <= 0 视为不限量
func (e *Entitlements) CheckLimit(ctx context.Context, ownerID string, feature entity.Feature) (bool, error) {
	used, allocation, err := e.Usage(ctx, ownerID, feature)
	if err != nil {
		return false, err
	}
	switch {
	case allocation < 0:
		return false, nil
	case allocation == 0:
		return true, nil
	default:
		return used < allocation, nil
	}
}

// Usage 返回当前周期已用量与额度；allocation 为 0 表示不限量，-1 表示功能未开放
func (e *Entitlements) Usage(ctx context.Context, ownerID string, feature entity.Feature) (used int64, allocation int64, err error) {
	fc, err := e.featureFor(ctx, ownerID, feature)
	if err != nil {
		return 0, 0, err
	}
	if !fc.Enabled {
		return 0, -1, nil
	}
	if fc.Allocation <= 0 {
		return 0, 0, nil
	}

	since := e.now().UTC().Add(-e.cfg.Period)
	used, err = e.usage.CountSince(ctx, ownerID, feature, since)
	if err != nil {
		return 0, fc.Allocation, fmt.Errorf("count usage %s: %w", feature, err)
	}
	return used, fc.Allocation, nil
}

func (e *Entitlements) featureFor(ctx context.Context, ownerID string, feature entity.Feature) (config.FeatureConfig, error) {
	plan, err := e.planFor(ctx, ownerID)
	if err != nil {
		return config.FeatureConfig{}, err
	}
	return plan.Features[string(feature)], nil
}

// planFor 未登记的 owner 使用默认套餐
func (e *Entitlements) planFor(ctx context.Context, ownerID string) (config.PlanConfig, error) {
	name := e.cfg.DefaultPlan
	if e.owners != nil {
		owner, err := e.owners.Get(ctx, ownerID)
		if err != nil {
			return config.PlanConfig{}, fmt.Errorf("load owner plan: %w", err)
		}
		if owner != nil && strings.TrimSpace(owner.Plan) != "" {
			name = strings.TrimSpace(owner.Plan)
		}
	}
	plan, ok := e.cfg.Plans[name]
	if !ok {
		plan = e.cfg.Plans[e.cfg.DefaultPlan]
	}
	return plan, nil
}
