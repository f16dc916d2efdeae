// Package usage 负责计量：向计量提供方上报使用事件，并记忆已登记的身份。
package usage

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/singleflight"

	"vidassist-api/internal/domain/entity"
	"vidassist-api/internal/domain/service"
	"vidassist-api/pkg/logger"
	"vidassist-api/pkg/metrics"
)

// IdentityMemo 记录本进程内已向计量方登记过的 owner
// 实现必须并发安全；条目丢失只会导致一次重复登记。
type IdentityMemo interface {
	Seen(ownerID string) bool
	Mark(ownerID string)
}

// Meter 计量器
type Meter struct {
	metering service.Metering
	memo     IdentityMemo
	group    singleflight.Group
}

// NewMeter 创建计量器
func NewMeter(metering service.Metering, memo IdentityMemo) *Meter {
	return &Meter{metering: metering, memo: memo}
}

// RecordUsage 上报一次使用
// 首次见到 owner 时先登记身份；登记失败不阻止上报，两类错误合并返回，由调用方决定是否吞掉。
func (m *Meter) RecordUsage(ctx context.Context, ownerID string, feature entity.Feature, resourceID string) error {
	identifyErr := m.ensureIdentity(ctx, ownerID)

	event := &entity.UsageEvent{
		OwnerID:    ownerID,
		Feature:    feature,
		ResourceID: resourceID,
	}
	if err := m.metering.RecordUsage(ctx, event); err != nil {
		metrics.UsageEventsTotal.WithLabelValues(string(feature), "failed").Inc()
		return errors.Join(identifyErr, fmt.Errorf("record usage %s for %s: %w", feature, ownerID, err))
	}
	metrics.UsageEventsTotal.WithLabelValues(string(feature), "recorded").Inc()

	logger.Debug(ctx, "usage recorded", "feature", string(feature), "resource_id", resourceID)
	return identifyErr
}

func (m *Meter) ensureIdentity(ctx context.Context, ownerID string) error {
	if m.memo != nil && m.memo.Seen(ownerID) {
		return nil
	}

	// 同一 owner 的并发首次请求只登记一次
	_, err, _ := m.group.Do(ownerID, func() (any, error) {
		if m.memo != nil && m.memo.Seen(ownerID) {
			return nil, nil
		}
		if err := m.metering.Identify(ctx, ownerID); err != nil {
			metrics.IdentityRegistrationsTotal.WithLabelValues("failed").Inc()
			return nil, err
		}
		metrics.IdentityRegistrationsTotal.WithLabelValues("ok").Inc()
		if m.memo != nil {
			m.memo.Mark(ownerID)
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("identify owner %s: %w", ownerID, err)
	}
	return nil
}
