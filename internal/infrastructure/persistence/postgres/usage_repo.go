package postgres

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"vidassist-api/internal/domain/entity"
)

// UsageEventRepository 计量流水仓储
type UsageEventRepository struct {
	client *Client
}

// NewUsageEventRepository 创建计量流水仓储
func NewUsageEventRepository(client *Client) *UsageEventRepository {
	return &UsageEventRepository{client: client}
}

// Create 追加计量事件
func (r *UsageEventRepository) Create(ctx context.Context, event *entity.UsageEvent) error {
	ctx, span := tracer.Start(ctx, "postgres.UsageEventRepository.Create")
	defer span.End()

	if err := getDB(ctx, r.client.db).Create(event).Error; err != nil {
		span.RecordError(err)
		return translate(fmt.Errorf("failed to create usage event: %w", err))
	}
	return nil
}

// CountSince 统计 since 之后的事件数
func (r *UsageEventRepository) CountSince(ctx context.Context, ownerID string, feature entity.Feature, since time.Time) (int64, error) {
	ctx, span := tracer.Start(ctx, "postgres.UsageEventRepository.CountSince")
	defer span.End()

	var total int64
	err := getDB(ctx, r.client.db).
		Model(&entity.UsageEvent{}).
		Where("owner_id = ? AND feature = ? AND created_at >= ?", ownerID, feature, since).
		Count(&total).Error
	if err != nil {
		span.RecordError(err)
		return 0, translate(fmt.Errorf("failed to count usage: %w", err))
	}
	return total, nil
}

// OwnerRepository 计量身份仓储
type OwnerRepository struct {
	client *Client
}

// NewOwnerRepository 创建身份仓储
func NewOwnerRepository(client *Client) *OwnerRepository {
	return &OwnerRepository{client: client}
}

// Upsert 已存在时保持原套餐
func (r *OwnerRepository) Upsert(ctx context.Context, owner *entity.Owner) error {
	ctx, span := tracer.Start(ctx, "postgres.OwnerRepository.Upsert")
	defer span.End()

	err := getDB(ctx, r.client.db).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(owner).Error
	if err != nil {
		span.RecordError(err)
		return translate(fmt.Errorf("failed to upsert owner: %w", err))
	}
	return nil
}

func (r *OwnerRepository) Get(ctx context.Context, id string) (*entity.Owner, error) {
	return findOne[entity.Owner](ctx, r.client.db, "OwnerRepository.Get", "id = ?", id)
}

// SetPlan 调整套餐，owner 不存在时创建
func (r *OwnerRepository) SetPlan(ctx context.Context, id, plan string) error {
	ctx, span := tracer.Start(ctx, "postgres.OwnerRepository.SetPlan")
	defer span.End()

	err := getDB(ctx, r.client.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"plan", "updated_at"}),
		}).
		Create(&entity.Owner{ID: id, Plan: plan}).Error
	if err != nil && !stderrors.Is(err, gorm.ErrRecordNotFound) {
		span.RecordError(err)
		return translate(fmt.Errorf("failed to set owner plan: %w", err))
	}
	return nil
}
