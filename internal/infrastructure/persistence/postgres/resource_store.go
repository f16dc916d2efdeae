package postgres

import (
	"context"
	stderrors "errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// findOne 按条件读取单条记录，不存在时返回 (nil, nil)
func findOne[T any](ctx context.Context, db *gorm.DB, op string, query string, args ...any) (*T, error) {
	ctx, span := tracer.Start(ctx, "postgres."+op)
	defer span.End()

	var record T
	if err := getDB(ctx, db).Where(query, args...).Take(&record).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, translate(fmt.Errorf("%s: %w", op, err))
	}
	return &record, nil
}

// insertIfAbsent 依赖唯一约束做原子插入；冲突时 inserted=false
func insertIfAbsent[T any](ctx context.Context, db *gorm.DB, op string, record *T) (bool, error) {
	ctx, span := tracer.Start(ctx, "postgres."+op)
	defer span.End()

	result := getDB(ctx, db).Clauses(clause.OnConflict{DoNothing: true}).Create(record)
	if err := result.Error; err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		span.RecordError(err)
		return false, translate(fmt.Errorf("%s: %w", op, err))
	}
	return result.RowsAffected > 0, nil
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 100 {
		return 100
	}
	return limit
}
