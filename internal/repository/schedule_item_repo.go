package repository

import (
	"context"
	"time"

	"planner/internal/domain"

	"gorm.io/gorm"
)

type ScheduleItemRepository struct {
	db *gorm.DB
}

func NewScheduleItemRepository(db *gorm.DB) *ScheduleItemRepository {
	return &ScheduleItemRepository{db: db}
}

func (r *ScheduleItemRepository) Create(ctx context.Context, it *domain.ScheduleItem) error {
	it.StartTime = it.StartTime.UTC()
	it.EndTime = it.EndTime.UTC()
	return r.db.WithContext(ctx).Create(it).Error
}

func (r *ScheduleItemRepository) Delete(ctx context.Context, ownerID, id int64) (bool, error) {
	tx := r.db.WithContext(ctx).Where("id = ? AND owner_id = ?", id, ownerID).Delete(&domain.ScheduleItem{})
	return tx.RowsAffected > 0, tx.Error
}

// ListInRange returns items overlapping [from, to).
func (r *ScheduleItemRepository) ListInRange(ctx context.Context, ownerID int64, from, to time.Time) ([]domain.ScheduleItem, error) {
	var out []domain.ScheduleItem
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND start_time < ? AND end_time > ?", ownerID, to.UTC(), from.UTC()).
		Order("start_time ASC, id ASC").
		Find(&out).Error
	return out, err
}

// ListBlocking returns blocking items overlapping [from, to).
func (r *ScheduleItemRepository) ListBlocking(ctx context.Context, ownerID int64, from, to time.Time) ([]domain.ScheduleItem, error) {
	var out []domain.ScheduleItem
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND blocking = ? AND start_time < ? AND end_time > ?", ownerID, true, to.UTC(), from.UTC()).
		Order("start_time ASC, id ASC").
		Find(&out).Error
	return out, err
}

func (r *ScheduleItemRepository) ListIDsByKind(ctx context.Context, ownerID int64, kind domain.ScheduleItemKind) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).Model(&domain.ScheduleItem{}).
		Where("owner_id = ? AND kind = ?", ownerID, kind).
		Order("id ASC").
		Pluck("id", &ids).Error
	return ids, err
}
