package repository

import (
	"context"

	"planner/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PreferencesRepository struct {
	db *gorm.DB
}

func NewPreferencesRepository(db *gorm.DB) *PreferencesRepository {
	return &PreferencesRepository{db: db}
}

// GetByOwner returns gorm.ErrRecordNotFound when the owner never saved
// preferences.
func (r *PreferencesRepository) GetByOwner(ctx context.Context, ownerID int64) (*domain.WorkingPreferences, error) {
	var p domain.WorkingPreferences
	if err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PreferencesRepository) Upsert(ctx context.Context, p *domain.WorkingPreferences) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "owner_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"time_zone", "wake_time", "sleep_time",
			"day_overrides", "blocked_days", "meeting_hours", "meeting_day_overrides",
			"updated_at",
		}),
	}).Create(p).Error
}
