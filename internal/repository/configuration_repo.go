package repository

import (
	"context"

	"planner/internal/domain"

	"gorm.io/gorm"
)

type ConfigurationRepository struct {
	db *gorm.DB
}

func NewConfigurationRepository(db *gorm.DB) *ConfigurationRepository {
	return &ConfigurationRepository{db: db}
}

func (r *ConfigurationRepository) Create(ctx context.Context, c *domain.SchedulingConfiguration) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *ConfigurationRepository) GetByID(ctx context.Context, id int64) (*domain.SchedulingConfiguration, error) {
	var c domain.SchedulingConfiguration
	if err := r.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ConfigurationRepository) GetByLinkID(ctx context.Context, linkID string) (*domain.SchedulingConfiguration, error) {
	var c domain.SchedulingConfiguration
	if err := r.db.WithContext(ctx).Where("link_id = ?", linkID).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ConfigurationRepository) ListByOwner(ctx context.Context, ownerID int64) ([]domain.SchedulingConfiguration, error) {
	var out []domain.SchedulingConfiguration
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	return out, err
}

// Update writes the mutable fields only; ID, OwnerID and LinkID never change.
func (r *ConfigurationRepository) Update(ctx context.Context, c *domain.SchedulingConfiguration) error {
	return r.db.WithContext(ctx).Model(&domain.SchedulingConfiguration{}).
		Where("id = ? AND owner_id = ?", c.ID, c.OwnerID).
		Updates(map[string]any{
			"title":                 c.Title,
			"description":           c.Description,
			"duration_options":      c.DurationOptions,
			"buffer_before_minutes": c.BufferBeforeMinutes,
			"buffer_after_minutes":  c.BufferAfterMinutes,
			"horizon_days":          c.HorizonDays,
			"daily_cap":             c.DailyCap,
			"calendar_provider":     c.CalendarProvider,
			"calendar_id":           c.CalendarID,
			"active":                c.Active,
		}).Error
}
