package repository

import (
	"context"
	"time"

	"planner/internal/domain"

	"gorm.io/gorm"
)

type OwnerRepository struct {
	db *gorm.DB
}

func NewOwnerRepository(db *gorm.DB) *OwnerRepository {
	return &OwnerRepository{db: db}
}

func (r *OwnerRepository) Create(ctx context.Context, o *domain.Owner) error {
	return r.db.WithContext(ctx).Create(o).Error
}

func (r *OwnerRepository) GetByEmail(ctx context.Context, email string) (*domain.Owner, error) {
	var o domain.Owner
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&o).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *OwnerRepository) GetByID(ctx context.Context, id int64) (*domain.Owner, error) {
	var o domain.Owner
	if err := r.db.WithContext(ctx).First(&o, id).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *OwnerRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(&domain.Owner{}).Where("email = ?", email).Count(&cnt).Error
	return cnt > 0, err
}

func (r *OwnerRepository) UpdateName(ctx context.Context, id int64, name string) error {
	return r.db.WithContext(ctx).Model(&domain.Owner{}).Where("id = ?", id).Update("name", name).Error
}

// RecordLoginFailure stores the failed attempt count and, once it reaches
// the limit, the lockout deadline.
func (r *OwnerRepository) RecordLoginFailure(ctx context.Context, id int64, attempts int, lockedUntil *time.Time) error {
	updates := map[string]any{"failed_login_attempts": attempts}
	if lockedUntil != nil {
		updates["locked_until"] = *lockedUntil
	}
	return r.db.WithContext(ctx).Model(&domain.Owner{}).Where("id = ?", id).Updates(updates).Error
}

func (r *OwnerRepository) ResetLoginFailures(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Model(&domain.Owner{}).Where("id = ?", id).Updates(map[string]any{
		"failed_login_attempts": 0,
		"locked_until":          nil,
	}).Error
}
