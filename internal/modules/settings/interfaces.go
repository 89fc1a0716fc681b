package settings

import (
	"context"
	"time"

	"planner/internal/domain"
)

type ConfigurationRepository interface {
	Create(ctx context.Context, c *domain.SchedulingConfiguration) error
	GetByID(ctx context.Context, id int64) (*domain.SchedulingConfiguration, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]domain.SchedulingConfiguration, error)
	Update(ctx context.Context, c *domain.SchedulingConfiguration) error
}

type PreferencesRepository interface {
	GetByOwner(ctx context.Context, ownerID int64) (*domain.WorkingPreferences, error)
	Upsert(ctx context.Context, p *domain.WorkingPreferences) error
}

type ScheduleItemRepository interface {
	Create(ctx context.Context, it *domain.ScheduleItem) error
	Delete(ctx context.Context, ownerID, id int64) (bool, error)
	ListInRange(ctx context.Context, ownerID int64, from, to time.Time) ([]domain.ScheduleItem, error)
}

type BookingLister interface {
	ListByConfiguration(ctx context.Context, configID int64, from, to time.Time) ([]domain.Booking, error)
}

// ProviderChecker reports whether a calendar provider is registered.
type ProviderChecker interface {
	Has(name string) bool
}
