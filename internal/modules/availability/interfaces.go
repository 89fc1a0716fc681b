package availability

import (
	"context"
	"time"

	"planner/internal/calendar"
	"planner/internal/domain"
)

type ConfigurationReader interface {
	GetByLinkID(ctx context.Context, linkID string) (*domain.SchedulingConfiguration, error)
}

type PreferencesReader interface {
	GetByOwner(ctx context.Context, ownerID int64) (*domain.WorkingPreferences, error)
}

type BookingReader interface {
	ListActiveOverlapping(ctx context.Context, configID int64, from, to time.Time, excludeID int64) ([]domain.Booking, error)
}

type BlockingItemReader interface {
	ListBlocking(ctx context.Context, ownerID int64, from, to time.Time) ([]domain.ScheduleItem, error)
}

// Gateway is the calendar collaborator.
type Gateway interface {
	BusyIntervals(ctx context.Context, t calendar.Target, from, to time.Time) ([]domain.BusyInterval, error)
}
