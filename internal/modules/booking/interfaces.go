package booking

import (
	"context"
	"time"

	"planner/internal/calendar"
	"planner/internal/domain"
	"planner/internal/notification"
)

type ConfigurationReader interface {
	GetByLinkID(ctx context.Context, linkID string) (*domain.SchedulingConfiguration, error)
	GetByID(ctx context.Context, id int64) (*domain.SchedulingConfiguration, error)
}

type OwnerReader interface {
	GetByID(ctx context.Context, id int64) (*domain.Owner, error)
}

// Tx is the booking store bound to one transaction.
type Tx interface {
	LockConfiguration(ctx context.Context, id int64) (*domain.SchedulingConfiguration, error)
	ListActiveOverlapping(ctx context.Context, configID int64, from, to time.Time, excludeID int64) ([]domain.Booking, error)
	CountActiveStarting(ctx context.Context, configID int64, from, to time.Time, excludeID int64) (int64, error)
	Create(ctx context.Context, b *domain.Booking) error
	CreateTokens(ctx context.Context, tokens ...*domain.ActionToken) error
	GetTokenByHashForUpdate(ctx context.Context, hash string) (*domain.ActionToken, error)
	GetForUpdate(ctx context.Context, id int64) (*domain.Booking, error)
	UpdateSchedule(ctx context.Context, b *domain.Booking) error
	ConsumeToken(ctx context.Context, id int64, now time.Time) (bool, error)
	RetireTokens(ctx context.Context, bookingID int64, now time.Time) error
}

type Store interface {
	Transaction(ctx context.Context, fn func(tx Tx) error) error
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	GetTokenByHash(ctx context.Context, hash string) (*domain.ActionToken, error)
	ListActiveOverlapping(ctx context.Context, configID int64, from, to time.Time, excludeID int64) ([]domain.Booking, error)
	ListByConfiguration(ctx context.Context, configID int64, from, to time.Time) ([]domain.Booking, error)
	MarkSynced(ctx context.Context, synced *domain.Booking, externalID, conferenceLink *string) (bool, error)
	MarkSyncPending(ctx context.Context, id int64) error
	ListSyncPending(ctx context.Context, limit int) ([]domain.Booking, error)
}

// Gateway is the calendar collaborator.
type Gateway interface {
	BusyIntervals(ctx context.Context, t calendar.Target, from, to time.Time) ([]domain.BusyInterval, error)
	CreateEvent(ctx context.Context, t calendar.Target, ev calendar.Event) (calendar.Created, error)
	UpdateEvent(ctx context.Context, t calendar.Target, externalID string, ev calendar.Event) error
	CancelEvent(ctx context.Context, t calendar.Target, externalID string) error
}

type Sender interface {
	Send(ctx context.Context, msg notification.Message) (string, error)
}

// Publisher receives committed booking changes for the owner's live feed.
type Publisher interface {
	Publish(ownerID int64, event string, b *domain.Booking)
}
