package domain

import "time"

type BookingStatus string

const (
	BookingScheduled   BookingStatus = "scheduled"
	BookingRescheduled BookingStatus = "rescheduled"
	BookingCancelled   BookingStatus = "cancelled"
)

// Booking is never hard-deleted; cancellation is terminal.
type Booking struct {
	ID              int64 `json:"id" gorm:"primaryKey"`
	ConfigurationID int64 `json:"configuration_id" gorm:"index;not null"`

	InviteeName     string `json:"invitee_name" gorm:"size:200;not null"`
	InviteeEmail    string `json:"invitee_email" gorm:"size:320;not null"`
	InviteeTimeZone string `json:"invitee_time_zone,omitempty" gorm:"size:64"`
	Note            string `json:"note,omitempty" gorm:"type:text"`

	StartTime time.Time     `json:"start_time" gorm:"index;not null"`
	EndTime   time.Time     `json:"end_time" gorm:"index;not null"`
	Status    BookingStatus `json:"status" gorm:"size:16;index;not null"`

	// External calendar reference; nil until the calendar side effect succeeds.
	ExternalEventID     *string `json:"external_event_id,omitempty" gorm:"size:255"`
	ConferenceLink      *string `json:"conference_link,omitempty" gorm:"size:512"`
	CalendarSyncPending bool    `json:"calendar_sync_pending" gorm:"index;not null"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`

	Configuration *SchedulingConfiguration `json:"-" gorm:"foreignKey:ConfigurationID"`
}

func (b *Booking) IsCancelled() bool {
	return b.Status == BookingCancelled
}

func (b *Booking) DurationMinutes() int {
	return int(b.EndTime.Sub(b.StartTime) / time.Minute)
}
