package domain

import "time"

type ScheduleItemKind string

const (
	ScheduleItemTask  ScheduleItemKind = "task"
	ScheduleItemEvent ScheduleItemKind = "event"
	ScheduleItemHabit ScheduleItemKind = "habit"
)

// ScheduleItem is an entry on the owner's own schedule. Blocking items count
// as busy time for availability and booking conflict checks.
type ScheduleItem struct {
	ID      int64            `json:"id" gorm:"primaryKey"`
	OwnerID int64            `json:"owner_id" gorm:"index;not null"`
	Kind    ScheduleItemKind `json:"kind" gorm:"size:16;not null"`
	Title   string           `json:"title" gorm:"size:200;not null"`

	StartTime time.Time `json:"start_time" gorm:"index;not null"`
	EndTime   time.Time `json:"end_time" gorm:"index;not null"`
	Blocking  bool      `json:"blocking" gorm:"not null"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
