package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"gorm.io/datatypes"
)

// Calendar provider identifiers understood by the calendar registry.
const (
	CalendarProviderNone   = "none"
	CalendarProviderICS    = "ics"
	CalendarProviderGoogle = "google"
)

// SchedulingConfiguration is a public booking link owned by a user.
// LinkID is the identifier invitees see; ID and OwnerID never change.
type SchedulingConfiguration struct {
	ID      int64  `json:"id" gorm:"primaryKey"`
	OwnerID int64  `json:"owner_id" gorm:"index;not null"`
	LinkID  string `json:"link_id" gorm:"size:36;uniqueIndex;not null"`

	Title       string `json:"title" gorm:"size:200;not null"`
	Description string `json:"description,omitempty" gorm:"type:text"`

	// JSON array of offered durations in minutes, e.g. [15,30,60].
	DurationOptions datatypes.JSON `json:"duration_options" gorm:"not null"`

	BufferBeforeMinutes int `json:"buffer_before_minutes" gorm:"not null"`
	BufferAfterMinutes  int `json:"buffer_after_minutes" gorm:"not null"`
	// 0 = unlimited.
	HorizonDays int `json:"horizon_days" gorm:"not null"`
	// 0 = unlimited.
	DailyCap int `json:"daily_cap" gorm:"not null"`

	CalendarProvider string `json:"calendar_provider" gorm:"size:32;not null"`
	CalendarID       string `json:"calendar_id,omitempty" gorm:"size:512"`

	Active bool `json:"active" gorm:"not null"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (SchedulingConfiguration) TableName() string { return "scheduling_configurations" }

// Durations decodes DurationOptions into a sorted, de-duplicated list of
// positive minute values.
func (c *SchedulingConfiguration) Durations() ([]int, error) {
	if len(c.DurationOptions) == 0 {
		return []int{}, nil
	}
	var raw []int
	if err := json.Unmarshal(c.DurationOptions, &raw); err != nil {
		return nil, fmt.Errorf("decode duration options: %w", err)
	}
	return normalizeDurations(raw), nil
}

func (c *SchedulingConfiguration) SetDurations(minutes []int) error {
	b, err := json.Marshal(normalizeDurations(minutes))
	if err != nil {
		return err
	}
	c.DurationOptions = datatypes.JSON(b)
	return nil
}

func (c *SchedulingConfiguration) OffersDuration(minutes int) bool {
	ds, err := c.Durations()
	if err != nil {
		return false
	}
	for _, d := range ds {
		if d == minutes {
			return true
		}
	}
	return false
}

func normalizeDurations(in []int) []int {
	seen := make(map[int]bool, len(in))
	out := make([]int, 0, len(in))
	for _, d := range in {
		if d <= 0 || seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	sort.Ints(out)
	return out
}
