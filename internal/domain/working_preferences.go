package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

const (
	DefaultWakeTime  = "08:00"
	DefaultSleepTime = "22:00"
	DefaultTimeZone  = "UTC"
)

// HoursJSON is the stored shape of a wake/sleep or meeting-hours pair.
type HoursJSON struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// WorkingPreferences is the owner's stored working-window configuration.
// Per-weekday maps are keyed by lower-case weekday names ("monday").
type WorkingPreferences struct {
	ID      int64 `json:"id" gorm:"primaryKey"`
	OwnerID int64 `json:"owner_id" gorm:"uniqueIndex;not null"`

	TimeZone  string `json:"time_zone" gorm:"size:64;not null"`
	WakeTime  string `json:"wake_time" gorm:"size:5;not null"`
	SleepTime string `json:"sleep_time" gorm:"size:5;not null"`

	DayOverrides        datatypes.JSON `json:"day_overrides,omitempty"`
	BlockedDays         datatypes.JSON `json:"blocked_days,omitempty"`
	MeetingHours        datatypes.JSON `json:"meeting_hours,omitempty"`
	MeetingDayOverrides datatypes.JSON `json:"meeting_day_overrides,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (WorkingPreferences) TableName() string { return "working_preferences" }

// Hours decodes and validates the stored preferences.
func (p *WorkingPreferences) Hours() (WorkingHours, error) {
	var wh WorkingHours

	tz := p.TimeZone
	if tz == "" {
		tz = DefaultTimeZone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return wh, fmt.Errorf("time zone %q: %w", tz, err)
	}
	wh.Location = loc

	wake, sleep := p.WakeTime, p.SleepTime
	if wake == "" {
		wake = DefaultWakeTime
	}
	if sleep == "" {
		sleep = DefaultSleepTime
	}
	if wh.Default, err = parseRange(HoursJSON{Start: wake, End: sleep}); err != nil {
		return wh, err
	}

	if wh.DayOverrides, err = decodeDayMap(p.DayOverrides); err != nil {
		return wh, fmt.Errorf("day overrides: %w", err)
	}
	if wh.MeetingDays, err = decodeDayMap(p.MeetingDayOverrides); err != nil {
		return wh, fmt.Errorf("meeting day overrides: %w", err)
	}

	if len(p.BlockedDays) > 0 && string(p.BlockedDays) != "null" {
		var days []string
		if err := json.Unmarshal(p.BlockedDays, &days); err != nil {
			return wh, fmt.Errorf("blocked days: %w", err)
		}
		wh.Blocked = make(map[time.Weekday]bool, len(days))
		for _, d := range days {
			wd, err := ParseWeekday(d)
			if err != nil {
				return wh, err
			}
			wh.Blocked[wd] = true
		}
	}

	if len(p.MeetingHours) > 0 && string(p.MeetingHours) != "null" {
		var h HoursJSON
		if err := json.Unmarshal(p.MeetingHours, &h); err != nil {
			return wh, fmt.Errorf("meeting hours: %w", err)
		}
		r, err := parseRange(h)
		if err != nil {
			return wh, err
		}
		wh.Meeting = &r
	}

	return wh, nil
}

func parseRange(h HoursJSON) (ClockRange, error) {
	start, err := ParseClock(h.Start)
	if err != nil {
		return ClockRange{}, err
	}
	end, err := ParseClock(h.End)
	if err != nil {
		return ClockRange{}, err
	}
	return ClockRange{Start: start, End: end}, nil
}

func decodeDayMap(raw datatypes.JSON) (map[time.Weekday]ClockRange, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var m map[string]HoursJSON
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	out := make(map[time.Weekday]ClockRange, len(m))
	for k, v := range m {
		wd, err := ParseWeekday(k)
		if err != nil {
			return nil, err
		}
		r, err := parseRange(v)
		if err != nil {
			return nil, err
		}
		out[wd] = r
	}
	return out, nil
}
