package settings

import (
	"time"

	"planner/internal/domain"
)

type ConfigurationRequest struct {
	Title               string `json:"title" binding:"required,max=200"`
	Description         string `json:"description" binding:"max=5000"`
	DurationOptions     []int  `json:"duration_options" binding:"required,min=1,max=10,dive,min=5,max=480"`
	BufferBeforeMinutes int    `json:"buffer_before_minutes" binding:"min=0,max=240"`
	BufferAfterMinutes  int    `json:"buffer_after_minutes" binding:"min=0,max=240"`
	HorizonDays         int    `json:"horizon_days" binding:"min=0,max=365"`
	DailyCap            int    `json:"daily_cap" binding:"min=0,max=100"`
	CalendarProvider    string `json:"calendar_provider" binding:"max=32"`
	CalendarID          string `json:"calendar_id" binding:"max=512"`
	// Nil keeps the current state on update and means active on create.
	Active *bool `json:"active"`
}

type ConfigurationView struct {
	ID                  int64     `json:"id"`
	LinkID              string    `json:"link_id"`
	Title               string    `json:"title"`
	Description         string    `json:"description,omitempty"`
	DurationOptions     []int     `json:"duration_options"`
	BufferBeforeMinutes int       `json:"buffer_before_minutes"`
	BufferAfterMinutes  int       `json:"buffer_after_minutes"`
	HorizonDays         int       `json:"horizon_days"`
	DailyCap            int       `json:"daily_cap"`
	CalendarProvider    string    `json:"calendar_provider"`
	CalendarID          string    `json:"calendar_id,omitempty"`
	Active              bool      `json:"active"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

func configurationView(c *domain.SchedulingConfiguration) ConfigurationView {
	durations, _ := c.Durations()
	return ConfigurationView{
		ID:                  c.ID,
		LinkID:              c.LinkID,
		Title:               c.Title,
		Description:         c.Description,
		DurationOptions:     durations,
		BufferBeforeMinutes: c.BufferBeforeMinutes,
		BufferAfterMinutes:  c.BufferAfterMinutes,
		HorizonDays:         c.HorizonDays,
		DailyCap:            c.DailyCap,
		CalendarProvider:    c.CalendarProvider,
		CalendarID:          c.CalendarID,
		Active:              c.Active,
		CreatedAt:           c.CreatedAt,
		UpdatedAt:           c.UpdatedAt,
	}
}

type HoursInput struct {
	Start string `json:"start" validate:"clock"`
	End   string `json:"end" validate:"clock"`
}

type PreferencesRequest struct {
	TimeZone            string                `json:"time_zone" binding:"required" validate:"timezone"`
	WakeTime            string                `json:"wake_time" binding:"required" validate:"clock"`
	SleepTime           string                `json:"sleep_time" binding:"required" validate:"clock"`
	DayOverrides        map[string]HoursInput `json:"day_overrides" validate:"omitempty,dive,keys,weekday,endkeys"`
	BlockedDays         []string              `json:"blocked_days" validate:"omitempty,dive,weekday"`
	MeetingHours        *HoursInput           `json:"meeting_hours"`
	MeetingDayOverrides map[string]HoursInput `json:"meeting_day_overrides" validate:"omitempty,dive,keys,weekday,endkeys"`
}

type PreferencesView struct {
	TimeZone            string                `json:"time_zone"`
	WakeTime            string                `json:"wake_time"`
	SleepTime           string                `json:"sleep_time"`
	DayOverrides        map[string]HoursInput `json:"day_overrides"`
	BlockedDays         []string              `json:"blocked_days"`
	MeetingHours        *HoursInput           `json:"meeting_hours"`
	MeetingDayOverrides map[string]HoursInput `json:"meeting_day_overrides"`
	// Saved is false when defaults are shown.
	Saved bool `json:"saved"`
}

type ScheduleItemRequest struct {
	Kind     domain.ScheduleItemKind `json:"kind" binding:"required,oneof=task event habit"`
	Title    string                  `json:"title" binding:"required,max=200"`
	Start    time.Time               `json:"start" binding:"required"`
	End      time.Time               `json:"end" binding:"required"`
	Blocking *bool                   `json:"blocking"`
}

type RangeQuery struct {
	From string `form:"from" binding:"required"`
	To   string `form:"to" binding:"required"`
}
