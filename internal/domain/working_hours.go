package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidClock   = errors.New("invalid time of day")
	ErrInvalidWeekday = errors.New("invalid weekday")
)

// Clock is a time of day in minutes since midnight. 24:00 (1440) is allowed
// as an end-of-day marker.
type Clock int

const EndOfDay Clock = 24 * 60

func ParseClock(s string) (Clock, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 2 || len(parts[0]) == 0 || len(parts[1]) != 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	if h < 0 || h > 24 || m < 0 || m > 59 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	return Clock(h*60 + m), nil
}

func MustClock(s string) Clock {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Clock) Hour() int   { return int(c) / 60 }
func (c Clock) Minute() int { return int(c) % 60 }

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

// On places the clock on the calendar date of day in loc. 24:00 lands on the
// following midnight.
func (c Clock) On(day time.Time, loc *time.Location) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, c.Hour(), c.Minute(), 0, 0, loc)
}

// ClockRange is a wake/sleep or meeting-hours pair.
type ClockRange struct {
	Start Clock
	End   Clock
}

func (r ClockRange) String() string {
	return r.Start.String() + "-" + r.End.String()
}

// WorkingHours is the decoded, validated form of WorkingPreferences.
// Meeting and MeetingDays only apply when resolving in meeting mode.
type WorkingHours struct {
	Location     *time.Location
	Default      ClockRange
	DayOverrides map[time.Weekday]ClockRange
	Blocked      map[time.Weekday]bool
	Meeting      *ClockRange
	MeetingDays  map[time.Weekday]ClockRange
}

// DefaultWorkingHours is used when an owner has not saved preferences.
func DefaultWorkingHours() WorkingHours {
	return WorkingHours{
		Location: time.UTC,
		Default:  ClockRange{Start: MustClock(DefaultWakeTime), End: MustClock(DefaultSleepTime)},
	}
}

var weekdayKeys = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func ParseWeekday(s string) (time.Weekday, error) {
	wd, ok := weekdayKeys[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidWeekday, s)
	}
	return wd, nil
}

func WeekdayKey(w time.Weekday) string {
	return strings.ToLower(w.String())
}
