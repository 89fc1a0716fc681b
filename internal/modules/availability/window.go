package availability

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"planner/internal/domain"
	"planner/internal/pkg/interval"
)

// ResolveWindow returns the working window for the calendar date of day in
// wh.Location. ok is false on blocked days and when sleep is not after wake.
//
// Precedence, highest first: per-day meeting hours and global meeting hours
// (meeting mode only), then the per-day override, then the default.
func ResolveWindow(day time.Time, wh domain.WorkingHours, meeting bool) (interval.Interval, bool) {
	loc := wh.Location
	if loc == nil {
		loc = time.UTC
	}
	date := DayStart(day, loc)
	wd := date.Weekday()

	if wh.Blocked[wd] {
		return interval.Interval{}, false
	}

	r := wh.Default
	if o, ok := wh.DayOverrides[wd]; ok {
		r = o
	}
	if meeting {
		if wh.Meeting != nil {
			r = *wh.Meeting
		}
		if o, ok := wh.MeetingDays[wd]; ok {
			r = o
		}
	}

	if r.End <= r.Start {
		return interval.Interval{}, false
	}
	return interval.Interval{Start: r.Start.On(date, loc), End: r.End.On(date, loc)}, true
}

// DayStart is local midnight of the day containing t.
func DayStart(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// DayKey identifies the local calendar day of t.
func DayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}

// HorizonEnd is the first instant past a horizon of days counted from the
// day containing from, end of day inclusive. It returns the zero time when
// days is not positive.
func HorizonEnd(from time.Time, days int, loc *time.Location) time.Time {
	if days <= 0 {
		return time.Time{}
	}
	return DayStart(from, loc).AddDate(0, 0, days+1)
}

// LoadHours reads the owner's stored preferences, falling back to the
// defaults when none are saved.
func LoadHours(ctx context.Context, prefs PreferencesReader, ownerID int64) (domain.WorkingHours, error) {
	p, err := prefs.GetByOwner(ctx, ownerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.DefaultWorkingHours(), nil
		}
		return domain.WorkingHours{}, err
	}
	return p.Hours()
}
