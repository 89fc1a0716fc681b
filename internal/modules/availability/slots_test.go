package availability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planner/internal/domain"
	"planner/internal/pkg/interval"
)

func utcAt(day, h, m int) time.Time {
	return time.Date(2026, 1, day, h, m, 0, 0, time.UTC)
}

func starts(slots []Slot) []string {
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.Start.UTC().Format("01-02 15:04"))
	}
	return out
}

func TestBuildSlots_BusyIntervalRemovesSlots(t *testing.T) {
	slots := BuildSlots(SlotParams{
		From:      utcAt(10, 9, 0),
		To:        utcAt(10, 12, 0),
		Durations: []int{30},
		Busy:      []interval.Interval{{Start: utcAt(10, 10, 0), End: utcAt(10, 10, 30)}},
		Hours:     hours(time.UTC),
	})

	got := starts(slots)
	assert.Contains(t, got, "01-10 09:00")
	assert.NotContains(t, got, "01-10 10:00")
	assert.NotContains(t, got, "01-10 09:45")
	assert.Contains(t, got, "01-10 10:30")
	assert.Equal(t, "01-10 11:30", got[len(got)-1])
}

func TestBuildSlots_BufferBlocksNeighbourhood(t *testing.T) {
	slots := BuildSlots(SlotParams{
		From:         utcAt(10, 8, 0),
		To:           utcAt(10, 17, 0),
		Durations:    []int{15},
		BufferBefore: 10,
		BufferAfter:  10,
		Busy:         []interval.Interval{{Start: utcAt(10, 10, 0), End: utcAt(10, 10, 30)}},
		Hours:        hours(time.UTC),
	})

	blockedFrom, blockedTo := utcAt(10, 9, 50), utcAt(10, 10, 40)
	for _, s := range slots {
		inside := !s.Start.Before(blockedFrom) && s.Start.Before(blockedTo)
		assert.False(t, inside, "slot at %s starts inside the buffered busy time", s.Start)
	}
	got := starts(slots)
	assert.Contains(t, got, "01-10 09:30")
	assert.NotContains(t, got, "01-10 09:45")
	assert.Contains(t, got, "01-10 10:45")
}

func TestBuildSlots_DailyCapKeepsEarliest(t *testing.T) {
	wh := hours(time.UTC)
	wh.Default = domain.ClockRange{Start: domain.MustClock("09:00"), End: domain.MustClock("11:15")}

	all := BuildSlots(SlotParams{
		From: utcAt(10, 0, 0), To: utcAt(11, 0, 0), Durations: []int{30}, Hours: wh,
	})
	require.Len(t, all, 8)

	capped := BuildSlots(SlotParams{
		From: utcAt(10, 0, 0), To: utcAt(11, 0, 0), Durations: []int{30}, Hours: wh, DailyCap: 2,
	})
	assert.Equal(t, []string{"01-10 09:00", "01-10 09:15"}, starts(capped))
}

func TestBuildSlots_DailyCapCountsExistingBookings(t *testing.T) {
	wh := hours(time.UTC)
	slots := BuildSlots(SlotParams{
		From:      utcAt(10, 0, 0),
		To:        utcAt(12, 0, 0),
		Durations: []int{60},
		Hours:     wh,
		DailyCap:  2,
		Booked:    map[string]int{"2026-01-10": 1, "2026-01-11": 2},
	})
	assert.Equal(t, []string{"01-10 08:00"}, starts(slots))
}

func TestBuildSlots_CapAppliesPerDuration(t *testing.T) {
	slots := BuildSlots(SlotParams{
		From:      utcAt(10, 0, 0),
		To:        utcAt(11, 0, 0),
		Durations: []int{60, 30},
		Hours:     hours(time.UTC),
		DailyCap:  1,
	})
	require.Len(t, slots, 2)
	assert.Equal(t, 30, slots[0].DurationMinutes)
	assert.Equal(t, 60, slots[1].DurationMinutes)
}

func TestBuildSlots_HorizonClamp(t *testing.T) {
	slots := BuildSlots(SlotParams{
		From:        utcAt(10, 0, 0),
		To:          utcAt(20, 0, 0),
		Durations:   []int{30},
		Hours:       hours(time.UTC),
		HorizonDays: 2,
	})
	require.NotEmpty(t, slots)

	limit := utcAt(13, 0, 0)
	for _, s := range slots {
		assert.True(t, s.Start.Before(limit), "slot %s beyond horizon", s.Start)
	}
	assert.Equal(t, "01-12 16:30", starts(slots)[len(slots)-1])
}

func TestBuildSlots_HorizonInOwnerZone(t *testing.T) {
	la, err := time.LoadLocation("America/Los_Angeles")
	require.NoError(t, err)

	slots := BuildSlots(SlotParams{
		From:        time.Date(2026, 1, 10, 0, 0, 0, 0, la),
		To:          time.Date(2026, 1, 20, 0, 0, 0, 0, la),
		Durations:   []int{60},
		Hours:       hours(la),
		HorizonDays: 1,
	})
	last := slots[len(slots)-1]
	assert.Equal(t, time.Date(2026, 1, 11, 16, 0, 0, 0, la), last.Start.In(la))
}

func TestBuildSlots_MeetingDayOverride(t *testing.T) {
	wh := hours(time.UTC)
	global := domain.ClockRange{Start: domain.MustClock("10:00"), End: domain.MustClock("16:00")}
	wh.Meeting = &global
	wh.MeetingDays = map[time.Weekday]domain.ClockRange{
		time.Monday: {Start: domain.MustClock("14:00"), End: domain.MustClock("18:00")},
	}

	slots := BuildSlots(SlotParams{
		From:      utcAt(12, 0, 0),
		To:        utcAt(13, 0, 0),
		Durations: []int{30},
		Hours:     wh,
		Meeting:   true,
	})
	require.NotEmpty(t, slots)
	for _, s := range slots {
		assert.False(t, s.Start.Before(utcAt(12, 14, 0)))
		assert.False(t, s.End.After(utcAt(12, 18, 0)))
	}
	assert.Equal(t, "01-12 14:00", starts(slots)[0])
}

func TestBuildSlots_AlignsUpToGrid(t *testing.T) {
	slots := BuildSlots(SlotParams{
		From:      utcAt(10, 9, 7),
		To:        utcAt(10, 10, 0),
		Durations: []int{30},
		Hours:     hours(time.UTC),
	})
	assert.Equal(t, []string{"01-10 09:15", "01-10 09:30"}, starts(slots))
}

func TestBuildSlots_DurationLongerThanBlocks(t *testing.T) {
	slots := BuildSlots(SlotParams{
		From:      utcAt(10, 9, 0),
		To:        utcAt(10, 10, 0),
		Durations: []int{90},
		Hours:     hours(time.UTC),
	})
	assert.Empty(t, slots)
}

func TestBuildSlots_BlockedDayYieldsNothing(t *testing.T) {
	wh := hours(time.UTC)
	wh.Blocked = map[time.Weekday]bool{time.Saturday: true}

	slots := BuildSlots(SlotParams{
		From:      utcAt(10, 0, 0),
		To:        utcAt(11, 0, 0),
		Durations: []int{30},
		Hours:     wh,
	})
	assert.Empty(t, slots)
}

func TestBuildSlots_SlotsStayInsideFreeTime(t *testing.T) {
	busy := []interval.Interval{
		{Start: utcAt(10, 8, 20), End: utcAt(10, 9, 5)},
		{Start: utcAt(10, 12, 0), End: utcAt(10, 13, 0)},
		{Start: utcAt(10, 15, 50), End: utcAt(10, 16, 10)},
	}
	slots := BuildSlots(SlotParams{
		From:         utcAt(10, 0, 0),
		To:           utcAt(11, 0, 0),
		Durations:    []int{15, 45},
		BufferBefore: 5,
		BufferAfter:  5,
		Busy:         busy,
		Hours:        hours(time.UTC),
	})
	buffered := interval.BufferAll(busy, 5, 5)
	window := interval.Interval{Start: utcAt(10, 8, 0), End: utcAt(10, 17, 0)}
	for _, s := range slots {
		iv := interval.Interval{Start: s.Start, End: s.End}
		assert.False(t, interval.AnyOverlap(iv, buffered), "slot %s overlaps busy", s.Start)
		assert.True(t, window.Contains(iv))
		assert.Zero(t, s.Start.Sub(s.Start.Truncate(SlotStep)))
	}
}
