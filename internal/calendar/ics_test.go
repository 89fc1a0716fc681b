package calendar

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planner/internal/domain"
)

func icsFeed(events ...string) string {
	var b strings.Builder
	b.WriteString("BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//test//EN\r\n")
	for _, e := range events {
		b.WriteString(strings.ReplaceAll(strings.TrimSpace(e), "\n", "\r\n"))
		b.WriteString("\r\n")
	}
	b.WriteString("END:VCALENDAR\r\n")
	return b.String()
}

func utc(y int, m time.Month, d, h, min int) time.Time {
	return time.Date(y, m, d, h, min, 0, 0, time.UTC)
}

func TestParseBusy_TimedAndCancelled(t *testing.T) {
	body := icsFeed(`
BEGIN:VEVENT
UID:a
DTSTART:20260112T090000Z
DTEND:20260112T100000Z
SUMMARY:Standup
END:VEVENT`, `
BEGIN:VEVENT
UID:b
STATUS:CANCELLED
DTSTART:20260112T110000Z
DTEND:20260112T120000Z
END:VEVENT`, `
BEGIN:VEVENT
UID:c
TRANSP:TRANSPARENT
DTSTART:20260112T130000Z
DTEND:20260112T140000Z
END:VEVENT`)

	busy, err := ParseBusy([]byte(body), utc(2026, 1, 12, 0, 0), utc(2026, 1, 13, 0, 0), time.UTC)
	require.NoError(t, err)
	require.Len(t, busy, 2)

	assert.Equal(t, "a", busy[0].Source)
	assert.True(t, busy[0].Start.Equal(utc(2026, 1, 12, 9, 0)))
	assert.True(t, busy[0].End.Equal(utc(2026, 1, 12, 10, 0)))
	assert.True(t, busy[0].Blocking())

	assert.Equal(t, "c", busy[1].Source)
	assert.False(t, busy[1].Blocking())

	opaque := OpaqueOnly(busy)
	require.Len(t, opaque, 1)
}

func TestParseBusy_OutsideRangeDropped(t *testing.T) {
	body := icsFeed(`
BEGIN:VEVENT
UID:old
DTSTART:20251201T090000Z
DTEND:20251201T100000Z
END:VEVENT`)

	busy, err := ParseBusy([]byte(body), utc(2026, 1, 12, 0, 0), utc(2026, 1, 13, 0, 0), time.UTC)
	require.NoError(t, err)
	assert.Empty(t, busy)
}

func TestParseBusy_AllDayUsesOwnerZone(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	body := icsFeed(`
BEGIN:VEVENT
UID:holiday
DTSTART;VALUE=DATE:20260112
DTEND;VALUE=DATE:20260113
END:VEVENT`)

	busy, err := ParseBusy([]byte(body), utc(2026, 1, 10, 0, 0), utc(2026, 1, 15, 0, 0), loc)
	require.NoError(t, err)
	require.Len(t, busy, 1)

	assert.True(t, busy[0].Start.Equal(time.Date(2026, 1, 12, 0, 0, 0, 0, loc)))
	assert.True(t, busy[0].End.Equal(time.Date(2026, 1, 13, 0, 0, 0, 0, loc)))
}

func TestParseBusy_TZIDAndFloating(t *testing.T) {
	body := icsFeed(`
BEGIN:VEVENT
UID:berlin
DTSTART;TZID=Europe/Berlin:20260112T090000
DTEND;TZID=Europe/Berlin:20260112T100000
END:VEVENT`, `
BEGIN:VEVENT
UID:floating
DTSTART:20260112T150000
DTEND:20260112T160000
END:VEVENT`)

	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	busy, err := ParseBusy([]byte(body), utc(2026, 1, 11, 0, 0), utc(2026, 1, 13, 0, 0), tokyo)
	require.NoError(t, err)
	require.Len(t, busy, 2)

	// 09:00 CET is 08:00 UTC.
	assert.True(t, busy[0].Start.Equal(utc(2026, 1, 12, 8, 0)))
	// Floating 15:00 in Tokyo is 06:00 UTC.
	assert.True(t, busy[1].Start.Equal(utc(2026, 1, 12, 6, 0)))
}

func TestParseBusy_RecurringWithExceptions(t *testing.T) {
	body := icsFeed(`
BEGIN:VEVENT
UID:daily
DTSTART:20260112T090000Z
DTEND:20260112T093000Z
RRULE:FREQ=DAILY;COUNT=5
EXDATE:20260113T090000Z
END:VEVENT`, `
BEGIN:VEVENT
UID:daily
RECURRENCE-ID:20260114T090000Z
DTSTART:20260114T150000Z
DTEND:20260114T153000Z
END:VEVENT`)

	busy, err := ParseBusy([]byte(body), utc(2026, 1, 12, 0, 0), utc(2026, 1, 20, 0, 0), time.UTC)
	require.NoError(t, err)

	var starts []time.Time
	for _, b := range busy {
		starts = append(starts, b.Start.UTC())
	}
	assert.ElementsMatch(t, []time.Time{
		utc(2026, 1, 12, 9, 0),
		utc(2026, 1, 14, 15, 0),
		utc(2026, 1, 15, 9, 0),
		utc(2026, 1, 16, 9, 0),
	}, starts)
}

func TestParseBusy_RecurringClippedToRange(t *testing.T) {
	body := icsFeed(`
BEGIN:VEVENT
UID:weekly
DTSTART:20250106T100000Z
DTEND:20250106T110000Z
RRULE:FREQ=WEEKLY
END:VEVENT`)

	busy, err := ParseBusy([]byte(body), utc(2026, 1, 12, 0, 0), utc(2026, 1, 26, 0, 0), time.UTC)
	require.NoError(t, err)
	require.Len(t, busy, 2)
	assert.True(t, busy[0].Start.Equal(utc(2026, 1, 12, 10, 0)))
	assert.True(t, busy[1].Start.Equal(utc(2026, 1, 19, 10, 0)))
}

func TestParseBusy_DurationInsteadOfEnd(t *testing.T) {
	body := icsFeed(`
BEGIN:VEVENT
UID:review
DTSTART:20260112T090000Z
DURATION:PT1H30M
END:VEVENT`, `
BEGIN:VEVENT
UID:offsite
DTSTART;VALUE=DATE:20260113
DURATION:P2D
END:VEVENT`, `
BEGIN:VEVENT
UID:reminder
DTSTART:20260112T150000Z
END:VEVENT`)

	busy, err := ParseBusy([]byte(body), utc(2026, 1, 12, 0, 0), utc(2026, 1, 16, 0, 0), time.UTC)
	require.NoError(t, err)
	require.Len(t, busy, 2)

	assert.Equal(t, "review", busy[0].Source)
	assert.True(t, busy[0].Start.Equal(utc(2026, 1, 12, 9, 0)))
	assert.True(t, busy[0].End.Equal(utc(2026, 1, 12, 10, 30)))
	assert.True(t, busy[0].Blocking())

	assert.Equal(t, "offsite", busy[1].Source)
	assert.True(t, busy[1].Start.Equal(utc(2026, 1, 13, 0, 0)))
	assert.True(t, busy[1].End.Equal(utc(2026, 1, 15, 0, 0)))
}

func TestParseICSDuration(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
		ok   bool
	}{
		{"PT1H", time.Hour, true},
		{"PT1H30M", 90 * time.Minute, true},
		{"P1D", 24 * time.Hour, true},
		{"P1W", 7 * 24 * time.Hour, true},
		{"P1DT2H", 26 * time.Hour, true},
		{"-PT15M", -15 * time.Minute, true},
		{"PT45S", 45 * time.Second, true},
		{"P", 0, false},
		{"PT", 0, false},
		{"1H", 0, false},
		{"P1H", 0, false},
		{"PT5", 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := parseICSDuration(tc.in)
			if !tc.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseBusy_EmptyBody(t *testing.T) {
	_, err := ParseBusy(nil, utc(2026, 1, 12, 0, 0), utc(2026, 1, 13, 0, 0), time.UTC)
	assert.Error(t, err)
}

type staticSources map[string]string

func (s staticSources) Lookup(id string) (string, bool) {
	u, ok := s[id]
	return u, ok
}

func TestICSProvider_FetchesConfiguredSource(t *testing.T) {
	feed := icsFeed(`
BEGIN:VEVENT
UID:a
DTSTART:20260112T090000Z
DTEND:20260112T100000Z
END:VEVENT`)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/work.ics", r.URL.Path)
		w.Header().Set("Content-Type", "text/calendar")
		_, _ = w.Write([]byte(feed))
	}))
	defer srv.Close()

	p := NewICSProvider(srv.Client(), staticSources{"work": srv.URL + "/work.ics"})
	target := Target{Provider: domain.CalendarProviderICS, CalendarID: "work"}

	busy, err := p.BusyIntervals(context.Background(), target, utc(2026, 1, 12, 0, 0), utc(2026, 1, 13, 0, 0))
	require.NoError(t, err)
	require.Len(t, busy, 1)

	_, err = p.CreateEvent(context.Background(), target, Event{})
	assert.ErrorIs(t, err, ErrReadOnly)
}

func TestICSProvider_UnknownSourceAndBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewICSProvider(srv.Client(), staticSources{})

	_, err := p.BusyIntervals(context.Background(), Target{CalendarID: "missing"}, utc(2026, 1, 12, 0, 0), utc(2026, 1, 13, 0, 0))
	assert.Error(t, err)

	_, err = p.BusyIntervals(context.Background(), Target{CalendarID: srv.URL}, utc(2026, 1, 12, 0, 0), utc(2026, 1, 13, 0, 0))
	assert.Error(t, err)
}
