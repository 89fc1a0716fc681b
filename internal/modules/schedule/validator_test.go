package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planner/internal/domain"
)

func hours(t *testing.T, tz string) domain.WorkingHours {
	t.Helper()
	p := domain.WorkingPreferences{TimeZone: tz, WakeTime: "08:00", SleepTime: "17:00"}
	wh, err := p.Hours()
	require.NoError(t, err)
	return wh
}

func block(id string, task int64, start, end string) Block {
	return Block{ID: id, TaskID: task, Start: start, End: end}
}

func codes(issues []Issue) []string {
	out := make([]string, len(issues))
	for i, is := range issues {
		out[i] = is.BlockID + ":" + is.Code
	}
	return out
}

var tasks = map[int64]bool{1: true, 2: true, 3: true}

func TestValidate_CleanBatch(t *testing.T) {
	r := Validate([]Block{
		block("a", 1, "2026-01-12T09:00:00Z", "2026-01-12T10:00:00Z"),
		block("b", 2, "2026-01-12T10:00:00Z", "2026-01-12T11:30:00Z"),
	}, nil, hours(t, "UTC"), tasks)

	assert.True(t, r.Valid)
	assert.Empty(t, r.Errors)
	assert.Empty(t, r.Warnings)
	assert.Equal(t, ConfidenceHigh, r.Adjust(ConfidenceHigh))
}

func TestValidate_StructuralFailuresShortCircuit(t *testing.T) {
	fixed := []FixedEvent{{ID: "ev", Title: "Standup", Start: time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC), End: time.Date(2026, 1, 13, 0, 0, 0, 0, time.UTC)}}
	r := Validate([]Block{
		block("unknown", 99, "2026-01-12T09:00:00Z", "2026-01-12T10:00:00Z"),
		block("garbled", 1, "tomorrow", "2026-01-12T10:00:00Z"),
		block("reversed", 1, "2026-01-12T10:00:00Z", "2026-01-12T09:00:00Z"),
		block("empty", 1, "2026-01-12T10:00:00Z", "2026-01-12T10:00:00Z"),
	}, fixed, hours(t, "UTC"), tasks)

	assert.False(t, r.Valid)
	assert.Equal(t, []string{
		"unknown:UNKNOWN_TASK",
		"garbled:INVALID_TIME",
		"reversed:INVALID_TIME",
		"empty:INVALID_TIME",
	}, codes(r.Errors))
}

func TestValidate_FixedEventConflictsAreDistinct(t *testing.T) {
	fixed := []FixedEvent{
		{ID: "e1", Title: "Dentist", Start: time.Date(2026, 1, 12, 9, 30, 0, 0, time.UTC), End: time.Date(2026, 1, 12, 10, 0, 0, 0, time.UTC)},
		{ID: "e2", Title: "Lunch", Start: time.Date(2026, 1, 12, 10, 30, 0, 0, time.UTC), End: time.Date(2026, 1, 12, 11, 0, 0, 0, time.UTC)},
		{ID: "e3", Title: "Later", Start: time.Date(2026, 1, 12, 11, 0, 0, 0, time.UTC), End: time.Date(2026, 1, 12, 12, 0, 0, 0, time.UTC)},
	}
	r := Validate([]Block{block("a", 1, "2026-01-12T09:00:00Z", "2026-01-12T11:00:00Z")}, fixed, hours(t, "UTC"), tasks)

	require.Len(t, r.Errors, 2)
	assert.Equal(t, "e1", r.Errors[0].EventID)
	assert.Contains(t, r.Errors[0].Message, "Dentist")
	assert.Equal(t, "e2", r.Errors[1].EventID)
}

func TestValidate_CrossingMidnightIsAnError(t *testing.T) {
	// 22:30-00:30 in Berlin; in UTC both ends fall on the same date.
	r := Validate([]Block{
		block("late", 1, "2026-01-12T21:30:00Z", "2026-01-12T23:30:00Z"),
	}, nil, hours(t, "Europe/Berlin"), tasks)

	assert.Equal(t, []string{"late:CROSSES_MIDNIGHT"}, codes(r.Errors))
	assert.Empty(t, r.Warnings)
}

func TestValidate_EndingAtMidnightStaysOnDay(t *testing.T) {
	r := Validate([]Block{
		block("a", 1, "2026-01-12T23:00:00Z", "2026-01-13T00:00:00Z"),
	}, nil, hours(t, "UTC"), tasks)

	assert.Empty(t, r.Errors)
	assert.Equal(t, []string{"a:AFTER_WINDOW_END"}, codes(r.Warnings))
}

func TestValidate_WindowWarnings(t *testing.T) {
	wh := hours(t, "UTC")
	wh.Blocked = map[time.Weekday]bool{time.Sunday: true}
	meeting := domain.ClockRange{Start: domain.MustClock("12:00"), End: domain.MustClock("13:00")}
	wh.Meeting = &meeting

	r := Validate([]Block{
		block("early", 1, "2026-01-12T07:30:00Z", "2026-01-12T08:30:00Z"),
		block("late", 2, "2026-01-12T16:30:00Z", "2026-01-12T17:30:00Z"),
		block("sunday", 3, "2026-01-11T10:00:00Z", "2026-01-11T11:00:00Z"),
		// Meeting hours do not apply to personal blocks.
		block("morning", 3, "2026-01-13T09:00:00Z", "2026-01-13T10:00:00Z"),
	}, nil, wh, tasks)

	assert.True(t, r.Valid)
	assert.Equal(t, []string{
		"early:BEFORE_WINDOW_START",
		"late:AFTER_WINDOW_END",
		"sunday:NO_WORKING_WINDOW",
	}, codes(r.Warnings))
	assert.Contains(t, r.Warnings[0].Message, "08:00")
	assert.Contains(t, r.Warnings[1].Message, "17:00")
	assert.Equal(t, ConfidenceMedium, r.Adjust(ConfidenceHigh))
	assert.Equal(t, ConfidenceLow, r.Adjust(ConfidenceLow))
}

func TestValidate_BlockSpanningWholeWindowNamesBothBoundaries(t *testing.T) {
	r := Validate([]Block{
		block("marathon", 1, "2026-01-12T07:00:00Z", "2026-01-12T18:00:00Z"),
	}, nil, hours(t, "UTC"), tasks)

	assert.True(t, r.Valid)
	assert.Equal(t, []string{
		"marathon:BEFORE_WINDOW_START",
		"marathon:AFTER_WINDOW_END",
	}, codes(r.Warnings))
	assert.Contains(t, r.Warnings[0].Message, "08:00")
	assert.Contains(t, r.Warnings[1].Message, "17:00")
}

func TestValidate_BatchOverlapReportedOncePerPair(t *testing.T) {
	r := Validate([]Block{
		block("a", 1, "2026-01-12T09:00:00Z", "2026-01-12T10:00:00Z"),
		block("b", 2, "2026-01-12T09:30:00Z", "2026-01-12T10:30:00Z"),
		block("c", 3, "2026-01-12T09:45:00Z", "2026-01-12T09:50:00Z"),
		block("bad", 3, "2026-01-12T09:00:00Z", "oops"),
	}, nil, hours(t, "UTC"), tasks)

	assert.Equal(t, []string{
		"b:BLOCK_OVERLAP",
		"c:BLOCK_OVERLAP",
		"c:BLOCK_OVERLAP",
		"bad:INVALID_TIME",
	}, codes(r.Errors))
	assert.Equal(t, "a", r.Errors[0].EventID)
	assert.Equal(t, "a", r.Errors[1].EventID)
	assert.Equal(t, "b", r.Errors[2].EventID)
	assert.Equal(t, ConfidenceLow, r.Adjust(ConfidenceHigh))
}

func TestValidate_MissingIDsAreNumbered(t *testing.T) {
	r := Validate([]Block{{TaskID: 42, Start: "x", End: "y"}}, nil, hours(t, "UTC"), tasks)
	require.Len(t, r.Errors, 1)
	assert.Equal(t, "#0", r.Errors[0].BlockID)
}

func TestParseConfidence(t *testing.T) {
	c, err := ParseConfidence("")
	require.NoError(t, err)
	assert.Equal(t, ConfidenceHigh, c)

	c, err = ParseConfidence(" Medium ")
	require.NoError(t, err)
	assert.Equal(t, ConfidenceMedium, c)

	_, err = ParseConfidence("certain")
	assert.ErrorIs(t, err, ErrUnknownConfidence)
}
