package schedule

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"planner/internal/domain"
	"planner/internal/modules/availability"
	"planner/internal/pkg/interval"
)

type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

func ParseConfidence(s string) (Confidence, error) {
	switch c := Confidence(strings.ToLower(strings.TrimSpace(s))); c {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
		return c, nil
	case "":
		return ConfidenceHigh, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownConfidence, s)
	}
}

// Issue codes.
const (
	CodeUnknownTask        = "UNKNOWN_TASK"
	CodeInvalidTime        = "INVALID_TIME"
	CodeFixedEventConflict = "FIXED_EVENT_CONFLICT"
	CodeCrossesMidnight    = "CROSSES_MIDNIGHT"
	CodeNoWorkingWindow    = "NO_WORKING_WINDOW"
	CodeBeforeWindowStart  = "BEFORE_WINDOW_START"
	CodeAfterWindowEnd     = "AFTER_WINDOW_END"
	CodeBlockOverlap       = "BLOCK_OVERLAP"
)

// Block is one proposed placement of a task. Start and End are RFC 3339
// strings so malformed input is reported per block instead of failing the
// whole batch.
type Block struct {
	ID     string `json:"id"`
	TaskID int64  `json:"task_id"`
	Start  string `json:"start"`
	End    string `json:"end"`
}

// FixedEvent is a commitment the validator cannot move.
type FixedEvent struct {
	ID    string    `json:"id"`
	Title string    `json:"title"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type Issue struct {
	BlockID string `json:"block_id"`
	Code    string `json:"code"`
	Message string `json:"message"`
	// EventID names the fixed event or other block involved, if any.
	EventID string `json:"event_id,omitempty"`
}

type Report struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
}

// Adjust downgrades c: any error makes it low, warnings alone turn high
// into medium.
func (r Report) Adjust(c Confidence) Confidence {
	switch {
	case len(r.Errors) > 0:
		return ConfidenceLow
	case len(r.Warnings) > 0 && c == ConfidenceHigh:
		return ConfidenceMedium
	default:
		return c
	}
}

type checked struct {
	id   string
	span interval.Interval
}

// Validate checks a batch of proposed blocks against the owner's fixed
// events and non-meeting working window. Blocks failing the task or time
// checks are skipped for the remaining checks; overlapping pairs inside the
// batch are reported once, on the later block.
func Validate(blocks []Block, fixed []FixedEvent, hours domain.WorkingHours, validTaskIDs map[int64]bool) Report {
	loc := hours.Location
	if loc == nil {
		loc = time.UTC
	}
	r := Report{Errors: []Issue{}, Warnings: []Issue{}}
	var ok []checked

	for i, b := range blocks {
		id := b.ID
		if id == "" {
			id = fmt.Sprintf("#%d", i)
		}

		if !validTaskIDs[b.TaskID] {
			r.Errors = append(r.Errors, Issue{BlockID: id, Code: CodeUnknownTask,
				Message: fmt.Sprintf("task %d does not exist", b.TaskID)})
			continue
		}

		span, msg := parseSpan(b)
		if msg != "" {
			r.Errors = append(r.Errors, Issue{BlockID: id, Code: CodeInvalidTime, Message: msg})
			continue
		}

		for _, ev := range fixed {
			if span.Overlaps(interval.Interval{Start: ev.Start, End: ev.End}) {
				r.Errors = append(r.Errors, Issue{BlockID: id, Code: CodeFixedEventConflict, EventID: ev.ID,
					Message: fmt.Sprintf("overlaps %q (%s-%s)", ev.Title, ev.Start.In(loc).Format("15:04"), ev.End.In(loc).Format("15:04"))})
			}
		}

		if issues, isErr := checkWindow(id, span, hours, loc); isErr {
			r.Errors = append(r.Errors, issues...)
		} else {
			r.Warnings = append(r.Warnings, issues...)
		}

		for _, prev := range ok {
			if span.Overlaps(prev.span) {
				r.Errors = append(r.Errors, Issue{BlockID: id, Code: CodeBlockOverlap, EventID: prev.id,
					Message: fmt.Sprintf("overlaps block %s", prev.id)})
			}
		}
		ok = append(ok, checked{id: id, span: span})
	}

	r.Valid = len(r.Errors) == 0
	return r
}

func parseSpan(b Block) (interval.Interval, string) {
	start, err := time.Parse(time.RFC3339, strings.TrimSpace(b.Start))
	if err != nil {
		return interval.Interval{}, fmt.Sprintf("start %q is not a valid time", b.Start)
	}
	end, err := time.Parse(time.RFC3339, strings.TrimSpace(b.End))
	if err != nil {
		return interval.Interval{}, fmt.Sprintf("end %q is not a valid time", b.End)
	}
	if !start.Before(end) {
		return interval.Interval{}, "start must be before end"
	}
	return interval.Interval{Start: start, End: end}, ""
}

// checkWindow reports a block spanning two local days as an error and a
// block outside the working window as warnings, one per crossed boundary.
// A block ending exactly at midnight stays on its start day.
func checkWindow(id string, span interval.Interval, hours domain.WorkingHours, loc *time.Location) ([]Issue, bool) {
	startDay := availability.DayKey(span.Start, loc)
	if endDay := availability.DayKey(span.End.Add(-time.Nanosecond), loc); endDay != startDay {
		return []Issue{{BlockID: id, Code: CodeCrossesMidnight,
			Message: fmt.Sprintf("block runs from %s into %s", startDay, endDay)}}, true
	}

	w, open := availability.ResolveWindow(span.Start.In(loc), hours, false)
	if !open {
		return []Issue{{BlockID: id, Code: CodeNoWorkingWindow,
			Message: fmt.Sprintf("no working hours on %s", span.Start.In(loc).Weekday())}}, false
	}
	var out []Issue
	if span.Start.Before(w.Start) {
		out = append(out, Issue{BlockID: id, Code: CodeBeforeWindowStart,
			Message: fmt.Sprintf("starts before wake time %s", w.Start.In(loc).Format("15:04"))})
	}
	if span.End.After(w.End) {
		out = append(out, Issue{BlockID: id, Code: CodeAfterWindowEnd,
			Message: fmt.Sprintf("ends after sleep time %s", w.End.In(loc).Format("15:04"))})
	}
	return out, false
}

// SortFixed orders fixed events by start so reported conflicts are stable.
func SortFixed(events []FixedEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].Start.Equal(events[j].Start) {
			return events[i].Start.Before(events[j].Start)
		}
		return events[i].ID < events[j].ID
	})
}
