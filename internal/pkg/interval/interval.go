// Package interval holds the half-open time interval arithmetic used by
// availability and booking: overlap tests, buffering and subtraction of busy
// time from free blocks.
package interval

import (
	"sort"
	"time"
)

// Interval is the half-open range [Start, End).
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (i Interval) Empty() bool {
	return !i.End.After(i.Start)
}

func (i Interval) Duration() time.Duration {
	if i.Empty() {
		return 0
	}
	return i.End.Sub(i.Start)
}

func (i Interval) Overlaps(o Interval) bool {
	return Overlaps(i.Start, i.End, o.Start, o.End)
}

// Contains reports whether o lies entirely inside i.
func (i Interval) Contains(o Interval) bool {
	return !o.Start.Before(i.Start) && !o.End.After(i.End)
}

// Overlaps is true iff aStart < bEnd && aEnd > bStart. Touching edges do not
// overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// Buffer widens [start, end) by beforeMinutes on the left and afterMinutes on
// the right. Negative values are treated as zero.
func Buffer(start, end time.Time, beforeMinutes, afterMinutes int) (time.Time, time.Time) {
	if beforeMinutes < 0 {
		beforeMinutes = 0
	}
	if afterMinutes < 0 {
		afterMinutes = 0
	}
	return start.Add(-time.Duration(beforeMinutes) * time.Minute),
		end.Add(time.Duration(afterMinutes) * time.Minute)
}

// BufferAll applies Buffer to every interval and returns a new slice.
func BufferAll(in []Interval, beforeMinutes, afterMinutes int) []Interval {
	out := make([]Interval, 0, len(in))
	for _, b := range in {
		s, e := Buffer(b.Start, b.End, beforeMinutes, afterMinutes)
		out = append(out, Interval{Start: s, End: e})
	}
	return out
}

// SubtractBusy removes every busy interval from the free blocks. Each busy
// interval splits the blocks it touches into zero, one or two remainders.
// The result does not depend on the order of busy and is sorted by start.
func SubtractBusy(free []Interval, busy []Interval) []Interval {
	out := make([]Interval, 0, len(free))
	for _, f := range free {
		if !f.Empty() {
			out = append(out, f)
		}
	}

	for _, b := range busy {
		if b.Empty() {
			continue
		}
		next := make([]Interval, 0, len(out)+1)
		for _, f := range out {
			if !f.Overlaps(b) {
				next = append(next, f)
				continue
			}
			if f.Start.Before(b.Start) {
				next = append(next, Interval{Start: f.Start, End: b.Start})
			}
			if f.End.After(b.End) {
				next = append(next, Interval{Start: b.End, End: f.End})
			}
		}
		out = next
	}

	SortByStart(out)
	return out
}

// SortByStart sorts in place by start, then by end.
func SortByStart(in []Interval) {
	sort.SliceStable(in, func(i, j int) bool {
		if in[i].Start.Equal(in[j].Start) {
			return in[i].End.Before(in[j].End)
		}
		return in[i].Start.Before(in[j].Start)
	})
}

// AnyOverlap reports whether candidate overlaps at least one of others.
func AnyOverlap(candidate Interval, others []Interval) bool {
	for _, o := range others {
		if candidate.Overlaps(o) {
			return true
		}
	}
	return false
}
