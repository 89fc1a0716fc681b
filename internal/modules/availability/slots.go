package availability

import (
	"sort"
	"time"

	"planner/internal/domain"
	"planner/internal/pkg/interval"
)

// SlotStep is the grid slot starts are aligned to.
const SlotStep = 15 * time.Minute

type Slot struct {
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	DurationMinutes int       `json:"duration_minutes"`
}

// SlotParams is the input of BuildSlots. Busy must already exclude
// transparent intervals.
type SlotParams struct {
	From         time.Time
	To           time.Time
	Durations    []int
	BufferBefore int
	BufferAfter  int
	Busy         []interval.Interval
	Hours        domain.WorkingHours
	Meeting      bool
	HorizonDays  int
	DailyCap     int
	// Booked counts existing bookings per DayKey; they use up the daily cap.
	Booked map[string]int
}

// BuildSlots generates bookable slots in [From, To), ordered by duration
// and then by start. Slots of one duration may overlap each other.
func BuildSlots(p SlotParams) []Slot {
	loc := p.Hours.Location
	if loc == nil {
		loc = time.UTC
	}

	to := p.To
	if end := HorizonEnd(p.From, p.HorizonDays, loc); !end.IsZero() && end.Before(to) {
		to = end
	}
	if !p.From.Before(to) {
		return []Slot{}
	}
	query := interval.Interval{Start: p.From, End: to}
	busy := interval.BufferAll(p.Busy, p.BufferBefore, p.BufferAfter)

	var free []interval.Interval
	for day := DayStart(p.From, loc); day.Before(to); day = day.AddDate(0, 0, 1) {
		w, ok := ResolveWindow(day, p.Hours, p.Meeting)
		if !ok {
			continue
		}
		w = clip(w, query)
		if w.Empty() {
			continue
		}
		free = append(free, interval.SubtractBusy([]interval.Interval{w}, busy)...)
	}

	durations := append([]int(nil), p.Durations...)
	sort.Ints(durations)

	out := []Slot{}
	for _, d := range durations {
		if d <= 0 {
			continue
		}
		length := time.Duration(d) * time.Minute
		var slots []Slot
		for _, block := range free {
			for s := alignUp(block.Start); !s.Add(length).After(block.End); s = s.Add(SlotStep) {
				slots = append(slots, Slot{Start: s, End: s.Add(length), DurationMinutes: d})
			}
		}
		sort.SliceStable(slots, func(i, j int) bool { return slots[i].Start.Before(slots[j].Start) })
		if p.DailyCap > 0 {
			slots = capPerDay(slots, p.DailyCap, p.Booked, loc)
		}
		out = append(out, slots...)
	}
	return out
}

func capPerDay(slots []Slot, limit int, booked map[string]int, loc *time.Location) []Slot {
	kept := make(map[string]int)
	out := slots[:0]
	for _, s := range slots {
		key := DayKey(s.Start, loc)
		if booked[key]+kept[key] >= limit {
			continue
		}
		kept[key]++
		out = append(out, s)
	}
	return out
}

// alignUp rounds t up to the next grid boundary. It never rounds down.
func alignUp(t time.Time) time.Time {
	a := t.Truncate(SlotStep)
	if a.Before(t) {
		a = a.Add(SlotStep)
	}
	return a
}

func clip(w, bounds interval.Interval) interval.Interval {
	if w.Start.Before(bounds.Start) {
		w.Start = bounds.Start
	}
	if w.End.After(bounds.End) {
		w.End = bounds.End
	}
	return w
}
