package schedule

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"planner/internal/calendar"
	"planner/internal/domain"
	"planner/internal/modules/availability"
)

const MaxBlocks = 200

type ItemReader interface {
	ListInRange(ctx context.Context, ownerID int64, from, to time.Time) ([]domain.ScheduleItem, error)
	ListIDsByKind(ctx context.Context, ownerID int64, kind domain.ScheduleItemKind) ([]int64, error)
}

type ConfigurationLister interface {
	ListByOwner(ctx context.Context, ownerID int64) ([]domain.SchedulingConfiguration, error)
}

type Service struct {
	prefs    availability.PreferencesReader
	items    ItemReader
	configs  ConfigurationLister
	calendar availability.Gateway
}

func NewService(prefs availability.PreferencesReader, items ItemReader, configs ConfigurationLister, gateway availability.Gateway) *Service {
	return &Service{prefs: prefs, items: items, configs: configs, calendar: gateway}
}

type Request struct {
	Blocks     []Block
	Confidence string
}

type Result struct {
	Report
	Confidence       Confidence `json:"confidence"`
	FixedEvents      int        `json:"fixed_events"`
	CalendarDegraded bool       `json:"calendar_degraded"`
}

// Validate runs the batch against the owner's blocking events, the busy
// time of every calendar linked to the owner's configurations and the
// owner's task ids. Only a malformed request is an error; findings go into
// the report.
func (s *Service) Validate(ctx context.Context, ownerID int64, req Request) (*Result, error) {
	if len(req.Blocks) == 0 {
		return nil, ErrNoBlocks
	}
	if len(req.Blocks) > MaxBlocks {
		return nil, ErrTooManyBlocks
	}
	confidence, err := ParseConfidence(req.Confidence)
	if err != nil {
		return nil, err
	}

	hours, err := availability.LoadHours(ctx, s.prefs, ownerID)
	if err != nil {
		return nil, err
	}
	ids, err := s.items.ListIDsByKind(ctx, ownerID, domain.ScheduleItemTask)
	if err != nil {
		return nil, err
	}
	valid := make(map[int64]bool, len(ids))
	for _, id := range ids {
		valid[id] = true
	}

	res := &Result{}
	var fixed []FixedEvent
	if from, to, ok := span(req.Blocks); ok {
		fixed, res.CalendarDegraded, err = s.fixedEvents(ctx, ownerID, hours, from, to)
		if err != nil {
			return nil, err
		}
	}
	SortFixed(fixed)

	res.Report = Validate(req.Blocks, fixed, hours, valid)
	res.Confidence = res.Report.Adjust(confidence)
	res.FixedEvents = len(fixed)
	return res, nil
}

func (s *Service) fixedEvents(ctx context.Context, ownerID int64, hours domain.WorkingHours, from, to time.Time) ([]FixedEvent, bool, error) {
	items, err := s.items.ListInRange(ctx, ownerID, from, to)
	if err != nil {
		return nil, false, err
	}
	var out []FixedEvent
	for _, it := range items {
		if it.Kind != domain.ScheduleItemEvent || !it.Blocking {
			continue
		}
		out = append(out, FixedEvent{ID: fmt.Sprintf("item-%d", it.ID), Title: it.Title, Start: it.StartTime, End: it.EndTime})
	}

	configs, err := s.configs.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, false, err
	}
	degraded := false
	seen := make(map[string]bool)
	for i := range configs {
		cfg := &configs[i]
		if cfg.CalendarProvider == "" || cfg.CalendarProvider == domain.CalendarProviderNone {
			continue
		}
		key := cfg.CalendarProvider + "|" + cfg.CalendarID
		if seen[key] {
			continue
		}
		seen[key] = true

		busy, err := s.calendar.BusyIntervals(ctx, calendar.TargetFor(cfg, hours.Location), from, to)
		if err != nil {
			log.Printf("schedule_validate_calendar_error owner_id=%d provider=%s err=%v", ownerID, cfg.CalendarProvider, err)
			degraded = true
			continue
		}
		for n, iv := range calendar.OpaqueOnly(busy) {
			out = append(out, FixedEvent{
				ID:    fmt.Sprintf("%s-%d", cfg.CalendarProvider, n),
				Title: "Busy (" + cfg.CalendarProvider + " calendar)",
				Start: iv.Start,
				End:   iv.End,
			})
		}
	}
	return out, degraded, nil
}

// span is the hull of every parseable block.
func span(blocks []Block) (time.Time, time.Time, bool) {
	var from, to time.Time
	for _, b := range blocks {
		start, err1 := time.Parse(time.RFC3339, strings.TrimSpace(b.Start))
		end, err2 := time.Parse(time.RFC3339, strings.TrimSpace(b.End))
		if err1 != nil || err2 != nil || !start.Before(end) {
			continue
		}
		if from.IsZero() || start.Before(from) {
			from = start
		}
		if to.IsZero() || end.After(to) {
			to = end
		}
	}
	return from, to, !from.IsZero()
}
