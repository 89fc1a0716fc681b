package availability

import (
	"context"
	"errors"
	"log"
	"time"

	"gorm.io/gorm"

	"planner/internal/calendar"
	"planner/internal/domain"
	"planner/internal/pkg/interval"
)

// MaxQueryRange bounds a single availability query.
const MaxQueryRange = 62 * 24 * time.Hour

type Service struct {
	configs  ConfigurationReader
	prefs    PreferencesReader
	bookings BookingReader
	items    BlockingItemReader
	calendar Gateway
	now      func() time.Time
}

func NewService(
	configs ConfigurationReader,
	prefs PreferencesReader,
	bookings BookingReader,
	items BlockingItemReader,
	gateway Gateway,
	now func() time.Time,
) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		configs:  configs,
		prefs:    prefs,
		bookings: bookings,
		items:    items,
		calendar: gateway,
		now:      now,
	}
}

type Query struct {
	LinkID string
	From   time.Time
	To     time.Time
}

type DurationSlots struct {
	DurationMinutes int    `json:"duration_minutes"`
	Slots           []Slot `json:"slots"`
}

type Result struct {
	LinkID   string          `json:"link_id"`
	TimeZone string          `json:"time_zone"`
	From     time.Time       `json:"from"`
	To       time.Time       `json:"to"`
	Slots    []DurationSlots `json:"durations"`
	// CalendarDegraded is set when the external calendar could not be read
	// and slots were computed from local data only.
	CalendarDegraded bool `json:"calendar_degraded"`
}

type LinkInfo struct {
	LinkID      string `json:"link_id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Durations   []int  `json:"durations"`
	TimeZone    string `json:"time_zone"`
	HorizonDays int    `json:"horizon_days"`
}

// Describe returns the public view of an active link.
func (s *Service) Describe(ctx context.Context, linkID string) (*LinkInfo, error) {
	cfg, err := s.activeConfiguration(ctx, linkID)
	if err != nil {
		return nil, err
	}
	hours, err := LoadHours(ctx, s.prefs, cfg.OwnerID)
	if err != nil {
		return nil, err
	}
	durations, err := cfg.Durations()
	if err != nil {
		return nil, err
	}
	return &LinkInfo{
		LinkID:      cfg.LinkID,
		Title:       cfg.Title,
		Description: cfg.Description,
		Durations:   durations,
		TimeZone:    hours.Location.String(),
		HorizonDays: cfg.HorizonDays,
	}, nil
}

// Availability answers a public availability query with meeting-mode hours.
func (s *Service) Availability(ctx context.Context, q Query) (*Result, error) {
	if !q.From.Before(q.To) {
		return nil, ErrInvalidRange
	}
	if q.To.Sub(q.From) > MaxQueryRange {
		return nil, ErrRangeTooLong
	}

	cfg, err := s.activeConfiguration(ctx, q.LinkID)
	if err != nil {
		return nil, err
	}
	hours, err := LoadHours(ctx, s.prefs, cfg.OwnerID)
	if err != nil {
		return nil, err
	}
	durations, err := cfg.Durations()
	if err != nil {
		return nil, err
	}

	now := s.now()
	from, to := q.From, q.To
	if from.Before(now) {
		from = now
	}
	// Slots past the booking horizon would be rejected at commit time.
	if end := HorizonEnd(now, cfg.HorizonDays, hours.Location); !end.IsZero() && end.Before(to) {
		to = end
	}

	res := &Result{
		LinkID:   cfg.LinkID,
		TimeZone: hours.Location.String(),
		From:     from,
		To:       to,
		Slots:    make([]DurationSlots, 0, len(durations)),
	}
	if !from.Before(to) {
		for _, d := range durations {
			res.Slots = append(res.Slots, DurationSlots{DurationMinutes: d, Slots: []Slot{}})
		}
		return res, nil
	}

	busy, booked, degraded, err := s.gatherBusy(ctx, cfg, hours, from, to)
	if err != nil {
		return nil, err
	}
	res.CalendarDegraded = degraded

	slots := BuildSlots(SlotParams{
		From:         from,
		To:           to,
		Durations:    durations,
		BufferBefore: cfg.BufferBeforeMinutes,
		BufferAfter:  cfg.BufferAfterMinutes,
		Busy:         busy,
		Hours:        hours,
		Meeting:      true,
		HorizonDays:  cfg.HorizonDays,
		DailyCap:     cfg.DailyCap,
		Booked:       booked,
	})

	byDuration := make(map[int][]Slot, len(durations))
	for _, sl := range slots {
		byDuration[sl.DurationMinutes] = append(byDuration[sl.DurationMinutes], sl)
	}
	for _, d := range durations {
		list := byDuration[d]
		if list == nil {
			list = []Slot{}
		}
		res.Slots = append(res.Slots, DurationSlots{DurationMinutes: d, Slots: list})
	}
	return res, nil
}

// gatherBusy collects everything that blocks time in [from, to): opaque
// calendar busy, active bookings and blocking schedule items. booked counts
// active bookings per local day of the covered days.
func (s *Service) gatherBusy(
	ctx context.Context,
	cfg *domain.SchedulingConfiguration,
	hours domain.WorkingHours,
	from, to time.Time,
) (busy []interval.Interval, booked map[string]int, degraded bool, err error) {
	loc := hours.Location
	// Busy time reaches into the query only through its buffers, and
	// bookings anywhere on a covered day count toward the cap.
	lo := DayStart(from, loc).Add(-time.Duration(cfg.BufferAfterMinutes) * time.Minute)
	hi := DayStart(to, loc).AddDate(0, 0, 1).Add(time.Duration(cfg.BufferBeforeMinutes) * time.Minute)

	ext, calErr := s.calendar.BusyIntervals(ctx, calendar.TargetFor(cfg, loc), lo, hi)
	if calErr != nil {
		log.Printf("availability_calendar_error link=%s provider=%s err=%v", cfg.LinkID, cfg.CalendarProvider, calErr)
		degraded = true
	} else {
		busy = append(busy, calendar.OpaqueOnly(ext)...)
	}

	existing, err := s.bookings.ListActiveOverlapping(ctx, cfg.ID, lo, hi, 0)
	if err != nil {
		return nil, nil, false, err
	}
	booked = make(map[string]int)
	for _, b := range existing {
		busy = append(busy, interval.Interval{Start: b.StartTime, End: b.EndTime})
		booked[DayKey(b.StartTime, loc)]++
	}

	items, err := s.items.ListBlocking(ctx, cfg.OwnerID, lo, hi)
	if err != nil {
		return nil, nil, false, err
	}
	for _, it := range items {
		busy = append(busy, interval.Interval{Start: it.StartTime, End: it.EndTime})
	}
	return busy, booked, degraded, nil
}

func (s *Service) activeConfiguration(ctx context.Context, linkID string) (*domain.SchedulingConfiguration, error) {
	cfg, err := s.configs.GetByLinkID(ctx, linkID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLinkNotFound
		}
		return nil, err
	}
	if !cfg.Active {
		return nil, ErrSchedulingPaused
	}
	return cfg, nil
}
