package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"planner/internal/domain"
)

// MaxListRange bounds the from/to window of list endpoints.
const MaxListRange = 92 * 24 * time.Hour

type Service struct {
	configs   ConfigurationRepository
	prefs     PreferencesRepository
	items     ScheduleItemRepository
	bookings  BookingLister
	providers ProviderChecker
	newLinkID func() string
}

func NewService(
	configs ConfigurationRepository,
	prefs PreferencesRepository,
	items ScheduleItemRepository,
	bookings BookingLister,
	providers ProviderChecker,
) *Service {
	return &Service{
		configs:   configs,
		prefs:     prefs,
		items:     items,
		bookings:  bookings,
		providers: providers,
		newLinkID: uuid.NewString,
	}
}

// ==================== Configurations ====================

func (s *Service) ListConfigurations(ctx context.Context, ownerID int64) ([]domain.SchedulingConfiguration, error) {
	return s.configs.ListByOwner(ctx, ownerID)
}

// CreateConfiguration issues a fresh public link id.
func (s *Service) CreateConfiguration(ctx context.Context, ownerID int64, req ConfigurationRequest) (*domain.SchedulingConfiguration, error) {
	c := &domain.SchedulingConfiguration{
		OwnerID: ownerID,
		LinkID:  s.newLinkID(),
		Active:  true,
	}
	if err := s.apply(c, req); err != nil {
		return nil, err
	}
	if err := s.configs.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateConfiguration replaces the mutable fields; ID, owner and link id
// stay as they are.
func (s *Service) UpdateConfiguration(ctx context.Context, ownerID, id int64, req ConfigurationRequest) (*domain.SchedulingConfiguration, error) {
	c, err := s.ownedConfiguration(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(c, req); err != nil {
		return nil, err
	}
	if err := s.configs.Update(ctx, c); err != nil {
		return nil, err
	}
	return s.configs.GetByID(ctx, id)
}

func (s *Service) apply(c *domain.SchedulingConfiguration, req ConfigurationRequest) error {
	provider := strings.ToLower(strings.TrimSpace(req.CalendarProvider))
	if provider == "" {
		provider = domain.CalendarProviderNone
	}
	if s.providers != nil && !s.providers.Has(provider) {
		return fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}
	if err := c.SetDurations(req.DurationOptions); err != nil {
		return err
	}
	if ds, _ := c.Durations(); len(ds) == 0 {
		return ErrInvalidDurations
	}

	c.Title = strings.TrimSpace(req.Title)
	c.Description = strings.TrimSpace(req.Description)
	c.BufferBeforeMinutes = req.BufferBeforeMinutes
	c.BufferAfterMinutes = req.BufferAfterMinutes
	c.HorizonDays = req.HorizonDays
	c.DailyCap = req.DailyCap
	c.CalendarProvider = provider
	c.CalendarID = strings.TrimSpace(req.CalendarID)
	if req.Active != nil {
		c.Active = *req.Active
	}
	return nil
}

func (s *Service) ownedConfiguration(ctx context.Context, ownerID, id int64) (*domain.SchedulingConfiguration, error) {
	c, err := s.configs.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if c.OwnerID != ownerID {
		return nil, ErrForbidden
	}
	return c, nil
}

// ListBookings is the owner's audit view of one link; cancelled bookings
// are included.
func (s *Service) ListBookings(ctx context.Context, ownerID, configID int64, from, to time.Time) ([]domain.Booking, error) {
	if err := checkRange(from, to); err != nil {
		return nil, err
	}
	if _, err := s.ownedConfiguration(ctx, ownerID, configID); err != nil {
		return nil, err
	}
	return s.bookings.ListByConfiguration(ctx, configID, from, to)
}

// ==================== Preferences ====================

func (s *Service) GetPreferences(ctx context.Context, ownerID int64) (PreferencesView, error) {
	p, err := s.prefs.GetByOwner(ctx, ownerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return PreferencesView{
				TimeZone:            domain.DefaultTimeZone,
				WakeTime:            domain.DefaultWakeTime,
				SleepTime:           domain.DefaultSleepTime,
				DayOverrides:        map[string]HoursInput{},
				BlockedDays:         []string{},
				MeetingDayOverrides: map[string]HoursInput{},
			}, nil
		}
		return PreferencesView{}, err
	}
	return preferencesView(p)
}

func (s *Service) PutPreferences(ctx context.Context, ownerID int64, req PreferencesRequest) (PreferencesView, error) {
	p := &domain.WorkingPreferences{
		OwnerID:   ownerID,
		TimeZone:  strings.TrimSpace(req.TimeZone),
		WakeTime:  strings.TrimSpace(req.WakeTime),
		SleepTime: strings.TrimSpace(req.SleepTime),
	}

	var err error
	if p.DayOverrides, err = encodeDayMap(req.DayOverrides); err != nil {
		return PreferencesView{}, err
	}
	if p.MeetingDayOverrides, err = encodeDayMap(req.MeetingDayOverrides); err != nil {
		return PreferencesView{}, err
	}
	if p.BlockedDays, err = encodeBlocked(req.BlockedDays); err != nil {
		return PreferencesView{}, err
	}
	if req.MeetingHours != nil {
		if p.MeetingHours, err = encode(domain.HoursJSON(*req.MeetingHours)); err != nil {
			return PreferencesView{}, err
		}
	}

	wh, err := p.Hours()
	if err != nil {
		return PreferencesView{}, fmt.Errorf("%w: %v", ErrInvalidHours, err)
	}
	if wh.Default.End <= wh.Default.Start {
		return PreferencesView{}, fmt.Errorf("%w: sleep time must be after wake time", ErrInvalidHours)
	}

	if err := s.prefs.Upsert(ctx, p); err != nil {
		return PreferencesView{}, err
	}
	return preferencesView(p)
}

func preferencesView(p *domain.WorkingPreferences) (PreferencesView, error) {
	v := PreferencesView{
		TimeZone:  p.TimeZone,
		WakeTime:  p.WakeTime,
		SleepTime: p.SleepTime,
		Saved:     true,
	}
	var err error
	if v.DayOverrides, err = decodeDayMap(p.DayOverrides); err != nil {
		return v, err
	}
	if v.MeetingDayOverrides, err = decodeDayMap(p.MeetingDayOverrides); err != nil {
		return v, err
	}
	v.BlockedDays = []string{}
	if len(p.BlockedDays) > 0 && string(p.BlockedDays) != "null" {
		if err := json.Unmarshal(p.BlockedDays, &v.BlockedDays); err != nil {
			return v, err
		}
	}
	if len(p.MeetingHours) > 0 && string(p.MeetingHours) != "null" {
		var h domain.HoursJSON
		if err := json.Unmarshal(p.MeetingHours, &h); err != nil {
			return v, err
		}
		mh := HoursInput(h)
		v.MeetingHours = &mh
	}
	return v, nil
}

func encodeDayMap(in map[string]HoursInput) (datatypes.JSON, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make(map[string]domain.HoursJSON, len(in))
	for k, v := range in {
		wd, err := domain.ParseWeekday(k)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidHours, err)
		}
		out[domain.WeekdayKey(wd)] = domain.HoursJSON(v)
	}
	return encode(out)
}

func encodeBlocked(days []string) (datatypes.JSON, error) {
	if len(days) == 0 {
		return nil, nil
	}
	seen := make(map[string]bool, len(days))
	out := make([]string, 0, len(days))
	for _, d := range days {
		wd, err := domain.ParseWeekday(d)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidHours, err)
		}
		if key := domain.WeekdayKey(wd); !seen[key] {
			seen[key] = true
			out = append(out, key)
		}
	}
	sort.Strings(out)
	return encode(out)
}

func decodeDayMap(raw datatypes.JSON) (map[string]HoursInput, error) {
	out := map[string]HoursInput{}
	if len(raw) == 0 || string(raw) == "null" {
		return out, nil
	}
	var m map[string]domain.HoursJSON
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	for k, v := range m {
		out[k] = HoursInput(v)
	}
	return out, nil
}

func encode(v any) (datatypes.JSON, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

// ==================== Schedule items ====================

func (s *Service) ListItems(ctx context.Context, ownerID int64, from, to time.Time) ([]domain.ScheduleItem, error) {
	if err := checkRange(from, to); err != nil {
		return nil, err
	}
	return s.items.ListInRange(ctx, ownerID, from, to)
}

// CreateItem stores a task, fixed event or habit. Events block bookings
// unless told otherwise; tasks and habits do not.
func (s *Service) CreateItem(ctx context.Context, ownerID int64, req ScheduleItemRequest) (*domain.ScheduleItem, error) {
	if !req.Start.Before(req.End) {
		return nil, ErrInvalidRange
	}
	blocking := req.Kind == domain.ScheduleItemEvent
	if req.Blocking != nil {
		blocking = *req.Blocking
	}
	it := &domain.ScheduleItem{
		OwnerID:   ownerID,
		Kind:      req.Kind,
		Title:     strings.TrimSpace(req.Title),
		StartTime: req.Start,
		EndTime:   req.End,
		Blocking:  blocking,
	}
	if err := s.items.Create(ctx, it); err != nil {
		return nil, err
	}
	return it, nil
}

func (s *Service) DeleteItem(ctx context.Context, ownerID, id int64) error {
	deleted, err := s.items.Delete(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFound
	}
	return nil
}

func checkRange(from, to time.Time) error {
	if !from.Before(to) || to.Sub(from) > MaxListRange {
		return ErrInvalidRange
	}
	return nil
}
