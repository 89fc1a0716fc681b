// Package calendar is the boundary to external calendars: busy-time reads and
// event writes for bookings.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"planner/internal/domain"
	"planner/internal/pkg/interval"
)

var (
	// ErrReadOnly marks providers that cannot write events. Callers report
	// the side effect as skipped.
	ErrReadOnly        = errors.New("calendar provider is read-only")
	ErrUnknownProvider = errors.New("unknown calendar provider")
	// ErrGoogleTruncated means the listing had more pages than the provider
	// reads; the partial result is discarded.
	ErrGoogleTruncated = errors.New("google calendar listing truncated")
)

// Target addresses one calendar of one owner. Location is the owner's zone
// and anchors all-day events; nil means UTC.
type Target struct {
	Provider   string
	OwnerID    int64
	CalendarID string
	Location   *time.Location
}

func TargetFor(cfg *domain.SchedulingConfiguration, loc *time.Location) Target {
	return Target{
		Provider:   cfg.CalendarProvider,
		OwnerID:    cfg.OwnerID,
		CalendarID: cfg.CalendarID,
		Location:   loc,
	}
}

func (t Target) location() *time.Location {
	if t.Location == nil {
		return time.UTC
	}
	return t.Location
}

// Event is what a booking looks like on the owner's calendar.
type Event struct {
	Title         string
	Description   string
	Start         time.Time
	End           time.Time
	TimeZone      string
	AttendeeName  string
	AttendeeEmail string
	// Conference asks the provider to attach a video meeting when it can.
	Conference bool
}

type Created struct {
	ExternalID     string
	ConferenceLink string
}

// Provider is implemented by each calendar backend.
type Provider interface {
	BusyIntervals(ctx context.Context, t Target, from, to time.Time) ([]domain.BusyInterval, error)
	CreateEvent(ctx context.Context, t Target, ev Event) (Created, error)
	UpdateEvent(ctx context.Context, t Target, externalID string, ev Event) error
	CancelEvent(ctx context.Context, t Target, externalID string) error
}

// Registry dispatches on Target.Provider. It is the Gateway the engine
// talks to.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

func NewRegistry() *Registry {
	r := &Registry{providers: make(map[string]Provider)}
	r.Register(domain.CalendarProviderNone, NoneProvider{})
	return r
}

func (r *Registry) Register(name string, p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = p
}

func (r *Registry) Has(name string) bool {
	_, err := r.provider(name)
	return err == nil
}

func (r *Registry) provider(name string) (Provider, error) {
	if name == "" {
		name = domain.CalendarProviderNone
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	return p, nil
}

func (r *Registry) BusyIntervals(ctx context.Context, t Target, from, to time.Time) ([]domain.BusyInterval, error) {
	p, err := r.provider(t.Provider)
	if err != nil {
		return nil, err
	}
	return p.BusyIntervals(ctx, t, from, to)
}

func (r *Registry) CreateEvent(ctx context.Context, t Target, ev Event) (Created, error) {
	p, err := r.provider(t.Provider)
	if err != nil {
		return Created{}, err
	}
	return p.CreateEvent(ctx, t, ev)
}

func (r *Registry) UpdateEvent(ctx context.Context, t Target, externalID string, ev Event) error {
	p, err := r.provider(t.Provider)
	if err != nil {
		return err
	}
	return p.UpdateEvent(ctx, t, externalID, ev)
}

func (r *Registry) CancelEvent(ctx context.Context, t Target, externalID string) error {
	p, err := r.provider(t.Provider)
	if err != nil {
		return err
	}
	return p.CancelEvent(ctx, t, externalID)
}

// OpaqueOnly drops transparent intervals and returns the rest as plain
// intervals.
func OpaqueOnly(in []domain.BusyInterval) []interval.Interval {
	out := make([]interval.Interval, 0, len(in))
	for _, b := range in {
		if !b.Blocking() || !b.End.After(b.Start) {
			continue
		}
		out = append(out, interval.Interval{Start: b.Start, End: b.End})
	}
	return out
}

// NoneProvider is used by configurations without a connected calendar.
type NoneProvider struct{}

func (NoneProvider) BusyIntervals(context.Context, Target, time.Time, time.Time) ([]domain.BusyInterval, error) {
	return nil, nil
}

func (NoneProvider) CreateEvent(context.Context, Target, Event) (Created, error) {
	return Created{}, ErrReadOnly
}

func (NoneProvider) UpdateEvent(context.Context, Target, string, Event) error {
	return ErrReadOnly
}

func (NoneProvider) CancelEvent(context.Context, Target, string) error {
	return ErrReadOnly
}
