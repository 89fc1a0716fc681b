package calendar

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	"planner/internal/domain"
)

const maxOccurrencesPerEvent = 5000

// SourceLookup resolves an ICS source id to its feed URL.
type SourceLookup interface {
	Lookup(id string) (string, bool)
}

// ICSProvider reads busy time from subscribed ICS feeds. It cannot write.
// The calendar id is either a source id from the sources file or a literal
// http(s) URL.
type ICSProvider struct {
	client  *http.Client
	sources SourceLookup
}

func NewICSProvider(client *http.Client, sources SourceLookup) *ICSProvider {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &ICSProvider{client: client, sources: sources}
}

func (p *ICSProvider) feedURL(calendarID string) (string, error) {
	if p.sources != nil {
		if u, ok := p.sources.Lookup(calendarID); ok {
			return u, nil
		}
	}
	if strings.HasPrefix(calendarID, "https://") || strings.HasPrefix(calendarID, "http://") {
		return calendarID, nil
	}
	return "", fmt.Errorf("ics source %q is not configured", calendarID)
}

func (p *ICSProvider) BusyIntervals(ctx context.Context, t Target, from, to time.Time) ([]domain.BusyInterval, error) {
	feed, err := p.feedURL(t.CalendarID)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feed, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/calendar")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ics fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ics fetch: %s", resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, err
	}
	return ParseBusy(body, from, to, t.location())
}

func (p *ICSProvider) CreateEvent(context.Context, Target, Event) (Created, error) {
	return Created{}, ErrReadOnly
}

func (p *ICSProvider) UpdateEvent(context.Context, Target, string, Event) error {
	return ErrReadOnly
}

func (p *ICSProvider) CancelEvent(context.Context, Target, string) error {
	return ErrReadOnly
}

type icsEvent struct {
	uid         string
	start, end  time.Time
	allDay      bool
	transparent bool
	rrule       string
	exdates     []time.Time
	recurrence  *time.Time
}

// ParseBusy turns an ICS payload into busy intervals overlapping [from, to).
// Recurring events are expanded, cancelled events dropped, and all-day
// events cover whole days in loc.
func ParseBusy(body []byte, from, to time.Time, loc *time.Location) ([]domain.BusyInterval, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}
	if loc == nil {
		loc = time.UTC
	}
	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var events []icsEvent
	moved := make(map[string][]time.Time)
	for _, ve := range cal.Events() {
		ev, ok := parseEvent(ve, loc)
		if !ok {
			continue
		}
		if ev.recurrence != nil {
			moved[ev.uid] = append(moved[ev.uid], *ev.recurrence)
		}
		events = append(events, ev)
	}

	var out []domain.BusyInterval
	for _, ev := range events {
		for _, occ := range expand(ev, moved[ev.uid], from, to) {
			if occ.End.After(occ.Start) && occ.Start.Before(to) && occ.End.After(from) {
				out = append(out, occ)
			}
		}
	}
	return out, nil
}

func parseEvent(ve *ical.VEvent, loc *time.Location) (icsEvent, bool) {
	var ev icsEvent
	if p := ve.GetProperty(ical.ComponentPropertyStatus); p != nil && strings.EqualFold(p.Value, string(ical.ObjectStatusCancelled)) {
		return ev, false
	}
	if p := ve.GetProperty(ical.ComponentPropertyUniqueId); p != nil {
		ev.uid = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyTransp); p != nil && strings.EqualFold(p.Value, string(ical.TransparencyTransparent)) {
		ev.transparent = true
	}

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil {
		return ev, false
	}
	ev.allDay = !strings.Contains(dtStart.Value, "T")
	if vs, ok := dtStart.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		ev.allDay = true
	}

	if ev.allDay {
		day, err := parseICSTime(dateOnly(dtStart.Value), loc)
		if err != nil {
			return ev, false
		}
		ev.start = day
		ev.end = day.AddDate(0, 0, 1)
		if dtEnd := ve.GetProperty(ical.ComponentPropertyDtEnd); dtEnd != nil {
			if end, err := parseICSTime(dateOnly(dtEnd.Value), loc); err == nil && end.After(day) {
				ev.end = end
			}
		} else if p := ve.GetProperty(ical.ComponentPropertyDuration); p != nil {
			if d, err := parseICSDuration(p.Value); err == nil && d >= 24*time.Hour {
				ev.end = day.AddDate(0, 0, int(d/(24*time.Hour)))
			}
		}
	} else {
		start, err := propTime(dtStart, loc)
		if err != nil {
			return ev, false
		}
		end := start
		if dtEnd := ve.GetProperty(ical.ComponentPropertyDtEnd); dtEnd != nil {
			if end, err = propTime(dtEnd, loc); err != nil || end.Before(start) {
				return ev, false
			}
		} else if p := ve.GetProperty(ical.ComponentPropertyDuration); p != nil {
			d, err := parseICSDuration(p.Value)
			if err != nil || d < 0 {
				return ev, false
			}
			end = start.Add(d)
		}
		ev.start, ev.end = start, end
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		ev.rrule = p.Value
	}
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			if t, err := parseICSTime(part, ev.start.Location()); err == nil {
				ev.exdates = append(ev.exdates, t)
			}
		}
	}
	if p := ve.GetProperty("RECURRENCE-ID"); p != nil {
		if t, err := propTime(p, ev.start.Location()); err == nil {
			ev.recurrence = &t
		}
	}
	return ev, true
}

var errBadDuration = errors.New("invalid ics duration")

// parseICSDuration reads an RFC 5545 DURATION value such as PT1H30M, P1D or
// -PT15M. Days and weeks are nominal 24h units.
func parseICSDuration(v string) (time.Duration, error) {
	v = strings.ToUpper(strings.TrimSpace(v))
	sign := time.Duration(1)
	switch {
	case strings.HasPrefix(v, "-"):
		sign, v = -1, v[1:]
	case strings.HasPrefix(v, "+"):
		v = v[1:]
	}
	if !strings.HasPrefix(v, "P") || len(v) < 3 {
		return 0, fmt.Errorf("%w: %q", errBadDuration, v)
	}

	var total time.Duration
	inTime := false
	num := -1
	for _, r := range v[1:] {
		switch {
		case r >= '0' && r <= '9':
			if num < 0 {
				num = 0
			}
			num = num*10 + int(r-'0')
			continue
		case r == 'T':
			if inTime || num >= 0 {
				return 0, fmt.Errorf("%w: %q", errBadDuration, v)
			}
			inTime = true
			continue
		}
		if num < 0 {
			return 0, fmt.Errorf("%w: %q", errBadDuration, v)
		}
		n := time.Duration(num)
		switch {
		case r == 'W' && !inTime:
			total += n * 7 * 24 * time.Hour
		case r == 'D' && !inTime:
			total += n * 24 * time.Hour
		case r == 'H' && inTime:
			total += n * time.Hour
		case r == 'M' && inTime:
			total += n * time.Minute
		case r == 'S' && inTime:
			total += n * time.Second
		default:
			return 0, fmt.Errorf("%w: %q", errBadDuration, v)
		}
		num = -1
	}
	if num >= 0 {
		return 0, fmt.Errorf("%w: %q", errBadDuration, v)
	}
	return sign * total, nil
}

func expand(ev icsEvent, moved []time.Time, from, to time.Time) []domain.BusyInterval {
	transp := domain.TransparencyOpaque
	if ev.transparent {
		transp = domain.TransparencyTransparent
	}
	mk := func(s, e time.Time) domain.BusyInterval {
		return domain.BusyInterval{Start: s, End: e, Transparency: transp, Source: ev.uid}
	}

	if ev.rrule == "" || ev.recurrence != nil {
		return []domain.BusyInterval{mk(ev.start, ev.end)}
	}

	r, err := rrule.StrToRRule(ev.rrule)
	if err != nil {
		return []domain.BusyInterval{mk(ev.start, ev.end)}
	}
	r.DTStart(ev.start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.exdates {
		set.ExDate(ex.In(ev.start.Location()))
	}
	for _, m := range moved {
		set.ExDate(m.In(ev.start.Location()))
	}

	dur := ev.end.Sub(ev.start)
	days := int(math.Round(dur.Hours() / 24))
	starts := set.Between(from.Add(-dur).In(ev.start.Location()), to.In(ev.start.Location()), true)
	if len(starts) > maxOccurrencesPerEvent {
		starts = starts[:maxOccurrencesPerEvent]
	}
	out := make([]domain.BusyInterval, 0, len(starts))
	for _, s := range starts {
		if ev.allDay {
			day := time.Date(s.Year(), s.Month(), s.Day(), 0, 0, 0, 0, s.Location())
			out = append(out, mk(day, day.AddDate(0, 0, days)))
			continue
		}
		out = append(out, mk(s, s.Add(dur)))
	}
	return out
}

// parseICSTime handles the UTC, floating and date-only forms used by EXDATE
// and RECURRENCE-ID.
func parseICSTime(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	switch {
	case v == "":
		return time.Time{}, errors.New("empty time value")
	case strings.HasSuffix(v, "Z"):
		return time.Parse("20060102T150405Z", v)
	case strings.Contains(v, "T"):
		return time.ParseInLocation("20060102T150405", v, loc)
	default:
		return time.ParseInLocation("20060102", v, loc)
	}
}

// propTime reads a DATE-TIME property, honoring TZID. Floating times are
// read in loc.
func propTime(p *ical.IANAProperty, loc *time.Location) (time.Time, error) {
	if tz, ok := p.ICalParameters["TZID"]; ok && len(tz) == 1 {
		l, err := time.LoadLocation(tz[0])
		if err != nil {
			return time.Time{}, err
		}
		loc = l
	}
	return parseICSTime(p.Value, loc)
}

func dateOnly(v string) string {
	v = strings.TrimSpace(v)
	if len(v) > 8 {
		return v[:8]
	}
	return v
}
