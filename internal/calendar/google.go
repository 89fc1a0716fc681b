package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"planner/internal/domain"
)

const (
	defaultGoogleCalendarID = "primary"
	googleCalendarScope     = "https://www.googleapis.com/auth/calendar.events"
	googleMaxPages          = 20
)

// GoogleCredentials authorize a single Google account through a stored
// refresh token.
type GoogleCredentials struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	TokenURL     string
}

// GoogleProvider talks to the Google Calendar REST API v3. All owners share
// the configured account; the calendar id picks the calendar.
type GoogleProvider struct {
	client  *http.Client
	baseURL string
	newID   func() string
}

func NewGoogleProvider(ctx context.Context, creds GoogleCredentials, baseURL string) *GoogleProvider {
	conf := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: creds.TokenURL},
		Scopes:       []string{googleCalendarScope},
	}
	ts := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: creds.RefreshToken})
	client := oauth2.NewClient(ctx, ts)
	client.Timeout = 30 * time.Second
	return NewGoogleProviderWithClient(client, baseURL)
}

// NewGoogleProviderWithClient uses client as is; it must add authorization.
func NewGoogleProviderWithClient(client *http.Client, baseURL string) *GoogleProvider {
	return &GoogleProvider{client: client, baseURL: baseURL, newID: uuid.NewString}
}

type googleEventsResponse struct {
	Items         []googleEvent `json:"items"`
	NextPageToken string        `json:"nextPageToken"`
}

type googleEvent struct {
	ID           string         `json:"id,omitempty"`
	Status       string         `json:"status,omitempty"`
	Summary      string         `json:"summary,omitempty"`
	Description  string         `json:"description,omitempty"`
	Transparency string         `json:"transparency,omitempty"`
	Start        googleDateTime `json:"start"`
	End          googleDateTime `json:"end"`
	HangoutLink  string         `json:"hangoutLink,omitempty"`

	Attendees      []googleAttendee      `json:"attendees,omitempty"`
	ConferenceData *googleConferenceData `json:"conferenceData,omitempty"`
}

type googleDateTime struct {
	DateTime string `json:"dateTime,omitempty"`
	Date     string `json:"date,omitempty"`
	TimeZone string `json:"timeZone,omitempty"`
}

type googleAttendee struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName,omitempty"`
}

type googleConferenceData struct {
	CreateRequest *googleCreateRequest `json:"createRequest,omitempty"`
}

type googleCreateRequest struct {
	RequestID             string                `json:"requestId"`
	ConferenceSolutionKey googleConferenceSolKey `json:"conferenceSolutionKey"`
}

type googleConferenceSolKey struct {
	Type string `json:"type"`
}

func (p *GoogleProvider) eventsURL(calendarID string) string {
	if calendarID == "" {
		calendarID = defaultGoogleCalendarID
	}
	return p.baseURL + "/calendars/" + url.PathEscape(calendarID) + "/events"
}

func (p *GoogleProvider) BusyIntervals(ctx context.Context, t Target, from, to time.Time) ([]domain.BusyInterval, error) {
	var out []domain.BusyInterval
	pageToken := ""
	for page := 0; page < googleMaxPages; page++ {
		params := url.Values{}
		params.Set("timeMin", from.UTC().Format(time.RFC3339))
		params.Set("timeMax", to.UTC().Format(time.RFC3339))
		params.Set("singleEvents", "true")
		params.Set("orderBy", "startTime")
		params.Set("maxResults", "250")
		if pageToken != "" {
			params.Set("pageToken", pageToken)
		}

		var resp googleEventsResponse
		if err := p.do(ctx, http.MethodGet, p.eventsURL(t.CalendarID)+"?"+params.Encode(), nil, &resp); err != nil {
			return nil, err
		}
		for _, item := range resp.Items {
			if item.Status == "cancelled" {
				continue
			}
			start, err := parseGoogleDateTime(item.Start, t.location())
			if err != nil {
				continue
			}
			end, err := parseGoogleDateTime(item.End, t.location())
			if err != nil || !end.After(start) {
				continue
			}
			transp := domain.TransparencyOpaque
			if item.Transparency == "transparent" {
				transp = domain.TransparencyTransparent
			}
			out = append(out, domain.BusyInterval{Start: start, End: end, Transparency: transp, Source: item.ID})
		}
		if resp.NextPageToken == "" {
			return out, nil
		}
		pageToken = resp.NextPageToken
	}
	return nil, fmt.Errorf("%w: more than %d pages", ErrGoogleTruncated, googleMaxPages)
}

func (p *GoogleProvider) CreateEvent(ctx context.Context, t Target, ev Event) (Created, error) {
	body := googleEvent{
		Summary:     ev.Title,
		Description: ev.Description,
		Start:       googleDateTime{DateTime: ev.Start.Format(time.RFC3339), TimeZone: ev.TimeZone},
		End:         googleDateTime{DateTime: ev.End.Format(time.RFC3339), TimeZone: ev.TimeZone},
	}
	if ev.AttendeeEmail != "" {
		body.Attendees = []googleAttendee{{Email: ev.AttendeeEmail, DisplayName: ev.AttendeeName}}
	}
	params := url.Values{}
	params.Set("sendUpdates", "all")
	if ev.Conference {
		body.ConferenceData = &googleConferenceData{CreateRequest: &googleCreateRequest{
			RequestID:             p.newID(),
			ConferenceSolutionKey: googleConferenceSolKey{Type: "hangoutsMeet"},
		}}
		params.Set("conferenceDataVersion", "1")
	}

	var created googleEvent
	if err := p.do(ctx, http.MethodPost, p.eventsURL(t.CalendarID)+"?"+params.Encode(), body, &created); err != nil {
		return Created{}, err
	}
	if created.ID == "" {
		return Created{}, fmt.Errorf("google calendar: created event has no id")
	}
	return Created{ExternalID: created.ID, ConferenceLink: created.HangoutLink}, nil
}

func (p *GoogleProvider) UpdateEvent(ctx context.Context, t Target, externalID string, ev Event) error {
	body := map[string]any{
		"start": googleDateTime{DateTime: ev.Start.Format(time.RFC3339), TimeZone: ev.TimeZone},
		"end":   googleDateTime{DateTime: ev.End.Format(time.RFC3339), TimeZone: ev.TimeZone},
	}
	u := p.eventsURL(t.CalendarID) + "/" + url.PathEscape(externalID) + "?sendUpdates=all"
	return p.do(ctx, http.MethodPatch, u, body, nil)
}

// CancelEvent deletes the event. An event that is already gone counts as
// cancelled.
func (p *GoogleProvider) CancelEvent(ctx context.Context, t Target, externalID string) error {
	u := p.eventsURL(t.CalendarID) + "/" + url.PathEscape(externalID) + "?sendUpdates=all"
	err := p.do(ctx, http.MethodDelete, u, nil, nil)
	var apiErr *GoogleAPIError
	if errors.As(err, &apiErr) && (apiErr.Status == http.StatusNotFound || apiErr.Status == http.StatusGone) {
		return nil
	}
	return err
}

type GoogleAPIError struct {
	Status int
	Body   string
}

func (e *GoogleAPIError) Error() string {
	return fmt.Sprintf("google calendar: API error %d: %s", e.Status, e.Body)
}

func (p *GoogleProvider) do(ctx context.Context, method, u string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("google calendar: request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &GoogleAPIError{Status: resp.StatusCode, Body: string(data)}
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("google calendar: failed to parse response: %w", err)
	}
	return nil
}

// parseGoogleDateTime reads a timed value as RFC 3339 and an all-day date
// as midnight in loc.
func parseGoogleDateTime(dt googleDateTime, loc *time.Location) (time.Time, error) {
	if dt.DateTime != "" {
		return time.Parse(time.RFC3339, dt.DateTime)
	}
	if dt.Date != "" {
		return time.ParseInLocation("2006-01-02", dt.Date, loc)
	}
	return time.Time{}, fmt.Errorf("no date or dateTime in response")
}
