package notification

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"net/url"
	"strings"
	texttemplate "text/template"
	"time"

	ical "github.com/arran4/golang-ical"

	"planner/internal/domain"
)

type Kind string

const (
	KindConfirmation Kind = "confirmation"
	KindRescheduled  Kind = "rescheduled"
	KindCancelled    Kind = "cancelled"
)

// BookingNotice is everything a booking message is rendered from. The
// secrets are empty for cancellations.
type BookingNotice struct {
	Kind             Kind
	Booking          *domain.Booking
	Configuration    *domain.SchedulingConfiguration
	OwnerName        string
	OwnerEmail       string
	Location         *time.Location
	RescheduleSecret string
	CancelSecret     string
}

// Composer renders booking notices into messages.
type Composer struct {
	baseURL string
	now     func() time.Time
	html    *htmltemplate.Template
	text    *texttemplate.Template
}

func NewComposer(publicBaseURL string, now func() time.Time) *Composer {
	if now == nil {
		now = time.Now
	}
	return &Composer{
		baseURL: strings.TrimRight(publicBaseURL, "/"),
		now:     now,
		html:    htmltemplate.Must(htmltemplate.New("booking").Parse(htmlBody)),
		text:    texttemplate.Must(texttemplate.New("booking").Parse(textBody)),
	}
}

type view struct {
	Heading       string
	InviteeName   string
	Title         string
	When          string
	TimeZone      string
	Conference    string
	Note          string
	RescheduleURL string
	CancelURL     string
}

func (c *Composer) Compose(n BookingNotice) (Message, error) {
	if n.Booking == nil || n.Configuration == nil {
		return Message{}, fmt.Errorf("compose: booking and configuration are required")
	}
	loc := n.Location
	if loc == nil {
		loc = time.UTC
	}
	b := n.Booking

	v := view{
		InviteeName: b.InviteeName,
		Title:       n.Configuration.Title,
		When:        formatRange(b.StartTime.In(loc), b.EndTime.In(loc)),
		TimeZone:    loc.String(),
		Note:        b.Note,
	}
	if b.ConferenceLink != nil {
		v.Conference = *b.ConferenceLink
	}
	if n.RescheduleSecret != "" {
		v.RescheduleURL = c.ActionURL(n.Configuration.LinkID, "reschedule", n.RescheduleSecret)
	}
	if n.CancelSecret != "" {
		v.CancelURL = c.ActionURL(n.Configuration.LinkID, "cancel", n.CancelSecret)
	}

	var subject string
	switch n.Kind {
	case KindConfirmation:
		subject = "Confirmed: " + n.Configuration.Title
		v.Heading = "Your booking is confirmed"
	case KindRescheduled:
		subject = "Rescheduled: " + n.Configuration.Title
		v.Heading = "Your booking has moved"
	case KindCancelled:
		subject = "Cancelled: " + n.Configuration.Title
		v.Heading = "Your booking is cancelled"
	default:
		return Message{}, fmt.Errorf("compose: unknown kind %q", n.Kind)
	}

	var html, text bytes.Buffer
	if err := c.html.Execute(&html, v); err != nil {
		return Message{}, err
	}
	if err := c.text.Execute(&text, v); err != nil {
		return Message{}, err
	}

	return Message{
		To:      b.InviteeEmail,
		Subject: subject,
		HTML:    html.String(),
		Text:    text.String(),
		Invite:  c.invite(n),
	}, nil
}

// ActionURL is the invitee-facing link for a reschedule or cancel secret.
func (c *Composer) ActionURL(linkID, action, secret string) string {
	return fmt.Sprintf("%s/book/%s/%s?token=%s", c.baseURL, url.PathEscape(linkID), action, url.QueryEscape(secret))
}

func (c *Composer) invite(n BookingNotice) *Invite {
	b := n.Booking

	cal := ical.NewCalendar()
	cal.SetProductId("-//planner//booking//EN")
	method := ical.MethodRequest
	if n.Kind == KindCancelled {
		method = ical.MethodCancel
	}
	cal.SetMethod(method)

	ev := cal.AddEvent(fmt.Sprintf("booking-%d@planner", b.ID))
	ev.SetDtStampTime(c.now())
	ev.SetSequence(sequence(b))
	ev.SetStartAt(b.StartTime)
	ev.SetEndAt(b.EndTime)
	ev.SetSummary(n.Configuration.Title)
	if n.Configuration.Description != "" {
		ev.SetDescription(n.Configuration.Description)
	}
	if b.ConferenceLink != nil {
		ev.SetLocation(*b.ConferenceLink)
	}
	if n.OwnerEmail != "" {
		ev.SetOrganizer("mailto:"+n.OwnerEmail, ical.WithCN(n.OwnerName))
	}
	ev.AddAttendee("mailto:"+b.InviteeEmail, ical.WithCN(b.InviteeName), ical.WithRSVP(n.Kind != KindCancelled))
	if n.Kind == KindCancelled {
		ev.SetStatus(ical.ObjectStatusCancelled)
	} else {
		ev.SetStatus(ical.ObjectStatusConfirmed)
	}

	return &Invite{Method: string(method), Body: cal.Serialize()}
}

// sequence grows with every update so calendar clients replace the earlier
// invite.
func sequence(b *domain.Booking) int {
	if b.Status == domain.BookingScheduled || b.UpdatedAt.Before(b.CreatedAt) {
		return 0
	}
	return int(b.UpdatedAt.Sub(b.CreatedAt) / time.Second)
}

func formatRange(start, end time.Time) string {
	if start.YearDay() == end.YearDay() && start.Year() == end.Year() {
		return start.Format("Monday, 2 January 2006 15:04") + " - " + end.Format("15:04")
	}
	return start.Format("Monday, 2 January 2006 15:04") + " - " + end.Format("Monday, 2 January 2006 15:04")
}

const htmlBody = `<!DOCTYPE html>
<html>
<body>
<h2>{{.Heading}}</h2>
<p>Hi {{.InviteeName}},</p>
<p><strong>{{.Title}}</strong><br>{{.When}} ({{.TimeZone}})</p>
{{if .Conference}}<p>Join: <a href="{{.Conference}}">{{.Conference}}</a></p>{{end}}
{{if .Note}}<p>Your note: {{.Note}}</p>{{end}}
{{if .RescheduleURL}}<p><a href="{{.RescheduleURL}}">Reschedule</a></p>{{end}}
{{if .CancelURL}}<p><a href="{{.CancelURL}}">Cancel</a></p>{{end}}
</body>
</html>
`

const textBody = `{{.Heading}}

Hi {{.InviteeName}},

{{.Title}}
{{.When}} ({{.TimeZone}})
{{if .Conference}}
Join: {{.Conference}}
{{end}}{{if .Note}}
Your note: {{.Note}}
{{end}}{{if .RescheduleURL}}
Reschedule: {{.RescheduleURL}}
{{end}}{{if .CancelURL}}
Cancel: {{.CancelURL}}
{{end}}`
