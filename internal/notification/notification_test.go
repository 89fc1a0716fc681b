package notification

import (
	"bufio"
	"context"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planner/internal/domain"
)

func sampleNotice(kind Kind) BookingNotice {
	start := time.Date(2026, 1, 12, 9, 0, 0, 0, time.UTC)
	link := "https://meet.example.com/xyz"
	return BookingNotice{
		Kind: kind,
		Booking: &domain.Booking{
			ID:             42,
			InviteeName:    "Ada",
			InviteeEmail:   "ada@example.com",
			Note:           "<b>hello</b>",
			StartTime:      start,
			EndTime:        start.Add(30 * time.Minute),
			Status:         domain.BookingScheduled,
			ConferenceLink: &link,
		},
		Configuration: &domain.SchedulingConfiguration{
			LinkID: "intro-link",
			Title:  "Intro call",
		},
		OwnerName:        "Owner",
		OwnerEmail:       "owner@example.com",
		RescheduleSecret: "r-secret",
		CancelSecret:     "c-secret",
	}
}

func TestComposer_Confirmation(t *testing.T) {
	c := NewComposer("https://book.example.com/", func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) })

	msg, err := c.Compose(sampleNotice(KindConfirmation))
	require.NoError(t, err)

	assert.Equal(t, "ada@example.com", msg.To)
	assert.Equal(t, "Confirmed: Intro call", msg.Subject)
	assert.Contains(t, msg.Text, "https://book.example.com/book/intro-link/reschedule?token=r-secret")
	assert.Contains(t, msg.Text, "https://book.example.com/book/intro-link/cancel?token=c-secret")
	assert.Contains(t, msg.HTML, "&lt;b&gt;hello&lt;/b&gt;")
	assert.Contains(t, msg.Text, "Monday, 12 January 2026 09:00 - 09:30")

	require.NotNil(t, msg.Invite)
	assert.Equal(t, "REQUEST", msg.Invite.Method)

	cal, err := ical.ParseCalendar(strings.NewReader(msg.Invite.Body))
	require.NoError(t, err)
	require.Len(t, cal.Events(), 1)
	ev := cal.Events()[0]
	assert.Equal(t, "booking-42@planner", ev.Id())
	assert.Equal(t, "CONFIRMED", ev.GetProperty(ical.ComponentPropertyStatus).Value)
}

func TestComposer_CancellationHasNoLinks(t *testing.T) {
	c := NewComposer("https://book.example.com", nil)
	n := sampleNotice(KindCancelled)
	n.RescheduleSecret, n.CancelSecret = "", ""
	n.Booking.Status = domain.BookingCancelled

	msg, err := c.Compose(n)
	require.NoError(t, err)

	assert.Equal(t, "Cancelled: Intro call", msg.Subject)
	assert.NotContains(t, msg.Text, "token=")
	require.NotNil(t, msg.Invite)
	assert.Equal(t, "CANCEL", msg.Invite.Method)
	assert.Contains(t, msg.Invite.Body, "STATUS:CANCELLED")
}

func TestComposer_UnknownKind(t *testing.T) {
	c := NewComposer("", nil)
	_, err := c.Compose(sampleNotice("reminder"))
	assert.Error(t, err)

	_, err = c.Compose(BookingNotice{Kind: KindConfirmation})
	assert.Error(t, err)
}

func TestComposer_ActionURLEscapesSecret(t *testing.T) {
	c := NewComposer("http://localhost:8080", nil)
	assert.Equal(t, "http://localhost:8080/book/a%20b/cancel?token=x%2By", c.ActionURL("a b", "cancel", "x+y"))
}

func TestConsoleSender(t *testing.T) {
	s := NewConsoleSender(true)

	id, err := s.Send(context.Background(), Message{To: "ada@example.com", Subject: "hi"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	_, err = s.Send(context.Background(), Message{})
	assert.ErrorIs(t, err, ErrNoRecipient)
}

func TestBuildMIME_IncludesInvitePart(t *testing.T) {
	body, err := buildMIME("planner@example.com", Message{
		To:      "ada@example.com",
		Subject: "Confirmed",
		Text:    "plain\nbody",
		HTML:    "<p>html</p>",
		Invite:  &Invite{Method: "REQUEST", Body: "BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"},
	}, "<id@example.com>", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	s := string(body)
	assert.Contains(t, s, "Subject: Confirmed\r\n")
	assert.Contains(t, s, "Content-Type: multipart/alternative; boundary=")
	assert.Contains(t, s, "text/plain; charset=UTF-8")
	assert.Contains(t, s, "text/html; charset=UTF-8")
	assert.Contains(t, s, "text/calendar; charset=UTF-8; method=REQUEST")
	assert.Contains(t, s, "plain\r\nbody")
}

// fakeSMTP accepts one message and returns the DATA payload.
func fakeSMTP(t *testing.T) (addr string, data <-chan string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	out := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		r := bufio.NewReader(conn)
		write := func(s string) { _, _ = conn.Write([]byte(s + "\r\n")) }

		write("220 localhost ESMTP")
		var payload strings.Builder
		inData := false
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			if inData {
				if line == ".\r\n" {
					inData = false
					out <- payload.String()
					write("250 OK queued")
					continue
				}
				payload.WriteString(line)
				continue
			}
			cmd := strings.ToUpper(strings.TrimSpace(line))
			switch {
			case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
				write("250-localhost")
				write("250 8BITMIME")
			case strings.HasPrefix(cmd, "MAIL"), strings.HasPrefix(cmd, "RCPT"):
				write("250 OK")
			case cmd == "DATA":
				inData = true
				write("354 go ahead")
			case cmd == "QUIT":
				write("221 bye")
				return
			default:
				write("250 OK")
			}
		}
	}()
	return ln.Addr().String(), out
}

func TestSMTPSender_Send(t *testing.T) {
	addr, data := fakeSMTP(t)
	host, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	s := NewSMTPSender(SMTPConfig{Host: host, Port: port, From: "planner@example.com"})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	id, err := s.Send(ctx, Message{To: "ada@example.com", Subject: "Confirmed", Text: "hello"})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(id, "@example.com>"))

	select {
	case payload := <-data:
		assert.Contains(t, payload, "To: ada@example.com")
		assert.Contains(t, payload, "hello")
	case <-time.After(5 * time.Second):
		t.Fatal("no message received")
	}
}
