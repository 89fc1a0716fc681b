// Package notification sends booking notices to invitees.
package notification

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log"
	"mime/multipart"
	"net"
	"net/smtp"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrNoRecipient = errors.New("notification has no recipient")

// Invite is an optional iCalendar attachment.
type Invite struct {
	Method string
	Body   string
}

type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
	Invite  *Invite
}

type Sender interface {
	Send(ctx context.Context, msg Message) (messageID string, err error)
}

// ConsoleSender logs instead of delivering. Bodies are not logged since they
// carry action links.
type ConsoleSender struct {
	enabled bool
}

func NewConsoleSender(enabled bool) *ConsoleSender {
	return &ConsoleSender{enabled: enabled}
}

func (s *ConsoleSender) Send(_ context.Context, msg Message) (string, error) {
	if msg.To == "" {
		return "", ErrNoRecipient
	}
	id := uuid.NewString()
	if s.enabled {
		log.Printf("[DEV-EMAIL] to=%s subject=%q message_id=%s invite=%t", msg.To, msg.Subject, id, msg.Invite != nil)
	}
	return id, nil
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPSender delivers multipart/alternative mail with an optional
// text/calendar part.
type SMTPSender struct {
	cfg  SMTPConfig
	dial func(ctx context.Context, addr string) (net.Conn, error)
	now  func() time.Time
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	d := &net.Dialer{Timeout: 10 * time.Second}
	return &SMTPSender{
		cfg: cfg,
		dial: func(ctx context.Context, addr string) (net.Conn, error) {
			return d.DialContext(ctx, "tcp", addr)
		},
		now: time.Now,
	}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) (string, error) {
	if msg.To == "" {
		return "", ErrNoRecipient
	}
	id := fmt.Sprintf("<%s@%s>", uuid.NewString(), domainOf(s.cfg.From))
	body, err := buildMIME(s.cfg.From, msg, id, s.now())
	if err != nil {
		return "", err
	}

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	conn, err := s.dial(ctx, addr)
	if err != nil {
		return "", fmt.Errorf("smtp dial: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		conn.Close()
		return "", fmt.Errorf("smtp handshake: %w", err)
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: s.cfg.Host}); err != nil {
			return "", fmt.Errorf("smtp starttls: %w", err)
		}
	}
	if s.cfg.Username != "" {
		if err := c.Auth(smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)); err != nil {
			return "", fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := c.Mail(s.cfg.From); err != nil {
		return "", fmt.Errorf("smtp mail from: %w", err)
	}
	if err := c.Rcpt(msg.To); err != nil {
		return "", fmt.Errorf("smtp rcpt to: %w", err)
	}
	w, err := c.Data()
	if err != nil {
		return "", fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return "", fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("smtp data close: %w", err)
	}
	_ = c.Quit()
	return id, nil
}

func buildMIME(from string, msg Message, messageID string, now time.Time) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	header := func(k, v string) { fmt.Fprintf(&buf, "%s: %s\r\n", k, v) }
	header("From", from)
	header("To", msg.To)
	header("Subject", msg.Subject)
	header("Date", now.Format(time.RFC1123Z))
	header("Message-ID", messageID)
	header("MIME-Version", "1.0")
	header("Content-Type", "multipart/alternative; boundary="+mw.Boundary())
	buf.WriteString("\r\n")

	parts := []struct {
		contentType string
		body        string
	}{
		{"text/plain; charset=UTF-8", msg.Text},
		{"text/html; charset=UTF-8", msg.HTML},
	}
	if msg.Invite != nil {
		parts = append(parts, struct {
			contentType string
			body        string
		}{"text/calendar; charset=UTF-8; method=" + msg.Invite.Method, msg.Invite.Body})
	}

	for _, p := range parts {
		if p.body == "" {
			continue
		}
		h := textproto.MIMEHeader{}
		h.Set("Content-Type", p.contentType)
		h.Set("Content-Transfer-Encoding", "8bit")
		pw, err := mw.CreatePart(h)
		if err != nil {
			return nil, err
		}
		if _, err := pw.Write([]byte(normalizeNewlines(p.body))); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\n", "\r\n")
}

func domainOf(addr string) string {
	if i := strings.LastIndex(addr, "@"); i >= 0 && i < len(addr)-1 {
		return strings.TrimSuffix(addr[i+1:], ">")
	}
	return "localhost"
}
