package booking

import (
	"context"
	"errors"
	"log"

	"planner/internal/calendar"
	"planner/internal/domain"
	"planner/internal/notification"
)

type Outcome string

const (
	OutcomeOK      Outcome = "ok"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// SideEffect is the result of one best-effort call made after commit.
type SideEffect struct {
	Outcome   Outcome `json:"outcome"`
	Reference string  `json:"reference,omitempty"`
	Err       error   `json:"-"`
}

func (e SideEffect) Failed() bool { return e.Outcome == OutcomeFailed }

type SyncReport struct {
	Calendar     SideEffect `json:"calendar"`
	Notification SideEffect `json:"notification"`
}

func done(ref string) SideEffect  { return SideEffect{Outcome: OutcomeOK, Reference: ref} }
func skipped() SideEffect         { return SideEffect{Outcome: OutcomeSkipped} }
func failed(err error) SideEffect { return SideEffect{Outcome: OutcomeFailed, Err: err} }

// afterCommit runs the calendar sync, the invitee notice and the feed
// publish. It detaches from the request so a client hang-up does not cut
// the calls short.
func (s *Service) afterCommit(
	ctx context.Context,
	cfg *domain.SchedulingConfiguration,
	hours domain.WorkingHours,
	b *domain.Booking,
	kind notification.Kind,
	rescheduleSecret, cancelSecret string,
) SyncReport {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	var report SyncReport
	report.Calendar = s.syncCalendar(ctx, cfg, hours, b)
	report.Notification = s.notify(ctx, cfg, hours, b, kind, rescheduleSecret, cancelSecret)

	if s.feed != nil {
		s.feed.Publish(cfg.OwnerID, feedEvent(kind), b)
	}
	return report
}

func feedEvent(kind notification.Kind) string {
	switch kind {
	case notification.KindRescheduled:
		return EventRescheduled
	case notification.KindCancelled:
		return EventCancelled
	default:
		return EventCreated
	}
}

// syncCalendar brings the external event in line with b: cancel it, create
// it when there is none yet, or move it. A failure flags the booking for
// reconciliation; read-only providers are skipped.
func (s *Service) syncCalendar(ctx context.Context, cfg *domain.SchedulingConfiguration, hours domain.WorkingHours, b *domain.Booking) SideEffect {
	target := calendar.TargetFor(cfg, hours.Location)

	var (
		op  string
		ref string
		err error
	)
	switch {
	case b.IsCancelled() && b.ExternalEventID == nil:
		return s.clearPending(ctx, b, skipped())
	case b.IsCancelled():
		op, ref = "calendar_cancel", *b.ExternalEventID
		err = s.calendar.CancelEvent(ctx, target, ref)
	case b.ExternalEventID == nil:
		op = "calendar_create"
		var created calendar.Created
		created, err = s.calendar.CreateEvent(ctx, target, eventFor(cfg, hours, b))
		if err == nil {
			ref = created.ExternalID
			var link *string
			if created.ConferenceLink != "" {
				link = &created.ConferenceLink
				b.ConferenceLink = link
			}
			b.ExternalEventID = &ref
			s.markSynced(ctx, b, &ref, link)
			return done(ref)
		}
	default:
		op, ref = "calendar_update", *b.ExternalEventID
		err = s.calendar.UpdateEvent(ctx, target, ref, eventFor(cfg, hours, b))
	}

	if errors.Is(err, calendar.ErrReadOnly) {
		return s.clearPending(ctx, b, skipped())
	}
	if err != nil {
		logSideEffect(op, b.ID, err)
		if !b.CalendarSyncPending {
			b.CalendarSyncPending = true
			if err := s.store.MarkSyncPending(ctx, b.ID); err != nil {
				logSideEffect("calendar_mark_pending", b.ID, err)
			}
		}
		return failed(err)
	}
	return s.clearPending(ctx, b, done(ref))
}

func (s *Service) clearPending(ctx context.Context, b *domain.Booking, result SideEffect) SideEffect {
	if !b.CalendarSyncPending {
		return result
	}
	s.markSynced(ctx, b, nil, nil)
	return result
}

func (s *Service) markSynced(ctx context.Context, b *domain.Booking, externalID, conferenceLink *string) {
	cleared, err := s.store.MarkSynced(ctx, b, externalID, conferenceLink)
	if err != nil {
		logSideEffect("calendar_mark_synced", b.ID, err)
		return
	}
	if !cleared {
		log.Printf("calendar_sync_stale booking_id=%d", b.ID)
		b.CalendarSyncPending = true
		if err := s.store.MarkSyncPending(ctx, b.ID); err != nil {
			logSideEffect("calendar_mark_pending", b.ID, err)
		}
		return
	}
	b.CalendarSyncPending = false
}

func eventFor(cfg *domain.SchedulingConfiguration, hours domain.WorkingHours, b *domain.Booking) calendar.Event {
	return calendar.Event{
		Title:         cfg.Title + " with " + b.InviteeName,
		Description:   b.Note,
		Start:         b.StartTime,
		End:           b.EndTime,
		TimeZone:      hours.Location.String(),
		AttendeeName:  b.InviteeName,
		AttendeeEmail: b.InviteeEmail,
		Conference:    true,
	}
}

func (s *Service) notify(
	ctx context.Context,
	cfg *domain.SchedulingConfiguration,
	hours domain.WorkingHours,
	b *domain.Booking,
	kind notification.Kind,
	rescheduleSecret, cancelSecret string,
) SideEffect {
	if s.sender == nil || s.composer == nil {
		return skipped()
	}
	notice := notification.BookingNotice{
		Kind:             kind,
		Booking:          b,
		Configuration:    cfg,
		Location:         hours.Location,
		RescheduleSecret: rescheduleSecret,
		CancelSecret:     cancelSecret,
	}
	if s.owners != nil {
		if owner, err := s.owners.GetByID(ctx, cfg.OwnerID); err == nil {
			notice.OwnerName, notice.OwnerEmail = owner.Name, owner.Email
		}
	}

	msg, err := s.composer.Compose(notice)
	if err != nil {
		logSideEffect("notification_compose", b.ID, err)
		return failed(err)
	}
	id, err := s.sender.Send(ctx, msg)
	if err != nil {
		logSideEffect("notification_send", b.ID, err)
		return failed(err)
	}
	return done(id)
}

func logSideEffect(op string, bookingID int64, err error) {
	log.Printf("booking_side_effect_failed op=%s booking_id=%d err=%v", op, bookingID, err)
}
