package booking

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"gorm.io/gorm"

	"planner/internal/calendar"
	"planner/internal/domain"
	"planner/internal/modules/availability"
	"planner/internal/notification"
	"planner/internal/pkg/interval"
	"planner/internal/pkg/token"
	"planner/internal/repository"
)

const defaultSideEffectTimeout = 10 * time.Second

// Feed event names.
const (
	EventCreated     = "booking.created"
	EventRescheduled = "booking.rescheduled"
	EventCancelled   = "booking.cancelled"
)

type Deps struct {
	Configurations ConfigurationReader
	Preferences    availability.PreferencesReader
	Items          availability.BlockingItemReader
	Owners         OwnerReader
	Store          Store
	Calendar       Gateway
	Tokens         *token.Service
	Sender         Sender
	Composer       *notification.Composer
	// Feed is optional.
	Feed              Publisher
	SideEffectTimeout time.Duration
	Now               func() time.Time
}

// Service commits bookings, reschedules and cancellations. The database
// transaction covers only the conflict re-check and the writes; calendar and
// notification calls run after commit and never undo it.
type Service struct {
	configs  ConfigurationReader
	prefs    availability.PreferencesReader
	items    availability.BlockingItemReader
	owners   OwnerReader
	store    Store
	calendar Gateway
	tokens   *token.Service
	sender   Sender
	composer *notification.Composer
	feed     Publisher
	timeout  time.Duration
	now      func() time.Time
}

func NewService(d Deps) *Service {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.SideEffectTimeout <= 0 {
		d.SideEffectTimeout = defaultSideEffectTimeout
	}
	return &Service{
		configs:  d.Configurations,
		prefs:    d.Preferences,
		items:    d.Items,
		owners:   d.Owners,
		store:    d.Store,
		calendar: d.Calendar,
		tokens:   d.Tokens,
		sender:   d.Sender,
		composer: d.Composer,
		feed:     d.Feed,
		timeout:  d.SideEffectTimeout,
		now:      d.Now,
	}
}

type Invitee struct {
	Name     string
	Email    string
	TimeZone string
}

type BookRequest struct {
	LinkID          string
	Invitee         Invitee
	Note            string
	Start           time.Time
	DurationMinutes int
}

type RescheduleRequest struct {
	LinkID          string
	Secret          string
	Start           time.Time
	DurationMinutes int
}

type CancelRequest struct {
	LinkID string
	Secret string
}

// Result is returned once per successful book or reschedule. The secrets
// are never stored or shown again.
type Result struct {
	Booking          *domain.Booking
	TimeZone         string
	RescheduleSecret string
	CancelSecret     string
	RescheduleURL    string
	CancelURL        string
	Sync             SyncReport
}

type CancelResult struct {
	Booking *domain.Booking
	Sync    SyncReport
}

func (s *Service) Book(ctx context.Context, req BookRequest) (*Result, error) {
	inv, err := normalizeInvitee(req.Invitee)
	if err != nil {
		return nil, err
	}
	cfg, err := s.activeConfiguration(ctx, req.LinkID)
	if err != nil {
		return nil, err
	}
	hours, err := availability.LoadHours(ctx, s.prefs, cfg.OwnerID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	start := req.Start
	end, err := s.checkRequest(cfg, hours, now, start, req.DurationMinutes)
	if err != nil {
		return nil, err
	}
	external, err := s.externalBusy(ctx, cfg, hours, start, end)
	if err != nil {
		return nil, err
	}

	resTok, cancelTok, err := s.tokens.IssuePair(start)
	if err != nil {
		return nil, err
	}

	var b *domain.Booking
	err = s.store.Transaction(ctx, func(tx Tx) error {
		locked, err := tx.LockConfiguration(ctx, cfg.ID)
		if err != nil {
			return err
		}
		if !locked.Active {
			return ErrSchedulingPaused
		}
		if err := checkCapacity(ctx, tx, locked, hours, start, end, 0, external); err != nil {
			return err
		}

		b = &domain.Booking{
			ConfigurationID: locked.ID,
			InviteeName:     inv.Name,
			InviteeEmail:    inv.Email,
			InviteeTimeZone: inv.TimeZone,
			Note:            strings.TrimSpace(req.Note),
			StartTime:       start,
			EndTime:         end,
			Status:          domain.BookingScheduled,
		}
		if err := tx.Create(ctx, b); err != nil {
			return err
		}
		return tx.CreateTokens(ctx, resTok.Record(b.ID), cancelTok.Record(b.ID))
	})
	if err != nil {
		return nil, translate(err)
	}

	res := &Result{
		Booking:          b,
		TimeZone:         hours.Location.String(),
		RescheduleSecret: resTok.Secret,
		CancelSecret:     cancelTok.Secret,
		RescheduleURL:    s.composer.ActionURL(cfg.LinkID, "reschedule", resTok.Secret),
		CancelURL:        s.composer.ActionURL(cfg.LinkID, "cancel", cancelTok.Secret),
	}
	res.Sync = s.afterCommit(ctx, cfg, hours, b, notification.KindConfirmation, resTok.Secret, cancelTok.Secret)
	return res, nil
}

func (s *Service) Reschedule(ctx context.Context, req RescheduleRequest) (*Result, error) {
	cfg, current, err := s.lookupByToken(ctx, req.LinkID, req.Secret, domain.TokenKindReschedule)
	if err != nil {
		return nil, err
	}
	if !cfg.Active {
		return nil, ErrSchedulingPaused
	}
	hours, err := availability.LoadHours(ctx, s.prefs, cfg.OwnerID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	start := req.Start
	end, err := s.checkRequest(cfg, hours, now, start, req.DurationMinutes)
	if err != nil {
		return nil, err
	}
	external, err := s.externalBusy(ctx, cfg, hours, start, end)
	if err != nil {
		return nil, err
	}

	resTok, cancelTok, err := s.tokens.IssuePair(start)
	if err != nil {
		return nil, err
	}

	hash := s.tokens.Hash(req.Secret)
	var b *domain.Booking
	err = s.store.Transaction(ctx, func(tx Tx) error {
		locked, err := tx.LockConfiguration(ctx, cfg.ID)
		if err != nil {
			return err
		}
		if !locked.Active {
			return ErrSchedulingPaused
		}
		verified, err := s.verifyInTx(ctx, tx, hash, req.Secret, domain.TokenKindReschedule)
		if err != nil {
			return err
		}
		if verified.BookingID() != current.ID {
			return ErrInvalidToken
		}
		b, err = tx.GetForUpdate(ctx, verified.BookingID())
		if err != nil {
			return err
		}
		if b.IsCancelled() {
			return ErrInvalidToken
		}
		if err := checkCapacity(ctx, tx, locked, hours, start, end, b.ID, external); err != nil {
			return err
		}

		if err := consume(ctx, tx, verified, now); err != nil {
			return err
		}
		b.StartTime = start
		b.EndTime = end
		b.Status = domain.BookingRescheduled
		b.UpdatedAt = now
		if err := tx.UpdateSchedule(ctx, b); err != nil {
			return err
		}
		return tx.CreateTokens(ctx, resTok.Record(b.ID), cancelTok.Record(b.ID))
	})
	if err != nil {
		return nil, translate(err)
	}

	res := &Result{
		Booking:          b,
		TimeZone:         hours.Location.String(),
		RescheduleSecret: resTok.Secret,
		CancelSecret:     cancelTok.Secret,
		RescheduleURL:    s.composer.ActionURL(cfg.LinkID, "reschedule", resTok.Secret),
		CancelURL:        s.composer.ActionURL(cfg.LinkID, "cancel", cancelTok.Secret),
	}
	res.Sync = s.afterCommit(ctx, cfg, hours, b, notification.KindRescheduled, resTok.Secret, cancelTok.Secret)
	return res, nil
}

// Cancel is allowed on paused links.
func (s *Service) Cancel(ctx context.Context, req CancelRequest) (*CancelResult, error) {
	cfg, current, err := s.lookupByToken(ctx, req.LinkID, req.Secret, domain.TokenKindCancel)
	if err != nil {
		return nil, err
	}

	now := s.now()
	hash := s.tokens.Hash(req.Secret)
	var b *domain.Booking
	err = s.store.Transaction(ctx, func(tx Tx) error {
		verified, err := s.verifyInTx(ctx, tx, hash, req.Secret, domain.TokenKindCancel)
		if err != nil {
			return err
		}
		if verified.BookingID() != current.ID {
			return ErrInvalidToken
		}
		b, err = tx.GetForUpdate(ctx, verified.BookingID())
		if err != nil {
			return err
		}
		if b.IsCancelled() {
			return ErrInvalidToken
		}
		if err := consume(ctx, tx, verified, now); err != nil {
			return err
		}
		b.Status = domain.BookingCancelled
		b.CancelledAt = &now
		b.UpdatedAt = now
		return tx.UpdateSchedule(ctx, b)
	})
	if err != nil {
		return nil, translate(err)
	}

	hours, err := availability.LoadHours(ctx, s.prefs, cfg.OwnerID)
	if err != nil {
		hours = domain.DefaultWorkingHours()
	}
	sync := s.afterCommit(ctx, cfg, hours, b, notification.KindCancelled, "", "")
	return &CancelResult{Booking: b, Sync: sync}, nil
}

// lookupByToken finds the booking a secret points at without mutating
// anything. Every failure, including a link mismatch, is ErrInvalidToken.
func (s *Service) lookupByToken(ctx context.Context, linkID, secret string, kind domain.TokenKind) (*domain.SchedulingConfiguration, *domain.Booking, error) {
	if secret == "" {
		return nil, nil, ErrInvalidToken
	}
	stored, err := s.store.GetTokenByHash(ctx, s.tokens.Hash(secret))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrInvalidToken
		}
		return nil, nil, err
	}
	if _, err := s.tokens.Verify(secret, stored, kind); err != nil {
		return nil, nil, ErrInvalidToken
	}
	b, err := s.store.GetByID(ctx, stored.BookingID)
	if err != nil {
		return nil, nil, err
	}
	if b.IsCancelled() {
		return nil, nil, ErrInvalidToken
	}
	cfg, err := s.configs.GetByID(ctx, b.ConfigurationID)
	if err != nil {
		return nil, nil, err
	}
	if cfg.LinkID != linkID {
		return nil, nil, ErrInvalidToken
	}
	return cfg, b, nil
}

func (s *Service) verifyInTx(ctx context.Context, tx Tx, hash, secret string, kind domain.TokenKind) (token.Verified, error) {
	stored, err := tx.GetTokenByHashForUpdate(ctx, hash)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return token.Verified{}, ErrInvalidToken
		}
		return token.Verified{}, err
	}
	v, err := s.tokens.Verify(secret, stored, kind)
	if err != nil {
		return token.Verified{}, ErrInvalidToken
	}
	return v, nil
}

// consume marks the presented token used and retires the rest of the
// booking's tokens.
func consume(ctx context.Context, tx Tx, v token.Verified, now time.Time) error {
	ok, err := tx.ConsumeToken(ctx, v.ID(), now)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidToken
	}
	return tx.RetireTokens(ctx, v.BookingID(), now)
}

// checkRequest validates duration, start and horizon, and that the interval
// sits inside the meeting-hours window of its day. It returns the end.
func (s *Service) checkRequest(cfg *domain.SchedulingConfiguration, hours domain.WorkingHours, now, start time.Time, minutes int) (time.Time, error) {
	if start.IsZero() || minutes <= 0 {
		return time.Time{}, ErrValidation
	}
	if !cfg.OffersDuration(minutes) {
		return time.Time{}, ErrInvalidDuration
	}
	if start.Before(now) {
		return time.Time{}, ErrStartInPast
	}
	if limit := availability.HorizonEnd(now, cfg.HorizonDays, hours.Location); !limit.IsZero() && !start.Before(limit) {
		return time.Time{}, ErrBeyondHorizon
	}
	end := start.Add(time.Duration(minutes) * time.Minute)

	w, ok := availability.ResolveWindow(start, hours, true)
	if !ok || !w.Contains(interval.Interval{Start: start, End: end}) {
		return time.Time{}, ErrSlotUnavailable
	}
	return end, nil
}

// externalBusy reads opaque calendar busy time and blocking schedule items
// near [start, end). It runs before the transaction; a calendar failure
// leaves only local data to check against.
func (s *Service) externalBusy(ctx context.Context, cfg *domain.SchedulingConfiguration, hours domain.WorkingHours, start, end time.Time) ([]interval.Interval, error) {
	from, to := conflictWindow(cfg, start, end)

	var out []interval.Interval
	ext, err := s.calendar.BusyIntervals(ctx, calendar.TargetFor(cfg, hours.Location), from, to)
	if err != nil {
		logSideEffect("calendar_busy", 0, err)
	} else {
		out = append(out, calendar.OpaqueOnly(ext)...)
	}

	items, err := s.items.ListBlocking(ctx, cfg.OwnerID, from, to)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		out = append(out, interval.Interval{Start: it.StartTime, End: it.EndTime})
	}
	return out, nil
}

// checkCapacity runs inside the transaction: daily cap, then conflicts with
// active bookings and the external busy time gathered earlier.
func checkCapacity(
	ctx context.Context,
	tx Tx,
	cfg *domain.SchedulingConfiguration,
	hours domain.WorkingHours,
	start, end time.Time,
	excludeID int64,
	external []interval.Interval,
) error {
	if cfg.DailyCap > 0 {
		day := availability.DayStart(start, hours.Location)
		n, err := tx.CountActiveStarting(ctx, cfg.ID, day, day.AddDate(0, 0, 1), excludeID)
		if err != nil {
			return err
		}
		if n >= int64(cfg.DailyCap) {
			return ErrDailyCapReached
		}
	}

	from, to := conflictWindow(cfg, start, end)
	existing, err := tx.ListActiveOverlapping(ctx, cfg.ID, from, to, excludeID)
	if err != nil {
		return err
	}
	busy := make([]interval.Interval, 0, len(existing)+len(external))
	for _, b := range existing {
		busy = append(busy, interval.Interval{Start: b.StartTime, End: b.EndTime})
	}
	busy = append(busy, external...)

	requested := interval.Interval{Start: start, End: end}
	if interval.AnyOverlap(requested, interval.BufferAll(busy, cfg.BufferBeforeMinutes, cfg.BufferAfterMinutes)) {
		return ErrSlotUnavailable
	}
	return nil
}

// conflictWindow is the span in which busy time can reach [start, end)
// once buffered.
func conflictWindow(cfg *domain.SchedulingConfiguration, start, end time.Time) (time.Time, time.Time) {
	pad := cfg.BufferBeforeMinutes
	if cfg.BufferAfterMinutes > pad {
		pad = cfg.BufferAfterMinutes
	}
	return interval.Buffer(start, end, pad, pad)
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

func normalizeInvitee(in Invitee) (Invitee, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.TimeZone = strings.TrimSpace(in.TimeZone)
	if in.Name == "" || in.Email == "" {
		return in, ErrValidation
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return in, ErrValidation
	}
	if in.TimeZone != "" {
		if _, err := time.LoadLocation(in.TimeZone); err != nil {
			return in, ErrValidation
		}
	}
	return in, nil
}

var businessErrors = []error{
	ErrValidation, ErrLinkNotFound, ErrSchedulingPaused, ErrInvalidDuration, ErrStartInPast,
	ErrBeyondHorizon, ErrDailyCapReached, ErrSlotUnavailable, ErrInvalidToken,
}

// translate maps transaction errors to the service's error set. Lock and
// serialization failures mean another request took the slot.
func translate(err error) error {
	for _, e := range businessErrors {
		if errors.Is(err, e) {
			return e
		}
	}
	if repository.IsSerializationConflict(err) || repository.IsUniqueViolation(err) {
		return ErrSlotUnavailable
	}
	return fmt.Errorf("booking transaction: %w", err)
}
