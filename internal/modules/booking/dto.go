package booking

import (
	"time"

	"planner/internal/domain"
)

type CreateBookingRequest struct {
	Name            string    `json:"name" binding:"required,max=200"`
	Email           string    `json:"email" binding:"required,email,max=320"`
	TimeZone        string    `json:"time_zone" binding:"max=64" validate:"omitempty,timezone"`
	Note            string    `json:"note" binding:"max=2000"`
	Start           time.Time `json:"start" binding:"required"`
	DurationMinutes int       `json:"duration_minutes" binding:"required,gt=0" validate:"lte=1440"`
}

type RescheduleBookingRequest struct {
	Token           string    `json:"token" binding:"required" validate:"max=128"`
	Start           time.Time `json:"start" binding:"required"`
	DurationMinutes int       `json:"duration_minutes" binding:"required,gt=0" validate:"lte=1440"`
}

type CancelBookingRequest struct {
	Token string `json:"token" binding:"required" validate:"max=128"`
}

// BookingView is what the invitee sees of a booking.
type BookingView struct {
	ID              int64                `json:"id"`
	Status          domain.BookingStatus `json:"status"`
	Start           time.Time            `json:"start"`
	End             time.Time            `json:"end"`
	DurationMinutes int                  `json:"duration_minutes"`
	InviteeName     string               `json:"invitee_name"`
	InviteeEmail    string               `json:"invitee_email"`
	TimeZone        string               `json:"time_zone,omitempty"`
	ConferenceLink  *string              `json:"conference_link,omitempty"`
}

type BookingResponse struct {
	Booking         BookingView `json:"booking"`
	RescheduleToken string      `json:"reschedule_token"`
	CancelToken     string      `json:"cancel_token"`
	RescheduleURL   string      `json:"reschedule_url"`
	CancelURL       string      `json:"cancel_url"`
	Sync            SyncReport  `json:"sync"`
}

type CancelResponse struct {
	Booking BookingView `json:"booking"`
	Sync    SyncReport  `json:"sync"`
}

func viewOf(b *domain.Booking, tz string) BookingView {
	return BookingView{
		ID:              b.ID,
		Status:          b.Status,
		Start:           b.StartTime,
		End:             b.EndTime,
		DurationMinutes: b.DurationMinutes(),
		InviteeName:     b.InviteeName,
		InviteeEmail:    b.InviteeEmail,
		TimeZone:        tz,
		ConferenceLink:  b.ConferenceLink,
	}
}

func responseOf(r *Result) BookingResponse {
	return BookingResponse{
		Booking:         viewOf(r.Booking, r.TimeZone),
		RescheduleToken: r.RescheduleSecret,
		CancelToken:     r.CancelSecret,
		RescheduleURL:   r.RescheduleURL,
		CancelURL:       r.CancelURL,
		Sync:            r.Sync,
	}
}
