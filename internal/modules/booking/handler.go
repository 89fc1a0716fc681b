package booking

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"planner/internal/pkg/response"
	"planner/internal/pkg/validator"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the public booking endpoints on the /links/:link
// group.
func (h *Handler) RegisterRoutes(links *gin.RouterGroup) {
	links.POST("/bookings", h.CreateBooking)
	links.POST("/bookings/reschedule", h.RescheduleBooking)
	links.POST("/bookings/cancel", h.CancelBooking)
}

func (h *Handler) CreateBooking(c *gin.Context) {
	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body", errs)
		return
	}

	res, err := h.service.Book(c.Request.Context(), BookRequest{
		LinkID:          c.Param("link"),
		Invitee:         Invitee{Name: req.Name, Email: req.Email, TimeZone: req.TimeZone},
		Note:            req.Note,
		Start:           req.Start,
		DurationMinutes: req.DurationMinutes,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, responseOf(res))
}

func (h *Handler) RescheduleBooking(c *gin.Context) {
	var req RescheduleBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body", errs)
		return
	}

	res, err := h.service.Reschedule(c.Request.Context(), RescheduleRequest{
		LinkID:          c.Param("link"),
		Secret:          req.Token,
		Start:           req.Start,
		DurationMinutes: req.DurationMinutes,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, responseOf(res))
}

func (h *Handler) CancelBooking(c *gin.Context) {
	var req CancelBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body", errs)
		return
	}

	res, err := h.service.Cancel(c.Request.Context(), CancelRequest{LinkID: c.Param("link"), Secret: req.Token})
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, CancelResponse{Booking: viewOf(res.Booking, ""), Sync: res.Sync})
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid booking details")
	case errors.Is(err, ErrInvalidDuration):
		response.Error(c, http.StatusBadRequest, "INVALID_DURATION", "This duration is not offered")
	case errors.Is(err, ErrStartInPast):
		response.Error(c, http.StatusBadRequest, "START_IN_PAST", "Start time is in the past")
	case errors.Is(err, ErrLinkNotFound):
		response.Error(c, http.StatusNotFound, "LINK_NOT_FOUND", "Scheduling link not found")
	case errors.Is(err, ErrSchedulingPaused):
		response.Error(c, http.StatusConflict, "SCHEDULING_PAUSED", "This scheduling link is paused")
	case errors.Is(err, ErrBeyondHorizon):
		response.Error(c, http.StatusUnprocessableEntity, "BEYOND_HORIZON", "Start time is too far in the future")
	case errors.Is(err, ErrDailyCapReached):
		response.Error(c, http.StatusUnprocessableEntity, "DAILY_CAP_REACHED", "No more bookings are available on this day")
	case errors.Is(err, ErrSlotUnavailable):
		response.Error(c, http.StatusConflict, "SLOT_UNAVAILABLE", "This time is no longer available")
	case errors.Is(err, ErrInvalidToken):
		response.Error(c, http.StatusForbidden, "INVALID_TOKEN", "This link is invalid or has expired")
	default:
		log.Printf("booking_request_error path=%s err=%v", c.FullPath(), err)
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to process booking")
	}
}
