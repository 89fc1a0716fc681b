package availability

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"planner/internal/pkg/response"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the public link endpoints; links is the
// /links/:link group.
func (h *Handler) RegisterRoutes(links *gin.RouterGroup) {
	links.GET("", h.Describe)
	links.GET("/availability", h.GetAvailability)
}

func (h *Handler) Describe(c *gin.Context) {
	info, err := h.service.Describe(c.Request.Context(), c.Param("link"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, info)
}

func (h *Handler) GetAvailability(c *gin.Context) {
	var q AvailabilityQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "from and to are required")
		return
	}
	from, err := time.Parse(time.RFC3339, q.From)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "from must be an RFC 3339 time")
		return
	}
	to, err := time.Parse(time.RFC3339, q.To)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "to must be an RFC 3339 time")
		return
	}

	res, err := h.service.Availability(c.Request.Context(), Query{LinkID: c.Param("link"), From: from, To: to})
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrLinkNotFound):
		response.Error(c, http.StatusNotFound, "LINK_NOT_FOUND", "Scheduling link not found")
	case errors.Is(err, ErrSchedulingPaused):
		response.Error(c, http.StatusConflict, "SCHEDULING_PAUSED", "This scheduling link is paused")
	case errors.Is(err, ErrInvalidRange):
		response.Error(c, http.StatusBadRequest, "INVALID_RANGE", "from must be before to")
	case errors.Is(err, ErrRangeTooLong):
		response.Error(c, http.StatusBadRequest, "RANGE_TOO_LONG", "Range must not exceed 62 days")
	default:
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load availability")
	}
}
