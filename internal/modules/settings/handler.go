package settings

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"planner/internal/domain"
	"planner/internal/pkg/response"
	"planner/internal/pkg/validator"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the owner endpoints. The group must sit behind
// JWT auth.
func (h *Handler) RegisterRoutes(owner *gin.RouterGroup) {
	configs := owner.Group("/configurations")
	{
		configs.GET("", h.ListConfigurations)
		configs.POST("", h.CreateConfiguration)
		configs.PUT("/:id", h.UpdateConfiguration)
		configs.GET("/:id/bookings", h.ListBookings)
	}

	owner.GET("/preferences", h.GetPreferences)
	owner.PUT("/preferences", h.PutPreferences)

	items := owner.Group("/schedule-items")
	{
		items.GET("", h.ListItems)
		items.POST("", h.CreateItem)
		items.DELETE("/:id", h.DeleteItem)
	}
}

// @Summary List scheduling configurations
// @Tags Settings
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /owner/configurations [get]
// @Security Bearer
func (h *Handler) ListConfigurations(c *gin.Context) {
	ownerID, ok := currentOwner(c)
	if !ok {
		return
	}
	list, err := h.service.ListConfigurations(c.Request.Context(), ownerID)
	if err != nil {
		h.writeError(c, "list_configurations", ownerID, err)
		return
	}
	out := make([]ConfigurationView, 0, len(list))
	for i := range list {
		out = append(out, configurationView(&list[i]))
	}
	response.Success(c, http.StatusOK, gin.H{"configurations": out})
}

// @Summary Create a booking link
// @Tags Settings
// @Accept json
// @Produce json
// @Param request body ConfigurationRequest true "Link settings"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /owner/configurations [post]
// @Security Bearer
func (h *Handler) CreateConfiguration(c *gin.Context) {
	ownerID, ok := currentOwner(c)
	if !ok {
		return
	}
	var req ConfigurationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	cfg, err := h.service.CreateConfiguration(c.Request.Context(), ownerID, req)
	if err != nil {
		h.writeError(c, "create_configuration", ownerID, err)
		return
	}
	log.Printf("configuration_created owner_id=%d configuration_id=%d link_id=%s", ownerID, cfg.ID, cfg.LinkID)
	response.Success(c, http.StatusCreated, gin.H{"configuration": configurationView(cfg)})
}

func (h *Handler) UpdateConfiguration(c *gin.Context) {
	ownerID, ok := currentOwner(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req ConfigurationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	cfg, err := h.service.UpdateConfiguration(c.Request.Context(), ownerID, id, req)
	if err != nil {
		h.writeError(c, "update_configuration", ownerID, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"configuration": configurationView(cfg)})
}

// @Summary List bookings of a link
// @Tags Settings
// @Produce json
// @Param id path int true "Configuration ID"
// @Param from query string true "RFC3339 start"
// @Param to query string true "RFC3339 end"
// @Success 200 {object} map[string]interface{}
// @Router /owner/configurations/{id}/bookings [get]
// @Security Bearer
func (h *Handler) ListBookings(c *gin.Context) {
	ownerID, ok := currentOwner(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	from, to, ok := bindRange(c)
	if !ok {
		return
	}
	list, err := h.service.ListBookings(c.Request.Context(), ownerID, id, from, to)
	if err != nil {
		h.writeError(c, "list_bookings", ownerID, err)
		return
	}
	if list == nil {
		list = []domain.Booking{}
	}
	response.Success(c, http.StatusOK, gin.H{"bookings": list})
}

func (h *Handler) GetPreferences(c *gin.Context) {
	ownerID, ok := currentOwner(c)
	if !ok {
		return
	}
	view, err := h.service.GetPreferences(c.Request.Context(), ownerID)
	if err != nil {
		h.writeError(c, "get_preferences", ownerID, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"preferences": view})
}

// @Summary Save working preferences
// @Tags Settings
// @Accept json
// @Produce json
// @Param request body PreferencesRequest true "Working hours"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /owner/preferences [put]
// @Security Bearer
func (h *Handler) PutPreferences(c *gin.Context) {
	ownerID, ok := currentOwner(c)
	if !ok {
		return
	}
	var req PreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid preferences", errs)
		return
	}
	view, err := h.service.PutPreferences(c.Request.Context(), ownerID, req)
	if err != nil {
		h.writeError(c, "put_preferences", ownerID, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"preferences": view})
}

func (h *Handler) ListItems(c *gin.Context) {
	ownerID, ok := currentOwner(c)
	if !ok {
		return
	}
	from, to, ok := bindRange(c)
	if !ok {
		return
	}
	list, err := h.service.ListItems(c.Request.Context(), ownerID, from, to)
	if err != nil {
		h.writeError(c, "list_schedule_items", ownerID, err)
		return
	}
	if list == nil {
		list = []domain.ScheduleItem{}
	}
	response.Success(c, http.StatusOK, gin.H{"items": list})
}

func (h *Handler) CreateItem(c *gin.Context) {
	ownerID, ok := currentOwner(c)
	if !ok {
		return
	}
	var req ScheduleItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	it, err := h.service.CreateItem(c.Request.Context(), ownerID, req)
	if err != nil {
		h.writeError(c, "create_schedule_item", ownerID, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"item": it})
}

func (h *Handler) DeleteItem(c *gin.Context) {
	ownerID, ok := currentOwner(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.service.DeleteItem(c.Request.Context(), ownerID, id); err != nil {
		h.writeError(c, "delete_schedule_item", ownerID, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

func (h *Handler) writeError(c *gin.Context, op string, ownerID int64, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Not found")
	case errors.Is(err, ErrForbidden):
		response.Error(c, http.StatusForbidden, "FORBIDDEN", "Access denied")
	case errors.Is(err, ErrUnknownProvider):
		response.Error(c, http.StatusBadRequest, "UNKNOWN_CALENDAR_PROVIDER", err.Error())
	case errors.Is(err, ErrInvalidDurations):
		response.Error(c, http.StatusBadRequest, "INVALID_DURATIONS", err.Error())
	case errors.Is(err, ErrInvalidHours):
		response.Error(c, http.StatusBadRequest, "INVALID_HOURS", err.Error())
	case errors.Is(err, ErrInvalidRange):
		response.Error(c, http.StatusBadRequest, "INVALID_RANGE", err.Error())
	default:
		log.Printf("settings_error op=%s owner_id=%d err=%v", op, ownerID, err)
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Something went wrong")
	}
}

func currentOwner(c *gin.Context) (int64, bool) {
	id := c.GetInt64("user_id")
	if id == 0 {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return 0, false
	}
	return id, true
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid id")
		return 0, false
	}
	return id, true
}

func bindRange(c *gin.Context) (time.Time, time.Time, bool) {
	var q RangeQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "from and to are required")
		return time.Time{}, time.Time{}, false
	}
	from, err1 := time.Parse(time.RFC3339, q.From)
	to, err2 := time.Parse(time.RFC3339, q.To)
	if err1 != nil || err2 != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "from and to must be RFC3339")
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}
