package schedule

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"planner/internal/pkg/response"
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
	owner.POST("/schedule/validate", h.Validate)
}

// @Summary Validate proposed schedule blocks
// @Tags Schedule
// @Accept json
// @Produce json
// @Param request body ValidateRequest true "Blocks to check"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /owner/schedule/validate [post]
// @Security Bearer
func (h *Handler) Validate(c *gin.Context) {
	ownerID := c.GetInt64("user_id")
	if ownerID == 0 {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	var req ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	res, err := h.service.Validate(c.Request.Context(), ownerID, req.toRequest())
	if err != nil {
		switch {
		case errors.Is(err, ErrNoBlocks), errors.Is(err, ErrUnknownConfidence):
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		case errors.Is(err, ErrTooManyBlocks):
			response.Error(c, http.StatusBadRequest, "TOO_MANY_BLOCKS", "At most 200 blocks per request")
		default:
			log.Printf("schedule_validate_error owner_id=%d err=%v", ownerID, err)
			response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to validate schedule")
		}
		return
	}
	response.Success(c, http.StatusOK, res)
}
