package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"planner/internal/domain"
	"planner/internal/pkg/response"
)

// Handler manages all HTTP interactions for authentication
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterPublicRoutes(v1 *gin.RouterGroup) {
	authGroup := v1.Group("/auth")
	{
		authGroup.POST("/register", h.Register)
		authGroup.POST("/login", h.Login)
	}
}

func (h *Handler) RegisterProtectedRoutes(owner *gin.RouterGroup) {
	owner.GET("/me", h.GetMe)
	owner.PUT("/me", h.UpdateProfile)
}

// Register creates an owner account and returns a session token.
// @Summary		Register owner
// @Tags		Auth
// @Param		request	body	RegisterRequest	true	"name, email, password"
// @Success		201	{object}		map[string]interface{}
// @Failure		400	{object}		map[string]interface{}
// @Failure		409	{object}		map[string]interface{}
// @Router		/auth/register [POST]
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	session, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, ErrEmailAlreadyExists) {
			response.Error(c, http.StatusConflict, "EMAIL_EXISTS", "This email is already registered")
			return
		}
		response.Error(c, http.StatusInternalServerError, "REGISTRATION_FAILED", "Failed to register")
		return
	}
	response.Success(c, http.StatusCreated, sessionResponse(session))
}

// Login exchanges credentials for a session token.
// @Summary		Login
// @Tags		Auth
// @Param		request	body	LoginRequest	true	"email, password"
// @Success		200	{object}		map[string]interface{}
// @Failure		401	{object}		map[string]interface{}
// @Failure		423	{object}		map[string]interface{}
// @Router		/auth/login [POST]
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	session, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			response.Error(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Email or password is incorrect")
		case errors.Is(err, ErrAccountLocked):
			response.Error(c, http.StatusLocked, "ACCOUNT_LOCKED", "Too many failed attempts, try again later")
		default:
			response.Error(c, http.StatusInternalServerError, "LOGIN_FAILED", "Failed to login")
		}
		return
	}
	response.Success(c, http.StatusOK, sessionResponse(session))
}

func (h *Handler) GetMe(c *gin.Context) {
	owner, err := h.service.GetCurrentOwner(c.Request.Context(), c.GetInt64("user_id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.Error(c, http.StatusNotFound, "NOT_FOUND", "Owner not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load profile")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"owner": publicOf(owner)})
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	owner, err := h.service.UpdateProfile(c.Request.Context(), c.GetInt64("user_id"), req)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "UPDATE_FAILED", "Could not update profile")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"owner": publicOf(owner)})
}

func publicOf(o *domain.Owner) OwnerPublic {
	return OwnerPublic{ID: o.ID, Role: domain.RoleOwner, Name: o.Name, Email: o.Email}
}

func sessionResponse(s *Session) SessionResponse {
	return SessionResponse{Owner: publicOf(s.Owner), Token: s.Token}
}
