package feed

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"planner/internal/domain"
	"planner/internal/pkg/jwt"
	"planner/internal/pkg/response"
)

type Handler struct {
	hub      *Hub
	jwt      *jwt.Service
	upgrader websocket.Upgrader
}

// NewHandler accepts browser connections from allowedOrigins only; an empty
// list allows any origin.
func NewHandler(hub *Hub, jwtService *jwt.Service, allowedOrigins []string) *Handler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[strings.TrimRight(o, "/")] = true
	}
	return &Handler{
		hub: hub,
		jwt: jwtService,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || len(allowed) == 0 || allowed[origin]
			},
		},
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/feed", h.Serve)
}

// Serve upgrades to a websocket streaming the owner's booking events.
//
// Endpoint: GET /feed?token=JWT_TOKEN
//
// Browsers cannot set headers on a websocket handshake, so the token may come
// from the query string; a Bearer header works too.
func (h *Handler) Serve(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		token = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	}
	if token == "" {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Token is required")
		return
	}
	claims, err := h.jwt.ValidateToken(token)
	if err != nil {
		response.Error(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token")
		return
	}
	if claims.Role != domain.RoleOwner {
		response.Error(c, http.StatusForbidden, "FORBIDDEN", "Access denied")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("feed_upgrade_error owner_id=%d err=%v", claims.UserID, err)
		return
	}
	log.Printf("feed_connected owner_id=%d", claims.UserID)
	h.hub.Serve(conn, claims.UserID)
	log.Printf("feed_disconnected owner_id=%d", claims.UserID)
}
