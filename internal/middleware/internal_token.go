package middleware

import (
	"crypto/subtle"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"planner/internal/pkg/response"
)

// InternalTokenAuth protects ops endpoints with a static bearer token and an
// optional client IP allow list. An empty token disables the endpoints.
func InternalTokenAuth(expected string, allowedIPs []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(allowedIPs))
	for _, ip := range allowedIPs {
		allowed[ip] = true
	}

	return func(c *gin.Context) {
		if expected == "" {
			logAuthFailure(c, http.StatusForbidden, "disabled")
			response.Abort(c, http.StatusForbidden, "AUTH_INVALID", "Internal endpoints are disabled")
			return
		}

		if len(allowed) > 0 && !allowed[c.ClientIP()] {
			logAuthFailure(c, http.StatusForbidden, "ip_not_allowed")
			response.Abort(c, http.StatusForbidden, "AUTH_INVALID", "IP not allowed")
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			logAuthFailure(c, http.StatusUnauthorized, "missing_auth")
			response.Abort(c, http.StatusUnauthorized, "AUTH_MISSING", "Authorization header is required")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			logAuthFailure(c, http.StatusUnauthorized, "invalid_auth_format")
			response.Abort(c, http.StatusUnauthorized, "AUTH_INVALID", "Authorization header must be 'Bearer <token>'")
			return
		}

		if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(expected)) != 1 {
			logAuthFailure(c, http.StatusForbidden, "invalid_token")
			response.Abort(c, http.StatusForbidden, "AUTH_INVALID", "Invalid internal token")
			return
		}

		c.Next()
	}
}

func logAuthFailure(c *gin.Context, status int, reason string) {
	log.Printf("internal_auth status=%d request_id=%s reason=%s", status, requestID(c), reason)
}
