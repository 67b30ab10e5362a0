package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"

	"resq/internal/utils"
)

// BridgeTokenRequired rejects requests that do not carry the shared bridge
// token. An empty token disables the check for loopback-only setups.
func BridgeTokenRequired(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}

		presented := bearerToken(c)
		if presented == "" || subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
			utils.UnauthorizedResponse(c)
			c.Abort()
			return
		}

		c.Next()
	}
}

// bearerToken reads the Authorization header, or the token query parameter
// for websocket upgrades where browsers cannot set headers.
func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			return ""
		}
		return strings.TrimSpace(tokenString)
	}
	return c.Query("token")
}
