package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// TokenAuth guards the API with a static bearer token. The proxy usually
// runs loopback-only with no auth at all; setting API_TOKEN hardens
// deployments that expose it on a LAN.
//
// The token is read from the Authorization header, falling back to a
// ?token= query parameter so <img> tags can load thumbnails.
func TokenAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		supplied := ""

		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
				supplied = parts[1]
			}
		}
		if supplied == "" {
			supplied = c.Query("token")
		}

		if subtle.ConstantTimeCompare([]byte(supplied), []byte(token)) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization required"})
			c.Abort()
			return
		}

		c.Next()
	}
}
