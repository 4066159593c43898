package http

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// adminTokenHeader carries the shared secret for the admin surface.
const adminTokenHeader = "X-Admin-Token"

// AdminAuth guards the administrative endpoints with a shared token. An
// empty configured token disables the surface entirely rather than leaving
// it open.
func AdminAuth(token string, logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "admin surface is not configured"})
			c.Abort()
			return
		}

		got := c.GetHeader(adminTokenHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			logger.Debug().Str("path", c.Request.URL.Path).Msg("admin token rejected")
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid admin token"})
			c.Abort()
			return
		}

		c.Next()
	}
}
