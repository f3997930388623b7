// internal/api/auth_middleware.go
package api

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Corphon/LocalVoice/internal/auth"
	"github.com/Corphon/LocalVoice/internal/models"
	"github.com/Corphon/LocalVoice/internal/utils"
)

const (
	ctxViewer = "viewer"
	// TokenCookie carries the bearer token for the server-rendered page.
	TokenCookie = "lv_token"
)

// AuthMiddleware resolves the viewer from the Authorization header or the
// token cookie. Missing or invalid credentials leave the visitor anonymous;
// individual routes decide whether that is acceptable.
func AuthMiddleware(authenticator auth.Authenticator, logger *utils.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		viewer, err := authenticator.Viewer(token)
		if err != nil {
			logger.Warn("invalid token, treating visitor as anonymous", map[string]interface{}{
				"error":      err.Error(),
				"request_id": c.GetString(ctxRequestID),
			})
			viewer = models.Viewer{}
			c.Set("auth_error", err.Error())
		}
		c.Set(ctxViewer, viewer)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	if cookie, err := c.Cookie(TokenCookie); err == nil {
		return cookie
	}
	return ""
}

// ViewerFromContext returns the viewer set by AuthMiddleware.
func ViewerFromContext(c *gin.Context) models.Viewer {
	if v, ok := c.Get(ctxViewer); ok {
		if viewer, ok := v.(models.Viewer); ok {
			return viewer
		}
	}
	return models.Viewer{}
}

// RequireViewer rejects anonymous visitors with 401.
func RequireViewer() gin.HandlerFunc {
	return func(c *gin.Context) {
		if v := ViewerFromContext(c); !v.Authenticated || v.UserID == "" {
			NewResponseHelper().Unauthorized(c, "Only registered users can publish articles")
			c.Abort()
			return
		}
		c.Next()
	}
}
