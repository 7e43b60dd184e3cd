package middleware

import (
	"net/http"
	"strings"

	"stocks-trader/session"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// SessionCookie carries the session token for browser clients.
	SessionCookie = "session"
	userIDKey     = "user_id"
)

// SessionToken returns the token from the session cookie or, for API clients,
// from an "Authorization: Bearer" header.
func SessionToken(c *gin.Context) string {
	if token, err := c.Cookie(SessionCookie); err == nil && token != "" {
		return token
	}
	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}

// RequireSession lets the request through only with a live session and
// redirects everything else to the login page.
func RequireSession(sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := SessionToken(c)
		if token == "" {
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}

		userID, err := sessions.Resolve(c.Request.Context(), token)
		if err != nil {
			Logger(c).Debug("rejected session", zap.Error(err))
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}

		c.Set(userIDKey, userID)
		c.Set(loggerKey, Logger(c).With(zap.Uint("user_id", userID)))
		c.Next()
	}
}

// UserID returns the user authenticated by RequireSession.
func UserID(c *gin.Context) uint {
	return c.MustGet(userIDKey).(uint)
}

// CurrentUser is UserID for routes that may run without a session.
func CurrentUser(c *gin.Context) (uint, bool) {
	v, ok := c.Get(userIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}
