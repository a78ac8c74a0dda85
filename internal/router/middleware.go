package router

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"vantage-go/internal/repository"
)

// SessionLoader checks for a session id in the cookie. If found and the
// session row still exists, the id is added to the context. A stale cookie
// pointing at a deleted session is cleared so the client can start fresh.
func SessionLoader() gin.HandlerFunc {
	return func(c *gin.Context) {
		cookie := sessions.Default(c)
		raw, ok := cookie.Get("sessionID").(string)
		if !ok {
			c.Next()
			return
		}

		id, err := uuid.Parse(raw)
		if err != nil {
			cookie.Clear()
			cookie.Options(sessions.Options{Path: "/", MaxAge: -1})
			cookie.Save()
			c.Next()
			return
		}

		if _, err := repository.GetSession(c.Request.Context(), id); err != nil {
			cookie.Clear()
			cookie.Options(sessions.Options{Path: "/", MaxAge: -1})
			cookie.Save()
			c.Next()
			return
		}

		c.Set("sessionID", id)
		c.Next()
	}
}

// SessionRequired rejects requests that did not arrive with a valid bound
// session. Handlers behind it can rely on the sessionID context key.
func SessionRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, exists := c.Get("sessionID"); !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "no active session"})
			return
		}
		c.Next()
	}
}
