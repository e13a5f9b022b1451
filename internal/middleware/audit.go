package middleware

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// AuditLog journalise les mutations admin une fois la réponse écrite
func AuditLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead || c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		actor := "anonymous"
		if p := CurrentPrincipal(c); p != nil {
			actor = p.Email + " (" + p.UserID.String() + ")"
		}
		status := c.Writer.Status()
		icon := "📝"
		if status >= http.StatusBadRequest {
			icon = "⚠️"
		}
		log.Printf("%s AUDIT %s %s par %s → %d (%s)", icon, c.Request.Method, c.Request.URL.Path, actor, status, time.Since(start))
	}
}
