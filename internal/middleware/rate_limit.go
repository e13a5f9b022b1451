package middleware

import (
	"context"
	"log"
	"math"
	"net/http"
	"strconv"
	"time"

	"shop_back_end/internal/cache"

	"github.com/gin-gonic/gin"
)

type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (cache.RateLimitResult, error)
}

// RateLimit limite par utilisateur connecté, sinon par IP. Une erreur Redis laisse passer la requête.
func RateLimit(limiter Limiter, name string, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := name + ":ip:" + c.ClientIP()
		if p := CurrentPrincipal(c); p != nil {
			key = name + ":user:" + p.UserID.String()
		}

		res, err := limiter.Allow(c.Request.Context(), key, limit, window)
		if err != nil {
			log.Printf("⚠️ Rate limit %s indisponible: %v", name, err)
			c.Next()
			return
		}

		retryAfter := int(math.Ceil(res.Reset.Seconds()))
		c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		c.Header("X-RateLimit-Reset", strconv.Itoa(retryAfter))

		if !res.Allowed {
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":      "Too many requests",
				"retryAfter": retryAfter,
			})
			return
		}
		c.Next()
	}
}
