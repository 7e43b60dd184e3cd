package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RateLimit allows perMinute requests per client IP, with bursts of the same
// size. Rejected requests are handed to onLimit, which must write the response.
func RateLimit(perMinute int, onLimit gin.HandlerFunc) gin.HandlerFunc {
	if perMinute <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	limiters := cache.New(10*time.Minute, 10*time.Minute)
	every := time.Minute / time.Duration(perMinute)

	return func(c *gin.Context) {
		ip := c.ClientIP()
		if err := limiters.Add(ip, rate.NewLimiter(rate.Every(every), perMinute), cache.DefaultExpiration); err == nil {
			Logger(c).Debug("new rate limiter", zap.String("client_ip", ip))
		}
		v, ok := limiters.Get(ip)
		if !ok {
			c.Next()
			return
		}
		if !v.(*rate.Limiter).Allow() {
			Logger(c).Warn("rate limit exceeded", zap.String("client_ip", ip), zap.String("path", c.Request.URL.Path))
			onLimit(c)
			c.Abort()
			return
		}
		// Keep active clients' limiters alive.
		limiters.SetDefault(ip, v)
		c.Next()
	}
}
