package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/guttosm/finfetch/internal/domain/dto"
	"github.com/guttosm/finfetch/internal/ratelimit"
)

// RateLimiter limits requests per client IP to limit per window using a
// token bucket per client.
//
// Behavior:
//   - Identifies clients by c.ClientIP().
//   - Allows a burst of up to limit requests, refilled evenly across window.
//   - If the bucket is empty, aborts with 429 Too Many Requests and a Retry-After header.
//   - Forgets idle clients after a few windows.
//
// Parameters:
//   - limit (int): requests per window per client; <= 0 disables limiting.
//   - window (time.Duration): the refill period; <= 0 disables limiting.
//
// Returns:
//   - gin.HandlerFunc: A middleware function for use in Gin router.
//
// Response when limit exceeded:
//
//	HTTP/1.1 429 Too Many Requests
//	Retry-After: 1
//	{"error": "rate limit exceeded", ...}
func RateLimiter(limit int, window time.Duration) gin.HandlerFunc {
	if limit <= 0 || window <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	clients := ratelimit.NewKeyed(limit, window)
	retryAfter := strconv.Itoa(int((window / time.Duration(limit)).Round(time.Second).Seconds()))
	if retryAfter == "0" {
		retryAfter = "1"
	}
	return func(c *gin.Context) {
		if !clients.Get(c.ClientIP()).Allow() {
			c.Header("Retry-After", retryAfter)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.NewErrorResponse("rate limit exceeded", nil))
			return
		}
		c.Next()
	}
}
