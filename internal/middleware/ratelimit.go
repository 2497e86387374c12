package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/campusbuzz/backend/pkg/response"
)

// RateLimitWindow is the fixed window for request counting.
const RateLimitWindow = time.Minute

// RateLimit allows at most limit requests per client IP per window for the named scope.
// Redis errors fail open so a cache outage does not lock users out.
func RateLimit(rdb redis.Cmdable, scope string, limit int, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		if limit <= 0 {
			c.Next()
			return
		}
		key := fmt.Sprintf("ratelimit:%s:%s", scope, c.ClientIP())
		ctx := c.Request.Context()
		// EXPIRE NX on every hit re-arms a counter that lost its TTL.
		var incr *redis.IntCmd
		var expire *redis.BoolCmd
		_, _ = rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
			incr = pipe.Incr(ctx, key)
			expire = pipe.ExpireNX(ctx, key, RateLimitWindow)
			return nil
		})
		n, err := incr.Result()
		if err != nil {
			logger.Warn("rate limit check failed", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}
		if err := expire.Err(); err != nil {
			logger.Warn("rate limit expire failed", zap.String("key", key), zap.Error(err))
		}
		if n > int64(limit) {
			c.Header("Retry-After", fmt.Sprintf("%d", int(RateLimitWindow.Seconds())))
			response.TooManyRequests(c, "too many requests, try again later")
			c.Abort()
			return
		}
		c.Next()
	}
}
