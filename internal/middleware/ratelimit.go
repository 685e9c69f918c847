package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	ginlimiter "github.com/ulule/limiter/v3/drivers/middleware/gin"
	memory "github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.uber.org/zap"

	"github.com/sparkbytes/foodfinder/pkg/response"
)

// RateLimit returns a middleware that limits requests per caller to perMinute
// within a one-minute period. Authenticated callers are keyed by user id,
// everyone else by client IP. Counters live in Redis when rdb is
// set, so every API instance shares them; scope keeps routes apart.
func RateLimit(scope string, perMinute int, rdb *goredis.Client, logger *zap.Logger) gin.HandlerFunc {
	if perMinute <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	rate := limiter.Rate{
		Period: time.Minute,
		Limit:  int64(perMinute),
	}
	var store limiter.Store
	if rdb != nil {
		shared, err := sredis.NewStoreWithOptions(rdb, limiter.StoreOptions{Prefix: "ratelimit:" + scope})
		if err != nil {
			logger.Warn("redis rate limit store unavailable, using memory", zap.String("scope", scope), zap.Error(err))
		} else {
			store = shared
		}
	}
	if store == nil {
		store = memory.NewStoreWithOptions(limiter.StoreOptions{
			Prefix:          "ratelimit:" + scope,
			CleanUpInterval: limiter.DefaultCleanUpInterval,
		})
	}
	instance := limiter.New(store, rate)
	return ginlimiter.NewMiddleware(instance,
		ginlimiter.WithKeyGetter(limitKey),
		ginlimiter.WithLimitReachedHandler(func(c *gin.Context) {
			response.TooManyRequests(c, "Too many requests, please try again shortly")
		}),
		ginlimiter.WithErrorHandler(func(c *gin.Context, err error) {
			logger.Error("rate limiter failed", zap.Error(err))
			response.Internal(c, "Internal server error")
		}),
	)
}

func limitKey(c *gin.Context) string {
	if id, ok := UserID(c); ok {
		return "user:" + id.String()
	}
	return "ip:" + c.ClientIP()
}
