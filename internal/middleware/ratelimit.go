package middleware

import (
	"fmt"
	"net/http"

	"github.com/benvon/productivity-assistant/internal/request"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	stdlibmw "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.uber.org/zap"
)

const (
	// DefaultRateLimit applies when no rate is configured
	DefaultRateLimit = "10-M"
	rateLimitPrefix  = "assistant:ratelimit"
)

// RateLimit limits requests per client IP. Counters live in Redis when a
// client is given and in process memory otherwise. rate uses the limiter
// format, e.g. "10-M".
func RateLimit(rate string, redisClient *redis.Client, logger *zap.Logger) (func(http.Handler) http.Handler, error) {
	if rate == "" {
		rate = DefaultRateLimit
	}
	parsed, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, fmt.Errorf("invalid rate limit %q: %w", rate, err)
	}

	var store limiter.Store
	if redisClient != nil {
		store, err = redisstore.NewStoreWithOptions(redisClient, limiter.StoreOptions{Prefix: rateLimitPrefix})
		if err != nil {
			return nil, fmt.Errorf("failed to create rate limit store: %w", err)
		}
	} else {
		store = memory.NewStoreWithOptions(limiter.StoreOptions{Prefix: rateLimitPrefix})
	}

	instance := limiter.New(store, parsed)
	mw := stdlibmw.NewMiddleware(instance,
		stdlibmw.WithKeyGetter(request.ClientIP),
		stdlibmw.WithLimitReachedHandler(func(w http.ResponseWriter, r *http.Request) {
			WriteError(w, r, http.StatusTooManyRequests, "Too Many Requests", "Rate limit exceeded, try again later", logger)
		}),
	)
	if logger != nil {
		logger.Info("rate_limit_configured", zap.String("rate", rate), zap.Bool("redis", redisClient != nil))
	}
	return mw.Handler, nil
}
