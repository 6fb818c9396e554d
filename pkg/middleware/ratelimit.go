package middleware

import (
	"fmt"
	"net/http"
	"time"

	"watergrid/pkg/logger"
	"watergrid/pkg/ratelimit"
)

// RateLimit ограничивает частоту запросов
func RateLimit(limiter ratelimit.Limiter, keyExtractor ratelimit.KeyExtractor) Middleware {
	if keyExtractor == nil {
		keyExtractor = ratelimit.IPKeyExtractor
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyExtractor(r)

			allowed, err := limiter.Allow(r.Context(), key)
			if err != nil {
				logger.Log.Warn("Rate limit check failed", "error", err, "key", key)
				// При ошибке пропускаем (fail open)
				next.ServeHTTP(w, r)
				return
			}

			if !allowed {
				limitInfo, infoErr := limiter.GetInfo(r.Context(), key)
				if infoErr != nil {
					logger.Log.Warn("Failed to get rate limit info", "error", infoErr, "key", key)
					limitInfo = &ratelimit.LimitInfo{
						Limit:   0,
						ResetAt: time.Now().Add(time.Minute),
					}
				}

				logger.Log.Warn("Rate limit exceeded",
					"key", key,
					"limit", limitInfo.Limit,
				)

				w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", limitInfo.Limit))
				w.Header().Set("X-RateLimit-Remaining", "0")
				w.Header().Set("X-RateLimit-Reset", limitInfo.ResetAt.Format(time.RFC3339))

				writeError(w, http.StatusTooManyRequests, "RATE_LIMITED",
					fmt.Sprintf("rate limit exceeded: %d requests per %v", limitInfo.Limit, time.Until(limitInfo.ResetAt).Round(time.Second)))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
