package middleware

import (
	"net/http"

	"watergrid/pkg/audit"
	"watergrid/pkg/config"
	"watergrid/pkg/ratelimit"
	"watergrid/pkg/telemetry"
)

// ServerConfig конфигурация серверной цепочки middleware
type ServerConfig struct {
	ServiceName   string
	EnableTracing bool
	EnableAudit   bool
	RateLimiter   ratelimit.Limiter
	AuditLogger   audit.Logger
	AuditExclude  map[string]bool
	KeyExtractor  ratelimit.KeyExtractor
	MaxBodyBytes  int64
	CORS          *config.CORSConfig
}

// Handler оборачивает обработчик серверной цепочкой middleware
func Handler(next http.Handler, cfg *ServerConfig) http.Handler {
	middlewares := []Middleware{
		Recovery(),
	}

	// CORS до rate limiting, чтобы preflight не тратил лимит
	if cfg.CORS != nil && cfg.CORS.Enabled {
		middlewares = append(middlewares, CORS(*cfg.CORS))
	}

	middlewares = append(middlewares, RequestID())

	// Rate Limiting
	if cfg.RateLimiter != nil {
		middlewares = append(middlewares, RateLimit(cfg.RateLimiter, cfg.KeyExtractor))
	}

	// Tracing
	if cfg.EnableTracing {
		middlewares = append(middlewares, telemetry.HTTPMiddleware)
	}

	// Metrics
	middlewares = append(middlewares, Metrics())

	// Logging
	middlewares = append(middlewares, Logging())

	// Ограничение размера тела
	if cfg.MaxBodyBytes > 0 {
		middlewares = append(middlewares, BodyLimit(cfg.MaxBodyBytes))
	}

	// Audit (последним, чтобы логировать результат)
	if cfg.EnableAudit && cfg.AuditLogger != nil {
		middlewares = append(middlewares, Audit(&AuditConfig{
			ServiceName:  cfg.ServiceName,
			ExcludePaths: cfg.AuditExclude,
			Logger:       cfg.AuditLogger,
		}))
	}

	return Chain(next, middlewares...)
}
