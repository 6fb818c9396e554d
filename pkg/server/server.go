package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"watergrid/pkg/audit"
	"watergrid/pkg/config"
	"watergrid/pkg/logger"
	"watergrid/pkg/metrics"
	"watergrid/pkg/middleware"
	"watergrid/pkg/ratelimit"
	"watergrid/pkg/telemetry"
)

// HTTPServer обёртка над http.Server
type HTTPServer struct {
	server      *http.Server
	handler     http.Handler
	serviceName string
	config      *config.Config
	telemetry   *telemetry.Provider
	rateLimiter ratelimit.Limiter
	auditLogger audit.Logger
}

// New создаёт новый HTTP сервер
func New(cfg *config.Config, handler http.Handler) *HTTPServer {
	return NewWithOptions(cfg, handler, nil)
}

// ServerOptions дополнительные опции сервера
type ServerOptions struct {
	RateLimiter       ratelimit.Limiter
	AuditLogger       audit.Logger
	AuditExcludePaths []string
	KeyExtractor      ratelimit.KeyExtractor
}

// NewWithOptions создаёт сервер с дополнительными опциями
func NewWithOptions(cfg *config.Config, handler http.Handler, opts *ServerOptions) *HTTPServer {
	if opts == nil {
		opts = &ServerOptions{}
	}

	rateLimiter := opts.RateLimiter
	if rateLimiter == nil && cfg.RateLimit.Enabled {
		var err error
		rateLimiter, err = ratelimit.New(&ratelimit.Config{
			Requests:        cfg.RateLimit.Requests,
			Window:          cfg.RateLimit.Window,
			Strategy:        cfg.RateLimit.Strategy,
			KeyFunc:         cfg.RateLimit.KeyFunc,
			Backend:         cfg.RateLimit.Backend,
			BurstSize:       cfg.RateLimit.BurstSize,
			CleanupInterval: cfg.RateLimit.CleanupInterval,
			RedisAddr:       cfg.RateLimit.RedisAddr,
		})
		if err != nil {
			logger.Log.Warn("Failed to create rate limiter, continuing without it", "error", err)
			rateLimiter = nil
		} else {
			logger.Log.Info("Rate limiter initialized",
				"requests", cfg.RateLimit.Requests,
				"window", cfg.RateLimit.Window,
				"strategy", cfg.RateLimit.Strategy,
			)
		}
	}

	auditLogger := opts.AuditLogger
	if auditLogger == nil && cfg.Audit.Enabled {
		var err error
		auditLogger, err = audit.New(&audit.Config{
			Enabled:         cfg.Audit.Enabled,
			Backend:         cfg.Audit.Backend,
			FilePath:        cfg.Audit.FilePath,
			BufferSize:      cfg.Audit.BufferSize,
			FlushPeriod:     cfg.Audit.FlushPeriod,
			ExcludePaths:    cfg.Audit.ExcludePaths,
			IncludeRequest:  cfg.Audit.IncludeRequest,
			IncludeResponse: cfg.Audit.IncludeResponse,
		})
		if err != nil {
			logger.Log.Warn("Failed to create audit logger, continuing without it", "error", err)
			auditLogger = nil
		} else {
			audit.SetGlobal(auditLogger)
			logger.Log.Info("Audit logger initialized", "backend", cfg.Audit.Backend)
		}
	}

	auditExclude := make(map[string]bool)
	for _, path := range opts.AuditExcludePaths {
		auditExclude[path] = true
	}
	for _, path := range cfg.Audit.ExcludePaths {
		auditExclude[path] = true
	}
	auditExclude["/healthz"] = true
	auditExclude["/readyz"] = true
	if cfg.Metrics.Enabled && cfg.Metrics.Path != "" {
		auditExclude[cfg.Metrics.Path] = true
	}

	keyExtractor := opts.KeyExtractor
	if keyExtractor == nil {
		keyExtractor = ratelimit.ExtractorFor(cfg.RateLimit.KeyFunc)
	}

	wrapped := middleware.Handler(handler, &middleware.ServerConfig{
		ServiceName:   cfg.App.Name,
		EnableTracing: cfg.Tracing.Enabled,
		EnableAudit:   cfg.Audit.Enabled && auditLogger != nil,
		RateLimiter:   rateLimiter,
		AuditLogger:   auditLogger,
		AuditExclude:  auditExclude,
		KeyExtractor:  keyExtractor,
		MaxBodyBytes:  cfg.HTTP.MaxBodyBytes,
		CORS:          &cfg.HTTP.CORS,
	})

	// h2c поддерживает HTTP/2 без TLS
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      h2c.NewHandler(wrapped, &http2.Server{}),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	return &HTTPServer{
		server:      srv,
		handler:     wrapped,
		serviceName: cfg.App.Name,
		config:      cfg,
		rateLimiter: rateLimiter,
		auditLogger: auditLogger,
	}
}

// Handler возвращает обработчик со всеми middleware
func (s *HTTPServer) Handler() http.Handler {
	return s.handler
}

// GetAuditLogger возвращает audit logger
func (s *HTTPServer) GetAuditLogger() audit.Logger {
	return s.auditLogger
}

// Run запускает сервер
func (s *HTTPServer) Run() error {
	ctx := context.Background()

	if s.config.Tracing.Enabled {
		tp, err := telemetry.Init(ctx, telemetry.Config{
			Enabled:     s.config.Tracing.Enabled,
			Endpoint:    s.config.Tracing.Endpoint,
			ServiceName: s.config.Tracing.ServiceName,
			Version:     s.config.App.Version,
			Environment: s.config.App.Environment,
			SampleRate:  s.config.Tracing.SampleRate,
		})
		if err != nil {
			logger.Log.Warn("Failed to init telemetry", "error", err)
		} else {
			s.telemetry = tp
			logger.Log.Info("Telemetry initialized",
				"endpoint", s.config.Tracing.Endpoint,
				"sample_rate", s.config.Tracing.SampleRate,
			)
		}
	}

	// Используем ListenConfig с контекстом вместо net.Listen
	lc := net.ListenConfig{}
	lis, err := lc.Listen(ctx, "tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	errCh := make(chan error, 1)

	go func() {
		logger.Log.Info("Starting HTTP server",
			"service", s.serviceName,
			"port", s.config.HTTP.Port,
			"environment", s.config.App.Environment,
			"version", s.config.App.Version,
		)
		if err := s.server.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	if m := metrics.Get(); m != nil {
		m.SetServiceInfo(s.config.App.Version, s.config.App.Environment)
	}

	// Логируем аудит событие старта сервиса
	if s.auditLogger != nil {
		entry := audit.NewEntry().
			Service(s.serviceName).
			Method("server.Start").
			Action(audit.ActionCreate).
			Outcome(audit.OutcomeSuccess).
			Meta("port", s.config.HTTP.Port).
			Meta("version", s.config.App.Version).
			Meta("environment", s.config.App.Environment).
			Build()
		if err := s.auditLogger.Log(ctx, entry); err != nil {
			logger.Log.Warn("Failed to log audit entry", "error", err)
		}
	}

	return s.waitForShutdown(errCh)
}

func (s *HTTPServer) waitForShutdown(errCh chan error) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Log.Info("Received shutdown signal", "signal", sig)
	}

	// Логируем аудит событие остановки
	if s.auditLogger != nil {
		entry := audit.NewEntry().
			Service(s.serviceName).
			Method("server.Shutdown").
			Action(audit.ActionUpdate).
			Outcome(audit.OutcomeSuccess).
			Meta("reason", "signal").
			Build()
		if err := s.auditLogger.Log(context.Background(), entry); err != nil {
			logger.Log.Warn("Failed to log audit entry", "error", err)
		}
	}

	timeout := s.config.HTTP.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Сначала дожидаемся активных запросов, потом закрываем зависимости
	if err := s.server.Shutdown(ctx); err != nil {
		logger.Log.Warn("Forcing server stop", "error", err)
		_ = s.server.Close()
	} else {
		logger.Log.Info("Server stopped gracefully")
	}

	if s.telemetry != nil {
		if err := s.telemetry.Shutdown(ctx); err != nil {
			logger.Log.Warn("Failed to shutdown telemetry", "error", err)
		}
	}

	if s.rateLimiter != nil {
		if err := s.rateLimiter.Close(); err != nil {
			logger.Log.Warn("Failed to close rate limiter", "error", err)
		}
	}

	if s.auditLogger != nil {
		if err := s.auditLogger.Close(); err != nil {
			logger.Log.Warn("Failed to close audit logger", "error", err)
		}
	}

	return nil
}

// Shutdown останавливает сервер gracefully
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Stop останавливает сервер немедленно
func (s *HTTPServer) Stop() {
	_ = s.server.Close()
}
