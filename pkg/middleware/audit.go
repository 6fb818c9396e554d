package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"watergrid/pkg/apperror"
	"watergrid/pkg/audit"
	"watergrid/pkg/logger"
	"watergrid/pkg/ratelimit"
)

// AuditConfig конфигурация аудит middleware
type AuditConfig struct {
	ServiceName  string
	ExcludePaths map[string]bool
	Logger       audit.Logger
}

// Audit создаёт middleware для аудит логирования
func Audit(cfg *AuditConfig) Middleware {
	if cfg.Logger == nil {
		cfg.Logger = audit.Get()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Пропускаем исключённые пути
			if cfg.ExcludePaths != nil && cfg.ExcludePaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()

			rw := newResponseWriter(w)
			next.ServeHTTP(rw, r)

			duration := time.Since(start)

			// Строим аудит запись
			builder := audit.NewEntry().
				Service(cfg.ServiceName).
				Method(r.Method + " " + r.URL.Path).
				Action(routeAction(r)).
				User(r.Header.Get("X-User-Id")).
				Client(ratelimit.IPKeyExtractor(r), r.UserAgent()).
				RequestID(GetRequestID(r.Context())).
				Duration(duration)

			switch {
			case rw.status == http.StatusTooManyRequests:
				builder.Outcome(audit.OutcomeDenied).
					Error(string(apperror.CodeRateLimited), http.StatusText(rw.status))
			case rw.status >= http.StatusBadRequest:
				appErr := apperror.FromStatus(rw.status, http.StatusText(rw.status))
				builder.Outcome(audit.OutcomeFailure).
					Error(string(appErr.Code), appErr.Message)
			default:
				builder.Outcome(audit.OutcomeSuccess)
			}

			entry := builder.Build()

			// Асинхронно логируем
			go func() {
				if logErr := cfg.Logger.Log(context.Background(), entry); logErr != nil {
					logger.Log.Warn("Failed to write audit log", "error", logErr)
				}
			}()
		})
	}
}

// routeAction определяет действие по методу и пути запроса
func routeAction(r *http.Request) audit.Action {
	path := r.URL.Path
	switch {
	case strings.Contains(path, "/scenario"):
		return audit.ActionScenario
	case strings.Contains(path, "/validate"):
		return audit.ActionValidate
	case strings.Contains(path, "/export"):
		return audit.ActionExport
	case strings.Contains(path, "/import"):
		return audit.ActionImport
	case strings.Contains(path, "/flow") || strings.Contains(path, "/supply"):
		return audit.ActionCompute
	}

	switch r.Method {
	case http.MethodPost:
		return audit.ActionCreate
	case http.MethodPut, http.MethodPatch:
		return audit.ActionUpdate
	case http.MethodDelete:
		return audit.ActionDelete
	default:
		return audit.ActionRead
	}
}
