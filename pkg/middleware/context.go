package middleware

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"io"
	"net/http"

	"watergrid/pkg/logger"
)

// Context keys
type contextKey string

const requestIDKey contextKey = "request_id"

// HeaderRequestID имя заголовка с идентификатором запроса
const HeaderRequestID = "X-Request-Id"

// GetRequestID извлекает request_id из контекста
func GetRequestID(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// WithRequestID добавляет request_id в контекст
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// GenerateRequestID генерирует уникальный ID запроса
func GenerateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := io.ReadFull(rand.Reader, bytes); err != nil {
		// Fallback: return empty string, caller should handle
		return "00000000"
	}
	return hex.EncodeToString(bytes)
}

// RequestID проставляет идентификатор запроса и request-scoped логгер
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(HeaderRequestID)
			if id == "" {
				id = GenerateRequestID()
			}

			ctx := WithRequestID(r.Context(), id)
			ctx = logger.IntoContext(ctx, logger.WithRequestID(id))

			w.Header().Set(HeaderRequestID, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
