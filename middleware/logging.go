package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const RequestIDContextKey contextKey = "request_id"

// RequestID adds a unique request ID to each request
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		ctx := context.WithValue(r.Context(), RequestIDContextKey, requestID)
		w.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID returns the request ID set by RequestID, or "".
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDContextKey).(string)
	return id
}

// Logging writes one access log line per request and recovers panics.
func Logging(logger *zap.Logger) func(http.Handler) http.Handler {
	logger = logger.Named("http")
	return middleware.RequestLogger(&accessLogger{logger: logger})
}

type accessLogger struct {
	logger *zap.Logger
}

func (l *accessLogger) NewLogEntry(r *http.Request) middleware.LogEntry {
	return &accessLogEntry{logger: l.logger, request: r}
}

type accessLogEntry struct {
	logger  *zap.Logger
	request *http.Request
}

func (e *accessLogEntry) Write(status, bytes int, _ http.Header, elapsed time.Duration, _ interface{}) {
	fields := []zap.Field{
		zap.String("request_id", GetRequestID(e.request.Context())),
		zap.String("method", e.request.Method),
		zap.String("path", e.request.URL.Path),
		zap.Int("status", status),
		zap.Int("bytes", bytes),
		zap.Int64("elapsed_ms", elapsed.Milliseconds()),
		zap.String("remote_addr", e.request.RemoteAddr),
	}
	if status >= http.StatusInternalServerError {
		e.logger.Warn("HTTP request completed", fields...)
		return
	}
	e.logger.Info("HTTP request completed", fields...)
}

func (e *accessLogEntry) Panic(v interface{}, stack []byte) {
	e.logger.Error("HTTP request panic",
		zap.Any("panic", v),
		zap.ByteString("stack", stack),
		zap.String("method", e.request.Method),
		zap.String("path", e.request.URL.Path),
	)
}

// Recoverer turns handler panics into 500 responses. Place it inside Logging so the panic is
// logged with the request.
func Recoverer(next http.Handler) http.Handler {
	return middleware.Recoverer(next)
}
