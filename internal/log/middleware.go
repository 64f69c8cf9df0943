package log

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

type contextKey string

const loggerContextKey contextKey = "logger"

// NewContext returns ctx carrying logger.
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey, logger)
}

// FromContext extracts a logger from the request context
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(loggerContextKey).(*Logger); ok {
		return logger
	}
	return Wrap(slog.Default(), "unknown")
}

// RequestLogger stores a request-scoped logger in the context and logs the
// start and completion of every request. It expects chi's RequestID and
// RealIP middleware to run first.
func RequestLogger(logger *Logger) func(http.Handler) http.Handler {
	httpLogger := logger.WithComponent(ComponentHTTP)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqID := middleware.GetReqID(r.Context())
			scoped := logger.With(FieldRequestID, reqID)
			ctx := NewContext(r.Context(), scoped)

			httpLogger.DebugContext(ctx, "HTTP request started", NewFields().
				WithRequestID(reqID).
				WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.UserAgent()).
				WithClientIP(r.RemoteAddr).
				ToSlice()...)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			level := slog.LevelInfo
			if status >= 500 {
				level = slog.LevelError
			} else if status >= 400 {
				level = slog.LevelWarn
			}
			fields := NewFields().
				WithComponent(ComponentHTTP).
				WithRequestID(reqID).
				WithHTTPRequest(r.Method, r.URL.Path, "", "").
				WithHTTPResponse(status, time.Since(start).Milliseconds()).
				WithClientIP(r.RemoteAddr)
			httpLogger.Logger.Log(ctx, level, "HTTP request completed", fields.ToSlice()...)
		})
	}
}
