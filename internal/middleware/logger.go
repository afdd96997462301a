package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const requestLogKey contextKey = "request_log"

// requestLog collects what inner middleware learns about a request, such as the
// authenticated user, so the access line can carry it.
type requestLog struct {
	userID int
}

func noteUser(ctx context.Context, userID int) {
	if rl, ok := ctx.Value(requestLogKey).(*requestLog); ok {
		rl.userID = userID
	}
}

// RequestLogger writes one access line per request. readable selects a one-line
// "METHOD path status duration" message for the console logger used outside prod;
// in prod the message is fixed and everything lives in the JSON fields.
// 5xx answers log at error level, 429 at warn.
func RequestLogger(logger *zap.Logger, readable bool) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			rl := &requestLog{}
			r = r.WithContext(context.WithValue(r.Context(), requestLogKey, rl))

			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}
				elapsed := time.Since(start)

				fields := []zap.Field{
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", status),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", elapsed),
					zap.String("remote_ip", r.RemoteAddr),
				}
				if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
					fields = append(fields, zap.String("route", rctx.RoutePattern()))
				}
				if reqID := middleware.GetReqID(r.Context()); reqID != "" {
					fields = append(fields, zap.String("request_id", reqID))
				}
				if rl.userID != 0 {
					fields = append(fields, zap.Int("user_id", rl.userID))
				}

				level := zapcore.InfoLevel
				switch {
				case status >= http.StatusInternalServerError:
					level = zapcore.ErrorLevel
				case status == http.StatusTooManyRequests:
					level = zapcore.WarnLevel
				}

				msg := "request completed"
				if readable {
					msg = fmt.Sprintf("%s %s %d %s", r.Method, r.URL.Path, status, elapsed)
				}
				logger.Log(level, msg, fields...)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
