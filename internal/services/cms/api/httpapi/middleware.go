package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// logRequests logs one line per request and records it by route pattern.
func (a *api) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		var userID int64
		r = r.WithContext(context.WithValue(r.Context(), userSinkKey{}, &userID))

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)
		route := ""
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			route = rctx.RoutePattern()
		}
		a.metrics.ObserveRequest(r.Method, route, status, elapsed)

		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", elapsed),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		}
		if userID != 0 {
			fields = append(fields, zap.Int64("user_id", userID))
		}
		a.logger.Info("http request", fields...)
	})
}

// userSinkKey holds a *int64 that requireUser fills so the outer request
// logger can report the authenticated user.
type userSinkKey struct{}

func recordUser(ctx context.Context, userID int64) {
	if sink, ok := ctx.Value(userSinkKey{}).(*int64); ok {
		*sink = userID
	}
}
