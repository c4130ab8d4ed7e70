package middleware

import (
	"net/http"
	"time"

	"github.com/18061718791/AITestCraft-sub000/internal/metrics"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// unmatchedRoute labels requests no route matched, keeping metric
// cardinality bounded.
const unmatchedRoute = "unmatched"

// Logging logs every request and records it in httpMetrics, labelled by the
// chi route pattern rather than the raw path. httpMetrics may be nil.
func Logging(logger logrus.FieldLogger, httpMetrics *metrics.HTTP) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	logger = logger.WithField("component", "http")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			duration := time.Since(start)
			httpMetrics.Observe(r.Method, routePattern(r), status, duration)

			entry := logger.WithFields(logrus.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   status,
				"duration": duration.String(),
				"bytes":    ww.BytesWritten(),
				"remote":   r.RemoteAddr,
			})
			switch {
			case status >= http.StatusInternalServerError:
				entry.Warn("request failed")
			default:
				entry.Info("request")
			}
		})
	}
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return unmatchedRoute
}
