package router

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-rental-go/internal/audit"
	"github.com/ovaphlow/pitchfork/service-rental-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-rental-go/internal/lifecycle"
	"github.com/ovaphlow/pitchfork/service-rental-go/internal/loyalty"
	"github.com/ovaphlow/pitchfork/service-rental-go/internal/notification"
)

// Prefix is the mount point of every route.
const Prefix = "/rental-api"

// loggingResponseWriter wraps http.ResponseWriter to capture status and size.
type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.status = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	if lrw.status == 0 {
		lrw.status = http.StatusOK
	}
	n, err := lrw.ResponseWriter.Write(b)
	lrw.size += n
	return n, err
}

// LoggingMiddleware returns a middleware that logs requests at debug level using the provided sugared logger.
func LoggingMiddleware(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lrw := &loggingResponseWriter{ResponseWriter: w}
			next.ServeHTTP(lrw, r)
			dur := time.Since(start)
			status := lrw.status
			if status == 0 {
				status = http.StatusOK
			}
			logger.Debugw("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
				"status", status,
				"duration_ms", float64(dur.Microseconds())/1000.0,
				"size", lrw.size,
			)
		})
	}
}

// SecurityHeadersMiddleware sets common HTTP security headers.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "no-referrer")
			h.Set("Cache-Control", "no-store")
			if r.TLS != nil {
				h.Set("Strict-Transport-Security", "max-age=2592000; includeSubDomains")
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Handlers groups the domain handlers mounted by RegisterRoutes.
type Handlers struct {
	Bookings      *lifecycle.Handler
	Audit         *audit.Handler
	Notifications *notification.Handler
	Loyalty       *loyalty.Handler
	Verifier      *auth.Verifier
	// Gatherer backs /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer
}

// RegisterRoutes mounts the rental API on a stdlib ServeMux. Everything but
// health and metrics requires a bearer token.
func RegisterRoutes(logger *zap.SugaredLogger, h Handlers) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET "+Prefix+"/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if h.Gatherer != nil {
		mux.Handle("GET "+Prefix+"/metrics", promhttp.HandlerFor(h.Gatherer, promhttp.HandlerOpts{}))
	}

	authn := h.Verifier.Middleware(logger)
	secured := func(pattern string, fn http.HandlerFunc, roles ...auth.Role) {
		if len(roles) > 0 {
			fn = auth.RequireRole(fn, roles...)
		}
		mux.Handle(pattern, authn(fn))
	}

	secured("POST "+Prefix+"/bookings", h.Bookings.Create)
	secured("GET "+Prefix+"/bookings/{id}", h.Bookings.Get)
	secured("POST "+Prefix+"/bookings/{id}/transitions", h.Bookings.Transition, auth.RoleAdmin, auth.RoleSystem)
	secured("POST "+Prefix+"/bookings/{id}/override", h.Bookings.Override, auth.RoleAdmin)
	secured("GET "+Prefix+"/bookings/{id}/audit", h.Audit.List, auth.RoleAdmin)
	secured("GET "+Prefix+"/bookings/{id}/audit/export", h.Audit.Export, auth.RoleAdmin)

	secured("GET "+Prefix+"/notifications", h.Notifications.List)
	secured("GET "+Prefix+"/notifications/broadcast", h.Notifications.Broadcast)
	secured("GET "+Prefix+"/notifications/unread-count", h.Notifications.UnreadCount)
	secured("POST "+Prefix+"/notifications/{id}/read", h.Notifications.MarkRead)
	secured("DELETE "+Prefix+"/notifications/{id}", h.Notifications.Delete)

	secured("GET "+Prefix+"/loyalty/me", h.Loyalty.Me)
	secured("GET "+Prefix+"/loyalty/tiers", h.Loyalty.Tiers)

	return LoggingMiddleware(logger)(SecurityHeadersMiddleware()(mux))
}
