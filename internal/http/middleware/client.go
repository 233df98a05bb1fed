package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/diagnosis/formrelay/pkg/logger"
)

// ClientKey stores the caller's IP in the request context; the submission
// cooldown is keyed by it. Forwarding headers are honoured only when
// trustProxy is set, otherwise any caller could pick its own key.
func ClientKey(trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := getClientIP(r, trustProxy)
			ctx := logger.With(r.Context(), logger.ClientKey, ip)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClientFromContext returns the key set by ClientKey, or "" when absent.
func ClientFromContext(ctx context.Context) string {
	ip, _ := ctx.Value(logger.ClientKey).(string)
	return ip
}

// getClientIP extracts the real client IP from the request
func getClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		// Take the first IP if there are multiple
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			if idx := strings.Index(xff, ","); idx != -1 {
				return strings.TrimSpace(xff[:idx])
			}
			return strings.TrimSpace(xff)
		}
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return strings.TrimSpace(xri)
		}
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
