// Copyright (c) 2026 TrustFlow. All rights reserved.

/*
Package middleware provides the HTTP middleware chain for the identity API.

# Architecture

Middleware here falls into two groups:

  - Plumbing: request IDs, structured logging, panic recovery, CORS,
    rate limiting. These have no knowledge of the identity domain.
  - Authorization: session authentication and permission enforcement
    (see authz.go). These translate opaque session tokens into a
    [sec.Principal] and gate routes on resource/action permissions.

Ordering matters: RequestID must run before StructuredLogger so the log
entries can be correlated, and Authenticate must run before RequireAuth
or RequirePermission.
*/
package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/trustflow/identity/internal/platform/apperr"
	"github.com/trustflow/identity/internal/platform/constants"
	"github.com/trustflow/identity/internal/platform/ctxutil"
	"github.com/trustflow/identity/internal/platform/respond"
)

// RequestID attaches a unique request ID to the context and response headers.
// If the client supplied X-Request-ID it is reused so traces span services.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		requestID := request.Header.Get(constants.HeaderXRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := ctxutil.WithRequestID(request.Context(), requestID)
		writer.Header().Set(constants.HeaderXRequestID, requestID)

		next.ServeHTTP(writer, request.WithContext(ctx))
	})
}

// StructuredLogger logs one line per request with latency and status, and
// attaches a request-scoped logger to the context.
func StructuredLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			start := time.Now()

			requestID := ctxutil.GetRequestID(request.Context())
			requestLogger := logger.With(
				slog.String("request_id", requestID),
				slog.String("method", request.Method),
				slog.String("path", request.URL.Path),
			)

			ctx := ctxutil.WithLogger(request.Context(), requestLogger)

			recorder := &statusRecorder{ResponseWriter: writer, status: http.StatusOK}
			next.ServeHTTP(recorder, request.WithContext(ctx))

			requestLogger.Info("http_request",
				slog.Int("status", recorder.status),
				slog.Duration("duration", time.Since(start)),
				slog.String("remote_ip", RealIP(request)),
			)
		})
	}
}

// statusRecorder captures the status code written by downstream handlers.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// PanicRecovery converts downstream panics into 500 responses instead of
// killing the connection.
func PanicRecovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			defer func() {
				if recovered := recover(); recovered != nil {
					logger.Error("panic_recovered",
						slog.Any("panic", recovered),
						slog.String("path", request.URL.Path),
					)
					respond.Error(writer, request, apperr.Internal(nil))
				}
			}()
			next.ServeHTTP(writer, request)
		})
	}
}

// RealIP returns the best-effort client IP, preferring reverse-proxy headers.
func RealIP(request *http.Request) string {
	if realIP := request.Header.Get(constants.HeaderXRealIP); realIP != "" {
		return realIP
	}
	if forwarded := request.Header.Get(constants.HeaderXForwardedFor); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(request.RemoteAddr)
	if err != nil {
		return request.RemoteAddr
	}
	return host
}

// RateLimit enforces a per-IP token bucket. Entries are evicted lazily when
// not seen for ipEvictAfter to bound memory on churn-heavy traffic.
func RateLimit(requestsPerSecond float64, burst int) func(http.Handler) http.Handler {
	type ipLimiter struct {
		limiter  *rate.Limiter
		lastSeen time.Time
	}

	const ipEvictAfter = 10 * time.Minute

	var (
		mu       sync.Mutex
		limiters = make(map[string]*ipLimiter)
	)

	getLimiter := func(ip string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()

		entry, exists := limiters[ip]
		if !exists {
			entry = &ipLimiter{limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst)}
			limiters[ip] = entry
		}
		entry.lastSeen = time.Now()

		// Lazy eviction sweep; cheap relative to map size at identity traffic levels.
		if len(limiters) > 10_000 {
			cutoff := time.Now().Add(-ipEvictAfter)
			for key, value := range limiters {
				if value.lastSeen.Before(cutoff) {
					delete(limiters, key)
				}
			}
		}

		return entry.limiter
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			if !getLimiter(RealIP(request)).Allow() {
				respond.Error(writer, request, apperr.RateLimited(1))
				return
			}
			next.ServeHTTP(writer, request)
		})
	}
}

// CORS applies the platform cross-origin policy. Only trusted origins may
// send credentials; others receive no CORS headers at all.
func CORS(extraOrigins []string) func(http.Handler) http.Handler {
	allowed := map[string]bool{
		"https://trustflow.app":     true,
		"https://www.trustflow.app": true,
		"http://localhost:3000":     true,
		"http://localhost:5173":     true,
	}
	for _, origin := range extraOrigins {
		if origin != "" {
			allowed[origin] = true
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			origin := request.Header.Get(constants.HeaderOrigin)
			if origin != "" && allowed[origin] {
				writer.Header().Set("Access-Control-Allow-Origin", origin)
				writer.Header().Set("Access-Control-Allow-Credentials", "true")
				writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
				writer.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
				writer.Header().Set("Access-Control-Max-Age", "86400")
				writer.Header().Add("Vary", "Origin")
			}

			if request.Method == http.MethodOptions {
				writer.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}
