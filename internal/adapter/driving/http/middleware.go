package httphandler

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"
)

// HTTPObserver receives one observation per served request.
type HTTPObserver interface {
	ObserveHTTP(method string, status int, elapsed time.Duration)
}

// MiddlewareOptions configures the optional parts of the middleware chain.
// Nil fields disable the corresponding middleware.
type MiddlewareOptions struct {
	Limiter  Limiter
	Observer HTTPObserver

	// TrustProxyHeaders keys rate limits on X-Real-IP / X-Forwarded-For.
	// Enable only behind a reverse proxy that overwrites them.
	TrustProxyHeaders bool
}

// ApplyMiddleware wraps h with rate limiting for POST requests, panic
// recovery, and request logging. Recovery sits inside logging so a recovered
// panic is still logged with its 500 status.
func ApplyMiddleware(h http.Handler, logger *slog.Logger, opts MiddlewareOptions) http.Handler {
	wrapped := h
	if opts.Limiter != nil {
		wrapped = rateLimitMiddleware(opts.Limiter, opts.TrustProxyHeaders, logger, wrapped)
	}
	wrapped = recoveryMiddleware(logger, wrapped)
	wrapped = loggingMiddleware(logger, opts.Observer, wrapped)
	return wrapped
}

// statusWriter wraps http.ResponseWriter to capture the response status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

// WriteHeader captures the status code and delegates to the embedded writer.
func (sw *statusWriter) WriteHeader(status int) {
	sw.status = status
	sw.ResponseWriter.WriteHeader(status)
}

// loggingMiddleware logs each HTTP request with method, path, status, and duration.
func loggingMiddleware(logger *slog.Logger, observer HTTPObserver, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		elapsed := time.Since(start)
		logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"duration", elapsed.Round(time.Microsecond),
		)
		if observer != nil {
			observer.ObserveHTTP(r.Method, sw.status, elapsed)
		}
	})
}

// recoveryMiddleware recovers from panics in HTTP handlers, logs the error,
// and returns a 500 response.
func recoveryMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				logger.Error("panic recovered",
					"panic", v,
					"path", r.URL.Path,
				)
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// rateLimitMiddleware limits POST requests per client. Limiter errors fail
// open so a Redis outage does not block subscription actions.
func rateLimitMiddleware(limiter Limiter, trustProxy bool, logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			next.ServeHTTP(w, r)
			return
		}

		allowed, err := limiter.Allow(r.Context(), clientKey(r, trustProxy))
		if err != nil {
			logger.Error("rate limiter error", "error", err)
			next.ServeHTTP(w, r)
			return
		}
		if !allowed {
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "too many requests")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientKey identifies the caller for rate limiting by the connection's
// remote host. With trustProxy, X-Real-IP and then the first X-Forwarded-For
// entry take precedence.
func clientKey(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if ip := r.Header.Get("X-Real-IP"); ip != "" {
			return ip
		}
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			first, _, _ := strings.Cut(fwd, ",")
			return strings.TrimSpace(first)
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
