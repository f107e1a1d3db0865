package middleware

import (
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"kelvin-backend/internal/metrics"
)

// RateLimiter rejects clients that exceed the limiter's quota with 429.
// Limiter errors let the request through.
type RateLimiter struct {
	limiter Limiter
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewRateLimiter(limiter Limiter, logger *zap.Logger, m *metrics.Metrics) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimiter{limiter: limiter, logger: logger, metrics: m}
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := ClientAddr(r)

		d, err := rl.limiter.Allow(r.Context(), key)
		if err != nil {
			rl.logger.Warn("rate limiter unavailable, admitting request",
				zap.String("client", key),
				zap.Error(err),
			)
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))

		if !d.Allowed {
			rl.metrics.RateLimited()
			rl.logger.Info("rate limit exceeded",
				zap.String("client", key),
				zap.String("path", r.URL.Path),
			)
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(d.ResetAfter.Seconds()))))
			writeError(w, http.StatusTooManyRequests, "RATE_LIMITED",
				fmt.Sprintf("Rate limit exceeded: %d per %s", d.Limit, describeWindow(d.Window)), r)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// ClientAddr is the host part of the remote address. Behind a proxy, RealIP
// must run first with the proxy trusted.
func ClientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func describeWindow(d time.Duration) string {
	switch {
	case d == time.Minute:
		return "1 minute"
	case d == time.Hour:
		return "1 hour"
	case d > 0 && d%time.Minute == 0:
		return fmt.Sprintf("%d minutes", int(d/time.Minute))
	default:
		return d.String()
	}
}
