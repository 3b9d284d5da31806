package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/nhannt26/e-commerce-website-v3/api/responses"
	pkgerrors "github.com/nhannt26/e-commerce-website-v3/pkg/errors"
	"github.com/nhannt26/e-commerce-website-v3/pkg/logger"
)

// Limiter counts hits per scope inside a fixed window.
type Limiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// RateLimit applies a fixed window per client IP. A limiter outage lets the
// request through and logs the failure.
func RateLimit(name string, limit int, window time.Duration, store Limiter, logg *logger.Logger) func(http.Handler) http.Handler {
	return fixedWindow(name, limit, window, store, logg, func(ctx context.Context, w http.ResponseWriter) {
		responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many requests, please try again later"))
	})
}

// IPNRateLimit throttles gateway notifications. Rejections keep the
// {RspCode, Message} acknowledgement body so the gateway reads a retry
// answer rather than an API error envelope.
func IPNRateLimit(limit int, window time.Duration, store Limiter, logg *logger.Logger) func(http.Handler) http.Handler {
	return fixedWindow("ipn", limit, window, store, logg, func(_ context.Context, w http.ResponseWriter) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]string{"RspCode": "99", "Message": "Too many requests"})
	})
}

func fixedWindow(name string, limit int, window time.Duration, store Limiter, logg *logger.Logger, reject func(context.Context, http.ResponseWriter)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if store == nil || limit <= 0 || window <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ip := ClientIP(r)
			allowed, count, err := store.FixedWindowAllow(ctx, name+":"+ip, int64(limit), window)
			if err != nil {
				if logg != nil {
					logg.Error(ctx, "rate limiter unavailable", err)
				}
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
			remaining := int64(limit) - count
			if remaining < 0 {
				remaining = 0
			}
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
			if !allowed {
				if logg != nil {
					logg.Warn(logg.WithFields(ctx, map[string]any{
						"policy":         name,
						"ip":             ip,
						"attempts":       count,
						"window_seconds": int(window.Seconds()),
					}), "rate_limit.blocked")
				}
				w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
				reject(ctx, w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
