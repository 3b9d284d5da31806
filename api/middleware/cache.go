package middleware

import (
	"net/http"
	"time"

	"github.com/nhannt26/e-commerce-website-v3/pkg/cache"
	"github.com/nhannt26/e-commerce-website-v3/pkg/logger"
)

const cacheHeader = "X-Cache"

// ResponseCache serves GET responses from store under scope. Only 200
// responses are stored; cache errors fall through to the handler.
func ResponseCache(store cache.Store, scope string, ttl time.Duration, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if store == nil || ttl <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			key := r.URL.RequestURI()

			body, ok, err := store.Get(ctx, scope, key)
			if err != nil && logg != nil {
				logg.Warn(logg.WithFields(ctx, map[string]any{"scope": scope, "error": err.Error()}), "cache.get_failed")
			}
			if ok {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set(cacheHeader, "HIT")
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write(body)
				return
			}

			w.Header().Set(cacheHeader, "MISS")
			rec := &responseCapture{ResponseWriter: w}
			next.ServeHTTP(rec, r)
			if rec.status != http.StatusOK && rec.status != 0 {
				return
			}
			if err := store.Set(ctx, scope, key, rec.body.Bytes(), ttl); err != nil && logg != nil {
				logg.Warn(logg.WithFields(ctx, map[string]any{"scope": scope, "error": err.Error()}), "cache.set_failed")
			}
		})
	}
}
