package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/nhannt26/e-commerce-website-v3/pkg/logger"
)

// GatewayIPs are the VNPay IPN source addresses plus loopback.
var GatewayIPs = []string{"113.52.45.78", "203.171.19.146", "203.171.19.147", "127.0.0.1", "::1"}

// IPAllowlist rejects callers outside allowed with the gateway's own ack
// shape, so a spoofed IPN gets a protocol answer instead of an API error.
func IPAllowlist(allowed []string, enforce bool, logg *logger.Logger) func(http.Handler) http.Handler {
	set := make(map[string]struct{}, len(allowed))
	for _, ip := range allowed {
		set[ip] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		if !enforce {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ClientIP(r)
			if _, ok := set[ip]; ok {
				next.ServeHTTP(w, r)
				return
			}
			if logg != nil {
				logg.Warn(logg.WithField(r.Context(), "ip", ip), "ipn.ip_blocked")
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			_ = json.NewEncoder(w).Encode(map[string]string{"RspCode": "99", "Message": "Unauthorized IP address"})
		})
	}
}
