package middleware

import (
	"context"
	"net"
	"net/http"
	"net/netip"
	"strings"

	"github.com/nhannt26/e-commerce-website-v3/pkg/logger"
)

const ctxClientIP contextKey = "client_ip"

// RealIP resolves the caller address once per request. X-Forwarded-For and
// X-Real-IP are only read when the socket peer is one of trusted (addresses
// or CIDR ranges); the address kept is the nearest hop that is not itself a
// trusted proxy.
func RealIP(trusted []string, logg *logger.Logger) func(http.Handler) http.Handler {
	prefixes := parseTrusted(trusted, logg)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := resolveClientIP(r, prefixes)
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxClientIP, ip)))
		})
	}
}

// ClientIP returns the address resolved by RealIP, falling back to the socket
// peer. Forwarding headers are never read here.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if ip, ok := r.Context().Value(ctxClientIP).(string); ok && ip != "" {
		return ip
	}
	return peerHost(r.RemoteAddr)
}

func resolveClientIP(r *http.Request, trusted []netip.Prefix) string {
	peer := peerHost(r.RemoteAddr)
	if !isTrusted(peer, trusted) {
		return peer
	}

	if header := r.Header.Get("X-Forwarded-For"); header != "" {
		hops := strings.Split(header, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			addr, err := netip.ParseAddr(hop)
			if err != nil {
				break
			}
			if !isTrusted(hop, trusted) {
				return addr.Unmap().String()
			}
		}
	}
	if header := strings.TrimSpace(r.Header.Get("X-Real-IP")); header != "" {
		if addr, err := netip.ParseAddr(header); err == nil {
			return addr.Unmap().String()
		}
	}
	return peer
}

func parseTrusted(entries []string, logg *logger.Logger) []netip.Prefix {
	prefixes := make([]netip.Prefix, 0, len(entries))
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			prefix, err := netip.ParsePrefix(entry)
			if err == nil {
				prefixes = append(prefixes, prefix.Masked())
				continue
			}
		} else if addr, err := netip.ParseAddr(entry); err == nil {
			addr = addr.Unmap()
			prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
			continue
		}
		if logg != nil {
			logg.Warn(logg.WithField(context.Background(), "entry", entry), "trusted proxy entry ignored")
		}
	}
	return prefixes
}

func isTrusted(ip string, trusted []netip.Prefix) bool {
	if len(trusted) == 0 {
		return false
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range trusted {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

func peerHost(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err == nil && host != "" {
		return host
	}
	return remoteAddr
}
