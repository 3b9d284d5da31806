package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type fakeLimiter struct {
	counts map[string]int64
	err    error
}

func (f *fakeLimiter) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	if f.err != nil {
		return false, 0, f.err
	}
	f.counts[scope]++
	return f.counts[scope] <= limit, f.counts[scope], nil
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimitBlocksPerIP(t *testing.T) {
	limiter := &fakeLimiter{counts: map[string]int64{}}
	handler := RateLimit("api", 2, time.Minute, limiter, nil)(okHandler())

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "1.2.3.4:5678"
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		if i < 2 && resp.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200 got %d", i, resp.Code)
		}
		if i == 2 {
			if resp.Code != http.StatusTooManyRequests {
				t.Fatalf("expected 429 got %d", resp.Code)
			}
			if resp.Header().Get("Retry-After") != "60" {
				t.Fatalf("expected Retry-After 60 got %q", resp.Header().Get("Retry-After"))
			}
		}
	}

	other := httptest.NewRequest(http.MethodGet, "/", nil)
	other.RemoteAddr = "9.9.9.9:5678"
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, other)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected other client to pass, got %d", resp.Code)
	}
}

func TestRateLimitFailsOpen(t *testing.T) {
	limiter := &fakeLimiter{err: errors.New("redis down")}
	resp := httptest.NewRecorder()
	RateLimit("api", 1, time.Minute, limiter, nil)(okHandler()).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected request through on limiter failure, got %d", resp.Code)
	}
}

func TestIPAllowlist(t *testing.T) {
	handler := IPAllowlist([]string{"113.52.45.78"}, true, nil)(okHandler())

	allowed := httptest.NewRequest(http.MethodGet, "/ipn", nil)
	allowed.RemoteAddr = "113.52.45.78:443"
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, allowed)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected gateway ip allowed, got %d", resp.Code)
	}

	blocked := httptest.NewRequest(http.MethodGet, "/ipn", nil)
	blocked.RemoteAddr = "8.8.8.8:443"
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, blocked)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
	var ack map[string]string
	if err := json.Unmarshal(resp.Body.Bytes(), &ack); err != nil {
		t.Fatalf("decode ack: %v", err)
	}
	if ack["RspCode"] != "99" {
		t.Fatalf("expected RspCode 99 got %v", ack)
	}

	open := IPAllowlist([]string{"113.52.45.78"}, false, nil)(okHandler())
	resp = httptest.NewRecorder()
	open.ServeHTTP(resp, blocked)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected allowlist bypass when not enforced, got %d", resp.Code)
	}
}

func TestRateLimitIgnoresForwardedForFromUntrustedPeer(t *testing.T) {
	limiter := &fakeLimiter{counts: map[string]int64{}}
	handler := RealIP(nil, nil)(RateLimit("api", 1, time.Minute, limiter, nil)(okHandler()))

	for i, spoof := range []string{"1.1.1.1", "2.2.2.2"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "1.2.3.4:5678"
		req.Header.Set("X-Forwarded-For", spoof)
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		if i == 1 && resp.Code != http.StatusTooManyRequests {
			t.Fatalf("expected rotating forwarded-for to share one bucket, got %d", resp.Code)
		}
	}
}

func TestIPNRateLimitAnswersWithAck(t *testing.T) {
	limiter := &fakeLimiter{counts: map[string]int64{}}
	handler := IPNRateLimit(1, time.Minute, limiter, nil)(okHandler())

	var resp *httptest.ResponseRecorder
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/ipn", nil)
		req.RemoteAddr = "113.52.45.78:443"
		resp = httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
	}
	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 got %d", resp.Code)
	}
	var ack map[string]string
	if err := json.Unmarshal(resp.Body.Bytes(), &ack); err != nil {
		t.Fatalf("decode ack: %v", err)
	}
	if ack["RspCode"] != "99" || ack["Message"] != "Too many requests" {
		t.Fatalf("unexpected ack %v", ack)
	}
	if _, ok := ack["error"]; ok {
		t.Fatalf("expected ack body without api error envelope, got %v", ack)
	}
}

func TestRealIPResolution(t *testing.T) {
	cases := []struct {
		name    string
		trusted []string
		remote  string
		xff     string
		realIP  string
		want    string
	}{
		{name: "no proxies configured", remote: "8.8.8.8:1000", xff: "113.52.45.78", want: "8.8.8.8"},
		{name: "untrusted peer", trusted: []string{"10.0.0.0/8"}, remote: "8.8.8.8:1000", xff: "113.52.45.78", want: "8.8.8.8"},
		{name: "trusted peer", trusted: []string{"10.0.0.0/8"}, remote: "10.1.2.3:1000", xff: "113.52.45.78", want: "113.52.45.78"},
		{name: "spoofed leftmost hop", trusted: []string{"10.0.0.0/8"}, remote: "10.1.2.3:1000", xff: "113.52.45.78, 8.8.8.8", want: "8.8.8.8"},
		{name: "chain of proxies", trusted: []string{"10.0.0.0/8", "192.168.0.7"}, remote: "10.1.2.3:1000", xff: "5.6.7.8, 192.168.0.7", want: "5.6.7.8"},
		{name: "real ip header", trusted: []string{"10.0.0.1"}, remote: "10.0.0.1:1000", realIP: "5.6.7.8", want: "5.6.7.8"},
		{name: "garbage header", trusted: []string{"10.0.0.1"}, remote: "10.0.0.1:1000", xff: "not-an-ip", want: "10.0.0.1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var got string
			handler := RealIP(tc.trusted, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = ClientIP(r)
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remote
			if tc.xff != "" {
				req.Header.Set("X-Forwarded-For", tc.xff)
			}
			if tc.realIP != "" {
				req.Header.Set("X-Real-IP", tc.realIP)
			}
			handler.ServeHTTP(httptest.NewRecorder(), req)
			if got != tc.want {
				t.Fatalf("expected %s got %s", tc.want, got)
			}
		})
	}
}

func TestIPAllowlistRejectsSpoofedForwardedFor(t *testing.T) {
	handler := RealIP([]string{"10.0.0.0/8"}, nil)(IPAllowlist([]string{"113.52.45.78"}, true, nil)(okHandler()))

	spoofed := httptest.NewRequest(http.MethodGet, "/ipn", nil)
	spoofed.RemoteAddr = "8.8.8.8:443"
	spoofed.Header.Set("X-Forwarded-For", "113.52.45.78")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, spoofed)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected spoofed forwarded-for rejected, got %d", resp.Code)
	}

	proxied := httptest.NewRequest(http.MethodGet, "/ipn", nil)
	proxied.RemoteAddr = "10.0.0.2:443"
	proxied.Header.Set("X-Forwarded-For", "113.52.45.78")
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, proxied)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected gateway behind trusted proxy allowed, got %d", resp.Code)
	}
}

func TestDeadlineBoundsRequestContext(t *testing.T) {
	var deadline time.Time
	var ok bool
	handler := Deadline(2 * time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deadline, ok = r.Context().Deadline()
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if !ok {
		t.Fatal("expected request deadline")
	}
	if remaining := time.Until(deadline); remaining <= 0 || remaining > 2*time.Second {
		t.Fatalf("unexpected remaining %v", remaining)
	}

	Deadline(0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok = r.Context().Deadline()
	})).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if ok {
		t.Fatal("expected no deadline when disabled")
	}
}

type memoryCache struct {
	entries map[string][]byte
	sets    int
}

func (m *memoryCache) Get(_ context.Context, scope, key string) ([]byte, bool, error) {
	value, ok := m.entries[scope+"|"+key]
	return value, ok, nil
}

func (m *memoryCache) Set(_ context.Context, scope, key string, value []byte, _ time.Duration) error {
	m.sets++
	m.entries[scope+"|"+key] = append([]byte(nil), value...)
	return nil
}

func (m *memoryCache) Invalidate(_ context.Context, scope string) error {
	for key := range m.entries {
		if len(key) > len(scope) && key[:len(scope)+1] == scope+"|" {
			delete(m.entries, key)
		}
	}
	return nil
}

func TestResponseCacheServesHits(t *testing.T) {
	store := &memoryCache{entries: map[string][]byte{}}
	calls := 0
	handler := ResponseCache(store, "products", time.Minute, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"id":"p1"}}`))
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/api/v1/products/p1", nil))
	if first.Header().Get("X-Cache") != "MISS" {
		t.Fatalf("expected MISS got %q", first.Header().Get("X-Cache"))
	}

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/api/v1/products/p1", nil))
	if second.Header().Get("X-Cache") != "HIT" {
		t.Fatalf("expected HIT got %q", second.Header().Get("X-Cache"))
	}
	if second.Body.String() != `{"data":{"id":"p1"}}` {
		t.Fatalf("unexpected cached body %s", second.Body.String())
	}
	if calls != 1 {
		t.Fatalf("expected handler once, ran %d", calls)
	}

	_ = store.Invalidate(context.Background(), "products")
	third := httptest.NewRecorder()
	handler.ServeHTTP(third, httptest.NewRequest(http.MethodGet, "/api/v1/products/p1", nil))
	if calls != 2 {
		t.Fatalf("expected invalidation to force a reload, ran %d", calls)
	}
}

func TestResponseCacheSkipsErrors(t *testing.T) {
	store := &memoryCache{entries: map[string][]byte{}}
	handler := ResponseCache(store, "products", time.Minute, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/products/missing", nil))
	if store.sets != 0 {
		t.Fatalf("expected 404 not cached")
	}
}
