package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nhannt26/e-commerce-website-v3/internal/inventory"
	"github.com/nhannt26/e-commerce-website-v3/internal/payments"
	pkgAuth "github.com/nhannt26/e-commerce-website-v3/pkg/auth"
	"github.com/nhannt26/e-commerce-website-v3/pkg/config"
	"github.com/nhannt26/e-commerce-website-v3/pkg/enums"
	"github.com/nhannt26/e-commerce-website-v3/pkg/metrics"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubProducts struct {
	inventory.Service
	lowStockCalls int
}

func (s *stubProducts) ListLowStock(context.Context) ([]inventory.ProductDTO, error) {
	s.lowStockCalls++
	return []inventory.ProductDTO{{ID: uuid.New(), Name: "Mug", Stock: 2}}, nil
}

type stubPayments struct {
	payments.Service
}

func (stubPayments) Reconcile(context.Context, map[string]string, payments.Source) payments.Outcome {
	return payments.Outcome{Kind: payments.OutcomeNotFound}
}

// countingLimiter allows limit hits per scope and never resets.
type countingLimiter struct {
	mu   sync.Mutex
	hits map[string]int64
}

func (l *countingLimiter) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.hits == nil {
		l.hits = map[string]int64{}
	}
	l.hits[scope]++
	return l.hits[scope] <= limit, l.hits[scope], nil
}

func testConfig(env string) *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: env, CORSOrigins: []string{"http://localhost:3000"}},
		JWT: config.JWTConfig{Secret: "secret", Issuer: "storefront", ExpirationMinutes: 60},
		Payment: config.PaymentConfig{
			FrontendURL: "http://localhost:3000",
		},
	}
}

func newTestRouter(t *testing.T, env string, deps Deps) http.Handler {
	t.Helper()
	return NewRouter(testConfig(env), nil, deps)
}

func bearer(t *testing.T, role enums.UserRole) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(testConfig("dev").JWT, time.Now(), pkgAuth.AccessTokenPayload{UserID: uuid.New(), Role: role})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return "Bearer " + token
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	return resp
}

func TestHealthRoutes(t *testing.T) {
	router := newTestRouter(t, "dev", Deps{DB: stubPinger{}})

	if resp := serve(router, httptest.NewRequest(http.MethodGet, "/health/live", nil)); resp.Code != http.StatusOK {
		t.Fatalf("live: expected 200 got %d", resp.Code)
	}
	resp := serve(router, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("ready: expected 200 got %d", resp.Code)
	}
	if resp.Header().Get("X-Request-Id") == "" {
		t.Fatal("expected request id header")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics.NewPaymentMetrics(reg).ObserveReconcile("ipn", "success")
	router := newTestRouter(t, "dev", Deps{Gatherer: reg})

	resp := serve(router, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "reconcile") {
		t.Fatalf("expected payment metrics in exposition, got %s", resp.Body.String())
	}
}

func TestOrdersRequireAuthentication(t *testing.T) {
	router := newTestRouter(t, "dev", Deps{})
	resp := serve(router, httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{}`)))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestCartAcceptsGuests(t *testing.T) {
	router := newTestRouter(t, "dev", Deps{})

	anonymous := serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))
	if anonymous.Code == http.StatusUnauthorized {
		t.Fatal("cart must not require a token")
	}

	bad := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	bad.Header.Set("Authorization", "Bearer nope")
	if resp := serve(router, bad); resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected invalid token to be rejected, got %d", resp.Code)
	}
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	products := &stubProducts{}
	router := newTestRouter(t, "dev", Deps{Products: products})

	customer := httptest.NewRequest(http.MethodGet, "/api/v1/admin/products/low-stock", nil)
	customer.Header.Set("Authorization", bearer(t, enums.UserRoleCustomer))
	if resp := serve(router, customer); resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for customer got %d", resp.Code)
	}

	admin := httptest.NewRequest(http.MethodGet, "/api/v1/admin/products/low-stock", nil)
	admin.Header.Set("Authorization", bearer(t, enums.UserRoleAdmin))
	resp := serve(router, admin)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin got %d", resp.Code)
	}
	if products.lowStockCalls != 1 {
		t.Fatalf("expected low-stock listing once, got %d", products.lowStockCalls)
	}
}

func TestIPNAllowlistOutsideDev(t *testing.T) {
	target := "/api/v1/payments/vnpay/ipn?vnp_TxnRef=ORD1_1"

	prod := newTestRouter(t, "prod", Deps{Payments: stubPayments{}})
	spoofed := httptest.NewRequest(http.MethodGet, target, nil)
	spoofed.RemoteAddr = "198.51.100.10:443"
	resp := serve(prod, spoofed)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 from unknown ip got %d", resp.Code)
	}

	gateway := httptest.NewRequest(http.MethodGet, target, nil)
	gateway.RemoteAddr = "113.52.45.78:443"
	resp = serve(prod, gateway)
	var ack map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		t.Fatalf("decode ack: %v", err)
	}
	if resp.Code != http.StatusOK || ack["RspCode"] != "01" {
		t.Fatalf("expected ack 01 from gateway ip, got %d %v", resp.Code, ack)
	}

	dev := newTestRouter(t, "dev", Deps{Payments: stubPayments{}})
	if resp := serve(dev, spoofed); resp.Code != http.StatusOK {
		t.Fatalf("expected allowlist off in dev, got %d", resp.Code)
	}
}

func TestVNPayReturnRedirects(t *testing.T) {
	router := newTestRouter(t, "dev", Deps{Payments: stubPayments{}})
	resp := serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/payments/vnpay/return?vnp_TxnRef=x", nil))
	if resp.Code != http.StatusFound {
		t.Fatalf("expected 302 got %d", resp.Code)
	}
	if got := resp.Header().Get("Location"); got != "http://localhost:3000/payment/failed?error=transaction_not_found" {
		t.Fatalf("unexpected redirect %q", got)
	}
}

func decodeAck(t *testing.T, resp *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	if ct := resp.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("expected json ack, got content type %q", ct)
	}
	var ack map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		t.Fatalf("decode ack: %v", err)
	}
	if _, ok := ack["RspCode"]; !ok {
		t.Fatalf("expected RspCode in body, got %v", ack)
	}
	return ack
}

func TestIPNKeepsAckShapeWhenThrottled(t *testing.T) {
	cfg := testConfig("dev")
	cfg.RateLimit = config.RateLimitConfig{Limit: 1, Window: time.Minute, IPNLimit: 2, IPNWindow: time.Minute}
	router := NewRouter(cfg, nil, Deps{Payments: stubPayments{}, Limiter: &countingLimiter{}})

	ipn := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/vnpay/ipn?vnp_TxnRef=ORD1_1", nil)
		req.RemoteAddr = "113.52.45.78:443"
		return serve(router, req)
	}
	api := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/vnpay/return?vnp_TxnRef=x", nil)
		req.RemoteAddr = "113.52.45.78:443"
		return serve(router, req)
	}

	api()
	if resp := api(); resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected api limiter saturated, got %d", resp.Code)
	}

	for i := 0; i < 2; i++ {
		resp := ipn()
		ack := decodeAck(t, resp)
		if resp.Code != http.StatusOK || ack["RspCode"] != "01" {
			t.Fatalf("ipn %d: expected handler ack 01 despite api throttle, got %d %v", i, resp.Code, ack)
		}
	}

	resp := ipn()
	ack := decodeAck(t, resp)
	if resp.Code != http.StatusTooManyRequests || ack["RspCode"] != "99" {
		t.Fatalf("expected throttled ack 99, got %d %v", resp.Code, ack)
	}
	if _, ok := ack["error"]; ok {
		t.Fatal("throttled ipn must not use the api error envelope")
	}
}

func TestIPNRejectsSpoofedForwardedFor(t *testing.T) {
	target := "/api/v1/payments/vnpay/ipn?vnp_TxnRef=ORD1_1"
	prod := newTestRouter(t, "prod", Deps{Payments: stubPayments{}})

	spoofed := httptest.NewRequest(http.MethodGet, target, nil)
	spoofed.RemoteAddr = "198.51.100.10:443"
	spoofed.Header.Set("X-Forwarded-For", "113.52.45.78")
	resp := serve(prod, spoofed)
	ack := decodeAck(t, resp)
	if resp.Code != http.StatusForbidden || ack["RspCode"] != "99" {
		t.Fatalf("expected spoofed header rejected with ack 99, got %d %v", resp.Code, ack)
	}

	cfg := testConfig("prod")
	cfg.App.TrustedProxies = []string{"10.0.0.0/8"}
	proxied := NewRouter(cfg, nil, Deps{Payments: stubPayments{}})
	viaProxy := httptest.NewRequest(http.MethodGet, target, nil)
	viaProxy.RemoteAddr = "10.1.2.3:443"
	viaProxy.Header.Set("X-Forwarded-For", "113.52.45.78")
	resp = serve(proxied, viaProxy)
	ack = decodeAck(t, resp)
	if resp.Code != http.StatusOK || ack["RspCode"] != "01" {
		t.Fatalf("expected gateway ip via trusted proxy accepted, got %d %v", resp.Code, ack)
	}
}
