package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nhannt26/e-commerce-website-v3/internal/coupons"
	"github.com/nhannt26/e-commerce-website-v3/internal/inventory"
	"github.com/nhannt26/e-commerce-website-v3/pkg/config"
	"github.com/nhannt26/e-commerce-website-v3/pkg/db/models"
	pkgerrors "github.com/nhannt26/e-commerce-website-v3/pkg/errors"
)

type stubInventory struct {
	inventory.Service
	product *inventory.ProductDTO
	err     error
	created inventory.CreateProductInput
	stock   int
	asked   int
}

func (s *stubInventory) GetAvailable(context.Context, uuid.UUID) (int, error) {
	return s.stock, s.err
}

func (s *stubInventory) CanFulfill(_ context.Context, _ uuid.UUID, qty int) (bool, error) {
	s.asked = qty
	return s.err == nil && qty <= s.stock, s.err
}

func (s *stubInventory) GetProduct(_ context.Context, id uuid.UUID) (*inventory.ProductDTO, error) {
	if s.err != nil {
		return nil, s.err
	}
	p := *s.product
	p.ID = id
	return &p, nil
}

func (s *stubInventory) CreateProduct(_ context.Context, input inventory.CreateProductInput) (*inventory.ProductDTO, error) {
	s.created = input
	return s.product, s.err
}

func (s *stubInventory) UpdateProduct(_ context.Context, _ uuid.UUID, _ inventory.UpdateProductInput) (*inventory.ProductDTO, error) {
	return s.product, s.err
}

type invalidationRecorder struct {
	scopes []string
}

func (c *invalidationRecorder) Get(context.Context, string, string) ([]byte, bool, error) {
	return nil, false, nil
}

func (c *invalidationRecorder) Set(context.Context, string, string, []byte, time.Duration) error {
	return nil
}

func (c *invalidationRecorder) Invalidate(_ context.Context, scope string) error {
	c.scopes = append(c.scopes, scope)
	return nil
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestProductDetail(t *testing.T) {
	svc := &stubInventory{product: &inventory.ProductDTO{Name: "Mug", FinalPrice: decimal.NewFromInt(120000)}}
	id := uuid.New()

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/v1/products/"+id.String(), nil), "productId", id.String())
	resp := httptest.NewRecorder()
	ProductDetail(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data inventory.ProductDTO `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.ID != id || envelope.Data.Name != "Mug" {
		t.Fatalf("unexpected product %+v", envelope.Data)
	}
}

func TestProductDetailErrors(t *testing.T) {
	bad := withURLParam(httptest.NewRequest(http.MethodGet, "/api/v1/products/x", nil), "productId", "x")
	resp := httptest.NewRecorder()
	ProductDetail(&stubInventory{}, nil).ServeHTTP(resp, bad)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed id got %d", resp.Code)
	}

	id := uuid.NewString()
	missing := withURLParam(httptest.NewRequest(http.MethodGet, "/api/v1/products/"+id, nil), "productId", id)
	resp = httptest.NewRecorder()
	ProductDetail(&stubInventory{err: pkgerrors.New(pkgerrors.CodeNotFound, "product not found")}, nil).ServeHTTP(resp, missing)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	ProductDetail(nil, nil).ServeHTTP(resp, missing)
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 without service got %d", resp.Code)
	}
}

func TestProductStock(t *testing.T) {
	svc := &stubInventory{stock: 3}
	id := uuid.NewString()

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/v1/products/"+id+"/stock?quantity=4", nil), "productId", id)
	resp := httptest.NewRecorder()
	ProductStock(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data stockResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Available != 3 || envelope.Data.CanFulfill || envelope.Data.Quantity != 4 || svc.asked != 4 {
		t.Fatalf("unexpected stock answer %+v", envelope.Data)
	}

	req = withURLParam(httptest.NewRequest(http.MethodGet, "/api/v1/products/"+id+"/stock", nil), "productId", id)
	resp = httptest.NewRecorder()
	ProductStock(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK || svc.asked != 1 {
		t.Fatalf("expected default quantity 1, got status %d asked %d", resp.Code, svc.asked)
	}

	req = withURLParam(httptest.NewRequest(http.MethodGet, "/api/v1/products/"+id+"/stock?quantity=0", nil), "productId", id)
	resp = httptest.NewRecorder()
	ProductStock(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for zero quantity got %d", resp.Code)
	}
}

func TestAdminCreateProductInvalidatesCache(t *testing.T) {
	svc := &stubInventory{product: &inventory.ProductDTO{ID: uuid.New(), SKU: "SKU-1"}}
	store := &invalidationRecorder{}

	body := `{"sku":"SKU-1","name":"Mug","price":"120000","stock":5}`
	resp := httptest.NewRecorder()
	AdminCreateProduct(svc, store, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/admin/v1/products", strings.NewReader(body)))

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.created.SKU != "SKU-1" || svc.created.Stock != 5 || !svc.created.Price.Equal(decimal.NewFromInt(120000)) {
		t.Fatalf("unexpected input %+v", svc.created)
	}
	if len(store.scopes) != 1 || store.scopes[0] != ProductCacheScope {
		t.Fatalf("expected product scope invalidated, got %v", store.scopes)
	}
}

func TestAdminCreateProductValidation(t *testing.T) {
	store := &invalidationRecorder{}
	resp := httptest.NewRecorder()
	AdminCreateProduct(&stubInventory{}, store, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/admin/v1/products", strings.NewReader(`{"name":"Mug","stock":-1}`)))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if len(store.scopes) != 0 {
		t.Fatal("cache must not be invalidated on a rejected write")
	}
}

func TestAdminUpdateProductFailureKeepsCache(t *testing.T) {
	store := &invalidationRecorder{}
	id := uuid.NewString()
	req := withURLParam(httptest.NewRequest(http.MethodPatch, "/api/admin/v1/products/"+id, strings.NewReader(`{"stock":3}`)), "productId", id)
	resp := httptest.NewRecorder()
	AdminUpdateProduct(&stubInventory{err: pkgerrors.New(pkgerrors.CodeNotFound, "product not found")}, store, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
	if len(store.scopes) != 0 {
		t.Fatal("cache must not be invalidated on a failed update")
	}
}

func TestInvalidateOnSuccess(t *testing.T) {
	store := &invalidationRecorder{}
	ok := InvalidateOnSuccess(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	ok.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", nil))

	failed := InvalidateOnSuccess(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	failed.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", nil))

	if len(store.scopes) != 1 {
		t.Fatalf("expected one invalidation, got %d", len(store.scopes))
	}
}

type stubCoupons struct {
	coupons.Service
	input coupons.CreateCouponInput
}

func (s *stubCoupons) Create(_ context.Context, input coupons.CreateCouponInput) (*models.Coupon, error) {
	s.input = input
	return &models.Coupon{
		ID:            uuid.New(),
		Code:          strings.ToUpper(input.Code),
		DiscountType:  input.DiscountType,
		DiscountValue: input.DiscountValue,
		ValidFrom:     input.ValidFrom,
		ValidUntil:    input.ValidUntil,
		IsActive:      true,
	}, nil
}

func TestAdminCreateCoupon(t *testing.T) {
	svc := &stubCoupons{}
	body := `{"code":"save10","discountType":"percentage","discountValue":"10","minimumPurchase":"0","validFrom":"2026-01-01T00:00:00Z","validUntil":"2026-12-31T00:00:00Z"}`
	resp := httptest.NewRecorder()
	AdminCreateCoupon(svc, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/admin/v1/coupons", strings.NewReader(body)))

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	var envelope struct {
		Data couponResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Code != "SAVE10" || !envelope.Data.IsActive {
		t.Fatalf("unexpected coupon %+v", envelope.Data)
	}

	resp = httptest.NewRecorder()
	AdminCreateCoupon(svc, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/admin/v1/coupons", strings.NewReader(`{"code":"x","discountType":"bogus"}`)))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

type stubPinger struct {
	err error
}

func (p stubPinger) Ping(context.Context) error {
	return p.err
}

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "dev"}}

	resp := httptest.NewRecorder()
	HealthReady(cfg, nil, map[string]Pinger{"db": stubPinger{}, "redis": stubPinger{}}).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if resp.Header().Get(envHeader) != "dev" {
		t.Fatalf("expected env header, got %q", resp.Header().Get(envHeader))
	}

	resp = httptest.NewRecorder()
	HealthReady(cfg, nil, map[string]Pinger{"db": stubPinger{}, "redis": stubPinger{err: errors.New("refused")}}).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
}
