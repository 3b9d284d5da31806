package orders

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nhannt26/e-commerce-website-v3/api/middleware"
	internalorders "github.com/nhannt26/e-commerce-website-v3/internal/orders"
	"github.com/nhannt26/e-commerce-website-v3/pkg/db/models"
	"github.com/nhannt26/e-commerce-website-v3/pkg/enums"
	pkgerrors "github.com/nhannt26/e-commerce-website-v3/pkg/errors"
)

type stubOrderService struct {
	internalorders.Service
	input     internalorders.CreateOrderInput
	actor     internalorders.Actor
	status    enums.OrderStatus
	cancelled bool
	reason    string
	err       error
}

func (s *stubOrderService) order(id uuid.UUID) *models.Order {
	return &models.Order{
		ID:          id,
		OrderNumber: "ORD2603070001",
		UserID:      s.actor.UserID,
		Total:       decimal.NewFromInt(76000),
		Status:      s.status,
	}
}

func (s *stubOrderService) CreateFromCart(_ context.Context, input internalorders.CreateOrderInput) (*models.Order, error) {
	s.input = input
	if s.err != nil {
		return nil, s.err
	}
	s.status = enums.OrderStatusPending
	return s.order(uuid.New()), nil
}

func (s *stubOrderService) GetForActor(_ context.Context, id uuid.UUID, actor internalorders.Actor) (*models.Order, error) {
	s.actor = actor
	if s.err != nil {
		return nil, s.err
	}
	return s.order(id), nil
}

func (s *stubOrderService) Cancel(_ context.Context, id uuid.UUID, reason string, actor internalorders.Actor) (*models.Order, error) {
	s.actor, s.cancelled, s.reason = actor, true, reason
	s.status = enums.OrderStatusCancelled
	return s.order(id), s.err
}

func (s *stubOrderService) UpdateStatus(_ context.Context, id uuid.UUID, next enums.OrderStatus, _ string, actor internalorders.Actor) (*models.Order, error) {
	s.actor, s.status = actor, next
	if s.err != nil {
		return nil, s.err
	}
	return s.order(id), nil
}

func (s *stubOrderService) ListForUser(_ context.Context, userID uuid.UUID, limit int) ([]models.Order, error) {
	s.actor.UserID = userID
	out := make([]models.Order, 0, limit)
	for i := 0; i < 2 && i < limit; i++ {
		out = append(out, *s.order(uuid.New()))
	}
	return out, nil
}

func (s *stubOrderService) Timeline(_ context.Context, _ uuid.UUID, actor internalorders.Actor) (*internalorders.TimelineDTO, error) {
	s.actor = actor
	if s.err != nil {
		return nil, s.err
	}
	return &internalorders.TimelineDTO{
		CurrentStatus: enums.OrderStatusPending,
		Timeline:      []internalorders.TimelineEntryDTO{{Key: "pending", Label: "Order placed", Completed: true}},
	}, nil
}

func (s *stubOrderService) Stats(_ context.Context, userID uuid.UUID) (*internalorders.StatsDTO, error) {
	s.actor.UserID = userID
	return &internalorders.StatsDTO{TotalOrders: 3, TotalSpent: decimal.NewFromInt(150000)}, s.err
}

func authed(req *http.Request, userID uuid.UUID, role enums.UserRole) *http.Request {
	return req.WithContext(middleware.WithUser(req.Context(), userID.String(), string(role)))
}

func withOrderID(req *http.Request, id string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("orderId", id)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

const checkoutBody = `{"shippingAddress":{"fullName":"Nguyen Van A","phone":"0900000000","street":"1 Le Loi","city":"HCMC","postalCode":"700000"},"paymentMethod":"cod"}`

func TestCheckoutCreatesOrder(t *testing.T) {
	svc := &stubOrderService{}
	userID := uuid.New()
	req := authed(httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(checkoutBody)), userID, enums.UserRoleCustomer)

	resp := httptest.NewRecorder()
	Checkout(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.input.UserID != userID || svc.input.PaymentMethod != enums.PaymentMethodCOD {
		t.Fatalf("unexpected input %+v", svc.input)
	}
	var envelope struct {
		Data internalorders.OrderDTO `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.OrderNumber != "ORD2603070001" || envelope.Data.OrderStatus != enums.OrderStatusPending {
		t.Fatalf("unexpected order %+v", envelope.Data)
	}
}

func TestCheckoutValidatesAddress(t *testing.T) {
	body := `{"shippingAddress":{"fullName":"A","phone":"1","street":"x","city":"y"},"paymentMethod":"cod"}`
	req := authed(httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body)), uuid.New(), enums.UserRoleCustomer)

	resp := httptest.NewRecorder()
	Checkout(&stubOrderService{}, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "postalCode") {
		t.Fatalf("expected postalCode field error, got %s", resp.Body.String())
	}
}

func TestCheckoutRejectsUnknownPaymentMethod(t *testing.T) {
	body := strings.Replace(checkoutBody, `"cod"`, `"cheque"`, 1)
	req := authed(httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body)), uuid.New(), enums.UserRoleCustomer)

	resp := httptest.NewRecorder()
	Checkout(&stubOrderService{}, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCheckoutRequiresAuth(t *testing.T) {
	resp := httptest.NewRecorder()
	Checkout(&stubOrderService{}, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(checkoutBody)))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestCheckoutSurfacesCartErrors(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty"), http.StatusUnprocessableEntity},
		{pkgerrors.New(pkgerrors.CodeCartInvalid, "cart validation failed").WithDetails(map[string]any{"errors": []string{"Mug: only 1 available"}}), http.StatusUnprocessableEntity},
		{pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock"), http.StatusConflict},
	}
	for _, tc := range cases {
		req := authed(httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(checkoutBody)), uuid.New(), enums.UserRoleCustomer)
		resp := httptest.NewRecorder()
		Checkout(&stubOrderService{err: tc.err}, nil).ServeHTTP(resp, req)
		if resp.Code != tc.want {
			t.Fatalf("%v: expected %d got %d", tc.err, tc.want, resp.Code)
		}
	}
}

func TestListClampsLimit(t *testing.T) {
	req := authed(httptest.NewRequest(http.MethodGet, "/api/v1/orders?limit=500", nil), uuid.New(), enums.UserRoleCustomer)
	resp := httptest.NewRecorder()
	List(&stubOrderService{}, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for out-of-range limit got %d", resp.Code)
	}

	req = authed(httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil), uuid.New(), enums.UserRoleCustomer)
	resp = httptest.NewRecorder()
	List(&stubOrderService{}, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data struct {
			Orders []internalorders.OrderDTO `json:"orders"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data.Orders) != 2 {
		t.Fatalf("expected 2 orders got %d", len(envelope.Data.Orders))
	}
}

func TestDetailPassesActor(t *testing.T) {
	svc := &stubOrderService{}
	adminID := uuid.New()
	orderID := uuid.New()
	req := withOrderID(authed(httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+orderID.String(), nil), adminID, enums.UserRoleAdmin), orderID.String())

	resp := httptest.NewRecorder()
	Detail(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.actor.UserID != adminID || !svc.actor.IsAdmin() {
		t.Fatalf("unexpected actor %+v", svc.actor)
	}

	forbidden := &stubOrderService{err: pkgerrors.New(pkgerrors.CodeForbidden, "not your order")}
	resp = httptest.NewRecorder()
	Detail(forbidden, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestCancelAcceptsEmptyBody(t *testing.T) {
	svc := &stubOrderService{}
	orderID := uuid.NewString()
	req := withOrderID(authed(httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+orderID+"/cancel", nil), uuid.New(), enums.UserRoleCustomer), orderID)

	resp := httptest.NewRecorder()
	Cancel(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if !svc.cancelled || svc.reason != "" {
		t.Fatalf("expected cancel without reason, got %+v", svc)
	}
}

func TestCancelNotCancellable(t *testing.T) {
	svc := &stubOrderService{err: pkgerrors.New(pkgerrors.CodeNotCancellable, "order cannot be cancelled once shipped")}
	orderID := uuid.NewString()
	req := withOrderID(authed(httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+orderID+"/cancel", strings.NewReader(`{"reason":"changed my mind"}`)), uuid.New(), enums.UserRoleCustomer), orderID)

	resp := httptest.NewRecorder()
	Cancel(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
	if svc.reason != "changed my mind" {
		t.Fatalf("unexpected reason %q", svc.reason)
	}
}

func TestAdminUpdateStatusRoutesCancellation(t *testing.T) {
	orderID := uuid.NewString()
	newReq := func(body string) *http.Request {
		req := httptest.NewRequest(http.MethodPut, "/api/admin/v1/orders/"+orderID+"/status", strings.NewReader(body))
		return withOrderID(authed(req, uuid.New(), enums.UserRoleAdmin), orderID)
	}

	svc := &stubOrderService{}
	resp := httptest.NewRecorder()
	AdminUpdateStatus(svc, nil).ServeHTTP(resp, newReq(`{"status":"cancelled","note":"out of stock"}`))
	if resp.Code != http.StatusOK || !svc.cancelled || svc.reason != "out of stock" {
		t.Fatalf("expected cancel path, got %d %+v", resp.Code, svc)
	}

	svc = &stubOrderService{}
	resp = httptest.NewRecorder()
	AdminUpdateStatus(svc, nil).ServeHTTP(resp, newReq(`{"status":"shipped"}`))
	if resp.Code != http.StatusOK || svc.cancelled || svc.status != enums.OrderStatusShipped {
		t.Fatalf("expected status update, got %d %+v", resp.Code, svc)
	}

	resp = httptest.NewRecorder()
	AdminUpdateStatus(&stubOrderService{}, nil).ServeHTTP(resp, newReq(`{"status":"teleported"}`))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	AdminUpdateStatus(&stubOrderService{err: pkgerrors.New(pkgerrors.CodeInvalidTransition, "cannot move from pending to delivered")}, nil).ServeHTTP(resp, newReq(`{"status":"delivered"}`))
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
}

func TestCheckoutAcceptsSavedAddress(t *testing.T) {
	svc := &stubOrderService{}
	addressID := uuid.New()
	body := `{"addressId":"` + addressID.String() + `","paymentMethod":"cod"}`
	req := authed(httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body)), uuid.New(), enums.UserRoleCustomer)

	resp := httptest.NewRecorder()
	Checkout(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.input.AddressID == nil || *svc.input.AddressID != addressID || svc.input.ShippingAddress != nil {
		t.Fatalf("unexpected input %+v", svc.input)
	}

	req = authed(httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{"paymentMethod":"cod"}`)), uuid.New(), enums.UserRoleCustomer)
	resp = httptest.NewRecorder()
	Checkout(&stubOrderService{}, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without any address got %d", resp.Code)
	}
}

func TestTimeline(t *testing.T) {
	svc := &stubOrderService{}
	userID := uuid.New()
	orderID := uuid.NewString()
	req := withOrderID(authed(httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+orderID+"/timeline", nil), userID, enums.UserRoleCustomer), orderID)

	resp := httptest.NewRecorder()
	Timeline(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data internalorders.TimelineDTO `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.CurrentStatus != enums.OrderStatusPending || len(envelope.Data.Timeline) != 1 || svc.actor.UserID != userID {
		t.Fatalf("unexpected timeline %+v", envelope.Data)
	}

	resp = httptest.NewRecorder()
	Timeline(&stubOrderService{err: pkgerrors.New(pkgerrors.CodeForbidden, "not your order")}, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestStats(t *testing.T) {
	svc := &stubOrderService{}
	userID := uuid.New()
	resp := httptest.NewRecorder()
	Stats(svc, nil).ServeHTTP(resp, authed(httptest.NewRequest(http.MethodGet, "/api/v1/orders/stats", nil), userID, enums.UserRoleCustomer))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data internalorders.StatsDTO `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.TotalOrders != 3 || !envelope.Data.TotalSpent.Equal(decimal.NewFromInt(150000)) || svc.actor.UserID != userID {
		t.Fatalf("unexpected stats %+v", envelope.Data)
	}

	resp = httptest.NewRecorder()
	Stats(svc, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/orders/stats", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}
