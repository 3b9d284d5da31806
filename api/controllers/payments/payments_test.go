package payments

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
	"github.com/nhannt26/e-commerce-website-v3/internal/orders"
	internalpayments "github.com/nhannt26/e-commerce-website-v3/internal/payments"
	"github.com/nhannt26/e-commerce-website-v3/pkg/db/models"
	"github.com/nhannt26/e-commerce-website-v3/pkg/enums"
	pkgerrors "github.com/nhannt26/e-commerce-website-v3/pkg/errors"
)

type stubPaymentService struct {
	internalpayments.Service
	input  internalpayments.CreatePaymentInput
	refund internalpayments.RefundInput
	actor  orders.Actor
	err    error
}

func (s *stubPaymentService) session() *internalpayments.PaymentSession {
	return &internalpayments.PaymentSession{
		PaymentURL:    "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html?vnp_Amount=7600000",
		TransactionID: "TXN01HZX",
		Amount:        decimal.NewFromInt(76000),
		OrderNumber:   "ORD2603070001",
	}
}

func (s *stubPaymentService) CreatePayment(_ context.Context, input internalpayments.CreatePaymentInput) (*internalpayments.PaymentSession, error) {
	s.input = input
	if s.err != nil {
		return nil, s.err
	}
	return s.session(), nil
}

func (s *stubPaymentService) RetryPayment(_ context.Context, input internalpayments.CreatePaymentInput) (*internalpayments.PaymentSession, error) {
	s.input = input
	if s.err != nil {
		return nil, s.err
	}
	return s.session(), nil
}

func (s *stubPaymentService) GetTransaction(_ context.Context, id uuid.UUID, actor orders.Actor) (*models.Transaction, error) {
	s.actor = actor
	if s.err != nil {
		return nil, s.err
	}
	return &models.Transaction{ID: id, TransactionRef: "TXN01HZX", Status: enums.TransactionStatusPending}, nil
}

func (s *stubPaymentService) ProcessRefund(_ context.Context, input internalpayments.RefundInput) (*models.Transaction, error) {
	s.refund = input
	if s.err != nil {
		return nil, s.err
	}
	return &models.Transaction{ID: input.TransactionID, Status: enums.TransactionStatusRefunded}, nil
}

func authed(req *http.Request, userID uuid.UUID, role enums.UserRole) *http.Request {
	return req.WithContext(middleware.WithUser(req.Context(), userID.String(), string(role)))
}

func withParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestCreatePayment(t *testing.T) {
	svc := &stubPaymentService{}
	userID := uuid.New()
	orderID := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/vnpay/create", strings.NewReader(`{"orderId":"`+orderID.String()+`","bankCode":"NCB"}`))
	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	req.Header.Set("User-Agent", "test-agent")

	resp := httptest.NewRecorder()
	Create(svc, nil).ServeHTTP(resp, authed(req, userID, enums.UserRoleCustomer))

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.input.OrderID != orderID || svc.input.Actor.UserID != userID || svc.input.BankCode != "NCB" {
		t.Fatalf("unexpected input %+v", svc.input)
	}
	if svc.input.IPAddress != "203.0.113.7" || svc.input.UserAgent != "test-agent" {
		t.Fatalf("expected client metadata, got %q %q", svc.input.IPAddress, svc.input.UserAgent)
	}
	var envelope struct {
		Data internalpayments.PaymentSession `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.TransactionID != "TXN01HZX" || !strings.Contains(envelope.Data.PaymentURL, "vnp_Amount=7600000") {
		t.Fatalf("unexpected session %+v", envelope.Data)
	}
}

func TestCreatePaymentErrors(t *testing.T) {
	body := `{"orderId":"` + uuid.NewString() + `"}`

	resp := httptest.NewRecorder()
	Create(&stubPaymentService{}, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/payments/vnpay/create", strings.NewReader(body)))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}

	cases := []struct {
		err  error
		want int
	}{
		{pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user"), http.StatusForbidden},
		{pkgerrors.New(pkgerrors.CodeAlreadyPaid, "order already paid"), http.StatusConflict},
		{pkgerrors.New(pkgerrors.CodeGateway, "gateway unavailable"), http.StatusBadGateway},
	}
	for _, tc := range cases {
		req := authed(httptest.NewRequest(http.MethodPost, "/api/v1/payments/vnpay/create", strings.NewReader(body)), uuid.New(), enums.UserRoleCustomer)
		resp := httptest.NewRecorder()
		Create(&stubPaymentService{err: tc.err}, nil).ServeHTTP(resp, req)
		if resp.Code != tc.want {
			t.Fatalf("%v: expected %d got %d", tc.err, tc.want, resp.Code)
		}
	}

	req := authed(httptest.NewRequest(http.MethodPost, "/api/v1/payments/vnpay/create", strings.NewReader(`{"orderId":"`+uuid.NewString()+`","locale":"fr"}`)), uuid.New(), enums.UserRoleCustomer)
	resp = httptest.NewRecorder()
	Create(&stubPaymentService{}, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unsupported locale got %d", resp.Code)
	}
}

func TestRetryPaymentUsesPathOrder(t *testing.T) {
	svc := &stubPaymentService{}
	orderID := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/"+orderID.String()+"/retry", nil)
	req = withParam(authed(req, uuid.New(), enums.UserRoleCustomer), "orderId", orderID.String())

	resp := httptest.NewRecorder()
	Retry(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.input.OrderID != orderID {
		t.Fatalf("expected retry for %s got %s", orderID, svc.input.OrderID)
	}
}

func TestTransactionPassesActor(t *testing.T) {
	svc := &stubPaymentService{}
	adminID := uuid.New()
	id := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/transactions/"+id.String(), nil)
	req = withParam(authed(req, adminID, enums.UserRoleAdmin), "transactionId", id.String())

	resp := httptest.NewRecorder()
	Transaction(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !svc.actor.IsAdmin() || svc.actor.UserID != adminID {
		t.Fatalf("unexpected actor %+v", svc.actor)
	}
	var envelope struct {
		Data internalpayments.TransactionDTO `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.ID != id || envelope.Data.TransactionID != "TXN01HZX" {
		t.Fatalf("unexpected transaction %+v", envelope.Data)
	}
}

func TestAdminRefund(t *testing.T) {
	svc := &stubPaymentService{}
	adminID := uuid.New()
	id := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/transactions/"+id.String()+"/refund", strings.NewReader(`{"amount":"20000","reason":"damaged item"}`))
	req = withParam(authed(req, adminID, enums.UserRoleAdmin), "transactionId", id.String())

	resp := httptest.NewRecorder()
	AdminRefund(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.refund.TransactionID != id || svc.refund.ActorID != adminID || !svc.refund.Amount.Equal(decimal.NewFromInt(20000)) {
		t.Fatalf("unexpected refund input %+v", svc.refund)
	}

	missingReason := httptest.NewRequest(http.MethodPost, "/api/admin/v1/transactions/"+id.String()+"/refund", strings.NewReader(`{"amount":"1"}`))
	missingReason = withParam(authed(missingReason, adminID, enums.UserRoleAdmin), "transactionId", id.String())
	resp = httptest.NewRecorder()
	AdminRefund(svc, nil).ServeHTTP(resp, missingReason)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
