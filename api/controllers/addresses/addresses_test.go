package addresses

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nhannt26/e-commerce-website-v3/api/middleware"
	addresssvc "github.com/nhannt26/e-commerce-website-v3/internal/addresses"
	pkgerrors "github.com/nhannt26/e-commerce-website-v3/pkg/errors"
)

type stubAddresses struct {
	addresssvc.Service
	created addresssvc.CreateInput
	deleted uuid.UUID
	err     error
}

func (s *stubAddresses) Create(_ context.Context, _ uuid.UUID, input addresssvc.CreateInput) (*addresssvc.AddressDTO, error) {
	s.created = input
	if s.err != nil {
		return nil, s.err
	}
	return &addresssvc.AddressDTO{ID: uuid.New(), City: input.City, IsDefault: true}, nil
}

func (s *stubAddresses) Delete(_ context.Context, _ uuid.UUID, id uuid.UUID) error {
	s.deleted = id
	return s.err
}

func (s *stubAddresses) SetDefault(_ context.Context, _ uuid.UUID, id uuid.UUID) (*addresssvc.AddressDTO, error) {
	return &addresssvc.AddressDTO{ID: id, IsDefault: true}, s.err
}

func userRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	return req.WithContext(middleware.WithUser(req.Context(), uuid.NewString(), "customer"))
}

func withParam(req *http.Request, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("addressId", value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestCreate(t *testing.T) {
	svc := &stubAddresses{}
	body := `{"fullName":"Nguyen Van A","phone":"0901234567","street":"1 Le Loi","city":"Hue","postalCode":"530000","country":"Vietnam"}`
	resp := httptest.NewRecorder()
	Create(svc, nil).ServeHTTP(resp, userRequest(http.MethodPost, "/api/v1/addresses", body))

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	var envelope struct {
		Data addresssvc.AddressDTO `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.City != "Hue" || !envelope.Data.IsDefault || svc.created.Country != "Vietnam" {
		t.Fatalf("unexpected address %+v", envelope.Data)
	}
}

func TestCreateValidation(t *testing.T) {
	resp := httptest.NewRecorder()
	Create(&stubAddresses{}, nil).ServeHTTP(resp, userRequest(http.MethodPost, "/api/v1/addresses", `{"fullName":"A"}`))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	Create(&stubAddresses{}, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/addresses", strings.NewReader(`{}`)))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestDelete(t *testing.T) {
	svc := &stubAddresses{}
	id := uuid.New()
	resp := httptest.NewRecorder()
	Delete(svc, nil).ServeHTTP(resp, withParam(userRequest(http.MethodDelete, "/api/v1/addresses/"+id.String(), ""), id.String()))
	if resp.Code != http.StatusOK || svc.deleted != id {
		t.Fatalf("expected delete of %s, got status %d", id, resp.Code)
	}

	svc.err = pkgerrors.New(pkgerrors.CodeValidation, "cannot delete the only address")
	resp = httptest.NewRecorder()
	Delete(svc, nil).ServeHTTP(resp, withParam(userRequest(http.MethodDelete, "/api/v1/addresses/"+id.String(), ""), id.String()))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestSetDefaultRejectsBadID(t *testing.T) {
	resp := httptest.NewRecorder()
	SetDefault(&stubAddresses{}, nil).ServeHTTP(resp, withParam(userRequest(http.MethodPatch, "/api/v1/addresses/x/set-default", ""), "x"))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
