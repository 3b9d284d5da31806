package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/nhannt26/e-commerce-website-v3/pkg/auth"
	"github.com/nhannt26/e-commerce-website-v3/pkg/config"
	"github.com/nhannt26/e-commerce-website-v3/pkg/enums"
)

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 60}

func mintTestToken(t *testing.T, userID uuid.UUID, role enums.UserRole) string {
	t.Helper()
	token, err := auth.MintAccessToken(testJWT, time.Now(), auth.AccessTokenPayload{UserID: userID, Role: role})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

type captured struct {
	user    string
	role    string
	session string
	called  bool
}

func capture(c *captured) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.called = true
		c.user = UserIDFromContext(r.Context())
		c.role = RoleFromContext(r.Context())
		c.session = SessionIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthRejectsMissingToken(t *testing.T) {
	var got captured
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp := httptest.NewRecorder()
	Auth(testJWT, nil)(capture(&got)).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
	if got.called {
		t.Fatal("handler should not run")
	}
}

func TestAuthRejectsInvalidToken(t *testing.T) {
	var got captured
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer invalid")
	resp := httptest.NewRecorder()
	OptionalAuth(testJWT, nil)(capture(&got)).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthSeedsClaims(t *testing.T) {
	userID := uuid.New()
	var got captured
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+mintTestToken(t, userID, enums.UserRoleAdmin))
	resp := httptest.NewRecorder()
	Auth(testJWT, nil)(capture(&got)).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if got.user != userID.String() || got.role != "admin" {
		t.Fatalf("unexpected claims %+v", got)
	}
}

func TestOptionalAuthAllowsGuests(t *testing.T) {
	var got captured
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Session-Id", "guest-123")
	resp := httptest.NewRecorder()
	OptionalAuth(testJWT, nil)(capture(&got)).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if got.user != "" || got.session != "guest-123" {
		t.Fatalf("unexpected context %+v", got)
	}
}

func TestRequireRole(t *testing.T) {
	admin := mintTestToken(t, uuid.New(), enums.UserRoleAdmin)
	customer := mintTestToken(t, uuid.New(), enums.UserRoleCustomer)

	cases := []struct {
		name  string
		token string
		want  int
	}{
		{"admin", admin, http.StatusOK},
		{"customer", customer, http.StatusForbidden},
		{"anonymous", "", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		var got captured
		handler := OptionalAuth(testJWT, nil)(RequireRole(enums.UserRoleAdmin, nil)(capture(&got)))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.token != "" {
			req.Header.Set("Authorization", "Bearer "+tc.token)
		}
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		if resp.Code != tc.want {
			t.Fatalf("%s: expected %d got %d", tc.name, tc.want, resp.Code)
		}
	}
}
