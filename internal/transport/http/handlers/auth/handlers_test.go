package authhandler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/domain/auth"
	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/platform/config"
	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/transport/http/middleware"
)

const testSecret = "auth-handler-test-secret"

type staticPerms struct{}

func (staticPerms) HasPermission(_ context.Context, level int, permission string) (bool, error) {
	for _, p := range auth.PermissionsForLevel(level) {
		if p == permission {
			return true, nil
		}
	}
	return false, nil
}

func newTestRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Auth(testSecret))
	h.RegisterRoutes(r)
	return r
}

func bearerFor(t *testing.T, level int) string {
	t.Helper()
	token, err := auth.GenerateToken(testSecret, auth.Claims{UserID: "user-1", EmployeeID: "emp-1", AccessLevel: level, SessionID: "sess-1"}, time.Hour)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return "Bearer " + token
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error *struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Error == nil {
		t.Fatalf("expected error envelope, got %s", rec.Body.String())
	}
	return body.Error.Code
}

func TestLoginRejectsMalformedBody(t *testing.T) {
	router := newTestRouter(&Handler{Perms: staticPerms{}})

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "invalid_payload" {
		t.Fatalf("expected invalid_payload code, got %q", code)
	}
}

func TestRefreshRequiresBearer(t *testing.T) {
	h := &Handler{
		Service: &auth.Service{Cfg: config.Config{JWTSecret: testSecret}},
		Perms:   staticPerms{},
	}
	router := newTestRouter(h)

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing header"},
		{name: "not bearer", header: "Basic dXNlcjpwYXNz"},
		{name: "garbage token", header: "Bearer not-a-token"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
			if code := errorCode(t, rec); code != "unauthorized" {
				t.Fatalf("expected unauthorized code, got %q", code)
			}
		})
	}
}

func TestMeRequiresAuth(t *testing.T) {
	router := newTestRouter(&Handler{Perms: staticPerms{}})

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestMeReturnsIdentityAndGrants(t *testing.T) {
	router := newTestRouter(&Handler{Perms: staticPerms{}})

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", bearerFor(t, auth.LevelSupervisor))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Data struct {
			UserID      string   `json:"userId"`
			AccessLevel int      `json:"accessLevel"`
			Permissions []string `json:"permissions"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Data.UserID != "user-1" || body.Data.AccessLevel != auth.LevelSupervisor {
		t.Fatalf("unexpected identity: %+v", body.Data)
	}
	if len(body.Data.Permissions) != len(auth.PermissionsForLevel(auth.LevelSupervisor)) {
		t.Fatalf("unexpected grant count: %d", len(body.Data.Permissions))
	}
	hasApprove := false
	for _, p := range body.Data.Permissions {
		if p == auth.PermLeaveApprove {
			hasApprove = true
		}
		if p == auth.PermAdminReset {
			t.Fatal("supervisor must not hold admin.reset")
		}
	}
	if !hasApprove {
		t.Fatal("expected supervisor to hold leave.approve")
	}
}

func TestAdminResetForbiddenBelowAdmin(t *testing.T) {
	router := newTestRouter(&Handler{Perms: staticPerms{}})

	for _, level := range []int{auth.LevelStaff, auth.LevelSupervisor, auth.LevelDivisionHead} {
		req := httptest.NewRequest(http.MethodPost, "/auth/users/abc/reset-password", nil)
		req.Header.Set("Authorization", bearerFor(t, level))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusForbidden {
			t.Fatalf("level %d: expected 403, got %d", level, rec.Code)
		}
	}
}

func TestChangePasswordRequiresAuth(t *testing.T) {
	router := newTestRouter(&Handler{Perms: staticPerms{}})

	req := httptest.NewRequest(http.MethodPost, "/auth/change-password", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
